// Package config loads codescope settings from .codescope/config.yaml,
// environment variables and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// MinTokenCeiling and MaxTokenCeiling bound the accepted per-group
	// token budget. DefaultTokenCeiling leaves headroom under the
	// provider's 1M context window for instructions and the question.
	MinTokenCeiling     = 100_000
	MaxTokenCeiling     = 950_000
	DefaultTokenCeiling = 900_000

	DefaultModel         = "gemini-2.5-flash"
	DefaultRetryDeadline = 4 * time.Minute
	DefaultRetryBackoff  = 1 * time.Second
	DefaultStagger       = 700 * time.Millisecond
	DefaultMaxConcurrent = 8
	DefaultMaxFileSize   = 2 << 20 // larger files are skipped by the scanner
)

// defaultRotatableFragments are the error-message fragments treated as
// transient or credential-specific when the provider gives no usable
// structured code. Kept as configuration because provider wording
// changes silently.
var defaultRotatableFragments = []string{
	"429",
	"rate limit",
	"quota",
	"503",
	"overloaded",
	"try again later",
	"api key not valid",
}

// Config carries every tunable the engine reads. One value is loaded
// per process invocation; packages receive it explicitly.
type Config struct {
	Model        string `mapstructure:"model"`
	TokenCeiling int    `mapstructure:"token_ceiling"`

	RetryDeadline time.Duration `mapstructure:"retry_deadline"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`

	Stagger       time.Duration `mapstructure:"stagger"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`

	MaxFileSize int64 `mapstructure:"max_file_size"`

	// RotatableFragments overrides the built-in substring list used to
	// classify provider errors as retryable.
	RotatableFragments []string `mapstructure:"rotatable_fragments"`

	// APIKeys is the credential pool. Usually supplied through the
	// GEMINI_API_KEYS environment variable (comma separated).
	APIKeys []string `mapstructure:"api_keys"`
}

// Load reads configuration relative to root (the workspace being
// analyzed). A missing config file is not an error; defaults apply.
func Load(root string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(root, ".codescope"))

	v.SetDefault("model", DefaultModel)
	v.SetDefault("token_ceiling", DefaultTokenCeiling)
	v.SetDefault("retry_deadline", DefaultRetryDeadline)
	v.SetDefault("retry_backoff", DefaultRetryBackoff)
	v.SetDefault("stagger", DefaultStagger)
	v.SetDefault("max_concurrent", DefaultMaxConcurrent)
	v.SetDefault("max_file_size", DefaultMaxFileSize)
	v.SetDefault("rotatable_fragments", defaultRotatableFragments)

	v.SetEnvPrefix("CODESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.APIKeys) == 0 {
		cfg.APIKeys = keysFromEnv()
	}

	if err := ValidateCeiling(cfg.TokenCeiling); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateCeiling rejects per-group token budgets outside the
// supported range.
func ValidateCeiling(ceiling int) error {
	if ceiling < MinTokenCeiling || ceiling > MaxTokenCeiling {
		return fmt.Errorf("token ceiling %d outside supported range [%d, %d]",
			ceiling, MinTokenCeiling, MaxTokenCeiling)
	}
	return nil
}

// RequireKeys fails when no credentials are available. Called before
// any operation that reaches the provider; pure operations never need
// keys.
func (c *Config) RequireKeys() error {
	if len(c.APIKeys) == 0 {
		return fmt.Errorf("no API keys configured: set GEMINI_API_KEYS or api_keys in .codescope/config.yaml")
	}
	return nil
}

// Fragments returns the rotatable fragment list, falling back to the
// built-in defaults when the config cleared it.
func (c *Config) Fragments() []string {
	if len(c.RotatableFragments) == 0 {
		return defaultRotatableFragments
	}
	return c.RotatableFragments
}

func keysFromEnv() []string {
	for _, name := range []string{"GEMINI_API_KEYS", "GEMINI_API_KEY"} {
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		var keys []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		if len(keys) > 0 {
			return keys
		}
	}
	return nil
}
