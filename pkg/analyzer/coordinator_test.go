package analyzer

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"codescope/pkg/config"
	"codescope/pkg/grouper"
	"codescope/pkg/llm"
	"codescope/pkg/logging"
	"codescope/pkg/manifest"
)

func TestMain(m *testing.M) {
	logging.SetForTesting(zap.NewNop())
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Model:         "test-model",
		TokenCeiling:  100,
		RetryDeadline: time.Second,
		RetryBackoff:  time.Millisecond,
		Stagger:       time.Millisecond,
		MaxConcurrent: 4,
		APIKeys:       []string{"test-key"},
	}
}

// promptFunc adapts a function into an llm.Client.
type promptFunc func(prompt string) (string, error)

func (f promptFunc) Generate(_ context.Context, prompt string) (string, error) {
	return f(prompt)
}

func funcFactory(f promptFunc) llm.Factory {
	return func(context.Context, string) (llm.Client, error) { return f, nil }
}

func makeGroups(names ...string) []grouper.Group {
	var groups []grouper.Group
	for _, n := range names {
		groups = append(groups, grouper.Group{
			Name:   n,
			Tokens: 10,
			Files: []manifest.FileRecord{
				{Path: n + "/file.go", Content: "package " + n + "\n", Tokens: 10},
			},
		})
	}
	return groups
}

func TestAnalyzeAllPreservesOrderAndIsolatesFailure(t *testing.T) {
	groups := makeGroups("alpha", "beta", "gamma")

	factory := funcFactory(func(prompt string) (string, error) {
		if strings.Contains(prompt, "beta/file.go") {
			return "", errors.New("invalid argument: hard failure")
		}
		switch {
		case strings.Contains(prompt, "alpha/file.go"):
			return "answer for alpha", nil
		default:
			return "answer for gamma", nil
		}
	})

	c := NewCoordinator(testConfig(), factory)
	outcomes := c.AnalyzeAll(context.Background(), groups, "what does this do?")

	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	if outcomes[0].Failed() || outcomes[0].Text != "answer for alpha" {
		t.Errorf("outcome[0] = %+v, want alpha success", outcomes[0])
	}
	if !outcomes[1].Failed() {
		t.Errorf("outcome[1] = %+v, want failure", outcomes[1])
	}
	if outcomes[2].Failed() || outcomes[2].Text != "answer for gamma" {
		t.Errorf("outcome[2] = %+v, want gamma success", outcomes[2])
	}
	for i, o := range outcomes {
		if o.Group != groups[i].Name {
			t.Errorf("outcome[%d].Group = %q, want %q", i, o.Group, groups[i].Name)
		}
	}
}

func TestAnalyzeAllRespectsConcurrencyBound(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 2
	cfg.Stagger = 0

	var mu sync.Mutex
	inFlight, peak := 0, 0

	factory := funcFactory(func(string) (string, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return "ok", nil
	})

	c := NewCoordinator(cfg, factory)
	outcomes := c.AnalyzeAll(context.Background(), makeGroups("a", "b", "c", "d", "e"), "q")

	for i, o := range outcomes {
		if o.Failed() {
			t.Errorf("outcome[%d] failed: %v", i, o.Err)
		}
	}
	if peak > 2 {
		t.Errorf("peak concurrency %d exceeds configured bound 2", peak)
	}
}

func TestAnalyzeAllUsesSpecializedInstruction(t *testing.T) {
	groups := makeGroups("core")
	groups[0].Instruction = "Pay attention to goroutine leaks."

	var captured string
	factory := funcFactory(func(prompt string) (string, error) {
		captured = prompt
		return "ok", nil
	})

	NewCoordinator(testConfig(), factory).AnalyzeAll(context.Background(), groups, "q")

	if !strings.Contains(captured, "Pay attention to goroutine leaks.") {
		t.Error("specialized instruction missing from prompt")
	}
	if strings.Contains(captured, genericInstruction) {
		t.Error("generic instruction should be replaced by the specialized one")
	}
	if !strings.Contains(captured, "===== FILE: core/file.go =====") {
		t.Error("prompt should delimit file contents by path")
	}
	if !strings.Contains(captured, "batch 1 of 1") {
		t.Error("prompt should state the group's position among all groups")
	}
}

func TestAnalyzeAllEmpty(t *testing.T) {
	c := NewCoordinator(testConfig(), funcFactory(func(string) (string, error) { return "", nil }))
	if outcomes := c.AnalyzeAll(context.Background(), nil, "q"); len(outcomes) != 0 {
		t.Errorf("got %d outcomes for empty input", len(outcomes))
	}
}
