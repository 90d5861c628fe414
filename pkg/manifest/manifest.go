// Package manifest scans a workspace root into the list of file
// records considered for one orchestration run. The scan honors
// .gitignore plus codescope's own ignore file, skips binaries and
// unreadable files with a warning, and annotates every record with its
// estimated token cost.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"codescope/pkg/logging"
	"codescope/pkg/tokens"
)

// ErrNoReadableFiles is returned when a scan (or plan rehydration)
// ends with nothing usable.
var ErrNoReadableFiles = errors.New("no readable files in workspace")

// FileRecord is one workspace file considered for grouping. Immutable
// once constructed; records live only for the duration of one run.
type FileRecord struct {
	Path    string // relative to the workspace root, slash-separated
	Content string
	Tokens  int
	Size    int64
	Ext     string
}

// alwaysSkippedDirs never contribute analyzable source regardless of
// ignore rules.
var alwaysSkippedDirs = map[string]bool{
	".git":         true,
	".codescope":   true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
}

// Scan walks root and returns the manifest. maxFileSize caps the size
// of any single file; larger files are skipped. Individual unreadable
// files are skipped with a warning; an empty result is an error.
func Scan(root string, maxFileSize int64) ([]FileRecord, error) {
	logger := logging.Get()
	rules := ignoreRules(root)

	var records []FileRecord
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if alwaysSkippedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if rules != nil && rules.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if rules != nil && rules.MatchesPath(rel) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			logger.Warn("skipping file without metadata", zap.String("path", rel), zap.Error(infoErr))
			return nil
		}
		if info.Size() > maxFileSize {
			logger.Warn("skipping oversized file",
				zap.String("path", rel),
				zap.Int64("size", info.Size()),
				zap.Int64("limit", maxFileSize))
			return nil
		}

		record, readErr := Read(root, rel)
		if readErr != nil {
			logger.Warn("skipping unreadable file", zap.String("path", rel), zap.Error(readErr))
			return nil
		}
		if record != nil {
			records = append(records, *record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	if len(records) == 0 {
		return nil, ErrNoReadableFiles
	}
	return records, nil
}

// Read loads a single file into a record. Returns (nil, nil) for
// binary content, which is skippable but not an error.
func Read(root, rel string) (*FileRecord, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	if isBinary(data) {
		return nil, nil
	}
	content := string(data)
	return &FileRecord{
		Path:    rel,
		Content: content,
		Tokens:  tokens.EstimateFile(content),
		Size:    int64(len(data)),
		Ext:     strings.TrimPrefix(filepath.Ext(rel), "."),
	}, nil
}

// TotalTokens sums the estimated cost of every record.
func TotalTokens(records []FileRecord) int {
	total := 0
	for _, r := range records {
		total += r.Tokens
	}
	return total
}

// ignoreRules combines .gitignore and .codescope/.ignore, mirroring
// how the rest of the toolchain resolves ignore sets. Missing files
// simply contribute nothing.
func ignoreRules(root string) *ignore.GitIgnore {
	var lines []string
	for _, name := range []string{".gitignore", filepath.Join(".codescope", ".ignore")} {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		lines = append(lines, strings.Split(string(data), "\n")...)
	}
	if len(lines) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(lines...)
}

// isBinary applies the git heuristic: a NUL byte in the first chunk
// marks the file as binary.
func isBinary(data []byte) bool {
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	for _, b := range probe {
		if b == 0 {
			return true
		}
	}
	return false
}
