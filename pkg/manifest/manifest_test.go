package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"codescope/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.SetForTesting(zap.NewNop())
	os.Exit(m.Run())
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanCollectsRecords(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, root, "lib/util.go", "package lib\n")
	writeFile(t, root, "README.md", "# readme\n")

	records, err := Scan(root, 1<<20)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3: %+v", len(records), records)
	}

	byPath := map[string]FileRecord{}
	for _, r := range records {
		byPath[r.Path] = r
	}
	rec, ok := byPath["lib/util.go"]
	if !ok {
		t.Fatal("nested file missing; paths should be slash-relative")
	}
	if rec.Ext != "go" {
		t.Errorf("Ext = %q, want go", rec.Ext)
	}
	if rec.Tokens <= 0 {
		t.Errorf("Tokens = %d, want > 0", rec.Tokens)
	}
	if rec.Size != int64(len("package lib\n")) {
		t.Errorf("Size = %d", rec.Size)
	}
}

func TestScanHonorsIgnoreRules(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\nsecret/\n")
	writeFile(t, root, "keep.go", "package keep\n")
	writeFile(t, root, "debug.log", "noise\n")
	writeFile(t, root, "secret/creds.txt", "hunter2\n")
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = {}\n")
	writeFile(t, root, ".git/config", "[core]\n")

	records, err := Scan(root, 1<<20)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, r := range records {
		switch r.Path {
		case "debug.log", "secret/creds.txt", "node_modules/dep/index.js", ".git/config":
			t.Errorf("ignored file %s leaked into the manifest", r.Path)
		}
	}
	if len(records) != 1 || records[0].Path != "keep.go" {
		t.Errorf("records = %+v, want only keep.go", records)
	}
}

func TestScanSkipsBinaryAndOversized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.txt", "text\n")
	writeFile(t, root, "blob.bin", "ab\x00cd")

	big := make([]byte, 2048)
	for i := range big {
		big[i] = 'x'
	}
	if err := os.WriteFile(filepath.Join(root, "huge.txt"), big, 0644); err != nil {
		t.Fatal(err)
	}

	records, err := Scan(root, 1024)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(records) != 1 || records[0].Path != "ok.txt" {
		t.Errorf("records = %+v, want only ok.txt", records)
	}
}

func TestScanEmptyWorkspaceFatal(t *testing.T) {
	if _, err := Scan(t.TempDir(), 1<<20); !errors.Is(err, ErrNoReadableFiles) {
		t.Errorf("err = %v, want ErrNoReadableFiles", err)
	}
}

func TestTotalTokens(t *testing.T) {
	records := []FileRecord{{Tokens: 10}, {Tokens: 32}, {Tokens: 0}}
	if got := TotalTokens(records); got != 42 {
		t.Errorf("TotalTokens = %d, want 42", got)
	}
}
