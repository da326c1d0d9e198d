// Tests in this file cover the default filesystem operations wiring.
package fsops

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultOpsPathMethods(t *testing.T) {
	t.Parallel()

	ops := DefaultOps()

	abs, err := ops.Path.Abs(".")
	if err != nil {
		t.Fatalf("Abs failed: %v", err)
	}
	if !ops.Path.IsAbs(abs) {
		t.Fatalf("Abs returned non-absolute path: %q", abs)
	}

	rel, err := ops.Path.Rel(abs, filepath.Join(abs, "mocks"))
	if err != nil {
		t.Fatalf("Rel failed: %v", err)
	}
	if rel != "mocks" {
		t.Fatalf("Rel returned %q, want %q", rel, "mocks")
	}

	joined := ops.Path.Join("mocks", "fsops_mocks.go")
	if !strings.HasSuffix(joined, filepath.Join("mocks", "fsops_mocks.go")) {
		t.Fatalf("Join result %q missing expected segment", joined)
	}

	clean := ops.Path.Clean(filepath.Join("mocks", "..", "fsops.go"))
	if clean != "fsops.go" {
		t.Fatalf("Clean returned %q, want %q", clean, "fsops.go")
	}

	if ext := ops.Path.Ext("bot/main.py"); ext != ".py" {
		t.Fatalf("Ext returned %q, want %q", ext, ".py")
	}
}

func TestStdOSOpsStatAndRead(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(file, []byte("python-telegram-bot==20.7\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ops := stdOSOps{}

	fi, err := ops.Stat(file)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if fi.Name() != "requirements.txt" {
		t.Fatalf("Stat returned file %q, want %q", fi.Name(), "requirements.txt")
	}

	data, err := ops.ReadFile(file)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "python-telegram-bot") {
		t.Fatalf("ReadFile content mismatch: %q", data)
	}

	f, err := ops.Open(file)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	f.Close()
}

func TestStdDirWalkerVisitsEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"main.py", "requirements.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	walker := stdDirWalker{}
	visited := map[string]struct{}{}
	err := walker.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		visited[d.Name()] = struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir failed: %v", err)
	}

	for _, name := range []string{"main.py", "requirements.txt"} {
		if _, ok := visited[name]; !ok {
			t.Fatalf("WalkDir did not visit %q; visited=%v", name, visited)
		}
	}
}
