package buildcontext

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/botpack/botpack/internal/fsops"
	fsopsMocks "github.com/botpack/botpack/internal/fsops/mocks"
	"go.uber.org/mock/gomock"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
}

func TestNewWithOps_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewWithOps("", fsops.Ops{}); err == nil {
		t.Fatal("expected error for empty directory")
	}

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pathOps := fsopsMocks.NewMockPathOps(ctrl)
	osOps := fsopsMocks.NewMockOSOps(ctrl)
	walker := fsopsMocks.NewMockDirWalker(ctrl)

	if _, err := NewWithOps("root", fsops.Ops{Path: nil, OS: osOps, Walker: walker}); err == nil {
		t.Fatal("expected error when Path dependency is nil")
	}
	if _, err := NewWithOps("root", fsops.Ops{Path: pathOps, OS: nil, Walker: walker}); err == nil {
		t.Fatal("expected error when OS dependency is nil")
	}
	if _, err := NewWithOps("root", fsops.Ops{Path: pathOps, OS: osOps, Walker: nil}); err == nil {
		t.Fatal("expected error when Walker dependency is nil")
	}
}

func TestNew_RejectsFileRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "main.py")
	if err := os.WriteFile(file, []byte("print()"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := New(file); !errors.Is(err, ErrNotADirectory) {
		t.Fatalf("New(%q) error = %v, want ErrNotADirectory", file, err)
	}
}

func TestFilesSortedAndIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"main.py":               "print('bot')",
		"requirements.txt":      "python-telegram-bot==20.7\n",
		"handlers/convert.py":   "pass",
		".git/config":           "ignored",
		"__pycache__/m.pyc":     "ignored",
		".venv/bin/activate":    "ignored",
	})

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	files, err := c.Files()
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}

	want := []string{"handlers/convert.py", "main.py", "requirements.txt"}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("Files = %v, want %v", files, want)
	}
}

func TestManifestInvariant(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"main.py": "print()"})

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if c.HasManifest() {
		t.Fatal("HasManifest = true for context without manifest")
	}
	if _, err := c.ManifestBytes(); !errors.Is(err, ErrMissingManifest) {
		t.Fatalf("ManifestBytes error = %v, want ErrMissingManifest", err)
	}

	writeTree(t, dir, map[string]string{ManifestName: "requests\n"})
	if !c.HasManifest() {
		t.Fatal("HasManifest = false after manifest was written")
	}
}

func TestManifestDigestIsolatedFromAppFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		ManifestName: "python-telegram-bot==20.7\n",
		"main.py":    "print('v1')",
	})

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	depKey1, err := ManifestDigest(c)
	if err != nil {
		t.Fatalf("ManifestDigest failed: %v", err)
	}
	ctxKey1, err := Digest(c)
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}

	// Change an application file only: the dependency key must not move.
	writeTree(t, dir, map[string]string{"main.py": "print('v2')"})

	depKey2, err := ManifestDigest(c)
	if err != nil {
		t.Fatalf("ManifestDigest failed: %v", err)
	}
	ctxKey2, err := Digest(c)
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}

	if depKey1 != depKey2 {
		t.Fatalf("manifest digest changed with app file edit: %s != %s", depKey1, depKey2)
	}
	if ctxKey1 == ctxKey2 {
		t.Fatal("context digest did not change with app file edit")
	}

	// Change the manifest: the dependency key must move.
	writeTree(t, dir, map[string]string{ManifestName: "python-telegram-bot==21.0\n"})
	depKey3, err := ManifestDigest(c)
	if err != nil {
		t.Fatalf("ManifestDigest failed: %v", err)
	}
	if depKey3 == depKey2 {
		t.Fatal("manifest digest did not change with manifest edit")
	}
}

func TestDigestStableAcrossRebuilds(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		ManifestName: "requests\n",
		"main.py":    "print()",
	})

	c1, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c2, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	d1, err := Digest(c1)
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	d2, err := Digest(c2)
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("digest not stable: %s != %s", d1, d2)
	}
}

func TestEntrypointCandidates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"bot.py":              "pass",
		"main.py":             "pass",
		"admin.py":            "pass",
		"handlers/convert.py": "pass", // nested, never a candidate
		"requirements.txt":    "requests\n",
	})

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got, err := EntrypointCandidates(c)
	if err != nil {
		t.Fatalf("EntrypointCandidates failed: %v", err)
	}
	want := []string{"main.py", "admin.py", "bot.py"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("EntrypointCandidates = %v, want %v", got, want)
	}
}

func TestEntrypointCandidates_None(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"requirements.txt": "requests\n"})

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := EntrypointCandidates(c); !errors.Is(err, ErrNoEntrypoint) {
		t.Fatalf("EntrypointCandidates error = %v, want ErrNoEntrypoint", err)
	}
}

func TestFindFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"main.py":          "pass",
		"handlers/main.py": "pass",
		"requirements.txt": "requests\n",
	})

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got, err := c.FindFile("main.py")
	if err != nil {
		t.Fatalf("FindFile failed: %v", err)
	}
	want := []string{"handlers/main.py", "main.py"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FindFile = %v, want %v", got, want)
	}

	if _, err := c.FindFile("handlers/main.py"); err == nil {
		t.Fatal("expected error for non-plain filename")
	}
}

func TestWriteTarRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"main.py":          "print('bot')",
		"requirements.txt": "requests\n",
	})

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var buf bytes.Buffer
	dockerfile := []byte("FROM python:3.11-slim\n")
	if err := WriteTar(c, &buf, map[string][]byte{"Dockerfile": dockerfile}); err != nil {
		t.Fatalf("WriteTar failed: %v", err)
	}

	tr := tar.NewReader(&buf)
	entries := map[string]string{}
	var order []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar read failed: %v", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("tar entry read failed: %v", err)
		}
		entries[hdr.Name] = string(data)
		order = append(order, hdr.Name)
	}

	wantOrder := []string{"main.py", "requirements.txt", "Dockerfile"}
	if !reflect.DeepEqual(order, wantOrder) {
		t.Fatalf("tar order = %v, want %v", order, wantOrder)
	}
	if entries["Dockerfile"] != string(dockerfile) {
		t.Fatalf("Dockerfile entry = %q", entries["Dockerfile"])
	}
	if entries["requirements.txt"] != "requests\n" {
		t.Fatalf("manifest entry = %q", entries["requirements.txt"])
	}
}
