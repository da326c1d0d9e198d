// Package buildcontext models the set of files available to the image build
// pipeline. A Context is a read-only snapshot rooted at the project directory:
// the pipeline inspects it, hashes it, and streams it to the Docker daemon,
// but never mutates it.
package buildcontext

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/botpack/botpack/internal/fsops"
)

// ManifestName is the dependency manifest expected at the context root.
const ManifestName = "requirements.txt"

// Dirs that never belong in an image and are skipped during scans and tar
// streaming.
var defaultIgnoreDirs = []string{".git", "__pycache__", ".venv", "venv", ".botpack"}

var (
	ErrMissingManifest = errors.New("dependency manifest not found at context root")
	ErrNotADirectory   = errors.New("context root is not a directory")
)

// Context is the file set available at build time.
type Context interface {
	// Root returns the absolute, cleaned context root.
	Root() string

	// HasManifest reports whether the dependency manifest exists at the root.
	HasManifest() bool

	// ManifestBytes returns the raw manifest content.
	ManifestBytes() ([]byte, error)

	// ReadFile returns the content of a file given its slash-separated path
	// relative to the root.
	ReadFile(rel string) ([]byte, error)

	// Files lists every file in the context as slash-separated paths relative
	// to the root, sorted, with ignored directories skipped.
	Files() ([]string, error)

	// FindFile finds all files with the given base name anywhere in the
	// context, sorted for determinism.
	FindFile(filename string) ([]string, error)
}

type snapshot struct {
	root string
	ops  fsops.Ops
}

// New builds a Context rooted at dir using the real filesystem.
func New(dir string) (Context, error) {
	return NewWithOps(dir, fsops.DefaultOps())
}

// NewWithOps is the constructor that allows injecting filesystem dependencies
// for testing.
func NewWithOps(dir string, ops fsops.Ops) (Context, error) {
	if dir == "" {
		return nil, errors.New("context root should not be empty")
	}

	if ops.Path == nil || ops.OS == nil || ops.Walker == nil {
		return nil, errors.New("build context dependencies cannot be nil")
	}

	abs, err := ops.Path.Abs(dir)
	if err != nil {
		return nil, err
	}

	fi, err := ops.OS.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, ErrNotADirectory
	}

	return &snapshot{
		root: ops.Path.Clean(abs),
		ops:  ops,
	}, nil
}

func (s *snapshot) Root() string {
	return s.root
}

func (s *snapshot) HasManifest() bool {
	fi, err := s.ops.OS.Stat(s.ops.Path.Join(s.root, ManifestName))
	return err == nil && !fi.IsDir()
}

func (s *snapshot) ManifestBytes() ([]byte, error) {
	data, err := s.ops.OS.ReadFile(s.ops.Path.Join(s.root, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingManifest, ManifestName)
	}
	return data, nil
}

func (s *snapshot) ReadFile(rel string) ([]byte, error) {
	return s.ops.OS.ReadFile(s.ops.Path.Join(s.root, filepath.FromSlash(rel)))
}

func (s *snapshot) Files() ([]string, error) {
	var out []string

	walkFn := func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if ignoredDir(d.Name()) && s.ops.Path.Clean(path) != s.root {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := s.ops.Path.Rel(s.root, s.ops.Path.Clean(path))
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	}

	if err := s.ops.Walker.WalkDir(s.root, walkFn); err != nil {
		return nil, err
	}

	sort.Strings(out)
	return out, nil
}

func (s *snapshot) FindFile(filename string) ([]string, error) {
	if filename == "" {
		return nil, errors.New("filename is empty")
	}
	if strings.ContainsAny(filename, "/\\") {
		return nil, fmt.Errorf("%s is not a plain filename", filename)
	}

	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	var results []string
	for _, f := range files {
		if path.Base(f) == filename {
			results = append(results, f)
		}
	}
	return results, nil
}

func ignoredDir(name string) bool {
	for _, d := range defaultIgnoreDirs {
		if name == d {
			return true
		}
	}
	return false
}
