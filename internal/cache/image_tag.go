package cache

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ImageTag returns the Docker-safe tag for a build: a short project-derived
// prefix plus a 64-hex core combining the dependency key and the full
// context key.
func ImageTag(projectPath string, depKey, contextKey CacheKey) string {
	return composeImageTag(composePrefix(projectPath), depKey, contextKey)
}

// composeImageTag returns a Docker-safe tag from an optional prefix and two
// hex cache keys: "<prefix>-<64-hex>" (prefix capped at 63 chars after
// sanitization) or just "<64-hex>".
func composeImageTag(prefix string, a, b CacheKey) string {
	core := string(CombineKeys(a, b)) // 64 chars

	pfx := sanitizeTagPrefix(prefix)
	if pfx == "" {
		return core
	}

	if len(pfx) > 63 {
		pfx = pfx[:63]
	}
	return pfx + "-" + core
}

// composePrefix takes an absolute project path and returns a short,
// Docker-safe prefix derived from its last one or two directories:
//
//	/home/user/projects/subbot        → projects_subbot
//	/home/user/subbot                 → subbot
//
// The home directory is trimmed, and the result contains only letters,
// digits, underscores, and hyphens.
func composePrefix(projectPath string) string {
	if projectPath == "" {
		return "unknown-project"
	}

	if strings.HasPrefix(projectPath, "~") {
		projectPath = strings.TrimPrefix(projectPath, "~")
		if home, err := os.UserHomeDir(); err == nil {
			projectPath = filepath.Join(home, projectPath)
		}
	}
	projectPath = filepath.Clean(projectPath)

	if home, err := os.UserHomeDir(); err == nil {
		if after, ok := strings.CutPrefix(projectPath, home); ok {
			projectPath = after
		}
	}

	parts := strings.FieldsFunc(projectPath, func(r rune) bool {
		return r == filepath.Separator
	})
	if len(parts) == 0 {
		return "unknown-project"
	}

	// If the last segment is a file (has extension), drop it.
	last := parts[len(parts)-1]
	if strings.ContainsRune(last, '.') {
		parts = parts[:len(parts)-1]
	}

	var elems []string
	if len(parts) >= 2 {
		elems = parts[len(parts)-2:]
	} else {
		elems = parts
	}

	prefix := sanitizeTagPrefix(strings.Join(elems, "_"))
	if prefix == "" {
		return "unknown-project"
	}
	return prefix
}

// sanitizeTagPrefix keeps only [A-Za-z0-9_.-], lowercases, trims leading
// '.'/'-'. Returns "" if nothing valid remains.
func sanitizeTagPrefix(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.TrimLeft(b.String(), ".-")
}
