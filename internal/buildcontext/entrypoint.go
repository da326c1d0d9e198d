package buildcontext

import (
	"errors"
	"sort"
	"strings"
)

// DefaultEntrypoint is preferred whenever it exists at the context root.
const DefaultEntrypoint = "main.py"

// ErrNoEntrypoint means the context contains no runnable python file at its
// root.
var ErrNoEntrypoint = errors.New("no entrypoint candidate found in context")

// EntrypointCandidates returns root-level python files that could serve as
// the image entrypoint. main.py, when present, is always first; the rest are
// sorted.
func EntrypointCandidates(c Context) ([]string, error) {
	files, err := c.Files()
	if err != nil {
		return nil, err
	}

	var candidates []string
	hasDefault := false
	for _, f := range files {
		if strings.Contains(f, "/") {
			continue // root-level only
		}
		if !strings.HasSuffix(f, ".py") {
			continue
		}
		if f == DefaultEntrypoint {
			hasDefault = true
			continue
		}
		candidates = append(candidates, f)
	}

	sort.Strings(candidates)
	if hasDefault {
		candidates = append([]string{DefaultEntrypoint}, candidates...)
	}

	if len(candidates) == 0 {
		return nil, ErrNoEntrypoint
	}
	return candidates, nil
}
