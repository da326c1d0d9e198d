// Package versions handles the semver reasoning behind base image pinning:
// parsing pinned tags, validating that a base reference is reproducible, and
// choosing an interpreter version from manifest constraints.
package versions

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrUnpinnedBase means the base reference cannot guarantee reproducible
// builds (missing tag, floating tag, or a tag that carries no version).
var ErrUnpinnedBase = errors.New("base reference is not pinned to a version")

// Floating tags that defeat the reproducibility guarantee of stage 1.
var floatingTags = map[string]struct{}{
	"latest": {},
	"stable": {},
	"slim":   {},
	"alpine": {},
}

// BaseRef is a parsed base image reference such as "python:3.11-slim".
type BaseRef struct {
	Name    string          // "python"
	Tag     string          // "3.11-slim"
	Version *semver.Version // 3.11.0
	Variant string          // "slim" (may be empty)
}

func (r BaseRef) String() string {
	return r.Name + ":" + r.Tag
}

// ParseBaseRef splits and validates a pinned base reference. The tag must
// begin with a version; an optional "-variant" suffix is allowed.
func ParseBaseRef(ref string) (BaseRef, error) {
	name, tag, ok := strings.Cut(ref, ":")
	if !ok || name == "" || tag == "" {
		return BaseRef{}, fmt.Errorf("%w: %q has no tag", ErrUnpinnedBase, ref)
	}

	if _, floating := floatingTags[tag]; floating {
		return BaseRef{}, fmt.Errorf("%w: %q is a floating tag", ErrUnpinnedBase, ref)
	}

	versionPart, variant, _ := strings.Cut(tag, "-")
	v, err := semver.NewVersion(versionPart)
	if err != nil {
		return BaseRef{}, fmt.Errorf("%w: tag %q: %v", ErrUnpinnedBase, tag, err)
	}

	return BaseRef{
		Name:    name,
		Tag:     tag,
		Version: v,
		Variant: variant,
	}, nil
}

// ValidatePinnedBase reports whether ref is acceptable for stage 1.
func ValidatePinnedBase(ref string) error {
	_, err := ParseBaseRef(ref)
	return err
}

// MaxSatisfying returns the largest candidate version that satisfies every
// constraint. Constraints are ANDed. Returns an error when the sets don't
// intersect.
func MaxSatisfying(candidates []string, constraints []string) (string, error) {
	if len(candidates) == 0 {
		return "", errors.New("no candidate versions provided")
	}

	parsed := make([]*semver.Constraints, 0, len(constraints))
	for _, c := range constraints {
		pc, err := semver.NewConstraint(c)
		if err != nil {
			return "", fmt.Errorf("invalid constraint %q: %w", c, err)
		}
		parsed = append(parsed, pc)
	}

	versions := make([]*semver.Version, 0, len(candidates))
	for _, raw := range candidates {
		v, err := semver.NewVersion(raw)
		if err != nil {
			return "", fmt.Errorf("invalid candidate %q: %w", raw, err)
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].LessThan(versions[j]) })

	for i := len(versions) - 1; i >= 0; i-- {
		ok := true
		for _, c := range parsed {
			if !c.Check(versions[i]) {
				ok = false
				break
			}
		}
		if ok {
			return candidates[indexOf(candidates, versions[i])], nil
		}
	}

	return "", fmt.Errorf("no candidate among %v satisfies %v", candidates, constraints)
}

func indexOf(raw []string, v *semver.Version) int {
	for i, r := range raw {
		if parsed, err := semver.NewVersion(r); err == nil && parsed.Equal(v) {
			return i
		}
	}
	return 0
}
