package versions

import "github.com/Masterminds/semver/v3"

// IsValidVersion reports whether raw parses as a semantic version.
func IsValidVersion(raw string) bool {
	_, err := semver.NewVersion(raw)
	return err == nil
}

// Compare returns -1, 0, or 1 when a is older than, equal to, or newer
// than b. Unparseable input compares as equal.
func Compare(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return 0
	}
	return va.Compare(vb)
}
