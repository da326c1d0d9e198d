package buildcontext

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ManifestDigest returns the sha256 of the manifest content alone. This is
// the dependency-layer cache key: it stays stable across builds whenever the
// manifest is unchanged, no matter what other files do.
func ManifestDigest(c Context) (string, error) {
	data, err := c.ManifestBytes()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Digest returns a deterministic sha256 over the whole file set. Files are
// visited in sorted path order and hashed as "<path>\n<content>", so the
// result is independent of walk order and of file timestamps.
func Digest(c Context) (string, error) {
	files, err := c.Files()
	if err != nil {
		return "", err
	}

	h := sha256.New()
	for _, rel := range files {
		data, err := c.ReadFile(rel)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\n", rel)
		h.Write(data)
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
