// Package cache computes content-addressed keys and tags for built images
// and decides when a build can be skipped entirely.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
)

type (
	CacheKey string
	ImageID  string
)

// KeyFromHexDigest wraps an already-computed hex digest (e.g. the build
// context digest) as a CacheKey.
func KeyFromHexDigest(digest string) CacheKey {
	return CacheKey(digest)
}

// CombineKeys merges two cache keys into one 64-hex key. Hex keys are
// decoded to raw bytes first, and both parts are length-prefixed before
// hashing so the combination is unambiguous.
func CombineKeys(a, b CacheKey) CacheKey {
	ah, err := hex.DecodeString(string(a))
	if err != nil {
		ah = []byte(a)
	}
	bh, err := hex.DecodeString(string(b))
	if err != nil {
		bh = []byte(b)
	}

	h := sha256.New()
	var lenBuf [8]byte

	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(ah)))
	h.Write(lenBuf[:])
	h.Write(ah)
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(bh)))
	h.Write(lenBuf[:])
	h.Write(bh)

	return CacheKey(hex.EncodeToString(h.Sum(nil)))
}

// CacheKeyRecipeLines deterministically computes a cache key for a list of
// Dockerfile lines. Each line is length-prefixed (8-byte big-endian) before
// hashing to avoid collisions between sequences like ["ab", "c"] and
// ["a", "bc"].
func CacheKeyRecipeLines(lines []string) CacheKey {
	h := sha256.New()
	var lenBuf [8]byte

	for _, line := range lines {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(line)))
		h.Write(lenBuf[:])
		io.WriteString(h, line)
	}

	return CacheKey(hex.EncodeToString(h.Sum(nil)))
}
