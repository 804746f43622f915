package ctxengine

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fingerprint derives a stable identity from the ordered parts that
// influence a cacheable value (layer set version, skill set version, config
// version, task type). Parts are length-prefixed so adjacent values cannot
// collide by concatenation.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	var lenBuf [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(p)))
		h.Write(lenBuf[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// checksum computes the integrity digest of a static sections value.
// Verified on every cache hit; a mismatch marks the entry corrupted.
func checksum(s StaticSections) [32]byte {
	h := sha256.New()
	for _, text := range []string{s.System.Text, s.Skills.Text, s.Memory.Text} {
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(text)))
		h.Write(lenBuf[:])
		h.Write([]byte(text))
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
