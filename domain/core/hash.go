package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Fingerprint accumulates labels and float64 values into a sha256 digest.
// Floats are hashed by their IEEE-754 bits so equal fingerprints mean
// bit-for-bit equal results.
type Fingerprint struct {
	buf []byte
}

// AddString appends a length-prefixed string
func (f *Fingerprint) AddString(s string) {
	f.buf = binary.LittleEndian.AppendUint64(f.buf, uint64(len(s)))
	f.buf = append(f.buf, s...)
}

// AddFloats appends every value in xs
func (f *Fingerprint) AddFloats(xs ...float64) {
	for _, x := range xs {
		f.buf = binary.LittleEndian.AppendUint64(f.buf, math.Float64bits(x))
	}
}

// Sum returns the digest of everything added so far
func (f *Fingerprint) Sum() Hash {
	return NewHash(f.buf)
}
