// Package fingerprint implements the streaming hash primitive cache
// keys are built out of: a thin, typed wrapper around crypto/sha256
// that absorbs length-prefixed fields so no two distinct inputs can
// ever collide by concatenation (a bare string join of ["ab", "c"] and
// ["a", "bc"] would otherwise hash identically).
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"
)

// schemaVersion is absorbed as the first byte of every fingerprint so a
// future change to this package's encoding can never silently collide
// with keys computed under an older version.
const schemaVersion byte = 1

// Fingerprint accumulates typed, length-prefixed fields into a single
// SHA-256 digest. The zero value is not usable; use New.
type Fingerprint struct {
	h hash.Hash
}

// New returns a Fingerprint primed with the schema-version byte.
func New() *Fingerprint {
	f := &Fingerprint{h: sha256.New()}
	f.h.Write([]byte{schemaVersion})
	return f
}

// AbsorbBytes absorbs a length-prefixed byte slice.
func (f *Fingerprint) AbsorbBytes(b []byte) *Fingerprint {
	var length [8]byte
	binary.LittleEndian.PutUint64(length[:], uint64(len(b)))
	f.h.Write(length[:])
	f.h.Write(b)
	return f
}

// AbsorbString absorbs a length-prefixed string.
func (f *Fingerprint) AbsorbString(s string) *Fingerprint {
	return f.AbsorbBytes([]byte(s))
}

// AbsorbUint64 absorbs a fixed-width unsigned integer.
func (f *Fingerprint) AbsorbUint64(v uint64) *Fingerprint {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	f.h.Write(buf[:])
	return f
}

// AbsorbBool absorbs a single boolean byte.
func (f *Fingerprint) AbsorbBool(b bool) *Fingerprint {
	if b {
		f.h.Write([]byte{1})
	} else {
		f.h.Write([]byte{0})
	}
	return f
}

// AbsorbSequence absorbs a length-prefixed sequence of strings in the
// order given — callers that need order-independence must sort before
// calling this.
func (f *Fingerprint) AbsorbSequence(items []string) *Fingerprint {
	f.AbsorbUint64(uint64(len(items)))
	for _, item := range items {
		f.AbsorbString(item)
	}
	return f
}

// AbsorbMapping absorbs a string-to-string mapping as a length-prefixed
// sequence of key/value pairs, sorted lexicographically by key so the
// result is independent of map iteration order.
func (f *Fingerprint) AbsorbMapping(m map[string]string) *Fingerprint {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f.AbsorbUint64(uint64(len(keys)))
	for _, k := range keys {
		f.AbsorbString(k)
		f.AbsorbString(m[k])
	}
	return f
}

// Sum returns the lowercase hex digest of everything absorbed so far.
// It does not consume the Fingerprint; further Absorb calls may follow.
func (f *Fingerprint) Sum() string {
	return hex.EncodeToString(f.h.Sum(nil))
}
