// Package digest computes content addresses for notebook cells and keeps the
// last digest observed per cell.
package digest

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Digest is the hex-encoded BLAKE3-256 of a cell's (input, output) pair.
type Digest string

// Sum hashes input and output with a 0x00 separator, so ("ab", "c") and
// ("a", "bc") never collide by concatenation.
func Sum(input, output string) Digest {
	h := blake3.New(32, nil)
	h.Write([]byte(input))
	h.Write([]byte{0})
	h.Write([]byte(output))
	return Digest(hex.EncodeToString(h.Sum(nil)))
}

// Store maps cell ids to the digest of their last recorded state.
// It is not safe for concurrent use.
type Store struct {
	m map[string]Digest
}

func NewStore() *Store {
	return &Store{m: make(map[string]Digest)}
}

func (s *Store) Get(id string) (Digest, bool) {
	d, ok := s.m[id]
	return d, ok
}

func (s *Store) Set(id string, d Digest) {
	s.m[id] = d
}

// Changed reports whether d differs from what is stored for id, including
// when id has never been recorded.
func (s *Store) Changed(id string, d Digest) bool {
	prev, ok := s.m[id]
	return !ok || prev != d
}

func (s *Store) Len() int { return len(s.m) }
