// Package random provides seed generation and weighted sampling helpers.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	mathrand "math/rand"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewRand returns a math/rand source seeded from crypto/rand. It falls back
// to a fixed seed when the system source is unavailable.
func NewRand() *mathrand.Rand {
	seed, err := NewSeed()
	if err != nil {
		seed = 1
	}
	return mathrand.New(mathrand.NewSource(seed))
}
