// Package rng provides the deterministic random source used by instance
// generation. Every mission owns one Source keyed by its seed; replaying the
// same seed against the same content tables replays the exact draw sequence.
package rng

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"golang.org/x/crypto/blake2b"
)

// Source is a seeded pseudo-random stream. Not safe for concurrent use;
// each generation job owns its own Source.
type Source struct {
	*rand.Rand
	seed uint64
}

// New creates a Source keyed by seed.
func New(seed uint64) *Source {
	return &Source{
		Rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// Seed returns the seed this Source was created with.
func (s *Source) Seed() uint64 { return s.seed }

// FloatRange returns a uniform value in [min, max).
func (s *Source) FloatRange(min, max float64) float64 {
	return min + (max-min)*s.Float64()
}

// DeriveSeed mixes a base seed with string parts into a new seed.
// Used to give every instance of a template an independent but reproducible
// mission seed: DeriveSeed(stationSeed, templateID, counter).
func DeriveSeed(base uint64, parts ...string) uint64 {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails with a bad key; we pass none.
		panic(err)
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], base)
	h.Write(buf[:])
	for _, p := range parts {
		h.Write([]byte(p))
	}
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// Callsign returns a short deterministic designation for a map seed,
// e.g. "KVX-409". Two maps generated from the same seed carry the same name.
func Callsign(seed uint64) string {
	h := blake2b.Sum256(binary.LittleEndian.AppendUint64(nil, seed))
	letters := make([]byte, 3)
	for i := range letters {
		letters[i] = 'A' + h[i]%26
	}
	num := binary.LittleEndian.Uint16(h[3:5]) % 1000
	return fmt.Sprintf("%s-%03d", letters, num)
}
