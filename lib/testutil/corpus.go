// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for patch packages.
//
// The diff, optimizer, and round-trip tests all need pairs of byte
// arrays that resemble real patching workloads: mostly-shared
// content with localized edits, plus degenerate shapes (empty,
// repetitive, reversed). [Corpus] generates such inputs from a
// seeded [math/rand/v2] source so failures reproduce exactly; use a
// distinct seed per test to keep inputs independent.
//
// All helpers are deterministic and never fail, so they return
// values rather than taking a testing.T.
package testutil

import "math/rand/v2"

// Corpus generates deterministic pseudo-random test inputs.
type Corpus struct {
	rng *rand.Rand
}

// NewCorpus returns a Corpus seeded with seed.
func NewCorpus(seed uint64) *Corpus {
	return &Corpus{rng: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))}
}

// Bytes returns n random bytes.
func (c *Corpus) Bytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(c.rng.UintN(256))
	}
	return data
}

// TextLike returns n bytes drawn from a small alphabet, which gives
// the diff engine repeated content to find.
func (c *Corpus) TextLike(n int) []byte {
	const alphabet = "abcdefgh \n"
	data := make([]byte, n)
	for i := range data {
		data[i] = alphabet[c.rng.UintN(uint(len(alphabet)))]
	}
	return data
}

// Mutate returns a copy of data with edits edit operations applied:
// each edit overwrites, inserts, or deletes a short random run. The
// result is the kind of "same file, few changes" input patches are
// made from.
func (c *Corpus) Mutate(data []byte, edits int) []byte {
	mutated := make([]byte, len(data))
	copy(mutated, data)
	for i := 0; i < edits; i++ {
		if len(mutated) == 0 {
			mutated = append(mutated, c.Bytes(1+int(c.rng.UintN(16)))...)
			continue
		}
		position := int(c.rng.UintN(uint(len(mutated))))
		run := 1 + int(c.rng.UintN(8))
		switch c.rng.UintN(3) {
		case 0: // overwrite
			for j := position; j < len(mutated) && j < position+run; j++ {
				mutated[j] = byte(c.rng.UintN(256))
			}
		case 1: // insert
			insertion := c.Bytes(run)
			mutated = append(mutated[:position],
				append(insertion, mutated[position:]...)...)
		default: // delete
			end := position + run
			if end > len(mutated) {
				end = len(mutated)
			}
			mutated = append(mutated[:position], mutated[end:]...)
		}
	}
	return mutated
}

// Reverse returns data in reverse order.
func Reverse(data []byte) []byte {
	reversed := make([]byte, len(data))
	for i, b := range data {
		reversed[len(data)-1-i] = b
	}
	return reversed
}
