// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package blockmap

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// windowKey is the BLAKE3 key for window hashing. Keyed hashing keeps
// window keys disjoint from any other BLAKE3 use of the same bytes.
// The byte values are the ASCII domain name, zero-padded to the
// 32 bytes keyed BLAKE3 requires.
var windowKey = []byte{
	'p', 'a', 't', 'c', 'h', 'f', 'o', 'r', 'g', 'e', '.', 'b', 'l', 'o', 'c', 'k',
	'm', 'a', 'p', '.', 'w', 'i', 'n', 'd', 'o', 'w', 0, 0, 0, 0, 0, 0,
}

// Map indexes the offsets at which each distinct window of BlockSize
// bytes occurs. Offsets are recorded in the order added; callers that
// add in increasing offset order get sorted offset lists. Not safe
// for concurrent use.
type Map struct {
	blockSize int
	hasher    *blake3.Hasher
	buckets   map[uint64][]uint64
}

// New returns an empty Map for windows of blockSize bytes.
func New(blockSize int) *Map {
	hasher, err := blake3.NewKeyed(windowKey)
	if err != nil {
		// The key is a compile-time constant of the required length.
		panic("blockmap: keyed hasher initialization failed: " + err.Error())
	}
	return &Map{
		blockSize: blockSize,
		hasher:    hasher,
		buckets:   make(map[uint64][]uint64),
	}
}

// BlockSize returns the window length this map indexes.
func (m *Map) BlockSize() int { return m.blockSize }

// key hashes a window to its 64-bit bucket key.
func (m *Map) key(window []byte) uint64 {
	m.hasher.Reset()
	m.hasher.Write(window)
	var digest [8]byte
	m.hasher.Digest().Read(digest[:])
	return binary.LittleEndian.Uint64(digest[:])
}

// Add records that the window data[offset:offset+BlockSize] starts at
// offset. The window must be exactly BlockSize bytes.
func (m *Map) Add(window []byte, offset uint64) {
	k := m.key(window)
	m.buckets[k] = append(m.buckets[k], offset)
}

// Index adds every aligned window of data: one window per BlockSize
// bytes, starting at offsets 0, BlockSize, 2*BlockSize, and so on. A
// short window at the tail is omitted.
func (m *Map) Index(data []byte) {
	size := m.blockSize
	for offset := 0; offset+size <= len(data); offset += size {
		m.Add(data[offset:offset+size], uint64(offset))
	}
}

// Lookup returns the offsets whose windows hash like window. The
// returned slice is shared with the map; callers must not modify it.
// Because keys are hashes, a returned offset is only probably a
// match; the caller verifies bytes itself.
func (m *Map) Lookup(window []byte) []uint64 {
	if len(window) != m.blockSize {
		return nil
	}
	return m.buckets[m.key(window)]
}
