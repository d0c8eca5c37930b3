// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package blockmap indexes fixed-length byte windows by content so
// the diff engine can find, for any window of the target, every place
// the same bytes occur in the source or in the already-encoded part
// of the target.
//
// Windows are hashed to 64-bit keys with keyed BLAKE3 rather than
// stored as map keys directly: the index then costs a fixed sixteen
// bytes or so per block regardless of block size, and lookups never
// pin the indexed array's memory. A key collision between different
// windows is harmless: the diff engine verifies every candidate
// byte-by-byte while measuring how far the match extends, so a false
// positive only costs the comparison that rejects it.
package blockmap
