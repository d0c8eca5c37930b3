// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package diff computes a patch operation stream from a source and a
// target byte array.
//
// The engine indexes both arrays in block maps: every aligned window
// of the source up front, and windows of the target incrementally as
// the encoder moves past them. It then walks a write cursor across
// the target. At each position, every indexed occurrence of the
// current window, whether in the source or in the already-encoded
// target, is a candidate copy. Candidates are extended greedily in both
// directions: rightward over bytes not yet encoded, and leftward over
// pending literal bytes, which the chosen copy retroactively absorbs.
// The longest extension wins, with ties going to the candidate whose
// wire encoding is shortest. When nothing matches, the byte at the
// cursor joins a pending literal run, flushed as one TargetRead when
// the next copy is chosen or the target ends.
//
// Copy operations carry their offset relative to the previous copy of
// the same kind, as the wire format requires; the engine keeps both
// copy cursors and emits deltas. A copy from the source whose data
// sits exactly at the output offset degrades to the cheaper
// SourceRead form.
//
// Block size is the memory/quality knob: the maps hold one entry per
// window, so doubling the block size halves the index while making
// matches below the block size invisible. [DefaultBlockSize] grows
// the block by one byte per megabyte of combined input and never goes
// below one byte. The engine never fails on content, only on a zero block
// size.
package diff
