// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package validate checks a patch operation stream against the format
// invariants without applying it.
//
// The validator is a pass-through stage: wrap any operation stream in
// [New] and pull from the result. Each operation is yielded unchanged
// after its checks pass, so a validator can sit between a parser and
// a writer (or the apply engine) at no cost beyond the bookkeeping.
// The checks:
//
//   - element order: headers, at least one operation (unless the
//     target is empty), then the three checksums, nothing after
//   - every operation has a positive bytespan
//   - operation bytespans sum exactly to the declared target size
//   - SourceRead stays inside the source at the current output offset
//   - SourceCopy keeps its cursor inside the source
//   - TargetCopy keeps its cursor inside the already-written target
//   - the trailing patch checksum matches the stream's own bytes,
//     recomputed by re-encoding each operation (encodings are
//     canonical, so this reproduces the file bytes exactly)
//
// [Validator.WithSource] and [Validator.WithTarget] additionally compare the declared
// sizes and checksums against actual byte arrays when the caller has
// them on hand.
package validate
