// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package optimize rewrites a patch operation stream into an
// equivalent stream whose serialized form is no larger.
//
// The optimizer is a pass-through stage holding at most one buffered
// operation. It works on absolute copy positions internally:
// incoming relative offsets are resolved against the incoming cursor
// trajectory, and outgoing offsets are re-derived against the
// outgoing one, so merging and dropping operations can never skew a
// later copy's target. The rewrites:
//
//   - operations spanning zero bytes are dropped (they cannot appear
//     in a valid patch, but cost nothing to tolerate)
//   - adjacent TargetReads concatenate; adjacent SourceReads add
//   - adjacent copies of the same kind merge when the second starts
//     exactly where the first ended
//   - a SourceRead of one byte merges into an adjacent SourceCopy
//     when the copy's source run lines up with the read's position
//     and the rewrite does not grow the encoding
//   - a SourceCopy reading the source at exactly its own output
//     offset downgrades to SourceRead, which drops its offset varint.
//     The downgrade also drops the copy's cursor update, so it is
//     applied only when the next SourceCopy provably does not grow by
//     more than the saving (contiguous pairs merge first, keeping the
//     joined copy eligible)
//   - headers and checksums pass through unchanged (the patch
//     checksum is recomputed by the writer on serialization)
//
// Rewrites never change the reconstructed target, and the optimizer
// is idempotent: a second pass finds nothing left to do. Apart from
// rejecting a copy whose cursor moves before the start of its array,
// it performs no validation and expects a structurally valid stream; compose with
// the validator when the input is untrusted.
package optimize
