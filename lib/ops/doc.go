// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package ops defines the in-memory representation of BPS patch
// operations and the pull-driven stream interface every pipeline
// stage speaks.
//
// A patch is a sequence of operations: a [SourceHeader] and a
// [TargetHeader], then one or more of [SourceRead], [TargetRead],
// [SourceCopy], and [TargetCopy] (none when the target is empty),
// then the three checksum
// pseudo-operations [SourceCRC32], [TargetCRC32], and [PatchCRC32].
// Copy offsets are held in wire form, as a signed delta relative to
// the previous copy of the same kind, so that parsing, serializing, and
// applying all work directly on the values a patch file carries.
//
// Producers (the patch reader, the diff engine, the optimizer) and
// consumers (the writer, the validator, the apply engine) exchange
// operations one at a time through [Stream]. Nothing materializes a
// whole patch in memory unless a caller explicitly collects one with
// [Collect]; [Slice] turns a collected patch back into a stream, and
// that is the only buffering in the pipeline.
package ops
