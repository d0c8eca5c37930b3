// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package patchio parses and serializes the BPS wire format.
//
// [Reader] turns a byte stream into an operation stream, one
// operation per pull. [Write] drains an operation stream into a byte
// sink. Both maintain a rolling CRC32 of the bytes they touch: the
// reader exposes what it observed so a validator can compare it
// against the trailing patch checksum, and the writer uses its own
// running sum as the final four bytes regardless of the value the
// [ops.PatchCRC32] element carries, so producers never need to know
// the checksum in advance.
//
// The wire layout:
//
//	offset  size        content
//	0       4           magic "BPS1"
//	4       varint      source size
//	+       varint      target size
//	+       varint      metadata size, then that many metadata bytes
//	+       *           operations, until the target size is reached
//	-12     u32 LE      source CRC32
//	-8      u32 LE      target CRC32
//	-4      u32 LE      patch CRC32 (covers bytes [0 .. len-4))
//
// Each operation is one varint whose low two bits select the kind and
// whose remaining bits carry bytespan-1. TargetRead is followed by
// its literal payload; SourceCopy and TargetCopy are followed by a
// second varint holding the sign-packed cursor offset.
//
// The reader performs no checksum or cursor validation beyond what it
// needs to frame the stream; wrap it in validate.New for that.
package patchio
