// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package asm renders a patch operation stream as a line-oriented
// text listing and parses such listings back into streams.
//
// The listing format is self-describing and diffable, which makes it
// the tool of choice for inspecting what a patch actually does and
// for constructing patches by hand in tests:
//
//	bpsasm
//	sourcesize: 6
//	targetsize: 6
//	metadata:
//	.
//	sourcecopy: 3 +3
//	sourcecopy: 3 -6
//	sourcecrc32: 35FDBCDF
//	targetcrc32: 7FE6C241
//
// Literal payloads and metadata are hex-encoded, wrapped at 40 bytes
// per line, and terminated by a line holding a single dot. Copy
// offsets are the signed cursor deltas the wire format carries. The
// patch checksum never appears in a listing; it is a property of the
// binary serialization, recomputed whenever a parsed listing is
// written back out.
//
// [Disassemble] and [Assemble] are exact inverses: assembling a
// disassembled patch reproduces the original file byte for byte.
package asm
