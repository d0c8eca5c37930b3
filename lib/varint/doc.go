// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package varint implements the BPS variable-length integer encoding.
//
// The encoding packs an unsigned integer into a sequence of 7-bit
// groups, least significant group first. Bit 7 of each byte is the
// terminator flag: clear on every byte except the last. Unlike LEB128,
// the encoder subtracts one before each non-final group, which
// eliminates redundant representations: every non-negative integer
// has exactly one encoding, and every byte sequence ending in a
// terminator decodes to exactly one integer. Canonical encodings
// matter here because the patch CRC32 covers the encoded bytes: two
// encoders that agree on the operation stream must produce identical
// files.
//
// The API mirrors the shapes used elsewhere in this module: [Append]
// for building byte slices, [Write] for streaming output, [Read] for
// streaming input, and [EncodedLen] for sizing decisions in the diff
// engine and optimizer.
package varint
