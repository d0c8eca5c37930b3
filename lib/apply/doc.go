// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package apply executes a patch operation stream against a source
// byte array, reconstructing the target.
//
// The engine maintains three cursors, all starting at zero: the
// output offset, the source copy cursor, and the target copy cursor.
// TargetCopy operations copy one byte at a time so that a copy
// overlapping its own output extends runs instead of reading
// uninitialized bytes. That is how the format expresses run-length
// encoding.
//
// The engine performs the bounds checks it needs to stay memory-safe
// and verifies the source and target checksums carried in the patch.
// For the full set of structural checks, validate the stream first;
// [Bytes] accepts any operation stream, so a validator inserted
// between parser and engine composes for free.
package apply
