// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package patchfile opens and creates patch files with transparent
// compression.
//
// Patches are routinely distributed compressed, and the patch format
// itself does not care what container its bytes travel in. This
// package keys the compression algorithm on the file name:
//
//	.bps      plain bytes
//	.bps.gz   gzip
//	.bps.zst  zstandard
//	.bps.lz4  lz4
//
// [Open] returns a reader that decompresses as it goes; [Create]
// returns a writer that compresses. Both hand the caller plain
// io.Reader / io.WriteCloser values, so the core codec stays
// container-blind. Unknown extensions are treated as plain bytes:
// a patch named anything else is assumed uncompressed.
package patchfile
