// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package apply

import (
	"hash/crc32"
	"io"

	"github.com/patchforge/bps/lib/ops"
)

// Bytes executes the patch stream against source and returns the
// reconstructed target. The source and target checksums carried in
// the patch are verified; a mismatch means the patch was applied to
// the wrong file, or the engine was handed a corrupt stream.
func Bytes(stream ops.Stream, source []byte) ([]byte, error) {
	var (
		target       []byte
		writeOffset  uint64
		sourceCursor int64
		targetCursor int64
		targetSize   uint64
		sawHeader    bool
	)

	for {
		op, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch op := op.(type) {
		case ops.SourceHeader:
			if op.Size != uint64(len(source)) {
				return nil, ops.Corruptf("patch is for a %d-byte source, got %d bytes",
					op.Size, len(source))
			}

		case ops.TargetHeader:
			targetSize = op.Size
			target = make([]byte, targetSize)
			sawHeader = true

		case ops.SourceRead:
			if !sawHeader {
				return nil, ops.Corruptf("%s before target header", op)
			}
			if op.Span > targetSize-writeOffset {
				return nil, ops.Corruptf("%s writes past the end of the target", op)
			}
			if writeOffset >= uint64(len(source)) || op.Span > uint64(len(source))-writeOffset {
				return nil, ops.Corruptf("%s reads past the end of the source", op)
			}
			copy(target[writeOffset:], source[writeOffset:writeOffset+op.Span])
			writeOffset += op.Span

		case ops.TargetRead:
			if !sawHeader {
				return nil, ops.Corruptf("%s before target header", op)
			}
			span := uint64(len(op.Payload))
			if span > targetSize-writeOffset {
				return nil, ops.Corruptf("%s writes past the end of the target", op)
			}
			copy(target[writeOffset:], op.Payload)
			writeOffset += span

		case ops.SourceCopy:
			if !sawHeader {
				return nil, ops.Corruptf("%s before target header", op)
			}
			if op.Span > targetSize-writeOffset {
				return nil, ops.Corruptf("%s writes past the end of the target", op)
			}
			position := sourceCursor + op.Offset
			if position < 0 || uint64(position)+op.Span > uint64(len(source)) {
				return nil, ops.Corruptf("%s reads outside the source (cursor %d)",
					op, sourceCursor)
			}
			copy(target[writeOffset:], source[position:uint64(position)+op.Span])
			sourceCursor = position + int64(op.Span)
			writeOffset += op.Span

		case ops.TargetCopy:
			if !sawHeader {
				return nil, ops.Corruptf("%s before target header", op)
			}
			if op.Span > targetSize-writeOffset {
				return nil, ops.Corruptf("%s writes past the end of the target", op)
			}
			position := targetCursor + op.Offset
			if position < 0 || uint64(position) >= writeOffset {
				return nil, ops.Corruptf("%s reads outside the written target (cursor %d)",
					op, targetCursor)
			}
			// One byte at a time: the copied region may overlap the
			// bytes this operation writes (run-length extension).
			for i := uint64(0); i < op.Span; i++ {
				target[writeOffset+i] = target[uint64(position)+i]
			}
			targetCursor = position + int64(op.Span)
			writeOffset += op.Span

		case ops.SourceCRC32:
			if actual := crc32.ChecksumIEEE(source); actual != op.Sum {
				return nil, ops.Corruptf("source CRC mismatch: patch wants %08X, file has %08X",
					op.Sum, actual)
			}

		case ops.TargetCRC32:
			if writeOffset != targetSize {
				return nil, ops.Corruptf("operations wrote %d of %d target bytes",
					writeOffset, targetSize)
			}
			if actual := crc32.ChecksumIEEE(target); actual != op.Sum {
				return nil, ops.Corruptf("target CRC mismatch: patch wants %08X, result has %08X",
					op.Sum, actual)
			}

		case ops.PatchCRC32:
			// Covered by the validator; nothing to do here.

		default:
			return nil, ops.Corruptf("unknown operation type %T", op)
		}
	}

	if writeOffset != targetSize {
		return nil, ops.Corruptf("operations wrote %d of %d target bytes",
			writeOffset, targetSize)
	}
	return target, nil
}
