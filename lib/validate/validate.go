// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"hash/crc32"
	"io"

	"github.com/patchforge/bps/lib/ops"
	"github.com/patchforge/bps/lib/patchio"
)

// validator stages, in stream order.
const (
	expectSourceHeader = iota
	expectTargetHeader
	expectOperation
	expectSourceCRC
	expectTargetCRC
	expectPatchCRC
	expectEOF
)

// Validator is a pass-through operation stream that fails with
// [*ops.CorruptError] on the first invariant violation. See the
// package documentation for the list of checks.
type Validator struct {
	stream ops.Stream
	stage  int

	source    []byte
	target    []byte
	hasSource bool
	hasTarget bool

	sourceSize   uint64
	targetSize   uint64
	writeOffset  uint64
	sourceCursor int64
	targetCursor int64

	// sum is the rolling CRC32 of the stream's canonical encoding,
	// compared against the trailing patch checksum.
	sum     uint32
	scratch []byte

	err error
}

// New returns a Validator wrapping stream.
func New(stream ops.Stream) *Validator {
	return &Validator{stream: stream}
}

// WithSource supplies the source bytes, enabling the source size and
// checksum comparisons. Returns v for chaining.
func (v *Validator) WithSource(source []byte) *Validator {
	v.source = source
	v.hasSource = true
	return v
}

// WithTarget supplies the target bytes, enabling the target size and
// checksum comparisons. Returns v for chaining.
func (v *Validator) WithTarget(target []byte) *Validator {
	v.target = target
	v.hasTarget = true
	return v
}

// Drain pulls the stream to completion, discarding operations. It
// returns the first validation error, or nil for a valid patch.
func (v *Validator) Drain() error {
	for {
		if _, err := v.Next(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// Next returns the next operation after checking it.
func (v *Validator) Next() (ops.Op, error) {
	if v.err != nil {
		return nil, v.err
	}
	op, err := v.next()
	v.err = err
	return op, err
}

func (v *Validator) next() (ops.Op, error) {
	op, err := v.stream.Next()
	if err == io.EOF {
		if v.stage != expectEOF {
			return nil, ops.Corruptf("stream truncated, expected %s", stageName(v.stage))
		}
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}

	switch op := op.(type) {
	case ops.SourceHeader:
		if v.stage != expectSourceHeader {
			return nil, ops.Corruptf("unexpected %s, expected %s", op, stageName(v.stage))
		}
		if v.hasSource && op.Size != uint64(len(v.source)) {
			return nil, ops.Corruptf("declared source size %d, actual source is %d bytes",
				op.Size, len(v.source))
		}
		v.sourceSize = op.Size
		v.stage = expectTargetHeader

	case ops.TargetHeader:
		if v.stage != expectTargetHeader {
			return nil, ops.Corruptf("unexpected %s, expected %s", op, stageName(v.stage))
		}
		if v.hasTarget && op.Size != uint64(len(v.target)) {
			return nil, ops.Corruptf("declared target size %d, actual target is %d bytes",
				op.Size, len(v.target))
		}
		v.targetSize = op.Size
		if v.targetSize == 0 {
			// An empty target needs no operations.
			v.stage = expectSourceCRC
		} else {
			v.stage = expectOperation
		}

	case ops.SourceRead, ops.TargetRead, ops.SourceCopy, ops.TargetCopy:
		if v.stage != expectOperation {
			return nil, ops.Corruptf("unexpected %s, expected %s", op, stageName(v.stage))
		}
		if err := v.checkOperation(op); err != nil {
			return nil, err
		}
		if v.writeOffset == v.targetSize {
			v.stage = expectSourceCRC
		}

	case ops.SourceCRC32:
		if v.stage == expectOperation {
			return nil, ops.Corruptf("operations write %d of %d target bytes",
				v.writeOffset, v.targetSize)
		}
		if v.stage != expectSourceCRC {
			return nil, ops.Corruptf("unexpected %s, expected %s", op, stageName(v.stage))
		}
		if v.hasSource {
			if actual := crc32.ChecksumIEEE(v.source); actual != op.Sum {
				return nil, ops.Corruptf("source CRC mismatch: declared %08X, actual %08X",
					op.Sum, actual)
			}
		}
		v.stage = expectTargetCRC

	case ops.TargetCRC32:
		if v.stage != expectTargetCRC {
			return nil, ops.Corruptf("unexpected %s, expected %s", op, stageName(v.stage))
		}
		if v.hasTarget {
			if actual := crc32.ChecksumIEEE(v.target); actual != op.Sum {
				return nil, ops.Corruptf("target CRC mismatch: declared %08X, actual %08X",
					op.Sum, actual)
			}
		}
		v.stage = expectPatchCRC

	case ops.PatchCRC32:
		if v.stage != expectPatchCRC {
			return nil, ops.Corruptf("unexpected %s, expected %s", op, stageName(v.stage))
		}
		if !op.Placeholder && op.Sum != v.sum {
			return nil, ops.Corruptf("patch CRC mismatch: declared %08X, actual %08X",
				op.Sum, v.sum)
		}
		// The patch checksum is the last element; anything further is
		// trailing garbage. Probe now so a consumer that stops
		// pulling after this element still gets full validation.
		if extra, err := v.stream.Next(); err != io.EOF {
			if err != nil {
				return nil, err
			}
			return nil, ops.Corruptf("trailing garbage after patch checksum: %s", extra)
		}
		v.stage = expectEOF
		return op, nil

	default:
		return nil, ops.Corruptf("unknown operation type %T", op)
	}

	// Fold the canonical encoding of everything before the patch
	// checksum into the rolling sum.
	v.scratch, err = patchio.AppendWire(v.scratch[:0], op)
	if err != nil {
		return nil, err
	}
	v.sum = crc32.Update(v.sum, crc32.IEEETable, v.scratch)

	return op, nil
}

// checkOperation enforces the cursor and bounds invariants for one
// body operation and advances the cursors.
func (v *Validator) checkOperation(op ops.Op) error {
	span := op.Bytespan()
	if span == 0 {
		return ops.Corruptf("%s has zero bytespan", op)
	}
	// Subtraction forms so hostile spans cannot wrap the additions.
	if span > v.targetSize-v.writeOffset {
		return ops.Corruptf("%s writes past the end of the target (offset %d, size %d)",
			op, v.writeOffset, v.targetSize)
	}

	switch op := op.(type) {
	case ops.SourceRead:
		if v.writeOffset >= v.sourceSize || span > v.sourceSize-v.writeOffset {
			return ops.Corruptf("%s reads past the end of the source (offset %d, size %d)",
				op, v.writeOffset, v.sourceSize)
		}

	case ops.SourceCopy:
		position := v.sourceCursor + op.Offset
		if position < 0 {
			return ops.Corruptf("%s reads before the start of the source (cursor %d)",
				op, v.sourceCursor)
		}
		if uint64(position) >= v.sourceSize || span > v.sourceSize-uint64(position) {
			return ops.Corruptf("%s reads past the end of the source (cursor %d, size %d)",
				op, v.sourceCursor, v.sourceSize)
		}
		v.sourceCursor = position + int64(span)

	case ops.TargetCopy:
		position := v.targetCursor + op.Offset
		if position < 0 {
			return ops.Corruptf("%s reads before the start of the target (cursor %d)",
				op, v.targetCursor)
		}
		if uint64(position) >= v.writeOffset {
			return ops.Corruptf("%s reads past the written part of the target (cursor %d, written %d)",
				op, v.targetCursor, v.writeOffset)
		}
		v.targetCursor = position + int64(span)
	}

	v.writeOffset += span
	return nil
}

func stageName(stage int) string {
	switch stage {
	case expectSourceHeader:
		return "the source header"
	case expectTargetHeader:
		return "the target header"
	case expectOperation:
		return "an operation"
	case expectSourceCRC:
		return "the source checksum"
	case expectTargetCRC:
		return "the target checksum"
	case expectPatchCRC:
		return "the patch checksum"
	default:
		return "end of stream"
	}
}
