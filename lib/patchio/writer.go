// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package patchio

import (
	"bytes"
	"io"

	"github.com/patchforge/bps/lib/crcio"
	"github.com/patchforge/bps/lib/ops"
)

// Write drains stream, serializing every operation to dst. It
// enforces the element order the format requires (headers first,
// checksums last) and computes the trailing patch checksum itself: a
// producer may put any value in the [ops.PatchCRC32] element,
// including zero.
func Write(dst io.Writer, stream ops.Stream) error {
	w := crcio.NewWriter(dst)
	var scratch []byte

	expect := stateSourceHeader
	for {
		op, err := stream.Next()
		if err == io.EOF {
			if expect != stateDone {
				return ops.Corruptf("stream ended early, expected %s next", stateName(expect))
			}
			return nil
		}
		if err != nil {
			return err
		}

		state, err := stateOf(op)
		if err != nil {
			return err
		}
		switch {
		case state == expect:
			// In order.
		case state == stateOperations && expect == stateSourceCRC:
			// Additional operations after the first.
		case expect == stateOperations && state == stateSourceCRC:
			// Zero operations: legal only for an empty target, which
			// the validator checks. The writer just frames.
		default:
			return ops.Corruptf("expected %s, got %s", stateName(expect), op)
		}

		if patchCRC, ok := op.(ops.PatchCRC32); ok {
			// Replace whatever the producer carried with the checksum
			// of the bytes actually written.
			patchCRC.Sum = w.Sum()
			op = patchCRC
		}
		scratch, err = AppendWire(scratch[:0], op)
		if err != nil {
			return err
		}
		if _, err := w.Write(scratch); err != nil {
			return err
		}

		switch state {
		case stateSourceHeader:
			expect = stateTargetHeader
		case stateTargetHeader:
			expect = stateOperations
		case stateOperations:
			expect = stateSourceCRC
		case stateSourceCRC:
			expect = stateTargetCRC
		case stateTargetCRC:
			expect = statePatchCRC
		case statePatchCRC:
			expect = stateDone
		}
	}
}

// Bytes serializes a whole stream into memory.
func Bytes(stream ops.Stream) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, stream); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// stateOf maps an operation to the reader/writer state that emits it.
func stateOf(op ops.Op) (int, error) {
	switch op.(type) {
	case ops.SourceHeader:
		return stateSourceHeader, nil
	case ops.TargetHeader:
		return stateTargetHeader, nil
	case ops.SourceRead, ops.TargetRead, ops.SourceCopy, ops.TargetCopy:
		return stateOperations, nil
	case ops.SourceCRC32:
		return stateSourceCRC, nil
	case ops.TargetCRC32:
		return stateTargetCRC, nil
	case ops.PatchCRC32:
		return statePatchCRC, nil
	default:
		return 0, ops.Corruptf("unknown operation type %T", op)
	}
}

func stateName(state int) string {
	switch state {
	case stateSourceHeader:
		return "source header"
	case stateTargetHeader:
		return "target header"
	case stateOperations:
		return "an operation"
	case stateSourceCRC:
		return "source checksum"
	case stateTargetCRC:
		return "target checksum"
	case statePatchCRC:
		return "patch checksum"
	default:
		return "end of stream"
	}
}
