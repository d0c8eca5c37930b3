// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package asm

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/patchforge/bps/lib/ops"
)

// MagicLine is the first line of every listing.
const MagicLine = "bpsasm"

// hexWrap is the number of raw bytes rendered per hex line.
const hexWrap = 40

// Disassemble renders stream as a text listing on w.
func Disassemble(stream ops.Stream, w io.Writer) error {
	if _, err := fmt.Fprintln(w, MagicLine); err != nil {
		return err
	}
	for {
		op, err := stream.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := writeOp(w, op); err != nil {
			return err
		}
	}
}

func writeOp(w io.Writer, op ops.Op) error {
	switch op := op.(type) {
	case ops.SourceHeader:
		_, err := fmt.Fprintf(w, "sourcesize: %d\n", op.Size)
		return err
	case ops.TargetHeader:
		if _, err := fmt.Fprintf(w, "targetsize: %d\n", op.Size); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "metadata:"); err != nil {
			return err
		}
		return writeHexBlock(w, op.Metadata)
	case ops.SourceRead:
		_, err := fmt.Fprintf(w, "sourceread: %d\n", op.Span)
		return err
	case ops.TargetRead:
		if _, err := fmt.Fprintln(w, "targetread:"); err != nil {
			return err
		}
		return writeHexBlock(w, op.Payload)
	case ops.SourceCopy:
		_, err := fmt.Fprintf(w, "sourcecopy: %d %+d\n", op.Span, op.Offset)
		return err
	case ops.TargetCopy:
		_, err := fmt.Fprintf(w, "targetcopy: %d %+d\n", op.Span, op.Offset)
		return err
	case ops.SourceCRC32:
		_, err := fmt.Fprintf(w, "sourcecrc32: %08X\n", op.Sum)
		return err
	case ops.TargetCRC32:
		_, err := fmt.Fprintf(w, "targetcrc32: %08X\n", op.Sum)
		return err
	case ops.PatchCRC32:
		// A property of the binary serialization; not listed.
		return nil
	default:
		return fmt.Errorf("unlistable operation %T", op)
	}
}

// writeHexBlock renders data as wrapped hex lines followed by the
// dot terminator.
func writeHexBlock(w io.Writer, data []byte) error {
	for len(data) > 0 {
		chunk := data
		if len(chunk) > hexWrap {
			chunk = chunk[:hexWrap]
		}
		if _, err := fmt.Fprintln(w, hex.EncodeToString(chunk)); err != nil {
			return err
		}
		data = data[len(chunk):]
	}
	_, err := fmt.Fprintln(w, ".")
	return err
}
