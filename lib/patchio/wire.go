// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package patchio

import (
	"encoding/binary"
	"fmt"

	"github.com/patchforge/bps/lib/ops"
	"github.com/patchforge/bps/lib/varint"
)

// AppendWire appends the wire encoding of op to dst. The encoding is
// canonical: re-encoding a parsed stream reproduces the original
// bytes exactly, which is what lets the validator recompute the patch
// checksum without access to the original file.
//
// The [ops.SourceHeader] encoding includes the four magic bytes that
// precede it in the file.
func AppendWire(dst []byte, op ops.Op) ([]byte, error) {
	switch op := op.(type) {
	case ops.SourceHeader:
		dst = append(dst, ops.Magic...)
		return varint.Append(dst, op.Size), nil
	case ops.TargetHeader:
		dst = varint.Append(dst, op.Size)
		dst = varint.Append(dst, uint64(len(op.Metadata)))
		return append(dst, op.Metadata...), nil
	case ops.SourceRead:
		if op.Span == 0 {
			return dst, ops.Corruptf("%s has zero bytespan", op)
		}
		return varint.Append(dst, (op.Span-1)<<2|ops.CodeSourceRead), nil
	case ops.TargetRead:
		if len(op.Payload) == 0 {
			return dst, ops.Corruptf("%s has zero bytespan", op)
		}
		dst = varint.Append(dst, (uint64(len(op.Payload))-1)<<2|ops.CodeTargetRead)
		return append(dst, op.Payload...), nil
	case ops.SourceCopy:
		if op.Span == 0 {
			return dst, ops.Corruptf("%s has zero bytespan", op)
		}
		dst = varint.Append(dst, (op.Span-1)<<2|ops.CodeSourceCopy)
		return varint.Append(dst, varint.PackSigned(op.Offset)), nil
	case ops.TargetCopy:
		if op.Span == 0 {
			return dst, ops.Corruptf("%s has zero bytespan", op)
		}
		dst = varint.Append(dst, (op.Span-1)<<2|ops.CodeTargetCopy)
		return varint.Append(dst, varint.PackSigned(op.Offset)), nil
	case ops.SourceCRC32:
		return binary.LittleEndian.AppendUint32(dst, op.Sum), nil
	case ops.TargetCRC32:
		return binary.LittleEndian.AppendUint32(dst, op.Sum), nil
	case ops.PatchCRC32:
		return binary.LittleEndian.AppendUint32(dst, op.Sum), nil
	default:
		return dst, fmt.Errorf("unencodable operation %T", op)
	}
}

// WireLen returns the encoded size of op in bytes.
func WireLen(op ops.Op) (int, error) {
	switch op := op.(type) {
	case ops.SourceHeader:
		return len(ops.Magic) + varint.EncodedLen(op.Size), nil
	case ops.TargetHeader:
		return varint.EncodedLen(op.Size) +
			varint.EncodedLen(uint64(len(op.Metadata))) + len(op.Metadata), nil
	case ops.SourceRead:
		return varint.EncodedLen((op.Span-1)<<2 | ops.CodeSourceRead), nil
	case ops.TargetRead:
		return varint.EncodedLen((uint64(len(op.Payload))-1)<<2|ops.CodeTargetRead) +
			len(op.Payload), nil
	case ops.SourceCopy:
		return varint.EncodedLen((op.Span-1)<<2|ops.CodeSourceCopy) +
			varint.EncodedLen(varint.PackSigned(op.Offset)), nil
	case ops.TargetCopy:
		return varint.EncodedLen((op.Span-1)<<2|ops.CodeTargetCopy) +
			varint.EncodedLen(varint.PackSigned(op.Offset)), nil
	case ops.SourceCRC32, ops.TargetCRC32, ops.PatchCRC32:
		return 4, nil
	default:
		return 0, fmt.Errorf("unencodable operation %T", op)
	}
}
