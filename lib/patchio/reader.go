// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package patchio

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/patchforge/bps/lib/crcio"
	"github.com/patchforge/bps/lib/ops"
	"github.com/patchforge/bps/lib/varint"
)

// reader states, in stream order.
const (
	stateSourceHeader = iota
	stateTargetHeader
	stateOperations
	stateSourceCRC
	stateTargetCRC
	statePatchCRC
	stateDone
)

// Reader parses a patch byte stream into an operation stream. It
// frames the stream (magic, headers, operations, checksums) and
// fails with [*ops.CorruptError] on structural problems (bad magic,
// truncated varint, early EOF). It does not verify any checksum and
// does not track cursor bounds; wrap the result in validate.New for
// that.
type Reader struct {
	src   *crcio.Reader
	state int

	targetSize  uint64
	writeOffset uint64

	// observedCRC is the rolling CRC32 of every patch byte up to but
	// not including the trailing patch checksum field.
	observedCRC uint32

	err error
}

// NewReader returns a Reader framing the patch bytes from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{src: crcio.NewReader(r)}
}

// Parse frames an in-memory patch. Convenience for callers holding
// the whole file.
func Parse(patch []byte) *Reader {
	return NewReader(bytes.NewReader(patch))
}

// ObservedCRC returns the rolling CRC32 of all patch bytes preceding
// the trailing checksum field. It is only meaningful once Next has
// returned the [ops.PatchCRC32] element.
func (r *Reader) ObservedCRC() uint32 { return r.observedCRC }

// Next returns the next operation, or io.EOF after the final
// [ops.PatchCRC32].
func (r *Reader) Next() (ops.Op, error) {
	if r.err != nil {
		return nil, r.err
	}
	op, err := r.next()
	r.err = err
	return op, err
}

func (r *Reader) next() (ops.Op, error) {
	switch r.state {
	case stateSourceHeader:
		var magic [4]byte
		if err := r.src.ReadFull(magic[:]); err != nil {
			return nil, ops.Corruptf("reading magic: %v", err)
		}
		if !bytes.Equal(magic[:], ops.Magic) {
			return nil, ops.Corruptf("bad magic %q, want %q", magic[:], ops.Magic)
		}
		size, err := varint.Read(r.src)
		if err != nil {
			return nil, ops.Corruptf("reading source size: %v", err)
		}
		r.state = stateTargetHeader
		return ops.SourceHeader{Size: size}, nil

	case stateTargetHeader:
		size, err := varint.Read(r.src)
		if err != nil {
			return nil, ops.Corruptf("reading target size: %v", err)
		}
		metaSize, err := varint.Read(r.src)
		if err != nil {
			return nil, ops.Corruptf("reading metadata size: %v", err)
		}
		var metadata []byte
		if metaSize > 0 {
			metadata = make([]byte, metaSize)
			if err := r.src.ReadFull(metadata); err != nil {
				return nil, ops.Corruptf("reading %d metadata bytes: %v", metaSize, err)
			}
		}
		r.targetSize = size
		r.state = stateOperations
		return ops.TargetHeader{Size: size, Metadata: metadata}, nil

	case stateOperations:
		if r.writeOffset >= r.targetSize {
			r.state = stateSourceCRC
			return r.next()
		}
		word, err := varint.Read(r.src)
		if err != nil {
			return nil, ops.Corruptf("reading operation at output offset %d: %v", r.writeOffset, err)
		}
		span := (word >> 2) + 1
		r.writeOffset += span
		switch word & 0b11 {
		case ops.CodeSourceRead:
			return ops.SourceRead{Span: span}, nil
		case ops.CodeTargetRead:
			payload := make([]byte, span)
			if err := r.src.ReadFull(payload); err != nil {
				return nil, ops.Corruptf("reading %d literal bytes: %v", span, err)
			}
			return ops.TargetRead{Payload: payload}, nil
		case ops.CodeSourceCopy:
			offset, err := r.readOffset()
			if err != nil {
				return nil, err
			}
			return ops.SourceCopy{Span: span, Offset: offset}, nil
		default:
			offset, err := r.readOffset()
			if err != nil {
				return nil, err
			}
			return ops.TargetCopy{Span: span, Offset: offset}, nil
		}

	case stateSourceCRC:
		sum, err := r.readCRC("source")
		if err != nil {
			return nil, err
		}
		r.state = stateTargetCRC
		return ops.SourceCRC32{Sum: sum}, nil

	case stateTargetCRC:
		sum, err := r.readCRC("target")
		if err != nil {
			return nil, err
		}
		r.state = statePatchCRC
		return ops.TargetCRC32{Sum: sum}, nil

	case statePatchCRC:
		// Everything before this field is covered by the checksum;
		// snapshot the rolling sum before consuming the field itself.
		r.observedCRC = r.src.Sum()
		sum, err := r.readCRC("patch")
		if err != nil {
			return nil, err
		}
		r.state = stateDone
		return ops.PatchCRC32{Sum: sum}, nil

	default:
		return nil, io.EOF
	}
}

func (r *Reader) readOffset() (int64, error) {
	packed, err := varint.Read(r.src)
	if err != nil {
		return 0, ops.Corruptf("reading copy offset: %v", err)
	}
	return varint.UnpackSigned(packed), nil
}

func (r *Reader) readCRC(which string) (uint32, error) {
	var buf [4]byte
	if err := r.src.ReadFull(buf[:]); err != nil {
		return 0, ops.Corruptf("reading %s checksum: %v", which, err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
