// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package ops

import "fmt"

// Magic is the four-byte signature at the start of every patch file.
var Magic = []byte("BPS1")

// Wire operation codes, the low two bits of each operation's first
// varint. These values are format constants.
const (
	CodeSourceRead = 0b00
	CodeTargetRead = 0b01
	CodeSourceCopy = 0b10
	CodeTargetCopy = 0b11
)

// Op is one element of a patch stream. The concrete types are
// [SourceHeader], [TargetHeader], [SourceRead], [TargetRead],
// [SourceCopy], [TargetCopy], [SourceCRC32], [TargetCRC32], and
// [PatchCRC32].
type Op interface {
	// Bytespan returns the number of target bytes this operation
	// produces. Headers and checksums produce none.
	Bytespan() uint64
}

// SourceHeader declares the source length. It is the first element of
// every stream.
type SourceHeader struct {
	Size uint64
}

// TargetHeader declares the target length and carries the patch's
// opaque metadata blob (often empty). Second element of every stream.
type TargetHeader struct {
	Size     uint64
	Metadata []byte
}

// SourceRead copies bytes from the source at the current output
// offset.
type SourceRead struct {
	Span uint64
}

// TargetRead emits literal bytes carried in the patch itself.
type TargetRead struct {
	Payload []byte
}

// SourceCopy copies bytes from the source at the source cursor. The
// cursor moves by Offset before the copy and advances past the copied
// bytes afterwards.
type SourceCopy struct {
	Span   uint64
	Offset int64
}

// TargetCopy copies bytes from the already-written prefix of the
// target at the target cursor. The cursor moves by Offset before the
// copy and advances past the copied bytes afterwards. The copied
// region may overlap the bytes this same operation writes; the copy
// proceeds one byte at a time, so overlap behaves as run-length
// extension.
type TargetCopy struct {
	Span   uint64
	Offset int64
}

// SourceCRC32 carries the CRC32 of the entire source.
type SourceCRC32 struct {
	Sum uint32
}

// TargetCRC32 carries the CRC32 of the entire target.
type TargetCRC32 struct {
	Sum uint32
}

// PatchCRC32 carries the CRC32 of every patch byte preceding the
// checksum itself. The writer recomputes this value as it emits
// bytes, so producers that do not know it (the diff engine, the
// optimizer, the assembler) set Placeholder instead of a sum, and
// the validator skips the comparison for them.
type PatchCRC32 struct {
	Sum         uint32
	Placeholder bool
}

func (SourceHeader) Bytespan() uint64  { return 0 }
func (TargetHeader) Bytespan() uint64  { return 0 }
func (op SourceRead) Bytespan() uint64 { return op.Span }
func (op TargetRead) Bytespan() uint64 { return uint64(len(op.Payload)) }
func (op SourceCopy) Bytespan() uint64 { return op.Span }
func (op TargetCopy) Bytespan() uint64 { return op.Span }
func (SourceCRC32) Bytespan() uint64   { return 0 }
func (TargetCRC32) Bytespan() uint64   { return 0 }
func (PatchCRC32) Bytespan() uint64    { return 0 }

func (op SourceHeader) String() string { return fmt.Sprintf("SourceHeader(size=%d)", op.Size) }
func (op TargetHeader) String() string {
	return fmt.Sprintf("TargetHeader(size=%d, metadata=%d bytes)", op.Size, len(op.Metadata))
}
func (op SourceRead) String() string  { return fmt.Sprintf("SourceRead(%d)", op.Span) }
func (op TargetRead) String() string  { return fmt.Sprintf("TargetRead(%d bytes)", len(op.Payload)) }
func (op SourceCopy) String() string  { return fmt.Sprintf("SourceCopy(%d, %+d)", op.Span, op.Offset) }
func (op TargetCopy) String() string  { return fmt.Sprintf("TargetCopy(%d, %+d)", op.Span, op.Offset) }
func (op SourceCRC32) String() string { return fmt.Sprintf("SourceCRC32(%08X)", op.Sum) }
func (op TargetCRC32) String() string { return fmt.Sprintf("TargetCRC32(%08X)", op.Sum) }
func (op PatchCRC32) String() string  { return fmt.Sprintf("PatchCRC32(%08X)", op.Sum) }

// CorruptError reports a malformed or inconsistent patch. The reader,
// validator, and apply engine all fail with this type; Reason is a
// human-readable description of the first violation found.
type CorruptError struct {
	Reason string
}

func (e *CorruptError) Error() string {
	return "corrupt patch: " + e.Reason
}

// Corruptf builds a [*CorruptError] from a format string.
func Corruptf(format string, args ...any) *CorruptError {
	return &CorruptError{Reason: fmt.Sprintf(format, args...)}
}
