// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package apply

import (
	"bytes"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/patchforge/bps/lib/ops"
)

// stream builds a complete patch stream around the given body
// operations, computing the source and target checksums from the
// actual bytes.
func stream(source, target []byte, body ...ops.Op) ops.Stream {
	full := []ops.Op{
		ops.SourceHeader{Size: uint64(len(source))},
		ops.TargetHeader{Size: uint64(len(target))},
	}
	full = append(full, body...)
	full = append(full,
		ops.SourceCRC32{Sum: crc32.ChecksumIEEE(source)},
		ops.TargetCRC32{Sum: crc32.ChecksumIEEE(target)},
		ops.PatchCRC32{Placeholder: true},
	)
	return ops.Slice(full)
}

func TestSourceRead(t *testing.T) {
	source := []byte("abcd")
	got, err := Bytes(stream(source, source, ops.SourceRead{Span: 4}), source)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(got, source) {
		t.Errorf("applied %q, want %q", got, source)
	}
}

func TestTargetRead(t *testing.T) {
	target := []byte("hi")
	got, err := Bytes(stream(nil, target, ops.TargetRead{Payload: []byte("hi")}), nil)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(got, target) {
		t.Errorf("applied %q, want %q", got, target)
	}
}

func TestSourceCopyMirror(t *testing.T) {
	source := []byte("abcdef")
	target := []byte("defabc")
	got, err := Bytes(stream(source, target,
		ops.SourceCopy{Span: 3, Offset: 3},
		ops.SourceCopy{Span: 3, Offset: -6},
	), source)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(got, target) {
		t.Errorf("applied %q, want %q", got, target)
	}
}

func TestTargetCopyRunLength(t *testing.T) {
	// One literal byte, then a self-overlapping copy: the classic
	// run-length shape. The copy reads bytes it wrote moments
	// earlier, so byte-at-a-time order is what makes this work.
	target := bytes.Repeat([]byte("A"), 100)
	got, err := Bytes(stream(nil, target,
		ops.TargetRead{Payload: []byte("A")},
		ops.TargetCopy{Span: 99, Offset: 0},
	), nil)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(got, target) {
		t.Errorf("applied %q, want 100 copies of 'A'", got)
	}
}

func TestTargetCopyAlternatingRun(t *testing.T) {
	// Two literal bytes, then overlap-copy with period two.
	target := []byte(strings.Repeat("ab", 8))
	got, err := Bytes(stream(nil, target,
		ops.TargetRead{Payload: []byte("ab")},
		ops.TargetCopy{Span: 14, Offset: 0},
	), nil)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(got, target) {
		t.Errorf("applied %q, want %q", got, target)
	}
}

func TestTargetCopyBackReference(t *testing.T) {
	// Copy from an earlier, non-overlapping region, with a second
	// copy exercising a negative cursor delta.
	target := []byte("abcXabcYabc")
	got, err := Bytes(stream(nil, target,
		ops.TargetRead{Payload: []byte("abcX")},
		ops.TargetCopy{Span: 3, Offset: 0}, // cursor 0 -> "abc" at offset 4
		ops.TargetRead{Payload: []byte("Y")},
		ops.TargetCopy{Span: 3, Offset: -3}, // cursor 3-3=0 -> "abc" at offset 8
	), nil)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(got, target) {
		t.Errorf("applied %q, want %q", got, target)
	}
}

func TestWrongSourceLength(t *testing.T) {
	source := []byte("abcd")
	s := stream(source, source, ops.SourceRead{Span: 4})
	if _, err := Bytes(s, []byte("abcdefgh")); err == nil {
		t.Error("apply should reject a source of the wrong length")
	}
}

func TestWrongSourceContent(t *testing.T) {
	source := []byte("abcd")
	s := stream(source, source, ops.SourceRead{Span: 4})
	if _, err := Bytes(s, []byte("abcX")); err == nil || !strings.Contains(err.Error(), "CRC mismatch") {
		t.Errorf("apply error = %v, want a CRC mismatch", err)
	}
}

func TestShortStream(t *testing.T) {
	s := ops.Slice([]ops.Op{
		ops.SourceHeader{Size: 0},
		ops.TargetHeader{Size: 4},
		ops.TargetRead{Payload: []byte("ab")},
	})
	if _, err := Bytes(s, nil); err == nil || !strings.Contains(err.Error(), "2 of 4") {
		t.Errorf("apply error = %v, want a short-write complaint", err)
	}
}

func TestCursorOutOfRange(t *testing.T) {
	s := stream([]byte("ab"), []byte("ba"),
		ops.SourceCopy{Span: 1, Offset: -1},
	)
	if _, err := Bytes(s, []byte("ab")); err == nil {
		t.Error("apply should reject a cursor before the source start")
	}
}
