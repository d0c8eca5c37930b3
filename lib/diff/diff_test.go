// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/patchforge/bps/lib/apply"
	"github.com/patchforge/bps/lib/ops"
	"github.com/patchforge/bps/lib/patchio"
	"github.com/patchforge/bps/lib/testutil"
	"github.com/patchforge/bps/lib/validate"
)

// mustDiff collects the full operation sequence for a diff.
func mustDiff(t *testing.T, blockSize int, source, target []byte) []ops.Op {
	t.Helper()
	stream, err := New(blockSize, source, target, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	collected, err := ops.Collect(stream)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return collected
}

// roundTrip diffs source against target, applies the result, and
// fails unless the target comes back byte-identical. The stream also
// has to satisfy the validator.
func roundTrip(t *testing.T, blockSize int, source, target []byte) {
	t.Helper()
	stream, err := New(blockSize, source, target, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := apply.Bytes(validate.New(stream).WithSource(source).WithTarget(target), source)
	if err != nil {
		t.Fatalf("apply(diff(%d)): %v", blockSize, err)
	}
	if !bytes.Equal(got, target) {
		t.Fatalf("apply(diff(%d)) diverged at length %d, want length %d",
			blockSize, len(got), len(target))
	}
}

func TestRejectsZeroBlockSize(t *testing.T) {
	if _, err := New(0, nil, nil, nil); err == nil {
		t.Error("New(0, ...) should fail")
	}
}

func TestDefaultBlockSize(t *testing.T) {
	if got := DefaultBlockSize(0, 0); got != 1 {
		t.Errorf("DefaultBlockSize(0, 0) = %d, want 1", got)
	}
	if got := DefaultBlockSize(16<<20, 16<<20); got != 34 {
		t.Errorf("DefaultBlockSize(16M, 16M) = %d, want 34", got)
	}
}

func TestIdenticalInputs(t *testing.T) {
	collected := mustDiff(t, 1, []byte("abcd"), []byte("abcd"))
	want := []string{
		"SourceHeader(size=4)",
		"TargetHeader(size=4, metadata=0 bytes)",
		"SourceRead(4)",
	}
	for i, s := range want {
		if collected[i].(fmt.Stringer).String() != s {
			t.Errorf("operation %d = %v, want %s", i, collected[i], s)
		}
	}
	if len(collected) != 6 {
		t.Errorf("diff emitted %d operations, want 6", len(collected))
	}

	// Identity patches serialize to exactly 20 bytes.
	patch := serialize(t, []byte("abcd"), []byte("abcd"), 1)
	if len(patch) != 20 {
		t.Errorf("identity patch is %d bytes, want 20", len(patch))
	}
}

func TestEmptySourcePureLiteral(t *testing.T) {
	collected := mustDiff(t, 1, nil, []byte("hi"))
	read, ok := collected[2].(ops.TargetRead)
	if !ok || !bytes.Equal(read.Payload, []byte("hi")) {
		t.Errorf("operation 2 = %v, want TargetRead(hi)", collected[2])
	}
	if len(collected) != 6 {
		t.Errorf("diff emitted %d operations, want 6", len(collected))
	}
}

func TestEmptyEverything(t *testing.T) {
	collected := mustDiff(t, 1, nil, nil)
	// Headers and checksums only.
	if len(collected) != 5 {
		t.Errorf("diff of empty inputs emitted %d operations, want 5", len(collected))
	}
}

func TestRunLengthTarget(t *testing.T) {
	target := bytes.Repeat([]byte("A"), 100)
	collected := mustDiff(t, 1, nil, target)

	read, ok := collected[2].(ops.TargetRead)
	if !ok || !bytes.Equal(read.Payload, []byte("A")) {
		t.Fatalf("operation 2 = %v, want the single literal byte", collected[2])
	}
	copyOp, ok := collected[3].(ops.TargetCopy)
	if !ok || copyOp.Span != 99 {
		t.Fatalf("operation 3 = %v, want TargetCopy spanning 99", collected[3])
	}
}

func TestMirror(t *testing.T) {
	collected := mustDiff(t, 1, []byte("abcdef"), []byte("defabc"))
	first, ok := collected[2].(ops.SourceCopy)
	if !ok || first.Span != 3 || first.Offset != 3 {
		t.Errorf("operation 2 = %v, want SourceCopy(3, +3)", collected[2])
	}
	second, ok := collected[3].(ops.SourceCopy)
	if !ok || second.Span != 3 || second.Offset != -6 {
		t.Errorf("operation 3 = %v, want SourceCopy(3, -6)", collected[3])
	}
}

func TestLiteralAbsorption(t *testing.T) {
	// The shared run "Qxyzw" starts off the block grid, so the match
	// is only found one byte late, at the "xy" window. Left extension
	// recovers the "Q" from the pending literal buffer: the literal
	// flush shrinks to just "B" and the copy grows to cover all of
	// "Qxyzw". The recovered region sits at the output offset, so it
	// degrades to a SourceRead.
	source := []byte("aQxyzw")
	target := []byte("BQxyzw")
	collected := mustDiff(t, 2, source, target)

	read, ok := collected[2].(ops.TargetRead)
	if !ok || !bytes.Equal(read.Payload, []byte("B")) {
		t.Errorf("operation 2 = %v, want TargetRead(B)", collected[2])
	}
	span, ok := collected[3].(ops.SourceRead)
	if !ok || span.Span != 5 {
		t.Errorf("operation 3 = %v, want SourceRead(5)", collected[3])
	}
	roundTrip(t, 2, source, target)
}

func TestReversedSource(t *testing.T) {
	source := []byte("0123456789abcdef")
	target := testutil.Reverse(source)
	collected := mustDiff(t, 1, source, target)

	negative := false
	for _, op := range collected {
		if copyOp, ok := op.(ops.SourceCopy); ok && copyOp.Offset < 0 {
			negative = true
		}
	}
	if !negative {
		t.Error("reversing a file should force negative SourceCopy offsets")
	}
	roundTrip(t, 1, source, target)
}

func TestMetadataCarried(t *testing.T) {
	stream, err := New(1, nil, []byte("x"), []byte("patch notes"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	collected, err := ops.Collect(stream)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	header := collected[1].(ops.TargetHeader)
	if string(header.Metadata) != "patch notes" {
		t.Errorf("metadata = %q, want %q", header.Metadata, "patch notes")
	}
}

func TestRoundTripShapes(t *testing.T) {
	shapes := []struct {
		name   string
		source []byte
		target []byte
	}{
		{"empty to empty", nil, nil},
		{"empty to content", nil, []byte("fresh content")},
		{"content to empty", []byte("goes away"), nil},
		{"identical", []byte("same bytes"), []byte("same bytes")},
		{"append", []byte("common"), []byte("common tail")},
		{"prepend", []byte("common"), []byte("head common")},
		{"runs", bytes.Repeat([]byte("x"), 500), bytes.Repeat([]byte("y"), 700)},
		{"interleaved", []byte("aXbXcXdX"), []byte("XaXbXcXd")},
	}
	for _, shape := range shapes {
		t.Run(shape.name, func(t *testing.T) {
			for _, blockSize := range []int{1, 2, 3, 7, 64} {
				roundTrip(t, blockSize, shape.source, shape.target)
			}
		})
	}
}

func TestRoundTripCorpus(t *testing.T) {
	corpus := testutil.NewCorpus(7)
	for i := 0; i < 20; i++ {
		source := corpus.TextLike(200 + i*37)
		target := corpus.Mutate(source, 1+i%5)
		for _, blockSize := range []int{1, 4, 16} {
			roundTrip(t, blockSize, source, target)
		}
	}
}

func TestRoundTripRandomBytes(t *testing.T) {
	corpus := testutil.NewCorpus(11)
	source := corpus.Bytes(300)
	target := corpus.Mutate(source, 6)
	for _, blockSize := range []int{1, 2, 8} {
		roundTrip(t, blockSize, source, target)
	}
}

// serialize runs a diff through the writer, returning patch bytes.
func serialize(t *testing.T, source, target []byte, blockSize int) []byte {
	t.Helper()
	stream, err := New(blockSize, source, target, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	patch, err := patchio.Bytes(stream)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	return patch
}

func TestSerializedPatchParsesAndApplies(t *testing.T) {
	corpus := testutil.NewCorpus(3)
	source := corpus.TextLike(400)
	target := corpus.Mutate(source, 4)

	patch := serialize(t, source, target, 2)
	got, err := apply.Bytes(validate.New(patchio.Parse(patch)).WithSource(source), source)
	if err != nil {
		t.Fatalf("apply of serialized patch: %v", err)
	}
	if !bytes.Equal(got, target) {
		t.Error("serialized patch did not reproduce the target")
	}
}
