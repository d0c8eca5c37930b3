// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package varint

import (
	"bytes"
	"io"
	"math"
	"testing"
)

func TestKnownEncodings(t *testing.T) {
	cases := []struct {
		n    uint64
		want []byte
	}{
		{0, []byte{0x80}},
		{1, []byte{0x81}},
		{0x7F, []byte{0xFF}},
		{0x80, []byte{0x00, 0x80}},
		{0x81, []byte{0x01, 0x80}},
		{0xFF, []byte{0x7F, 0x80}},
		{0x100, []byte{0x00, 0x81}},
		{0x407F, []byte{0x7F, 0xFF}},
		{0x4080, []byte{0x00, 0x00, 0x80}},
	}
	for _, tc := range cases {
		got := Append(nil, tc.n)
		if !bytes.Equal(got, tc.want) {
			t.Errorf("Append(%#x) = %x, want %x", tc.n, got, tc.want)
		}
		if EncodedLen(tc.n) != len(tc.want) {
			t.Errorf("EncodedLen(%#x) = %d, want %d", tc.n, EncodedLen(tc.n), len(tc.want))
		}
		decoded, err := Read(bytes.NewReader(tc.want))
		if err != nil {
			t.Fatalf("Read(%x): %v", tc.want, err)
		}
		if decoded != tc.n {
			t.Errorf("Read(%x) = %#x, want %#x", tc.want, decoded, tc.n)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 2, 126, 127, 128, 129, 255, 256,
		16511, 16512, 1<<21 - 1, 1 << 21, 1<<32 - 1, 1 << 32,
		1<<63 - 1, 1 << 63, math.MaxUint64,
	}
	// Powers of two and their neighbors.
	for shift := 0; shift < 64; shift++ {
		power := uint64(1) << shift
		values = append(values, power, power-1, power+1)
	}
	for _, n := range values {
		encoded := Append(nil, n)
		decoded, err := Read(bytes.NewReader(encoded))
		if err != nil {
			t.Fatalf("Read(Append(%d)): %v", n, err)
		}
		if decoded != n {
			t.Errorf("round trip of %d gave %d (encoding %x)", n, decoded, encoded)
		}
	}
}

func TestEncodingIsCanonical(t *testing.T) {
	// Sequential values must produce distinct encodings, and each
	// encoding must decode back without consuming extra bytes.
	seen := make(map[string]uint64)
	for n := uint64(0); n < 100000; n++ {
		encoded := string(Append(nil, n))
		if prev, ok := seen[encoded]; ok {
			t.Fatalf("values %d and %d share encoding %x", prev, n, encoded)
		}
		seen[encoded] = n
	}
}

func TestReadStopsAtTerminator(t *testing.T) {
	r := bytes.NewReader([]byte{0x81, 0xAA, 0xBB})
	n, err := Read(r)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 1 {
		t.Errorf("Read = %d, want 1", n)
	}
	if r.Len() != 2 {
		t.Errorf("Read consumed %d bytes, want 1", 3-r.Len())
	}
}

func TestReadTruncated(t *testing.T) {
	for _, input := range [][]byte{nil, {0x00}, {0x7F, 0x00, 0x01}} {
		_, err := Read(bytes.NewReader(input))
		if err != ErrTruncated {
			t.Errorf("Read(%x) error = %v, want ErrTruncated", input, err)
		}
	}
}

func TestReadOverflow(t *testing.T) {
	// Eleven continuation groups exceed 64 bits no matter what the
	// terminator byte carries.
	input := bytes.Repeat([]byte{0x7F}, 11)
	input = append(input, 0x80)
	_, err := Read(bytes.NewReader(input))
	if err != ErrOverflow {
		t.Errorf("Read error = %v, want ErrOverflow", err)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, 0x4080); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0x00, 0x00, 0x80}) {
		t.Errorf("Write produced %x", buf.Bytes())
	}
}

func TestPackSigned(t *testing.T) {
	cases := []struct {
		v    int64
		want uint64
	}{
		{0, 0},
		{1, 2},
		{-1, 3},
		{2, 4},
		{-2, 5},
		{1 << 30, 1 << 31},
		{-(1 << 30), 1<<31 | 1},
	}
	for _, tc := range cases {
		if got := PackSigned(tc.v); got != tc.want {
			t.Errorf("PackSigned(%d) = %d, want %d", tc.v, got, tc.want)
		}
		if got := UnpackSigned(tc.want); got != tc.v {
			t.Errorf("UnpackSigned(%d) = %d, want %d", tc.want, got, tc.v)
		}
	}
}

var _ io.ByteReader = (*bytes.Reader)(nil)
