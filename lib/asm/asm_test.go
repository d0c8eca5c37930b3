// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package asm

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/patchforge/bps/lib/diff"
	"github.com/patchforge/bps/lib/ops"
	"github.com/patchforge/bps/lib/patchio"
)

func TestDisassembleKnownStream(t *testing.T) {
	sum := crc32.ChecksumIEEE([]byte("abcdef"))
	stream := []ops.Op{
		ops.SourceHeader{Size: 6},
		ops.TargetHeader{Size: 6},
		ops.SourceCopy{Span: 3, Offset: 3},
		ops.SourceCopy{Span: 3, Offset: -6},
		ops.SourceCRC32{Sum: sum},
		ops.TargetCRC32{Sum: 0x7FE6C241},
		ops.PatchCRC32{Placeholder: true},
	}

	var listing bytes.Buffer
	if err := Disassemble(ops.Slice(stream), &listing); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}

	want := strings.Join([]string{
		"bpsasm",
		"sourcesize: 6",
		"targetsize: 6",
		"metadata:",
		".",
		"sourcecopy: 3 +3",
		"sourcecopy: 3 -6",
		fmt.Sprintf("sourcecrc32: %08X", sum),
		"targetcrc32: 7FE6C241",
		"",
	}, "\n")
	if listing.String() != want {
		t.Errorf("listing\n got: %q\nwant: %q", listing.String(), want)
	}
}

func TestAssembleKnownListing(t *testing.T) {
	listing := strings.Join([]string{
		"bpsasm",
		"sourcesize: 0",
		"targetsize: 5",
		"metadata:",
		".",
		"targetread:",
		"68656c6c6f",
		".",
		"sourcecrc32: 00000000",
		"targetcrc32: 3610A686",
		"",
	}, "\n")

	stream, err := Assemble(strings.NewReader(listing))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	collected, err := ops.Collect(stream)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(collected) != 6 {
		t.Fatalf("assembled %d operations, want 6", len(collected))
	}
	read, ok := collected[2].(ops.TargetRead)
	if !ok || string(read.Payload) != "hello" {
		t.Errorf("operation 2 = %v, want TargetRead(hello)", collected[2])
	}
	patchCRC, ok := collected[5].(ops.PatchCRC32)
	if !ok || !patchCRC.Placeholder {
		t.Errorf("operation 5 = %v, want a placeholder patch checksum", collected[5])
	}
}

func TestRoundTripThroughListing(t *testing.T) {
	source := []byte("the source bytes, with some repetition: abcabcabc")
	target := []byte("the target bytes, with more repetition: abcabcabcabc!")

	stream, err := diff.New(2, source, target, []byte("notes\x00binary ok"))
	if err != nil {
		t.Fatalf("diff.New: %v", err)
	}
	patch, err := patchio.Bytes(stream)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	var listing bytes.Buffer
	if err := Disassemble(patchio.Parse(patch), &listing); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	assembled, err := Assemble(&listing)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	rebuilt, err := patchio.Bytes(assembled)
	if err != nil {
		t.Fatalf("serialize assembled: %v", err)
	}
	if !bytes.Equal(rebuilt, patch) {
		t.Error("listing round trip changed the patch bytes")
	}
}

func TestHexWrapping(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 100)
	stream := []ops.Op{
		ops.SourceHeader{Size: 0},
		ops.TargetHeader{Size: 100},
		ops.TargetRead{Payload: payload},
		ops.SourceCRC32{Sum: 0},
		ops.TargetCRC32{Sum: crc32.ChecksumIEEE(payload)},
		ops.PatchCRC32{Placeholder: true},
	}
	var listing bytes.Buffer
	if err := Disassemble(ops.Slice(stream), &listing); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	// 100 bytes wrap into lines of 40, 40, and 20.
	lines := strings.Split(listing.String(), "\n")
	var hexLines []string
	for _, line := range lines {
		if strings.HasPrefix(line, "abab") {
			hexLines = append(hexLines, line)
		}
	}
	if len(hexLines) != 3 || len(hexLines[0]) != 80 || len(hexLines[2]) != 40 {
		t.Errorf("payload wrapped into %d hex lines", len(hexLines))
	}

	assembled, err := Assemble(strings.NewReader(listing.String()))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	collected, err := ops.Collect(assembled)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	read := collected[2].(ops.TargetRead)
	if !bytes.Equal(read.Payload, payload) {
		t.Error("wrapped payload did not survive the round trip")
	}
}

func TestAssembleRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"not a listing\n",
		"bpsasm\nsourcesize: x\n",
		"bpsasm\nsourcesize: 0\ntargetsize: 4\nmetadata:\n.\nbogus: 4\n",
		"bpsasm\nsourcesize: 0\ntargetsize: 4\nmetadata:\n.\n", // ends early
	}
	for _, listing := range cases {
		if _, err := Assemble(strings.NewReader(listing)); err == nil {
			t.Errorf("Assemble(%q) should fail", listing)
		}
	}
}
