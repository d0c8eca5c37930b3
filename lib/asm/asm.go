// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package asm

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/patchforge/bps/lib/ops"
)

// Assemble parses a text listing from r into an operation stream.
// The returned stream ends with an [ops.PatchCRC32] placeholder, so
// it serializes directly: the writer fills in the real checksum.
func Assemble(r io.Reader) (ops.Stream, error) {
	p := &parser{scanner: bufio.NewScanner(r)}
	parsed, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", p.lineno, err)
	}
	return ops.Slice(parsed), nil
}

type parser struct {
	scanner *bufio.Scanner
	lineno  int
}

// line returns the next line, or io.EOF.
func (p *parser) line() (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	p.lineno++
	return p.scanner.Text(), nil
}

// labeled splits the next line at its label colon and checks the
// label against want.
func (p *parser) labeled(want string) (string, error) {
	line, err := p.line()
	if err == io.EOF {
		return "", fmt.Errorf("listing ends early, expected %q", want)
	}
	if err != nil {
		return "", err
	}
	label, value, ok := strings.Cut(line, ":")
	if !ok || label != want {
		return "", fmt.Errorf("expected %q, got %q", want, line)
	}
	return strings.TrimSpace(value), nil
}

func (p *parser) parse() ([]ops.Op, error) {
	magic, err := p.line()
	if err == io.EOF || (err == nil && magic != MagicLine) {
		return nil, fmt.Errorf("listing must start with %q", MagicLine)
	}
	if err != nil {
		return nil, err
	}

	value, err := p.labeled("sourcesize")
	if err != nil {
		return nil, err
	}
	sourceSize, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad source size %q", value)
	}

	value, err = p.labeled("targetsize")
	if err != nil {
		return nil, err
	}
	targetSize, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad target size %q", value)
	}

	if _, err := p.labeled("metadata"); err != nil {
		return nil, err
	}
	metadata, err := p.hexBlock()
	if err != nil {
		return nil, err
	}

	parsed := []ops.Op{
		ops.SourceHeader{Size: sourceSize},
		ops.TargetHeader{Size: targetSize, Metadata: metadata},
	}

	var writeOffset uint64
	for writeOffset < targetSize {
		line, err := p.line()
		if err == io.EOF {
			return nil, fmt.Errorf("listing ends with %d of %d target bytes unaccounted for",
				targetSize-writeOffset, targetSize)
		}
		if err != nil {
			return nil, err
		}
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("expected an operation, got %q", line)
		}
		value = strings.TrimSpace(value)

		var op ops.Op
		switch label {
		case "sourceread":
			span, err := strconv.ParseUint(value, 10, 64)
			if err != nil || span == 0 {
				return nil, fmt.Errorf("bad sourceread span %q", value)
			}
			op = ops.SourceRead{Span: span}
		case "targetread":
			payload, err := p.hexBlock()
			if err != nil {
				return nil, err
			}
			if len(payload) == 0 {
				return nil, fmt.Errorf("targetread payload is empty")
			}
			op = ops.TargetRead{Payload: payload}
		case "sourcecopy", "targetcopy":
			span, offset, err := parseCopy(value)
			if err != nil {
				return nil, fmt.Errorf("bad %s %q: %w", label, value, err)
			}
			if label == "sourcecopy" {
				op = ops.SourceCopy{Span: span, Offset: offset}
			} else {
				op = ops.TargetCopy{Span: span, Offset: offset}
			}
		default:
			return nil, fmt.Errorf("unknown operation label %q", label)
		}
		parsed = append(parsed, op)
		writeOffset += op.Bytespan()
	}

	sourceCRC, err := p.crcLine("sourcecrc32")
	if err != nil {
		return nil, err
	}
	targetCRC, err := p.crcLine("targetcrc32")
	if err != nil {
		return nil, err
	}
	parsed = append(parsed,
		ops.SourceCRC32{Sum: sourceCRC},
		ops.TargetCRC32{Sum: targetCRC},
		ops.PatchCRC32{Placeholder: true},
	)
	return parsed, nil
}

// hexBlock reads wrapped hex lines up to the dot terminator.
func (p *parser) hexBlock() ([]byte, error) {
	var data []byte
	for {
		line, err := p.line()
		if err == io.EOF {
			return nil, fmt.Errorf("hex block not terminated with %q", ".")
		}
		if err != nil {
			return nil, err
		}
		if line == "." {
			return data, nil
		}
		decoded, err := hex.DecodeString(strings.TrimSpace(line))
		if err != nil {
			return nil, fmt.Errorf("bad hex line %q: %w", line, err)
		}
		data = append(data, decoded...)
	}
}

func (p *parser) crcLine(label string) (uint32, error) {
	value, err := p.labeled(label)
	if err != nil {
		return 0, err
	}
	sum, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", label, value)
	}
	return uint32(sum), nil
}

// parseCopy splits "span offset" where offset carries an explicit
// sign.
func parseCopy(value string) (uint64, int64, error) {
	fields := strings.Fields(value)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("want span and offset")
	}
	span, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil || span == 0 {
		return 0, 0, fmt.Errorf("bad span %q", fields[0])
	}
	offset, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad offset %q", fields[1])
	}
	return span, offset, nil
}
