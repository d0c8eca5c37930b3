// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package progress reports how far through a patch an operation
// stream has advanced.
//
// [Wrap] interposes on any operation stream, accumulating bytespans
// against the target size declared in the stream's own header and
// rendering a percentage on the given terminal at most once per
// second. When the writer is not a terminal the wrapper is inert, so
// callers can wrap unconditionally and keep piped output clean.
package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/patchforge/bps/lib/ops"
)

// Stream wraps an operation stream with progress rendering. It
// implements [ops.Stream].
type Stream struct {
	inner ops.Stream
	out   io.Writer
	label string

	enabled    bool
	targetSize uint64
	written    uint64
	nextUpdate time.Time
	rendered   bool
}

// Wrap returns a progress-reporting wrapper around stream, labeled
// with the given verb ("diffing", "applying"). Output goes to out,
// and is suppressed entirely unless out is a terminal.
func Wrap(stream ops.Stream, out *os.File, label string) *Stream {
	return &Stream{
		inner:   stream,
		out:     out,
		label:   label,
		enabled: term.IsTerminal(int(out.Fd())),
	}
}

// Next forwards to the wrapped stream, updating the display.
func (p *Stream) Next() (ops.Op, error) {
	op, err := p.inner.Next()
	if err != nil {
		if p.rendered {
			fmt.Fprintln(p.out)
			p.rendered = false
		}
		return op, err
	}

	switch op := op.(type) {
	case ops.TargetHeader:
		p.targetSize = op.Size
	default:
		p.written += op.Bytespan()
	}

	if p.enabled && p.targetSize > 0 {
		if now := time.Now(); now.After(p.nextUpdate) {
			p.nextUpdate = now.Add(time.Second)
			percent := 100 * float64(p.written) / float64(p.targetSize)
			profile := termenv.NewOutput(p.out)
			fmt.Fprintf(p.out, "\r%s %s", p.label,
				profile.String(fmt.Sprintf("%6.2f%%", percent)).Bold())
			p.rendered = true
		}
	}
	return op, nil
}
