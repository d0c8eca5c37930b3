// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package optimize

import (
	"io"

	"github.com/patchforge/bps/lib/ops"
	"github.com/patchforge/bps/lib/varint"
)

// held operation kinds.
const (
	kindSourceRead = iota
	kindTargetRead
	kindSourceCopy
	kindTargetCopy
)

// heldOp is a body operation in absolute form: copies carry the
// absolute position they read from, not the wire-relative delta.
type heldOp struct {
	kind    int
	span    uint64
	start   int64 // absolute read position; for SourceRead, the output offset
	payload []byte
}

// Stream is the optimizing pass-through. It implements [ops.Stream].
type Stream struct {
	in ops.Stream

	held  *heldOp
	queue []ops.Op
	pos   int

	// Incoming trajectory: where the unoptimized stream's cursors
	// are, used to resolve relative offsets to absolute positions.
	inWrite  uint64
	inSrcCur int64
	inTgtCur int64

	// Outgoing trajectory: where the optimized stream's cursors are,
	// used to re-derive relative offsets on emission. outWrite is the
	// output offset the held operation will write at.
	outWrite  uint64
	outSrcCur int64
	outTgtCur int64

	err error
}

// New returns an optimizing wrapper around stream.
func New(stream ops.Stream) *Stream {
	return &Stream{in: stream}
}

// Next returns the next operation of the optimized stream.
func (o *Stream) Next() (ops.Op, error) {
	if o.err != nil {
		return nil, o.err
	}
	op, err := o.next()
	o.err = err
	return op, err
}

func (o *Stream) next() (ops.Op, error) {
	for {
		if o.pos < len(o.queue) {
			op := o.queue[o.pos]
			o.pos++
			if o.pos == len(o.queue) {
				o.queue = o.queue[:0]
				o.pos = 0
			}
			return op, nil
		}

		op, err := o.in.Next()
		if err == io.EOF {
			if o.held != nil {
				o.convertHeld(nil)
				o.flushHeld()
				continue
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		switch op := op.(type) {
		case ops.SourceHeader, ops.TargetHeader:
			o.queue = append(o.queue, op)

		case ops.SourceRead:
			if err := o.absorb(&heldOp{kind: kindSourceRead, span: op.Span, start: int64(o.inWrite)}); err != nil {
				return nil, err
			}
			o.inWrite += op.Span

		case ops.TargetRead:
			if err := o.absorb(&heldOp{kind: kindTargetRead, span: uint64(len(op.Payload)), payload: op.Payload}); err != nil {
				return nil, err
			}
			o.inWrite += uint64(len(op.Payload))

		case ops.SourceCopy:
			position := o.inSrcCur + op.Offset
			if position < 0 {
				return nil, ops.Corruptf("%s reads before the start of the source", op)
			}
			o.inSrcCur = position + int64(op.Span)
			if err := o.absorb(&heldOp{kind: kindSourceCopy, span: op.Span, start: position}); err != nil {
				return nil, err
			}
			o.inWrite += op.Span

		case ops.TargetCopy:
			position := o.inTgtCur + op.Offset
			if position < 0 {
				return nil, ops.Corruptf("%s reads before the start of the target", op)
			}
			o.inTgtCur = position + int64(op.Span)
			if err := o.absorb(&heldOp{kind: kindTargetCopy, span: op.Span, start: position}); err != nil {
				return nil, err
			}
			o.inWrite += op.Span

		case ops.SourceCRC32, ops.TargetCRC32:
			if o.held != nil {
				o.convertHeld(nil)
				o.flushHeld()
			}
			o.queue = append(o.queue, op)

		case ops.PatchCRC32:
			if o.held != nil {
				o.convertHeld(nil)
				o.flushHeld()
			}
			// Rewrites change the serialized bytes, so whatever sum
			// came in no longer applies; the writer computes a fresh
			// one.
			o.queue = append(o.queue, ops.PatchCRC32{Placeholder: true})

		default:
			return nil, ops.Corruptf("unknown operation type %T", op)
		}
	}
}

// absorb folds a new body operation into the held one when a rewrite
// applies, otherwise flushes the held operation and holds the new
// one. Zero-span operations vanish here.
//
// Merges run before the SourceRead conversion: a contiguous copy pair
// joins into one copy first, which keeps the (longer) result eligible
// for conversion when its own turn comes.
func (o *Stream) absorb(next *heldOp) error {
	if next.span == 0 {
		return nil
	}
	if o.held == nil {
		o.held = next
		return nil
	}

	if o.merge(next) {
		return nil
	}
	// No rewrite joined them as they stand. A conversion may change
	// that: a SourceCopy downgraded to SourceRead merges with an
	// adjacent read.
	if o.convertHeld(next) && o.merge(next) {
		return nil
	}

	o.flushHeld()
	o.held = next
	return nil
}

// merge attempts to fold next into the held operation, reporting
// whether it succeeded.
func (o *Stream) merge(next *heldOp) bool {
	held := o.held
	switch {
	case held.kind == kindSourceRead && next.kind == kindSourceRead:
		held.span += next.span
		return true

	case held.kind == kindTargetRead && next.kind == kindTargetRead:
		// Copy-on-merge keeps us from aliasing a caller's payload.
		merged := make([]byte, 0, held.span+next.span)
		merged = append(merged, held.payload...)
		merged = append(merged, next.payload...)
		held.payload = merged
		held.span += next.span
		return true

	case held.kind == kindSourceCopy && next.kind == kindSourceCopy &&
		next.start == held.start+int64(held.span):
		held.span += next.span
		return true

	case held.kind == kindTargetCopy && next.kind == kindTargetCopy &&
		next.start == held.start+int64(held.span):
		held.span += next.span
		return true

	case held.kind == kindSourceCopy && next.kind == kindSourceRead && next.span == 1 &&
		held.start+int64(held.span) == next.start &&
		spanHeaderLen(held.span+1) == spanHeaderLen(held.span):
		// The read's byte sits exactly where the copy's source run
		// ends, so extending the copy writes the same byte. The span
		// header must not grow: the extension shifts the outgoing
		// source cursor by one, which can cost at most one byte on
		// the next copy's offset, exactly what dropping the read's
		// header saves.
		held.span++
		return true

	case held.kind == kindSourceRead && held.span == 1 && next.kind == kindSourceCopy &&
		next.start == held.start+1:
		// The copy's source run starts right after the read's byte,
		// so a one-longer copy starting one earlier covers both. The
		// cursor lands where the original copy left it, so only the
		// two operations at hand change size; rewrite when the new
		// form is no larger.
		oldLen := 1 + copyWireLen(next.span, next.start-o.outSrcCur)
		newLen := copyWireLen(next.span+1, next.start-1-o.outSrcCur)
		if newLen <= oldLen {
			o.held = &heldOp{kind: kindSourceCopy, span: next.span + 1, start: next.start - 1}
			return true
		}
	}
	return false
}

// convertHeld downgrades a held SourceCopy to SourceRead when the
// copy's data sits at exactly its own output offset, which is what
// SourceRead expresses one varint cheaper. next is the operation
// forcing the decision, or nil at the end of the body.
//
// Dropping the copy also drops its cursor update, which can enlarge
// the offset varint of the next SourceCopy downstream; anything after
// that re-anchors and is unaffected. The decision therefore needs
// only that one operation: when next is the copy in question the
// comparison is exact, when the body is over there is nothing to
// perturb, and otherwise a worst-case bound on the drift stands in
// for the unknown. Reports whether the held operation was converted.
func (o *Stream) convertHeld(next *heldOp) bool {
	held := o.held
	if held == nil || held.kind != kindSourceCopy || held.start != int64(o.outWrite) {
		return false
	}

	// Bytes saved now: the copy's offset varint.
	saved := varint.EncodedLen(varint.PackSigned(held.start - o.outSrcCur))

	convert := false
	switch {
	case next == nil:
		// End of the body: no later copy can be affected.
		convert = true
	case next.kind == kindSourceCopy:
		// The affected copy is in hand; compare its offset varint
		// under both cursor trajectories.
		kept := varint.EncodedLen(varint.PackSigned(next.start - (held.start + int64(held.span))))
		converted := varint.EncodedLen(varint.PackSigned(next.start - o.outSrcCur))
		convert = converted-kept <= saved
	default:
		// The affected copy, if any, is not known yet. Its offset
		// shifts by the cursor drift, which can grow its varint by
		// at most the drift's own encoded length.
		drift := held.start + int64(held.span) - o.outSrcCur
		convert = varint.EncodedLen(varint.PackSigned(drift)) <= saved
	}
	if convert {
		held.kind = kindSourceRead
	}
	return convert
}

// flushHeld emits the held operation with its offset re-derived
// against the outgoing cursor trajectory.
func (o *Stream) flushHeld() {
	held := o.held
	o.held = nil

	o.outWrite += held.span
	switch held.kind {
	case kindSourceRead:
		o.queue = append(o.queue, ops.SourceRead{Span: held.span})
	case kindTargetRead:
		o.queue = append(o.queue, ops.TargetRead{Payload: held.payload})
	case kindSourceCopy:
		delta := held.start - o.outSrcCur
		o.outSrcCur = held.start + int64(held.span)
		o.queue = append(o.queue, ops.SourceCopy{Span: held.span, Offset: delta})
	case kindTargetCopy:
		delta := held.start - o.outTgtCur
		o.outTgtCur = held.start + int64(held.span)
		o.queue = append(o.queue, ops.TargetCopy{Span: held.span, Offset: delta})
	}
}

// spanHeaderLen returns the encoded length of an operation header
// varint for the given span. The two opcode bits never change the
// length, so the caller's kind is irrelevant.
func spanHeaderLen(span uint64) int {
	return varint.EncodedLen((span - 1) << 2)
}

// copyWireLen returns the encoded length of a copy operation with
// the given span and relative offset.
func copyWireLen(span uint64, offset int64) int {
	return spanHeaderLen(span) + varint.EncodedLen(varint.PackSigned(offset))
}
