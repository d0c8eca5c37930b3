// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"fmt"
	"hash/crc32"
	"io"

	"github.com/patchforge/bps/lib/blockmap"
	"github.com/patchforge/bps/lib/ops"
	"github.com/patchforge/bps/lib/varint"
)

// DefaultBlockSize returns the heuristic block size for the given
// input lengths: about one byte of block per megabyte of combined
// input, and never less than one.
func DefaultBlockSize(sourceLen, targetLen int) int {
	return (sourceLen+targetLen)/1_000_000 + 1
}

// engine stages.
const (
	stageSourceHeader = iota
	stageTargetHeader
	stageBody
	stageSourceCRC
	stageTargetCRC
	stagePatchCRC
	stageDone
)

// Stream lazily produces the operations of a patch transforming
// source into target. It implements [ops.Stream]. The engine borrows
// both arrays for its lifetime; only literal payloads are copied.
type Stream struct {
	source   []byte
	target   []byte
	metadata []byte

	blockSize int
	sourceMap *blockmap.Map
	targetMap *blockmap.Map

	// writeOffset is the target position up to which operations have
	// been decided (including bytes sitting in pending).
	writeOffset uint64

	// pending accumulates literal bytes awaiting a TargetRead flush.
	pending []byte

	// nextTargetBlock is the offset of the first target window not
	// yet added to targetMap. Windows join the map only once the
	// write cursor has moved completely past them.
	nextTargetBlock uint64

	// lastSourceCopy and lastTargetCopy are the absolute positions
	// one past the previous copy of each kind, the bases for the
	// relative offsets the wire format carries.
	lastSourceCopy int64
	lastTargetCopy int64

	stage int
	queue []ops.Op
}

// New returns a Stream diffing source against target with explicit
// blockSize. Metadata, which may be nil, is carried in the target
// header. The only input New rejects is a block size below one.
func New(blockSize int, source, target, metadata []byte) (*Stream, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("block size must be at least 1, got %d", blockSize)
	}
	d := &Stream{
		source:    source,
		target:    target,
		metadata:  metadata,
		blockSize: blockSize,
		sourceMap: blockmap.New(blockSize),
		targetMap: blockmap.New(blockSize),
	}
	d.sourceMap.Index(source)
	return d, nil
}

// Next returns the next patch operation.
func (d *Stream) Next() (ops.Op, error) {
	switch d.stage {
	case stageSourceHeader:
		d.stage = stageTargetHeader
		return ops.SourceHeader{Size: uint64(len(d.source))}, nil

	case stageTargetHeader:
		d.stage = stageBody
		return ops.TargetHeader{Size: uint64(len(d.target)), Metadata: d.metadata}, nil

	case stageBody:
		for len(d.queue) == 0 {
			if d.writeOffset >= uint64(len(d.target)) {
				d.flushPending()
				d.stage = stageSourceCRC
				break
			}
			d.step()
		}
		if len(d.queue) > 0 {
			op := d.queue[0]
			d.queue = d.queue[1:]
			return op, nil
		}
		return d.Next()

	case stageSourceCRC:
		d.stage = stageTargetCRC
		return ops.SourceCRC32{Sum: crc32.ChecksumIEEE(d.source)}, nil

	case stageTargetCRC:
		d.stage = stagePatchCRC
		return ops.TargetCRC32{Sum: crc32.ChecksumIEEE(d.target)}, nil

	case stagePatchCRC:
		d.stage = stageDone
		// The writer computes the real value.
		return ops.PatchCRC32{Placeholder: true}, nil

	default:
		return nil, io.EOF
	}
}

// step advances the write cursor by one decision: either a copy
// operation (queued, with any pending literal flushed first) or one
// more byte of pending literal.
func (d *Stream) step() {
	best, ok := d.bestCandidate()
	if !ok {
		d.pending = append(d.pending, d.target[d.writeOffset])
		d.writeOffset++
		d.indexTargetBacklog()
		return
	}

	// The chosen copy absorbs the tail of the pending literal run.
	d.pending = d.pending[:uint64(len(d.pending))-best.left]
	d.flushPending()

	span := best.left + best.right
	start := best.origin - int64(best.left)

	switch {
	case best.fromSource && uint64(start) == d.writeOffset-best.left:
		// Copying the source at exactly the output offset is what
		// SourceRead expresses, one varint shorter.
		d.queue = append(d.queue, ops.SourceRead{Span: span})
	case best.fromSource:
		delta := start - d.lastSourceCopy
		d.lastSourceCopy = start + int64(span)
		d.queue = append(d.queue, ops.SourceCopy{Span: span, Offset: delta})
	default:
		delta := start - d.lastTargetCopy
		d.lastTargetCopy = start + int64(span)
		d.queue = append(d.queue, ops.TargetCopy{Span: span, Offset: delta})
	}

	d.writeOffset += best.right
	d.indexTargetBacklog()
}

// flushPending queues the pending literal run as one TargetRead.
func (d *Stream) flushPending() {
	if len(d.pending) == 0 {
		return
	}
	payload := make([]byte, len(d.pending))
	copy(payload, d.pending)
	d.pending = d.pending[:0]
	d.queue = append(d.queue, ops.TargetRead{Payload: payload})
}

// indexTargetBacklog adds target windows the write cursor has moved
// completely past. The cursor rarely lands on a block boundary, so
// there is usually a lag between passing a byte and indexing its
// window.
func (d *Stream) indexTargetBacklog() {
	size := uint64(d.blockSize)
	for d.writeOffset-d.nextTargetBlock >= size {
		d.targetMap.Add(d.target[d.nextTargetBlock:d.nextTargetBlock+size], d.nextTargetBlock)
		d.nextTargetBlock += size
	}
}

// candidate is one possible copy covering the current write offset.
type candidate struct {
	fromSource bool
	origin     int64  // matching position in the origin array
	left       uint64 // bytes matched before the write offset (absorbed literals)
	right      uint64 // bytes matched at and after the write offset
}

// wireCost returns the encoded size of the operation this candidate
// would emit, for breaking span ties.
func (d *Stream) wireCost(c candidate) int {
	span := c.left + c.right
	start := c.origin - int64(c.left)
	if c.fromSource {
		if uint64(start) == d.writeOffset-c.left {
			return varint.EncodedLen((span-1)<<2 | ops.CodeSourceRead)
		}
		return varint.EncodedLen((span-1)<<2|ops.CodeSourceCopy) +
			varint.EncodedLen(varint.PackSigned(start-d.lastSourceCopy))
	}
	return varint.EncodedLen((span-1)<<2|ops.CodeTargetCopy) +
		varint.EncodedLen(varint.PackSigned(start-d.lastTargetCopy))
}

// bestCandidate enumerates every block-map hit whose window starts at
// the current write offset and picks the one spanning the most bytes,
// ties broken by cheapest encoding. Reports false when no candidate
// matches even one byte.
func (d *Stream) bestCandidate() (candidate, bool) {
	w := d.writeOffset
	if w+uint64(d.blockSize) > uint64(len(d.target)) {
		// No full window left; nothing can be in the maps.
		return candidate{}, false
	}
	window := d.target[w : w+uint64(d.blockSize)]

	var best candidate
	var bestCost int
	found := false

	consider := func(c candidate) {
		if c.right == 0 {
			return
		}
		cost := d.wireCost(c)
		span := c.left + c.right
		bestSpan := best.left + best.right
		if !found || span > bestSpan || (span == bestSpan && cost < bestCost) {
			best = c
			bestCost = cost
			found = true
		}
	}

	for _, origin := range d.sourceMap.Lookup(window) {
		c := d.measure(d.source, origin, true)
		consider(c)
	}
	for _, origin := range d.targetMap.Lookup(window) {
		// Only windows fully before the write cursor are indexed, so
		// origin < w always holds here.
		c := d.measure(d.target, origin, false)
		consider(c)
	}
	return best, found
}

// measure extends a block-map hit in both directions: rightward over
// unencoded target bytes, leftward over the pending literal run. The
// byte comparisons double as verification of the hash match.
func (d *Stream) measure(origin []byte, position uint64, fromSource bool) candidate {
	w := d.writeOffset

	var right uint64
	for w+right < uint64(len(d.target)) &&
		position+right < uint64(len(origin)) &&
		origin[position+right] == d.target[w+right] {
		right++
	}

	var left uint64
	maxLeft := uint64(len(d.pending))
	if position < maxLeft {
		maxLeft = position
	}
	for left < maxLeft && origin[position-left-1] == d.target[w-left-1] {
		left++
	}

	return candidate{fromSource: fromSource, origin: int64(position), left: left, right: right}
}
