// Package trace implements a low-overhead, lock-free trace buffer for
// recording timestamped execution events for later extraction by an
// external consumer.
//
// Writers allocate disjoint slots out of a flat byte region with a single
// atomic fetch-and-add and stamp their records in place, so recording is
// safe from any number of concurrent goroutines without locking. When the
// buffer fills, tracing silently disables itself; loss is traded for
// lock-freedom by design.
package trace

import (
	"encoding/binary"
	"errors"
	"log"
	"sync/atomic"
)

// The last record written can overhang the end of the buffer, so the
// usable capacity is reduced by the max size of a record.
const recordSlack = 256

var (
	// ErrDisabled is returned by control operations when the buffer never
	// completed initialization.
	ErrDisabled = errors.New("trace: buffer is disabled")

	// ErrInvalidAction is returned by Control for an unrecognized action.
	ErrInvalidAction = errors.New("trace: invalid control action")
)

// A Buffer records trace events into a fixed byte region. All emit
// operations are non-blocking and safe for concurrent use. The zero value
// is not usable; construct with NewBuffer and call Init.
type Buffer struct {
	// offset is the next-write cursor. It only moves by atomic add, and
	// may transiently point past bufsize when an allocation races past
	// the end.
	offset atomic.Int64

	// grpmask holds the enabled group bits in tag position. Zero means
	// tracing is disabled.
	grpmask atomic.Uint32

	// marker is the frozen readable extent recorded by Stop, 0 while
	// tracing is active.
	marker atomic.Uint32

	// dropped counts emit attempts lost to buffer exhaustion.
	dropped atomic.Uint64

	buf      []byte
	bufsize  uint32
	capacity int

	clock    Clock
	resolver ContextResolver
	reporter LiveReporter
	memory   MemorySource
}

// NewBuffer creates a buffer with the given backing capacity in bytes.
// The buffer does not record anything until Init is called.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		capacity: capacity,
		clock:    NewClock(),
		resolver: nullResolver{},
		reporter: nopReporter{},
		memory:   heapSource{},
	}
}

// WithClock sets the time source used for record timestamps.
func (b *Buffer) WithClock(c Clock) *Buffer {
	b.clock = c
	return b
}

// WithContextResolver sets the accessor for the attribution id stamped
// into record headers.
func (b *Buffer) WithContextResolver(r ContextResolver) *Buffer {
	b.resolver = r
	return b
}

// WithLiveReporter sets the reporter invoked on Init and on every Start.
func (b *Buffer) WithLiveReporter(r LiveReporter) *Buffer {
	b.reporter = r
	return b
}

// WithMemorySource sets the provider of the backing byte region.
func (b *Buffer) WithMemorySource(s MemorySource) *Buffer {
	b.memory = s
	return b
}

// Init acquires the backing region, writes the two reserved metadata
// records, and enables the given groups. A zero capacity or a failed
// acquisition leaves the buffer permanently disabled; every emit then
// becomes a no-op. Init reports the failure but the host can keep running.
func (b *Buffer) Init(groups Group) error {
	if b.capacity <= recordSlack+ReservedSize {
		log.Printf("trace: disabled, capacity %d too small", b.capacity)
		return ErrDisabled
	}

	buf, err := b.memory.Acquire(b.capacity)
	if err != nil {
		log.Printf("trace: cannot acquire buffer: %v", err)
		return err
	}

	b.buf = buf
	b.bufsize = uint32(b.capacity - recordSlack)

	b.writeMetaRecords()

	b.offset.Store(ReservedSize)
	b.grpmask.Store(GroupMask(groups))

	b.reporter.ReportLive(b)

	return nil
}

// writeMetaRecords fills the two reserved slots. They are written once and
// never overwritten, not even by Rewind.
func (b *Buffer) writeMetaRecords() {
	binary.LittleEndian.PutUint32(b.buf[0:], TagVersion)
	binary.LittleEndian.PutUint32(b.buf[4:], Version)

	binary.LittleEndian.PutUint32(b.buf[MetaRecordSize:], TagTicksPerMS)
	binary.LittleEndian.PutUint64(b.buf[MetaRecordSize+8:], b.clock.TicksPerMS())
}

// Capacity returns the size of the backing region in bytes.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Mask returns the current group mask in tag position. Zero means tracing
// is disabled.
func (b *Buffer) Mask() uint32 {
	return b.grpmask.Load()
}

// Marker returns the frozen readable extent, or 0 while tracing is active.
func (b *Buffer) Marker() uint32 {
	return b.marker.Load()
}

// Dropped returns the number of emit attempts lost to buffer exhaustion
// since the last Rewind.
func (b *Buffer) Dropped() uint64 {
	return b.dropped.Load()
}

// Open allocates a slot for a record with the given tag, writes the
// header, and returns the payload region for the caller to fill. It
// returns nil when the tag's group is not enabled or when the buffer is
// exhausted. The returned slice is owned exclusively by the caller.
//
// Racing callers receive disjoint slots; slot order follows allocation
// order, not timestamp order.
func (b *Buffer) Open(tag uint32) []byte {
	if tag&b.grpmask.Load() == 0 {
		return nil
	}

	length := int64(RecordLen(tag))
	end := b.offset.Add(length)
	if end >= int64(b.bufsize) {
		// Arrived at the end. Tracing stays off until an explicit
		// Rewind and Start re-arm it.
		b.grpmask.Store(0)
		b.dropped.Add(1)
		return nil
	}
	off := end - length

	binary.LittleEndian.PutUint32(b.buf[off:], tag)
	binary.LittleEndian.PutUint32(b.buf[off+4:], b.resolver.CurrentContextID())
	binary.LittleEndian.PutUint64(b.buf[off+8:], b.clock.Ticks())

	return b.buf[off+HeaderSize : off+length]
}

// Event records a fixed-size event. Only as many payload words as the
// tag's length field covers are written.
func (b *Buffer) Event(tag uint32, a, a2, a3, a4 uint32) {
	payload := b.Open(tag)
	if payload == nil {
		return
	}

	args := [4]uint32{a, a2, a3, a4}
	for i := 0; i+4 <= len(payload) && i/4 < len(args); i += 4 {
		binary.LittleEndian.PutUint32(payload[i:], args[i/4])
	}
}

// Name records a variable-length name record. Names longer than MaxNameLen
// are truncated; the stored name is always NUL-terminated. The record
// length in the tag is computed from the name and rounded up to the next
// 8-byte boundary.
func (b *Buffer) Name(tag uint32, id, arg uint32, name string) {
	n := len(name)
	if n > MaxNameLen {
		n = MaxNameLen
	}

	tag = tag&^uint32(tagLenMask) | (HeaderSize+8+uint32(n)+1+7)>>3

	payload := b.Open(tag)
	if payload == nil {
		return
	}

	binary.LittleEndian.PutUint32(payload[0:], id)
	binary.LittleEndian.PutUint32(payload[4:], arg)
	copy(payload[8:], name[:n])
	payload[8+n] = 0
}
