// Package reader decodes trace-buffer snapshots. It is the consumer side
// of the trace format: records are walked purely by the length field
// embedded in each tag, in the order slots were allocated, which is not
// necessarily chronological order.
package reader

import (
	"encoding/binary"

	"github.com/sarchlab/tracebuf/trace"
)

// A Record is one decoded trace record.
type Record struct {
	// Offset is the record's byte offset within the snapshot.
	Offset int

	Tag       uint32
	Event     uint32
	Groups    trace.Group
	ContextID uint32
	Timestamp uint64

	// Args holds the payload words of a fixed-size record.
	Args [4]uint32

	// ID, Arg, and Name are set for name records.
	ID   uint32
	Arg  uint32
	Name string
}

// IsName reports whether the record carries a name payload.
func (r Record) IsName() bool {
	return r.Tag&trace.FlagNamed != 0
}

// A Decoder walks the records of a snapshot. It stops at the first slot
// that was allocated but never written (a zero tag), which can trail the
// readable extent after buffer exhaustion.
type Decoder struct {
	data []byte
	off  int

	version    uint32
	ticksPerMS uint64
}

// NewDecoder creates a decoder over a snapshot obtained from the trace
// buffer's read-out path.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Version returns the trace format version, once the version metadata
// record has been consumed.
func (d *Decoder) Version() uint32 {
	return d.version
}

// TicksPerMS returns the timestamp conversion factor, once the
// corresponding metadata record has been consumed.
func (d *Decoder) TicksPerMS() uint64 {
	return d.ticksPerMS
}

// Next returns the next record. Metadata records are absorbed into the
// decoder state and skipped. The second return value is false when the
// snapshot is exhausted.
func (d *Decoder) Next() (Record, bool) {
	for {
		if d.off+trace.HeaderSize > len(d.data) {
			return Record{}, false
		}

		tag := binary.LittleEndian.Uint32(d.data[d.off:])
		length := int(trace.RecordLen(tag))
		if tag == 0 || length == 0 || d.off+length > len(d.data) {
			return Record{}, false
		}

		rec := d.data[d.off : d.off+length]
		off := d.off
		d.off += length

		switch tag {
		case trace.TagVersion:
			d.version = binary.LittleEndian.Uint32(rec[4:])
			continue
		case trace.TagTicksPerMS:
			d.ticksPerMS = binary.LittleEndian.Uint64(rec[8:])
			continue
		}

		return d.decode(off, tag, rec), true
	}
}

func (d *Decoder) decode(off int, tag uint32, rec []byte) Record {
	r := Record{
		Offset:    off,
		Tag:       tag,
		Event:     trace.TagEvent(tag),
		Groups:    trace.TagGroups(tag),
		ContextID: binary.LittleEndian.Uint32(rec[4:]),
		Timestamp: binary.LittleEndian.Uint64(rec[8:]),
	}

	payload := rec[trace.HeaderSize:]

	if r.IsName() {
		r.ID = binary.LittleEndian.Uint32(payload[0:])
		r.Arg = binary.LittleEndian.Uint32(payload[4:])
		r.Name = cString(payload[8:])
		return r
	}

	for i := 0; i < 4 && 4*i+4 <= len(payload); i++ {
		r.Args[i] = binary.LittleEndian.Uint32(payload[4*i:])
	}

	return r
}

// ReadAll decodes every record in a snapshot.
func ReadAll(data []byte) []Record {
	d := NewDecoder(data)

	var records []Record
	for {
		rec, ok := d.Next()
		if !ok {
			return records
		}
		records = append(records, rec)
	}
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
