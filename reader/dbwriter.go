package reader

import (
	"github.com/rs/xid"

	"github.com/sarchlab/tracebuf/datarecording"
)

type eventTableEntry struct {
	Session   string
	Offset    int
	Timestamp uint64
	Event     uint32
	Groups    uint32
	ContextID uint32
	Arg0      uint32
	Arg1      uint32
	Arg2      uint32
	Arg3      uint32
}

type nameTableEntry struct {
	Session   string
	Offset    int
	Timestamp uint64
	Event     uint32
	Groups    uint32
	ContextID uint32
	ID        uint32
	Arg       uint32
	Name      string
}

type metaTableEntry struct {
	Session    string
	Version    uint32
	TicksPerMS uint64
}

// A DBWriter stores decoded records into a DataRecorder backend, one
// session per writer, so multiple dumps can share a database.
type DBWriter struct {
	backend datarecording.DataRecorder
	session string
}

// NewDBWriter creates a DBWriter and its tables on the given backend.
func NewDBWriter(backend datarecording.DataRecorder) *DBWriter {
	w := &DBWriter{
		backend: backend,
		session: xid.New().String(),
	}

	w.backend.CreateTable("trace_events", eventTableEntry{})
	w.backend.CreateTable("trace_names", nameTableEntry{})
	w.backend.CreateTable("trace_meta", metaTableEntry{})

	return w
}

// Session returns the id under which this writer stores records.
func (w *DBWriter) Session() string {
	return w.session
}

// Write stores one decoded record.
func (w *DBWriter) Write(r Record) {
	if r.IsName() {
		w.backend.InsertData("trace_names", nameTableEntry{
			Session:   w.session,
			Offset:    r.Offset,
			Timestamp: r.Timestamp,
			Event:     r.Event,
			Groups:    uint32(r.Groups),
			ContextID: r.ContextID,
			ID:        r.ID,
			Arg:       r.Arg,
			Name:      r.Name,
		})
		return
	}

	w.backend.InsertData("trace_events", eventTableEntry{
		Session:   w.session,
		Offset:    r.Offset,
		Timestamp: r.Timestamp,
		Event:     r.Event,
		Groups:    uint32(r.Groups),
		ContextID: r.ContextID,
		Arg0:      r.Args[0],
		Arg1:      r.Args[1],
		Arg2:      r.Args[2],
		Arg3:      r.Args[3],
	})
}

// WriteAll decodes a snapshot, stores every record, records the snapshot
// metadata, and flushes the backend.
func (w *DBWriter) WriteAll(data []byte) int {
	d := NewDecoder(data)

	count := 0
	for {
		rec, ok := d.Next()
		if !ok {
			break
		}

		w.Write(rec)
		count++
	}

	w.backend.InsertData("trace_meta", metaTableEntry{
		Session:    w.session,
		Version:    d.Version(),
		TicksPerMS: d.TicksPerMS(),
	})

	w.backend.Flush()

	return count
}
