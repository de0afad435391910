package trace

// Record layout. Every record starts with a 16-byte header:
//
//	[0:4)   tag
//	[4:8)   context id
//	[8:16)  timestamp
//
// The tag packs the event number, flags, group bits, and the record length
// so that a consumer can walk the buffer with no separate length field:
//
//	[31:20] event number
//	[19:16] flags
//	[15:4)  group bits, one bit per group
//	[3:0)   record length in 8-byte units
//
// A fixed-size record carries up to four 32-bit payload words after the
// header. A name record carries an id word, an arg word, and a short
// NUL-terminated name.
const (
	// HeaderSize is the size of a record header in bytes.
	HeaderSize = 16

	// RecordSize is the size of a full fixed-size record in bytes.
	RecordSize = 32

	// MetaRecordSize is the size of one reserved metadata slot in bytes.
	MetaRecordSize = 16

	// ReservedSize is the size of the reserved metadata prefix. The write
	// cursor always starts here and Rewind rolls back to here.
	ReservedSize = 2 * MetaRecordSize

	// MaxNameLen is the longest name a name record can carry, not counting
	// the NUL terminator.
	MaxNameLen = 31
)

const (
	tagLenMask = 0xF
	grpShift   = 4
	flagShift  = 16
	eventShift = 20

	// FlagNamed marks a record that carries a name payload.
	FlagNamed = 1 << flagShift
)

// A Group is a category of events that can be enabled or disabled together.
type Group uint32

// The event groups. A record belongs to exactly one group; the group bit in
// its tag is matched against the buffer's group mask before allocation.
const (
	GrpMeta Group = 1 << iota
	GrpLifecycle
	GrpScheduler
	GrpTasks
	GrpIPC
	GrpIRQ
	GrpProbe
	GrpArch

	// GrpAll enables every group.
	GrpAll Group = 0xFFF
)

// GroupMask shifts group bits into their tag position. The result is what
// the gate compares tags against.
func GroupMask(g Group) uint32 {
	return uint32(g&GrpAll) << grpShift
}

// NewTag builds a tag for a fixed-size record of the given total size in
// bytes. The size is rounded up to the next 8-byte boundary.
func NewTag(event uint32, g Group, size uint32) uint32 {
	return event<<eventShift | GroupMask(g) | (size+7)>>3&tagLenMask
}

// NewNameTag builds a tag for a name record. The length field is filled in
// at emit time, once the name length is known.
func NewNameTag(event uint32, g Group) uint32 {
	return event<<eventShift | FlagNamed | GroupMask(g)
}

// RecordLen recovers a record's total length in bytes from its tag.
func RecordLen(tag uint32) uint32 {
	return (tag & tagLenMask) << 3
}

// TagEvent recovers the event number from a tag.
func TagEvent(tag uint32) uint32 {
	return tag >> eventShift
}

// TagGroups recovers the group bits from a tag.
func TagGroups(tag uint32) Group {
	return Group(tag>>grpShift) & GrpAll
}

// Version is the trace format version reported in the first metadata slot.
const Version uint32 = 0x00010000

// Tags of the two reserved metadata records. Metadata slots reuse the
// header space for their payload: a 32-bit value at offset 4 and a 64-bit
// value at offset 8.
var (
	TagVersion    = NewTag(0x001, GrpMeta, MetaRecordSize)
	TagTicksPerMS = NewTag(0x002, GrpMeta, MetaRecordSize)
)
