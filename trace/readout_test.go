package trace

import (
	"encoding/binary"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type rawRecord struct {
	offset uint32
	tag    uint32
	args   [4]uint32
}

// walkRecords walks a snapshot by the length field embedded in each tag,
// the same way an external consumer does.
func walkRecords(data []byte) []rawRecord {
	var records []rawRecord

	off := uint32(0)
	for off+HeaderSize <= uint32(len(data)) {
		tag := binary.LittleEndian.Uint32(data[off:])
		length := RecordLen(tag)
		if tag == 0 || length == 0 || off+length > uint32(len(data)) {
			break
		}

		rec := rawRecord{offset: off, tag: tag}
		for i := uint32(0); i < 4 && HeaderSize+4*i+4 <= length; i++ {
			rec.args[i] = binary.LittleEndian.
				Uint32(data[off+HeaderSize+4*i:])
		}

		records = append(records, rec)
		off += length
	}

	return records
}

var _ = Describe("Readout", func() {
	var b *Buffer

	BeforeEach(func() {
		b = NewBuffer(1024)
		err := b.Init(0)
		Expect(err).To(BeNil())
	})

	It("should report the written extent after start and stop", func() {
		b.Start(GrpAll)
		for i := 0; i < 10; i++ {
			b.Event(NewTag(0x12, GrpProbe, RecordSize),
				uint32(i), 0, 0, 0)
		}
		b.Stop()

		Expect(b.Read(nil, 0)).To(Equal(ReservedSize + 10*RecordSize))

		snapshot := make([]byte, 352)
		Expect(b.Read(snapshot, 0)).To(Equal(352))

		records := walkRecords(snapshot)
		Expect(records).To(HaveLen(12))
		Expect(records[0].tag).To(Equal(TagVersion))
		Expect(records[1].tag).To(Equal(TagTicksPerMS))
		for i, rec := range records[2:] {
			Expect(rec.offset).
				To(Equal(uint32(ReservedSize + i*RecordSize)))
			Expect(rec.args[0]).To(Equal(uint32(i)))
		}
	})

	It("should read zero bytes at or past the extent", func() {
		b.Start(GrpAll)
		b.Event(NewTag(0x12, GrpProbe, RecordSize), 1, 0, 0, 0)
		b.Stop()

		dst := make([]byte, 16)
		Expect(b.Read(dst, b.Size())).To(Equal(0))
		Expect(b.Read(dst, 100000)).To(Equal(0))
	})

	It("should clamp reads to the extent", func() {
		b.Start(GrpAll)
		for i := 0; i < 10; i++ {
			b.Event(NewTag(0x12, GrpProbe, RecordSize),
				uint32(i), 0, 0, 0)
		}
		b.Stop()

		dst := make([]byte, 100)
		n := b.Read(dst, 300)

		Expect(n).To(Equal(52))
		Expect(dst[:n]).To(Equal(b.buf[300:352]))
	})

	It("should follow the live cursor while tracing is active", func() {
		b.Start(GrpAll)
		b.Event(NewTag(0x12, GrpProbe, RecordSize), 1, 0, 0, 0)

		Expect(b.Read(nil, 0)).To(Equal(ReservedSize + RecordSize))
	})

	It("should never report more than the usable capacity", func() {
		b.Start(GrpAll)
		for i := 0; i < 100; i++ {
			b.Event(NewTag(0x12, GrpProbe, RecordSize),
				uint32(i), 0, 0, 0)
		}

		Expect(b.Read(nil, 0)).To(Equal(1024 - recordSlack))
	})

	It("should issue disjoint slots to concurrent writers", func() {
		big := NewBuffer(1024 * 1024)
		Expect(big.Init(GrpAll)).To(Succeed())

		const writers = 8
		const perWriter = 200

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(id uint32) {
				defer wg.Done()
				for seq := uint32(0); seq < perWriter; seq++ {
					big.Event(NewTag(0x12, GrpProbe, RecordSize),
						id, seq, 0, 0)
				}
			}(uint32(w))
		}
		wg.Wait()
		big.Stop()

		snapshot := make([]byte, big.Size())
		Expect(big.Read(snapshot, 0)).To(Equal(len(snapshot)))

		records := walkRecords(snapshot)
		Expect(records).To(HaveLen(2 + writers*perWriter))

		seen := make(map[[2]uint32]bool)
		for _, rec := range records[2:] {
			key := [2]uint32{rec.args[0], rec.args[1]}
			Expect(seen[key]).To(BeFalse())
			seen[key] = true
		}
	})
})
