package trace

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

type failingSource struct{}

func (failingSource) Acquire(_ int) ([]byte, error) {
	return nil, errors.New("out of memory")
}

var _ = Describe("Control", func() {
	var (
		b   *Buffer
		tag uint32
	)

	BeforeEach(func() {
		b = NewBuffer(1024)
		err := b.Init(0)
		Expect(err).To(BeNil())

		tag = NewTag(0x12, GrpProbe, RecordSize)
	})

	It("should enable all groups when none are requested", func() {
		Expect(b.Start(0)).To(Succeed())
		Expect(b.Mask()).To(Equal(GroupMask(GrpAll)))
	})

	It("should clear the marker when restarted", func() {
		b.Start(GrpAll)
		b.Event(tag, 1, 0, 0, 0)
		b.Stop()

		Expect(b.Marker()).To(Equal(uint32(ReservedSize + RecordSize)))

		b.Start(GrpAll)

		Expect(b.Marker()).To(Equal(uint32(0)))
		Expect(b.Mask()).To(Equal(GroupMask(GrpAll)))
	})

	It("should freeze the written extent on stop", func() {
		b.Start(GrpAll)
		b.Event(tag, 1, 0, 0, 0)
		b.Event(tag, 2, 0, 0, 0)
		b.Stop()

		Expect(b.Mask()).To(Equal(uint32(0)))
		Expect(b.Marker()).To(Equal(uint32(ReservedSize + 2*RecordSize)))
		Expect(b.Size()).To(Equal(b.Marker()))
	})

	It("should clamp the marker to the usable capacity", func() {
		b.Start(GrpAll)
		for i := 0; i < 100; i++ {
			b.Event(tag, uint32(i), 0, 0, 0)
		}
		b.Stop()

		Expect(b.Marker()).To(Equal(uint32(1024 - recordSlack)))
	})

	It("should roll the cursor back on rewind", func() {
		b.Start(GrpAll)
		for i := 0; i < 100; i++ {
			b.Event(tag, uint32(i), 0, 0, 0)
		}

		Expect(b.Dropped()).To(Equal(uint64(1)))

		Expect(b.Rewind()).To(Succeed())

		Expect(b.Size()).To(Equal(uint32(ReservedSize)))
		Expect(b.Dropped()).To(Equal(uint64(0)))
	})

	It("should re-arm tracing with rewind and start", func() {
		b.Start(GrpAll)
		for i := 0; i < 100; i++ {
			b.Event(tag, uint32(i), 0, 0, 0)
		}

		Expect(b.Mask()).To(Equal(uint32(0)))

		b.Rewind()
		b.Start(GrpAll)
		b.Event(tag, 42, 0, 0, 0)

		Expect(b.Size()).To(Equal(uint32(ReservedSize + RecordSize)))
	})

	It("should dispatch numeric control actions", func() {
		Expect(b.Control(ActionStart, uint32(GrpScheduler))).To(Succeed())
		Expect(b.Mask()).To(Equal(GroupMask(GrpScheduler)))

		Expect(b.Control(ActionStop, 0)).To(Succeed())
		Expect(b.Mask()).To(Equal(uint32(0)))

		Expect(b.Control(ActionRewind, 0)).To(Succeed())
		Expect(b.Size()).To(Equal(uint32(ReservedSize)))
	})

	It("should reject unrecognized control actions without state change", func() {
		b.Start(GrpAll)
		mask := b.Mask()
		size := b.Size()

		err := b.Control(99, 0)

		Expect(err).To(MatchError(ErrInvalidAction))
		Expect(b.Mask()).To(Equal(mask))
		Expect(b.Size()).To(Equal(size))
	})

	It("should invoke the live reporter on init and on start", func() {
		ctrl := gomock.NewController(GinkgoT())
		reporter := NewMockLiveReporter(ctrl)
		reporter.EXPECT().ReportLive(gomock.Any()).Times(2)

		rb := NewBuffer(1024).WithLiveReporter(reporter)
		Expect(rb.Init(0)).To(Succeed())
		Expect(rb.Start(GrpAll)).To(Succeed())
	})

	It("should stay disabled when the capacity is zero", func() {
		db := NewBuffer(0)

		Expect(db.Init(GrpAll)).To(MatchError(ErrDisabled))
		Expect(db.Start(GrpAll)).To(MatchError(ErrDisabled))
		Expect(db.Stop()).To(MatchError(ErrDisabled))
		Expect(db.Rewind()).To(MatchError(ErrDisabled))

		db.Event(NewTag(0x12, GrpProbe, RecordSize), 1, 0, 0, 0)
		Expect(db.Read(nil, 0)).To(Equal(0))
	})

	It("should stay disabled when the backing memory is unavailable", func() {
		db := NewBuffer(1024).WithMemorySource(failingSource{})

		Expect(db.Init(GrpAll)).To(HaveOccurred())
		Expect(db.Start(GrpAll)).To(MatchError(ErrDisabled))
	})
})
