package trace

// A ContextResolver supplies the attribution id stamped into each record
// header, identifying the execution context that emitted the record.
type ContextResolver interface {
	CurrentContextID() uint32
}

type nullResolver struct{}

func (nullResolver) CurrentContextID() uint32 {
	return 0
}

// A LiveReporter backfills records for entities that already existed when
// tracing started. It is invoked on initialization and on every Start, so
// that context established before tracing began is still represented in
// the trace.
type LiveReporter interface {
	ReportLive(b *Buffer)
}

type nopReporter struct{}

func (nopReporter) ReportLive(_ *Buffer) {}

// A MemorySource provides the backing byte region for a buffer. Failure to
// acquire the region leaves the subsystem disabled; it is never fatal to
// the host.
type MemorySource interface {
	Acquire(size int) ([]byte, error)
}

type heapSource struct{}

func (heapSource) Acquire(size int) ([]byte, error) {
	return make([]byte, size), nil
}
