package monitoring

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/process"

	"github.com/sarchlab/tracebuf/trace"
)

// Event number of the name records the reporter emits.
const evThreadName = 0x001

// A ThreadReporter backfills a name record for every OS thread of the
// host process, so threads that existed before tracing started are still
// represented in the trace.
type ThreadReporter struct {
	pid int32
}

// NewThreadReporter creates a reporter for the current process.
func NewThreadReporter() *ThreadReporter {
	return &ThreadReporter{pid: int32(os.Getpid())}
}

// ReportLive emits one lifecycle name record per live OS thread. Errors
// are swallowed: a failed enumeration only means an incomplete backfill.
func (r *ThreadReporter) ReportLive(b *trace.Buffer) {
	p, err := process.NewProcess(r.pid)
	if err != nil {
		return
	}

	threads, err := p.Threads()
	if err != nil {
		return
	}

	tag := trace.NewNameTag(evThreadName, trace.GrpLifecycle)
	for tid := range threads {
		b.Name(tag, uint32(tid), uint32(r.pid),
			fmt.Sprintf("thread-%d", tid))
	}
}
