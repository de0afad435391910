// Package monitoring turns a host that embeds a trace buffer into a
// server, exposing the buffer's control surface and read-out path to
// external consumers over HTTP.
package monitoring

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/tracebuf/trace"
)

// Monitor serves the control and read-out surface of a trace buffer.
type Monitor struct {
	buffer     *trace.Buffer
	portNumber int
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterBuffer registers the trace buffer to be served.
func (m *Monitor) RegisterBuffer(b *trace.Buffer) {
	m.buffer = b
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	r := m.router()

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	fmt.Fprintf(os.Stderr,
		"Serving trace buffer at http://localhost:%d\n", port)

	go func() {
		err = http.Serve(listener, r)
		dieOnErr(err)
	}()

	return port
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/trace/start", m.startTracing).Methods("POST")
	r.HandleFunc("/api/trace/stop", m.stopTracing).Methods("POST")
	r.HandleFunc("/api/trace/rewind", m.rewindTracing).Methods("POST")
	r.HandleFunc("/api/trace/control", m.control).Methods("POST")
	r.HandleFunc("/api/trace/size", m.traceSize).Methods("GET")
	r.HandleFunc("/api/trace", m.readTrace).Methods("GET")
	r.HandleFunc("/api/status", m.status).Methods("GET")
	r.HandleFunc("/api/state", m.bufferState).Methods("GET")

	return r
}

func (m *Monitor) startTracing(w http.ResponseWriter, r *http.Request) {
	groups, err := parseUint32(r.URL.Query().Get("groups"), 0)
	if err != nil {
		badRequest(w, err)
		return
	}

	m.respondControl(w, m.buffer.Control(trace.ActionStart, groups))
}

func (m *Monitor) stopTracing(w http.ResponseWriter, _ *http.Request) {
	m.respondControl(w, m.buffer.Stop())
}

func (m *Monitor) rewindTracing(w http.ResponseWriter, _ *http.Request) {
	m.respondControl(w, m.buffer.Rewind())
}

// control exposes the raw numeric control surface, mostly so that callers
// can probe for supported actions.
func (m *Monitor) control(w http.ResponseWriter, r *http.Request) {
	action, err := parseUint32(r.URL.Query().Get("action"), 0)
	if err != nil {
		badRequest(w, err)
		return
	}

	options, err := parseUint32(r.URL.Query().Get("options"), 0)
	if err != nil {
		badRequest(w, err)
		return
	}

	m.respondControl(w, m.buffer.Control(action, options))
}

func (m *Monitor) respondControl(w http.ResponseWriter, err error) {
	if err != nil {
		badRequest(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) traceSize(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"size\":%d}", m.buffer.Size())
}

func (m *Monitor) readTrace(w http.ResponseWriter, r *http.Request) {
	offset, err := parseUint32(r.URL.Query().Get("offset"), 0)
	if err != nil {
		badRequest(w, err)
		return
	}

	length, err := parseUint32(r.URL.Query().Get("length"),
		m.buffer.Size())
	if err != nil {
		badRequest(w, err)
		return
	}

	dst := make([]byte, length)
	n := m.buffer.Read(dst, offset)

	w.Header().Set("Content-Type", "application/octet-stream")

	// A failed write here is the consumer-side copy fault of the
	// read-out contract. It is logged, distinct from an empty read,
	// and never unwinds the host.
	_, err = w.Write(dst[:n])
	if err != nil {
		fmt.Fprintf(os.Stderr,
			"Copying trace to consumer failed: %v\n", err)
	}
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	state := "disabled"
	if m.buffer.Mask() != 0 {
		state = "active"
	} else if m.buffer.Marker() != 0 {
		state = "stopped"
	}

	fmt.Fprintf(w,
		"{\"state\":%q,\"mask\":%d,\"size\":%d,"+
			"\"capacity\":%d,\"dropped\":%d",
		state, m.buffer.Mask(), m.buffer.Size(),
		m.buffer.Capacity(), m.buffer.Dropped())

	p, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		if mem, memErr := p.MemoryInfo(); memErr == nil {
			fmt.Fprintf(w, ",\"rss\":%d", mem.RSS)
		}
		if threads, thErr := p.NumThreads(); thErr == nil {
			fmt.Fprintf(w, ",\"num_threads\":%d", threads)
		}
	}

	fmt.Fprint(w, "}")
}

func (m *Monitor) bufferState(w http.ResponseWriter, _ *http.Request) {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.buffer)
	serializer.SetMaxDepth(1)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

func parseUint32(s string, def uint32) (uint32, error) {
	if s == "" {
		return def, nil
	}

	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}

	return uint32(v), nil
}

func badRequest(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintf(w, "Error: %s", err)
}

func dieOnErr(err error) {
	if err != nil {
		panic(err)
	}
}
