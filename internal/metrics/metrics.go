// Package metrics is a small facade between the export pipeline and a
// metrics backend.
//
// Pipeline code records through package-level helpers and depends only on the
// Backend interface; the concrete backend (see metrics/datadog) is injected
// once at startup. With no backend set, every helper is a no-op, so library
// code never needs nil checks or test scaffolding.
package metrics

import (
	"strconv"
	"sync"
	"time"
)

// Labels attaches dimensions to a metric observation.
type Labels map[string]string

// Backend receives metric observations.
//
// Implementations must be safe for concurrent use; helpers may be called from
// multiple goroutines.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer observations.
type Flusher interface {
	Flush() error
}

var (
	mu      sync.RWMutex
	backend Backend
)

// SetBackend installs the process-wide backend. Pass nil to disable.
func SetBackend(b Backend) {
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter forwards to the installed backend, if any.
func IncCounter(name string, delta float64, labels Labels) {
	if b := current(); b != nil {
		b.IncCounter(name, delta, labels)
	}
}

// ObserveHistogram forwards to the installed backend, if any.
func ObserveHistogram(name string, value float64, labels Labels) {
	if b := current(); b != nil {
		b.ObserveHistogram(name, value, labels)
	}
}

// Flush flushes the installed backend when it buffers; otherwise a no-op.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// RecordStep records one pipeline step completion with its duration.
// status is "ok" or "error" derived from err.
func RecordStep(step string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	l := Labels{"step": step, "status": status}
	IncCounter("export_step_total", 1, l)
	ObserveHistogram("export_step_duration_seconds", d.Seconds(), l)
}

// RecordRecords counts processed records by kind (e.g. "projected",
// "parse_failure", "malformed_date").
func RecordRecords(kind string, n int) {
	if n <= 0 {
		return
	}
	IncCounter("export_records_total", float64(n), Labels{"kind": kind})
}

// RecordHTTP records one HTTP attempt against the platform API.
//
// status 0 means the request never produced a response (network error).
func RecordHTTP(job string, status int, err error, reqDur, respDur time.Duration, bytes int64) {
	st := strconv.Itoa(status)
	l := Labels{"job": job, "status": st}

	IncCounter("export_http_requests_total", 1, l)
	if err != nil || status >= 400 || status == 0 {
		IncCounter("export_http_errors_total", 1, l)
	}
	if reqDur > 0 {
		ObserveHistogram("export_http_request_duration_seconds", reqDur.Seconds(), l)
	}
	if respDur > 0 {
		ObserveHistogram("export_http_response_duration_seconds", respDur.Seconds(), l)
	}
	if bytes >= 0 {
		ObserveHistogram("export_http_download_bytes", float64(bytes), l)
	}
}
