// Package metrics is a tiny metrics facade.
//
// Core ingestion and query code calls the package-level helpers and stays
// free of any vendor SDK; a concrete backend (see internal/metrics/datadog)
// is installed once at process startup with SetBackend. Without a backend,
// every call is a cheap no-op.
package metrics

import "sync/atomic"

// Labels attaches low-cardinality dimensions to a metric observation.
type Labels map[string]string

// Backend is implemented by metric sinks.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer observations.
type Flusher interface {
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

// holder gives every stored value the same concrete type; atomic.Value
// panics when successive stores have differing dynamic types.
type holder struct{ b Backend }

var backend atomic.Value // holder

func init() {
	backend.Store(holder{nopBackend{}})
}

// SetBackend installs the process-wide backend. Call once at startup,
// before any metrics are emitted.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	backend.Store(holder{b})
}

func current() Backend {
	return backend.Load().(holder).b
}

// IncCounter adds delta to a counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample of a distribution.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the installed backend if it buffers observations.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Metric names emitted by the service. Kept here so backends can map them
// to vendor naming schemes in one place.
const (
	IngestRowsTotal       = "checklist_ingest_rows_total"
	IngestRunsTotal       = "checklist_ingest_runs_total"
	IngestDurationSeconds = "checklist_ingest_duration_seconds"
	HTTPRequestsTotal     = "checklist_http_requests_total"
)
