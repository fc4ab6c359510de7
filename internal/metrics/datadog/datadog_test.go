package datadog

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"checklist/internal/metrics"
)

// fakeSubmitter captures payloads submitted by Backend.Flush().
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) last(t *testing.T) datadogV2.MetricPayload {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		t.Fatal("no payloads submitted")
	}
	return f.payloads[len(f.payloads)-1]
}

// newTestBackend builds a backend with a fake submitter and a ticker slow
// enough that only explicit Flush/Close submissions happen.
func newTestBackend(t *testing.T) (*Backend, *fakeSubmitter) {
	t.Helper()

	sub := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), Options{
		ServiceName: "checklist-test",
		Tags:        []string{"env:test"},
		FlushEvery:  time.Hour,
		now:         func() time.Time { return time.Unix(1700000000, 0) },
		submitter:   sub,
	})
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	return b, sub
}

func TestBackend_FlushSubmitsBufferedCounters(t *testing.T) {
	t.Parallel()

	b, sub := newTestBackend(t)
	defer func() { _ = b.Close() }()

	b.IncCounter(metrics.IngestRowsTotal, 3, metrics.Labels{"status": "ok"})
	b.IncCounter(metrics.IngestRowsTotal, 1, metrics.Labels{"status": "failed"})
	b.IncCounter("unknown_metric", 1, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v", err)
	}

	payload := sub.last(t)
	if len(payload.Series) != 2 {
		t.Fatalf("series count = %d, want 2 (unknown metric must be dropped): %+v", len(payload.Series), payload.Series)
	}
	for _, s := range payload.Series {
		if s.Metric != "checklist.ingest.rows.total" {
			t.Errorf("metric name = %q, want checklist.ingest.rows.total", s.Metric)
		}
		if !hasTag(s.Tags, "service:checklist-test") || !hasTag(s.Tags, "env:test") {
			t.Errorf("base tags missing: %v", s.Tags)
		}
	}
}

func TestBackend_FlushResetsBuffers(t *testing.T) {
	t.Parallel()

	b, sub := newTestBackend(t)
	defer func() { _ = b.Close() }()

	b.IncCounter(metrics.IngestRunsTotal, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v", err)
	}

	// Nothing buffered: the second flush must not submit.
	before := len(sub.payloads)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v", err)
	}
	if len(sub.payloads) != before {
		t.Fatalf("empty flush submitted a payload")
	}
}

func TestBackend_DurationPercentiles(t *testing.T) {
	t.Parallel()

	b, sub := newTestBackend(t)
	defer func() { _ = b.Close() }()

	for _, v := range []float64{0.1, 0.2, 0.3, 0.4} {
		b.ObserveHistogram(metrics.IngestDurationSeconds, v, nil)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v", err)
	}

	payload := sub.last(t)
	want := map[string]bool{
		"checklist.ingest.duration.seconds.p50":     false,
		"checklist.ingest.duration.seconds.p95":     false,
		"checklist.ingest.duration.seconds.max":     false,
		"checklist.ingest.duration.seconds.samples": false,
	}
	for _, s := range payload.Series {
		if _, ok := want[s.Metric]; ok {
			want[s.Metric] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("missing series %s", name)
		}
	}
}

func TestPercentileNearestRank(t *testing.T) {
	t.Parallel()

	s := []float64{1, 2, 3, 4}
	if got := percentileNearestRank(s, 0.5); got != 3 {
		t.Errorf("p50 = %v, want 3", got)
	}
	if got := percentileNearestRank(s, 1); got != 4 {
		t.Errorf("p100 = %v, want 4", got)
	}
	if got := percentileNearestRank(nil, 0.5); got != 0 {
		t.Errorf("empty = %v, want 0", got)
	}
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	got := ParseTagsCSV(" env:prod, team:cards ,,")
	if len(got) != 2 || got[0] != "env:prod" || got[1] != "team:cards" {
		t.Fatalf("ParseTagsCSV = %v", got)
	}
	if got := ParseTagsCSV(""); got != nil {
		t.Fatalf("ParseTagsCSV(\"\") = %v, want nil", got)
	}
}

func hasTag(tags []string, want string) bool {
	for _, tg := range tags {
		if tg == want {
			return true
		}
	}
	return false
}
