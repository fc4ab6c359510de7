// Package datadog implements a Datadog backend for the internal/metrics
// facade.
//
// Observations are buffered in memory, submitted periodically on a ticker,
// and submitted one final time on Close(). Periodic flushing keeps
// dashboards useful for a long-running service; the final flush covers
// short-lived command runs.
//
// Concurrency model:
//   - Any goroutine may call IncCounter/ObserveHistogram at any time.
//   - Flush snapshots and resets buffers under a mutex, then submits
//     out-of-lock.
//   - The flush loop calls Flush() periodically; Close() stops the loop.
package datadog

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"checklist/internal/metrics"
)

// Options controls Datadog backend configuration.
type Options struct {
	// ServiceName becomes tag "service:<name>" on every metric.
	// If empty, defaults to "checklist".
	ServiceName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets them; unit tests
	// use them to avoid real submission and nondeterministic tickers.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal slice of the Datadog SDK the backend
// needs. The SDK exposes a concrete *datadogV2.MetricsApi, which cannot be
// stubbed; depending on this interface keeps the backend testable.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu        sync.Mutex
	counts    map[counterKey]float64
	durations map[string][]float64
}

// NewBackend constructs a Datadog backend using the official client. The
// API key comes from the environment (DD_API_KEY), as the SDK's default
// context wiring expects.
//
// Edge cases:
//   - If opts.FlushEvery <= 0, defaults to 60s.
//   - If opts.ServiceName is empty, defaults to "checklist".
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	service := opts.ServiceName
	if service == "" {
		service = "checklist"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 1+len(opts.Tags))
	baseTags = append(baseTags, "service:"+service)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		cfg := dd.NewConfiguration()
		client := dd.NewAPIClient(cfg)
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		counts:     make(map[counterKey]float64),
		durations:  make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background flush loop and performs one final Flush().
// Treat as "call once".
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// counterKey identifies one counter series: the facade metric name plus the
// label dimensions the service actually emits.
type counterKey struct {
	name   string
	status string
	route  string
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.IngestRowsTotal, metrics.IngestRunsTotal, metrics.HTTPRequestsTotal:
		k := counterKey{name: name, status: labels["status"], route: labels["route"]}
		b.counts[k] += delta
	default:
		// Unknown metrics are ignored by design.
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.IngestDurationSeconds:
		b.durations[name] = append(b.durations[name], value)
	default:
	}
}

// snapshotAndReset grabs the buffered metrics and resets the buffers for
// the next collection window.
func (b *Backend) snapshotAndReset() (map[counterKey]float64, map[string][]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts, durations := b.counts, b.durations
	b.counts = make(map[counterKey]float64)
	b.durations = make(map[string][]float64)
	return counts, durations
}

// Flush submits buffered metrics to Datadog and resets local buffers.
//
// Buffers are reset even if submission fails, to keep the hot path fast and
// non-blocking; delivery is best-effort.
func (b *Backend) Flush() error {
	counts, durations := b.snapshotAndReset()
	if len(counts) == 0 && len(durations) == 0 {
		return nil
	}

	series := b.buildSeries(counts, durations, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries is pure (no locks, no network, no clocks), which keeps the
// naming/tagging contract unit-testable.
func (b *Backend) buildSeries(counts map[counterKey]float64, durations map[string][]float64, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(counts)+8)

	for k, v := range counts {
		if v == 0 {
			continue
		}
		tags := append([]string{}, b.baseTags...)
		if k.status != "" {
			tags = append(tags, "status:"+k.status)
		}
		if k.route != "" {
			tags = append(tags, "route:"+k.route)
		}
		series = append(series, datadogV2.MetricSeries{
			Metric: ddName(k.name),
			Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(v)},
			},
			Tags: tags,
		})
	}

	for name, samples := range durations {
		if len(samples) == 0 {
			continue
		}
		cp := append([]float64(nil), samples...)
		sort.Float64s(cp)

		prefix := ddName(name)
		for _, pv := range []struct {
			suffix string
			value  float64
		}{
			{suffix: ".p50", value: percentileNearestRank(cp, 0.50)},
			{suffix: ".p95", value: percentileNearestRank(cp, 0.95)},
			{suffix: ".max", value: cp[len(cp)-1]},
			{suffix: ".samples", value: float64(len(cp))},
		} {
			series = append(series, datadogV2.MetricSeries{
				Metric: prefix + pv.suffix,
				Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
				Points: []datadogV2.MetricPoint{
					{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(pv.value)},
				},
				Tags: append([]string{}, b.baseTags...),
			})
		}
	}

	return series
}

// ddName converts facade metric names to Datadog dotted names:
// checklist_ingest_rows_total -> checklist.ingest.rows.total.
func ddName(name string) string {
	return strings.ReplaceAll(name, "_", ".")
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,team:cards".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
