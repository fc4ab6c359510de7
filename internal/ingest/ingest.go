// Package ingest implements the checklist ingestion engine: it turns one
// parsed upload into a freshly-replaced Set Store.
//
// Ingestion is whole-file replace, never incremental merge: the store is
// deleted and recreated before any row is written, and that replace step is
// the only atomic boundary. Row writes after it are best-effort — a failed
// row is logged, counted, and dropped, and the remaining rows still land.
package ingest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"checklist/internal/header"
	"checklist/internal/metrics"
	"checklist/internal/storage"
	"checklist/internal/tabular"
)

// Logger is the minimal logging interface used by the engine.
// *log.Logger and *logrus.Logger both satisfy it.
type Logger interface {
	Printf(format string, v ...any)
}

const defaultMaxInFlight = 8

// Engine writes parsed checklist tables into Set Stores.
type Engine struct {
	Catalog storage.Catalog
	Logger  Logger

	// MaxInFlight bounds how many rows are written concurrently.
	// Within one row the card write always completes (yielding the card
	// id) before that row's parallel writes are issued; across rows no
	// ordering is guaranteed. Defaults to 8 when <= 0.
	MaxInFlight int
}

// Result summarizes one ingestion run.
type Result struct {
	StoreName string
	Rows      int
	Cards     int
	Parallels int
	RowErrors int
}

// Ingest replaces the Set Store for (sport, set) with the contents of tbl.
//
// Errors:
//   - Returns an error only for the upfront store replace/DDL steps.
//   - Per-row write failures never surface here; they are logged and
//     reflected in Result.RowErrors.
//
// Edge cases:
//   - A zero-row table is a valid ingestion producing an empty store.
//   - Replacing a store that is concurrently being queried is undefined
//     behavior; the engine provides no cross-request locking.
func (e *Engine) Ingest(ctx context.Context, sport, set string, tbl *tabular.Table) (*Result, error) {
	if e.Catalog == nil {
		return nil, fmt.Errorf("ingest: Catalog is required")
	}

	start := time.Now()
	name := storage.StoreName(sport, set)
	logf := e.logf()

	st, err := e.Catalog.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("ingest: replace store %s: %w", name, err)
	}
	defer st.Close()

	if err := st.EnsureTables(ctx); err != nil {
		return nil, fmt.Errorf("ingest: ensure tables in %s: %w", name, err)
	}

	cls := header.Classify(tbl.Headers)

	limit := e.MaxInFlight
	if limit <= 0 {
		limit = defaultMaxInFlight
	}

	var cards, parallels, rowErrors atomic.Int64

	// Structured fan-out: every row's outcome is gathered before the run
	// finalizes, regardless of individual failures. Row closures always
	// return nil so one bad row cannot cancel its siblings.
	g := new(errgroup.Group)
	g.SetLimit(limit)

	for i := range tbl.Rows {
		rowNum := i + 1
		row := tbl.Rows[i]

		g.Go(func() error {
			card := buildCard(cls, row)

			id, err := st.InsertCard(ctx, card)
			if err != nil {
				logf("ingest: store=%s row=%d dropped: insert card: %v", name, rowNum, err)
				rowErrors.Add(1)
				metrics.IncCounter(metrics.IngestRowsTotal, 1, metrics.Labels{"status": "failed"})
				return nil
			}

			ps := buildParallels(cls, row)
			if err := st.InsertParallels(ctx, id, ps); err != nil {
				logf("ingest: store=%s row=%d dropped: insert parallels: %v", name, rowNum, err)
				rowErrors.Add(1)
				metrics.IncCounter(metrics.IngestRowsTotal, 1, metrics.Labels{"status": "failed"})
				return nil
			}

			cards.Add(1)
			parallels.Add(int64(len(ps)))
			metrics.IncCounter(metrics.IngestRowsTotal, 1, metrics.Labels{"status": "ok"})
			return nil
		})
	}

	_ = g.Wait()

	res := &Result{
		StoreName: name,
		Rows:      len(tbl.Rows),
		Cards:     int(cards.Load()),
		Parallels: int(parallels.Load()),
		RowErrors: int(rowErrors.Load()),
	}

	runStatus := "ok"
	if res.RowErrors > 0 {
		runStatus = "partial"
	}
	metrics.IncCounter(metrics.IngestRunsTotal, 1, metrics.Labels{"status": runStatus})
	metrics.ObserveHistogram(metrics.IngestDurationSeconds, time.Since(start).Seconds(), nil)

	logf("ingest: store=%s rows=%d cards=%d parallels=%d row_errors=%d duration=%s",
		name, res.Rows, res.Cards, res.Parallels, res.RowErrors,
		time.Since(start).Truncate(time.Millisecond))

	return res, nil
}

func (e *Engine) logf() func(format string, v ...any) {
	if e.Logger == nil {
		return func(string, ...any) {}
	}
	return e.Logger.Printf
}

func buildCard(cls header.Classification, row tabular.Row) storage.Card {
	return storage.Card{
		CardNumber:  row.Get(cls.CardNumber),
		AthleteName: row.Get(cls.Athlete),
		Rookie:      row.Get(cls.Rookie),
		Subset:      row.Get(cls.Subset),
		CardType:    row.Get(cls.CardType),
	}
}

// buildParallels materializes the row's parallel records. An empty
// parallel-name cell yields no record at all (absence, not a
// zero-numbering record); a satisfied pair with a blank numbering cell
// keeps the lenient empty numbering that later coerces to 0.
func buildParallels(cls header.Classification, row tabular.Row) []storage.Parallel {
	var out []storage.Parallel
	for _, pair := range cls.Parallels {
		name := row.Get(pair.NameColumn)
		if name == "" {
			continue
		}
		out = append(out, storage.Parallel{
			Name:      name,
			Numbering: row.Get(pair.NumberingColumn),
		})
	}
	return out
}
