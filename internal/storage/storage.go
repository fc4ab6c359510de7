// Package storage defines the backend-agnostic contract for per-(sport,set)
// checklist stores.
//
// A Catalog manages the lifecycle of Set Stores: each store is one
// self-contained relational database holding the cards and parallels of a
// single checklist. The catalog's view of existing stores is the sole
// source of truth for "does this checklist exist" — there is no separate
// registry table.
//
// Backends register themselves from an init() function (see
// internal/storage/sqlite and internal/storage/postgres) and are selected
// by kind at construction time, so the ingestion and query engines never
// import a concrete backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by Catalog.Open when no store exists for the
// requested name. Callers use it to render "no such checklist" distinctly
// from generic store failure.
var ErrNotFound = errors.New("storage: store not found")

// Config is the minimal configuration needed to construct a Catalog.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; its meaning is
//     backend-specific (a data directory for sqlite, a connection string
//     for postgres).
type Config struct {
	Kind string
	DSN  string
}

// Catalog manages Set Store lifecycle for one backend.
//
// IMPORTANT: Catalog provides no cross-request locking. Replacing a store
// that is concurrently being queried is undefined behavior; callers are
// responsible for not reading a store mid-replacement.
type Catalog interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// Create deletes any existing store with the given name in full and
	// returns a fresh, empty store. This whole-file replace is the only
	// atomic boundary of an ingestion run.
	Create(ctx context.Context, name string) (Store, error)

	// Open returns an existing store, or ErrNotFound when none exists.
	Open(ctx context.Context, name string) (Store, error)

	// List returns the names of existing stores whose name starts with
	// prefix. Names are returned without any backend-specific decoration
	// (no file extension, no schema qualifier).
	List(ctx context.Context, prefix string) ([]string, error)
}

// Store is one open Set Store.
//
// Schema-adaptive methods (AthleteRookieValues, AthleteParallelTuples,
// ChecklistRows) take the concrete column names resolved by the schema
// detector, so a store created by an older ingestion engine with legacy
// column names is queried correctly without the aggregator knowing about
// the drift.
type Store interface {
	// Close releases the store handle.
	Close()

	// EnsureTables creates the cards and parallels tables if needed.
	EnsureTables(ctx context.Context) error

	// InsertCard writes one card and returns its generated identifier.
	// The identifier must be stable before any dependent parallel writes
	// for the same row are issued.
	InsertCard(ctx context.Context, c Card) (int64, error)

	// InsertParallels writes the parallels of one card.
	InsertParallels(ctx context.Context, cardID int64, ps []Parallel) error

	// TableColumns returns the actual column names of a table in the
	// store. A missing table yields an empty slice, not an error; column
	// absence is a documented degradation, never a failure.
	TableColumns(ctx context.Context, table string) ([]string, error)

	// AthleteRookieValues returns the rookie-column values of every card
	// whose athlete name matches case-insensitively. Computed against
	// cards only, independent of any join to parallels.
	AthleteRookieValues(ctx context.Context, athlete, rookieColumn string) ([]string, error)

	// AthleteParallelTuples returns (subset, card_type, numbering) tuples
	// for the athlete via a left join of cards to parallels. Cards with
	// zero parallels contribute a tuple with a null numbering.
	AthleteParallelTuples(ctx context.Context, athlete, numberingColumn string) ([]ParallelTuple, error)

	// ChecklistRows returns all card rows joined with parallel rows when
	// numberingColumn is non-empty, or card-only rows otherwise, ordered
	// case-insensitively by subset then athlete name. An empty
	// rookieColumn yields empty rookie values.
	ChecklistRows(ctx context.Context, rookieColumn, numberingColumn string) ([]ChecklistRow, error)

	// Athletes returns distinct non-blank athlete names in
	// case-insensitive alphabetical order.
	Athletes(ctx context.Context) ([]string, error)
}

// ---- backend factories (mirrors the registry used for repositories) ----

type factory func(ctx context.Context, cfg Config) (Catalog, error)

var (
	regMu     sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a catalog backend under a kind (e.g. "sqlite",
// "postgres").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. This is intentional to fail fast and
//     avoid ambiguous backend selection.
func Register(kind string, f factory) {
	regMu.Lock()
	defer regMu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// NewCatalog constructs a Catalog using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func NewCatalog(ctx context.Context, cfg Config) (Catalog, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	regMu.RLock()
	f := factories[cfg.Kind]
	regMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
