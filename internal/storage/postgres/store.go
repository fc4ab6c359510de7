// Package postgres implements storage.Catalog on a single Postgres
// database, with one schema per Set Store.
//
// Store names are already sanitized to [a-z0-9_] tokens by the naming
// contract in internal/storage, which makes them valid schema names.
// "Replace the store" is DROP SCHEMA ... CASCADE followed by CREATE SCHEMA,
// and a schema existing is the catalog's only notion of the store existing.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"checklist/internal/storage"
)

func init() {
	storage.Register("postgres", New)
}

// storeNameRe guards against identifiers that did not come through
// storage.Sanitize before they are interpolated into DDL.
var storeNameRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// Catalog maps store names to schemas in one shared connection pool.
type Catalog struct {
	pool *pgxpool.Pool
}

// New constructs the postgres catalog. cfg.DSN is a pgx pool DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Catalog, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Catalog{pool: pool}, nil
}

func (c *Catalog) Close() { c.pool.Close() }

func checkName(name string) error {
	if !storeNameRe.MatchString(name) {
		return fmt.Errorf("postgres: invalid store name %q", name)
	}
	return nil
}

// Create drops any existing schema for name and creates a fresh one.
func (c *Catalog) Create(ctx context.Context, name string) (storage.Store, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if _, err := c.pool.Exec(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS %s CASCADE`, pgIdent(name))); err != nil {
		return nil, fmt.Errorf("postgres: replace store %s: %w", name, err)
	}
	if _, err := c.pool.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA %s`, pgIdent(name))); err != nil {
		return nil, fmt.Errorf("postgres: create store %s: %w", name, err)
	}
	return &Store{pool: c.pool, schema: name}, nil
}

// Open returns the store for name, or storage.ErrNotFound when its schema
// does not exist.
func (c *Catalog) Open(ctx context.Context, name string) (storage.Store, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	var exists bool
	err := c.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("postgres: open store %s: %w", name, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	return &Store{pool: c.pool, schema: name}, nil
}

// List returns schema names matching prefix, sorted. left() comparison is
// used instead of LIKE because sanitized names are full of underscores,
// which LIKE treats as wildcards.
func (c *Catalog) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT schema_name FROM information_schema.schemata
WHERE left(schema_name, length($1)) = $1
ORDER BY schema_name`, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stores: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Store is one schema-backed Set Store. It borrows the catalog's pool, so
// Close is a no-op; the catalog owns the connections.
type Store struct {
	pool   *pgxpool.Pool
	schema string
}

func (s *Store) Close() {}

func (s *Store) EnsureTables(ctx context.Context) error {
	for _, q := range ensureTablesSQL(s.schema) {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres: ensure tables: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertCard(ctx context.Context, c storage.Card) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, insertCardSQL(s.schema),
		c.CardNumber, c.AthleteName, c.Rookie, c.Subset, c.CardType,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) InsertParallels(ctx context.Context, cardID int64, ps []storage.Parallel) error {
	if len(ps) == 0 {
		return nil
	}
	q, args := insertParallelsSQL(s.schema, cardID, ps)
	_, err := s.pool.Exec(ctx, q, args...)
	return err
}

func (s *Store) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`, s.schema, table,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (s *Store) AthleteRookieValues(ctx context.Context, athlete, rookieColumn string) ([]string, error) {
	if rookieColumn == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, athleteRookieValuesSQL(s.schema, rookieColumn), athlete)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vals []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, rows.Err()
}

func (s *Store) AthleteParallelTuples(ctx context.Context, athlete, numberingColumn string) ([]storage.ParallelTuple, error) {
	rows, err := s.pool.Query(ctx, athleteParallelTuplesSQL(s.schema, numberingColumn), athlete)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.ParallelTuple
	for rows.Next() {
		var t storage.ParallelTuple
		if err := rows.Scan(&t.Subset, &t.CardType, &t.Numbering); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ChecklistRows(ctx context.Context, rookieColumn, numberingColumn string) ([]storage.ChecklistRow, error) {
	rows, err := s.pool.Query(ctx, checklistRowsSQL(s.schema, rookieColumn, numberingColumn))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.ChecklistRow
	for rows.Next() {
		var r storage.ChecklistRow
		if err := rows.Scan(&r.CardNumber, &r.AthleteName, &r.Rookie, &r.Subset, &r.CardType, &r.ParallelName, &r.Numbering); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Athletes(ctx context.Context) ([]string, error) {
	// DISTINCT + ORDER BY LOWER() cannot share a select list in Postgres,
	// so sort the distinct names case-insensitively client-side.
	rows, err := s.pool.Query(ctx, athletesSQL(s.schema))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out, nil
}
