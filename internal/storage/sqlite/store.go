// Package sqlite implements storage.Catalog with one sqlite database file
// per Set Store.
//
// The catalog DSN is a data directory; a store named "football_2023"
// materializes as "<dir>/football_2023.db". A store's file existing is the
// catalog's only notion of the store existing, which keeps the whole-file
// replace step a plain remove-then-create.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"checklist/internal/storage"
)

const dbExt = ".db"

func init() {
	storage.Register("sqlite", New)
}

// Catalog maps store names to database files under a single directory.
type Catalog struct {
	dir string
}

// New constructs the sqlite catalog. cfg.DSN is the data directory; it is
// created if missing. An empty DSN means the current directory.
func New(ctx context.Context, cfg storage.Config) (storage.Catalog, error) {
	dir := cfg.DSN
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create data dir %s: %w", dir, err)
	}
	return &Catalog{dir: dir}, nil
}

func (c *Catalog) Close() {}

func (c *Catalog) path(name string) string {
	return filepath.Join(c.dir, name+dbExt)
}

// Create removes any existing database file for name and opens a fresh one.
func (c *Catalog) Create(ctx context.Context, name string) (storage.Store, error) {
	p := c.path(name)
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("sqlite: replace store %s: %w", name, err)
	}
	return openStore(ctx, p)
}

// Open opens an existing store, or returns storage.ErrNotFound when the
// backing file does not exist.
func (c *Catalog) Open(ctx context.Context, name string) (storage.Store, error) {
	p := c.path(name)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
		}
		return nil, fmt.Errorf("sqlite: stat store %s: %w", name, err)
	}
	return openStore(ctx, p)
}

// List returns store names (file names without the .db extension) matching
// prefix, sorted bytewise. Locale-aware presentation ordering is a query
// layer concern.
func (c *Catalog) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list stores: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if !strings.HasSuffix(n, dbExt) {
			continue
		}
		n = strings.TrimSuffix(n, dbExt)
		if strings.HasPrefix(n, prefix) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Store is one open sqlite-backed Set Store.
type Store struct {
	db *sql.DB
}

func openStore(ctx context.Context, path string) (*Store, error) {
	// foreign_keys enforces the parallels->cards reference; busy_timeout
	// covers concurrent per-row writers during ingestion. Pragmas are
	// per-connection, so they ride the DSN to reach every pooled
	// connection rather than just the one a plain Exec would hit.
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

// EnsureTables creates the cards and parallels tables. "INTEGER PRIMARY
// KEY" rides the rowid, so card ids auto-generate without AUTOINCREMENT
// bookkeeping.
func (s *Store) EnsureTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cards (
  id INTEGER PRIMARY KEY,
  card_number TEXT,
  athlete_name TEXT,
  rookie TEXT,
  subset TEXT,
  card_type TEXT
);`,
		`CREATE TABLE IF NOT EXISTS parallels (
  id INTEGER PRIMARY KEY,
  card_id INTEGER NOT NULL REFERENCES cards(id),
  parallel_name TEXT,
  numbering TEXT
);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite: ensure tables: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertCard(ctx context.Context, c storage.Card) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cards (card_number, athlete_name, rookie, subset, card_type) VALUES (?, ?, ?, ?, ?)`,
		c.CardNumber, c.AthleteName, c.Rookie, c.Subset, c.CardType,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertParallels writes all parallels of one card in a single multi-row
// INSERT.
func (s *Store) InsertParallels(ctx context.Context, cardID int64, ps []storage.Parallel) error {
	if len(ps) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO parallels (card_id, parallel_name, numbering) VALUES ")

	args := make([]any, 0, len(ps)*3)
	for i, p := range ps {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, cardID, p.Name, p.Numbering)
	}

	_, err := s.db.ExecContext(ctx, b.String(), args...)
	return err
}

// TableColumns inspects the live schema via pragma_table_info. A missing
// table produces zero rows, which callers treat as "table absent".
func (s *Store) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
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
	q := fmt.Sprintf(
		`SELECT COALESCE(%s, '') FROM cards WHERE LOWER(athlete_name) = LOWER(?)`,
		sqlIdent(rookieColumn),
	)
	rows, err := s.db.QueryContext(ctx, q, athlete)
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

// AthleteParallelTuples left-joins cards to parallels so cards without
// parallels still surface with a null numbering.
func (s *Store) AthleteParallelTuples(ctx context.Context, athlete, numberingColumn string) ([]storage.ParallelTuple, error) {
	q := fmt.Sprintf(
		`SELECT COALESCE(c.subset, ''), COALESCE(c.card_type, ''), p.%s
FROM cards c
LEFT JOIN parallels p ON p.card_id = c.id
WHERE LOWER(c.athlete_name) = LOWER(?)`,
		sqlIdent(numberingColumn),
	)
	rows, err := s.db.QueryContext(ctx, q, athlete)
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
	rookieExpr := "''"
	if rookieColumn != "" {
		rookieExpr = "COALESCE(c." + sqlIdent(rookieColumn) + ", '')"
	}

	var q string
	if numberingColumn == "" {
		q = fmt.Sprintf(
			`SELECT COALESCE(c.card_number, ''), COALESCE(c.athlete_name, ''), %s,
  COALESCE(c.subset, ''), COALESCE(c.card_type, ''), NULL, NULL
FROM cards c
ORDER BY c.subset COLLATE NOCASE, c.athlete_name COLLATE NOCASE`,
			rookieExpr,
		)
	} else {
		q = fmt.Sprintf(
			`SELECT COALESCE(c.card_number, ''), COALESCE(c.athlete_name, ''), %s,
  COALESCE(c.subset, ''), COALESCE(c.card_type, ''), p.parallel_name, p.%s
FROM cards c
LEFT JOIN parallels p ON p.card_id = c.id
ORDER BY c.subset COLLATE NOCASE, c.athlete_name COLLATE NOCASE`,
			rookieExpr, sqlIdent(numberingColumn),
		)
	}

	rows, err := s.db.QueryContext(ctx, q)
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
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT athlete_name FROM cards
WHERE athlete_name IS NOT NULL AND TRIM(athlete_name) <> ''
ORDER BY athlete_name COLLATE NOCASE`,
	)
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
	return out, rows.Err()
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
