// Record types shared by the ingestion and query engines. They live in the
// storage package so backend packages can implement the Store interface
// without circular imports.
package storage

import "database/sql"

// Table and canonical column names written by the current ingestion engine.
// Older stores may carry the legacy names; the schema detector in
// internal/query resolves which concrete name a given store uses.
const (
	TableCards     = "cards"
	TableParallels = "parallels"

	ColRookie          = "rookie"
	ColRookieLegacy    = "rookie_card"
	ColNumbering       = "numbering"
	ColNumberingLegacy = "print_run"
)

// Card is the identity unit parsed from one input row. Created once at
// ingestion and immutable thereafter.
type Card struct {
	CardNumber  string
	AthleteName string
	Rookie      string
	Subset      string
	CardType    string
}

// Parallel is one limited-edition variant of a card. Numbering keeps the
// raw cell text ("25", "/99", or ""); numeric coercion happens at
// aggregation time so the lenient zero-default path stays in one place.
type Parallel struct {
	Name      string
	Numbering string
}

// ParallelTuple is one row of the cards-to-parallels left join used by the
// aggregator. Numbering is invalid when the card has no parallels.
type ParallelTuple struct {
	Subset    string
	CardType  string
	Numbering sql.NullString
}

// ChecklistRow is one row of the full checklist listing. The parallel
// fields are invalid for cards without parallels and for card-only
// listings of stores that predate the parallels schema.
type ChecklistRow struct {
	CardNumber   string
	AthleteName  string
	Rookie       string
	Subset       string
	CardType     string
	ParallelName sql.NullString
	Numbering    sql.NullString
}
