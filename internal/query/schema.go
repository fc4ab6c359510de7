// Package query implements the read side of the checklist service: schema
// detection against an existing Set Store, the per-athlete aggregate
// summary, and the set/checklist/athlete listings.
//
// Stores created by different ingestion-engine versions carry different
// column names for the same semantic field. The schema detector resolves
// that drift once per request into a ColumnRoles value that the rest of the
// query code threads through, instead of scattering column presence checks
// across query logic.
package query

import (
	"context"

	"checklist/internal/storage"
)

// ColumnRoles is the resolved set of schema-drift-sensitive column names
// for one store. An empty field means the store has no column for that
// role; callers degrade output rather than fail.
type ColumnRoles struct {
	// Rookie is the rookie-flag column on the cards table, or "".
	Rookie string
	// Numbering is the numbering column on the parallels table, or "".
	Numbering string
}

// DetectRoles inspects a store's actual columns and resolves the rookie and
// numbering roles, preferring the canonical names over the legacy ones.
//
// Absence of either column is not an error: the role comes back empty and
// the aggregator produces its documented zero/empty defaults.
func DetectRoles(ctx context.Context, st storage.Store) (ColumnRoles, error) {
	var roles ColumnRoles

	cardCols, err := st.TableColumns(ctx, storage.TableCards)
	if err != nil {
		return roles, err
	}
	roles.Rookie = firstPresent(cardCols, storage.ColRookie, storage.ColRookieLegacy)

	parallelCols, err := st.TableColumns(ctx, storage.TableParallels)
	if err != nil {
		return roles, err
	}
	roles.Numbering = firstPresent(parallelCols, storage.ColNumbering, storage.ColNumberingLegacy)

	return roles, nil
}

func firstPresent(cols []string, candidates ...string) string {
	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[c] = true
	}
	for _, want := range candidates {
		if present[want] {
			return want
		}
	}
	return ""
}
