package postgres

import (
	"fmt"
	"strings"

	"checklist/internal/storage"
)

// SQL construction lives in pure functions so the statement shapes and
// placeholder/argument alignment are testable without a live server.

func qualified(schema, table string) string {
	return pgIdent(schema) + "." + pgIdent(table)
}

// ensureTablesSQL returns the DDL statements for one store's schema, cards
// first so the parallels foreign key has its target.
func ensureTablesSQL(schema string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id BIGSERIAL PRIMARY KEY,
  card_number TEXT,
  athlete_name TEXT,
  rookie TEXT,
  subset TEXT,
  card_type TEXT
)`, qualified(schema, "cards")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id BIGSERIAL PRIMARY KEY,
  card_id BIGINT NOT NULL REFERENCES %s (id),
  parallel_name TEXT,
  numbering TEXT
)`, qualified(schema, "parallels"), qualified(schema, "cards")),
	}
}

func insertCardSQL(schema string) string {
	return fmt.Sprintf(`INSERT INTO %s (card_number, athlete_name, rookie, subset, card_type)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, qualified(schema, "cards"))
}

// insertParallelsSQL builds one multi-row INSERT for a card's parallels,
// three placeholders per row, with args aligned to the placeholders.
func insertParallelsSQL(schema string, cardID int64, ps []storage.Parallel) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (card_id, parallel_name, numbering) VALUES ", qualified(schema, "parallels"))

	args := make([]any, 0, len(ps)*3)
	for i, p := range ps {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3)
		args = append(args, cardID, p.Name, p.Numbering)
	}
	return b.String(), args
}

func athleteRookieValuesSQL(schema, rookieColumn string) string {
	return fmt.Sprintf(
		`SELECT COALESCE(%s, '') FROM %s WHERE LOWER(athlete_name) = LOWER($1)`,
		pgIdent(rookieColumn), qualified(schema, "cards"),
	)
}

func athleteParallelTuplesSQL(schema, numberingColumn string) string {
	return fmt.Sprintf(
		`SELECT COALESCE(c.subset, ''), COALESCE(c.card_type, ''), p.%s
FROM %s c
LEFT JOIN %s p ON p.card_id = c.id
WHERE LOWER(c.athlete_name) = LOWER($1)`,
		pgIdent(numberingColumn), qualified(schema, "cards"), qualified(schema, "parallels"),
	)
}

// checklistRowsSQL selects the full-listing query: card-only when the store
// has no numbering column, cards left-joined to parallels otherwise. An
// empty rookieColumn degrades the rookie field to ''.
func checklistRowsSQL(schema, rookieColumn, numberingColumn string) string {
	rookieExpr := "''"
	if rookieColumn != "" {
		rookieExpr = "COALESCE(c." + pgIdent(rookieColumn) + ", '')"
	}

	if numberingColumn == "" {
		return fmt.Sprintf(
			`SELECT COALESCE(c.card_number, ''), COALESCE(c.athlete_name, ''), %s,
  COALESCE(c.subset, ''), COALESCE(c.card_type, ''), NULL::text, NULL::text
FROM %s c
ORDER BY LOWER(c.subset), LOWER(c.athlete_name)`,
			rookieExpr, qualified(schema, "cards"),
		)
	}
	return fmt.Sprintf(
		`SELECT COALESCE(c.card_number, ''), COALESCE(c.athlete_name, ''), %s,
  COALESCE(c.subset, ''), COALESCE(c.card_type, ''), p.parallel_name, p.%s
FROM %s c
LEFT JOIN %s p ON p.card_id = c.id
ORDER BY LOWER(c.subset), LOWER(c.athlete_name)`,
		rookieExpr, pgIdent(numberingColumn), qualified(schema, "cards"), qualified(schema, "parallels"),
	)
}

func athletesSQL(schema string) string {
	return fmt.Sprintf(
		`SELECT DISTINCT athlete_name FROM %s
WHERE athlete_name IS NOT NULL AND TRIM(athlete_name) <> ''
ORDER BY athlete_name`, qualified(schema, "cards"),
	)
}

func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
