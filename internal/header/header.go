// Package header implements the two decision points of checklist ingestion:
// normalizing free-form column headers into canonical tokens, and
// classifying the normalized header sequence into card-identity roles plus
// ordered (parallel name, numbering) column pairs.
//
// Design constraints:
//   - Checklist exporters disagree wildly on header naming; positional
//     adjacency is the only structural signal reliably present, so the
//     classifier is a single deterministic left-to-right scan, not a fuzzy
//     matcher. Reordering a file's columns changes the result on purpose.
//   - Classification is total: unresolved roles come back as empty strings,
//     never as errors. Downstream code treats an empty role as "column
//     absent" and degrades accordingly.
package header

import "strings"

// Normalize maps a raw column header to its canonical token form: surrounding
// whitespace trimmed, lowercased, interior whitespace runs collapsed to a
// single underscore.
//
// Normalize is pure and total; empty or all-whitespace input yields "".
func Normalize(raw string) string {
	fields := strings.Fields(strings.ToLower(raw))
	return strings.Join(fields, "_")
}

// NormalizeAll normalizes a header sequence preserving original order.
func NormalizeAll(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		out[i] = Normalize(h)
	}
	return out
}

// ParallelPair is one parallel-name column and its numbering source.
// NumberingColumn is "" when the header following the parallel column did
// not contain "numbering"; such parallels record an empty numbering value.
type ParallelPair struct {
	NameColumn      string
	NumberingColumn string
}

// Classification is the resolved set of column roles for one file. Role
// fields hold normalized header names, or "" when the file has no column
// for that role. It is computed once per upload and threaded as a value so
// presence checks do not leak into row-handling code.
type Classification struct {
	CardNumber string
	Athlete    string
	Rookie     string
	Subset     string
	CardType   string

	// Parallels preserves the left-to-right order pairs were discovered in.
	Parallels []ParallelPair
}

// Role priority lists. First normalized header present in the file wins.
var (
	athleteAliases  = []string{"athlete_full_name", "athlete_name", "athlete"}
	cardTypeAliases = []string{"type", "card_type"}
)

// Classify resolves column roles from normalized headers in original file
// order.
//
// Identity roles resolve by first-match priority (athlete, card type) or by
// exact name (card_number, rookie, subset). Parallel pairs are built by a
// single left-to-right scan: a header containing "parallel" but not
// "numbering" opens a pair, and the pair's numbering source is the
// immediately following header only if that header contains "numbering".
//
// Edge cases:
//   - A "numbering" header with no preceding parallel header is ignored.
//   - A trailing parallel header (nothing follows it) gets no numbering.
//   - Duplicate headers: the first occurrence wins for identity roles; each
//     qualifying occurrence opens its own parallel pair.
func Classify(headers []string) Classification {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		if h != "" && !present[h] {
			present[h] = true
		}
	}

	pick := func(aliases ...string) string {
		for _, a := range aliases {
			if present[a] {
				return a
			}
		}
		return ""
	}

	c := Classification{
		CardNumber: pick("card_number"),
		Athlete:    pick(athleteAliases...),
		Rookie:     pick("rookie"),
		Subset:     pick("subset"),
		CardType:   pick(cardTypeAliases...),
	}

	for i, h := range headers {
		if !isParallelName(h) {
			continue
		}
		pair := ParallelPair{NameColumn: h}
		if i+1 < len(headers) && strings.Contains(headers[i+1], "numbering") {
			pair.NumberingColumn = headers[i+1]
		}
		c.Parallels = append(c.Parallels, pair)
	}
	return c
}

// isParallelName reports whether a normalized header names a parallel
// column: it mentions "parallel" and is not itself a numbering column.
func isParallelName(h string) bool {
	return strings.Contains(h, "parallel") && !strings.Contains(h, "numbering")
}
