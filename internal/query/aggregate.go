package query

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"checklist/internal/storage"
)

// BreakdownEntry is one aggregation bucket: the numbering total for a
// (subset, card type) pair.
type BreakdownEntry struct {
	Subset   string `json:"subset"`
	CardType string `json:"cardType"`
	Total    int64  `json:"total"`
}

// Summary is the per-athlete aggregate over one Set Store.
type Summary struct {
	AthleteName         string           `json:"athleteName"`
	IsRookie            bool             `json:"isRookie"`
	CardTypeCount       int              `json:"cardTypeCount"`
	TotalParallelCards  int64            `json:"totalParallelCards"`
	AutographCount      int64            `json:"autographCount"`
	AutographRelicCount int64            `json:"autographRelicCount"`
	Breakdown           []BreakdownEntry `json:"breakdown"`
}

// Subsets counted into the autograph-specific totals. Matching is exact
// case-insensitive equality; near-miss spellings ("Autographs") stay out of
// these counters while still counting toward TotalParallelCards.
const (
	subsetAutograph      = "autograph"
	subsetAutographRelic = "autograph relic"
)

// AthleteSummary computes the aggregate summary for one athlete
// (case-insensitive exact match on stored athlete name).
//
// Semantics:
//   - The rookie flag is computed from cards alone, so the one-to-many join
//     to parallels can never double-count it. It is true iff at least one
//     card's rookie value, trimmed and lowercased, equals "rookie".
//   - When the store has no numbering column, or the athlete has no rows,
//     the summary is zero-filled (empty breakdown) — never an error.
//   - Otherwise tuples from the cards-to-parallels left join are grouped by
//     (subset-or-"", card_type-or-""), summing numbering values with
//     non-numeric and missing values coerced to 0.
func AthleteSummary(ctx context.Context, st storage.Store, athlete string) (*Summary, error) {
	roles, err := DetectRoles(ctx, st)
	if err != nil {
		return nil, err
	}

	out := &Summary{AthleteName: athlete, Breakdown: []BreakdownEntry{}}

	if roles.Rookie != "" {
		rookieVals, err := st.AthleteRookieValues(ctx, athlete, roles.Rookie)
		if err != nil {
			return nil, err
		}
		for _, v := range rookieVals {
			if strings.ToLower(strings.TrimSpace(v)) == "rookie" {
				out.IsRookie = true
				break
			}
		}
	}

	if roles.Numbering == "" {
		return out, nil
	}

	tuples, err := st.AthleteParallelTuples(ctx, athlete, roles.Numbering)
	if err != nil {
		return nil, err
	}
	if len(tuples) == 0 {
		return out, nil
	}

	type groupKey struct{ subset, cardType string }
	totals := make(map[groupKey]int64)
	order := make([]groupKey, 0)

	for _, t := range tuples {
		k := groupKey{subset: t.Subset, cardType: t.CardType}
		if _, seen := totals[k]; !seen {
			order = append(order, k)
		}
		if t.Numbering.Valid {
			totals[k] += ParseNumbering(t.Numbering.String)
		} else {
			totals[k] += 0
		}
	}

	// Deterministic breakdown order for stable API responses.
	sort.SliceStable(order, func(i, j int) bool {
		si, sj := strings.ToLower(order[i].subset), strings.ToLower(order[j].subset)
		if si != sj {
			return si < sj
		}
		return strings.ToLower(order[i].cardType) < strings.ToLower(order[j].cardType)
	})

	cardTypes := make(map[string]bool)
	for _, k := range order {
		total := totals[k]
		out.Breakdown = append(out.Breakdown, BreakdownEntry{
			Subset:   k.subset,
			CardType: k.cardType,
			Total:    total,
		})
		out.TotalParallelCards += total

		switch strings.ToLower(k.subset) {
		case subsetAutograph:
			out.AutographCount += total
		case subsetAutographRelic:
			out.AutographRelicCount += total
		}

		if ct := strings.TrimSpace(k.cardType); ct != "" {
			cardTypes[ct] = true
		}
	}
	out.CardTypeCount = len(cardTypes)

	return out, nil
}

// ParseNumbering coerces a raw numbering cell to a number. Print-run
// strings carry an optional leading slash ("/99"); anything that still
// fails to parse counts as 0, which the aggregator's zero-default path
// relies on.
func ParseNumbering(s string) int64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
