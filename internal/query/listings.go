package query

import (
	"context"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"checklist/internal/storage"
)

// ListSets enumerates the sets known for a sport: store names carrying the
// sport's sanitized prefix, with the prefix stripped and underscores turned
// back into spaces, sorted locale-aware.
func ListSets(ctx context.Context, cat storage.Catalog, sport string) ([]string, error) {
	prefix := storage.SportPrefix(sport)

	names, err := cat.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	sets := make([]string, 0, len(names))
	for _, n := range names {
		set := strings.TrimPrefix(n, prefix)
		sets = append(sets, strings.ReplaceAll(set, "_", " "))
	}

	collate.New(language.English, collate.Loose).SortStrings(sets)
	return sets, nil
}

// ChecklistItem is one row of the full checklist listing, parallel fields
// empty for cards without parallels.
type ChecklistItem struct {
	CardNumber   string `json:"cardNumber"`
	AthleteName  string `json:"athleteName"`
	Rookie       string `json:"rookie"`
	Subset       string `json:"subset"`
	CardType     string `json:"cardType"`
	ParallelName string `json:"parallelName"`
	Numbering    string `json:"numbering"`
}

// Checklist returns every card row of a store, joined with parallel rows
// when the store's schema has a numbering column and falling back to
// card-only rows otherwise.
func Checklist(ctx context.Context, st storage.Store) ([]ChecklistItem, error) {
	roles, err := DetectRoles(ctx, st)
	if err != nil {
		return nil, err
	}

	rows, err := st.ChecklistRows(ctx, roles.Rookie, roles.Numbering)
	if err != nil {
		return nil, err
	}

	items := make([]ChecklistItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, ChecklistItem{
			CardNumber:   r.CardNumber,
			AthleteName:  r.AthleteName,
			Rookie:       r.Rookie,
			Subset:       r.Subset,
			CardType:     r.CardType,
			ParallelName: r.ParallelName.String,
			Numbering:    r.Numbering.String,
		})
	}
	return items, nil
}

// Athletes returns the distinct non-blank athlete names of a store.
func Athletes(ctx context.Context, st storage.Store) ([]string, error) {
	return st.Athletes(ctx)
}
