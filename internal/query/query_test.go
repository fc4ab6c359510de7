package query

import (
	"context"
	"database/sql"
	"reflect"
	"testing"

	"checklist/internal/storage"
)

// fakeStore is an in-memory storage.Store with canned query results. It
// lets the aggregation semantics be tested without a database.
type fakeStore struct {
	cardCols     []string
	parallelCols []string
	rookieVals   []string
	tuples       []storage.ParallelTuple

	// Captured arguments, for asserting detected roles are threaded through.
	gotRookieColumn    string
	gotNumberingColumn string
}

func (f *fakeStore) Close() {}

func (f *fakeStore) EnsureTables(context.Context) error { return nil }

func (f *fakeStore) InsertCard(context.Context, storage.Card) (int64, error) {
	return 0, nil
}
func (f *fakeStore) InsertParallels(context.Context, int64, []storage.Parallel) error {
	return nil
}

func (f *fakeStore) TableColumns(_ context.Context, table string) ([]string, error) {
	switch table {
	case storage.TableCards:
		return f.cardCols, nil
	case storage.TableParallels:
		return f.parallelCols, nil
	}
	return nil, nil
}

func (f *fakeStore) AthleteRookieValues(_ context.Context, _, rookieColumn string) ([]string, error) {
	f.gotRookieColumn = rookieColumn
	return f.rookieVals, nil
}

func (f *fakeStore) AthleteParallelTuples(_ context.Context, _, numberingColumn string) ([]storage.ParallelTuple, error) {
	f.gotNumberingColumn = numberingColumn
	return f.tuples, nil
}

func (f *fakeStore) ChecklistRows(context.Context, string, string) ([]storage.ChecklistRow, error) {
	return nil, nil
}

func (f *fakeStore) Athletes(context.Context) ([]string, error) { return nil, nil }

func num(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func noNum() sql.NullString { return sql.NullString{} }

func fullSchema() ([]string, []string) {
	return []string{"id", "card_number", "athlete_name", "rookie", "subset", "card_type"},
		[]string{"id", "card_id", "parallel_name", "numbering"}
}

func TestDetectRoles_TableDriven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		cardCols     []string
		parallelCols []string
		want         ColumnRoles
	}{
		{
			name:         "canonical_names",
			cardCols:     []string{"id", "rookie", "subset"},
			parallelCols: []string{"id", "numbering"},
			want:         ColumnRoles{Rookie: "rookie", Numbering: "numbering"},
		},
		{
			name:         "canonical_preferred_over_legacy",
			cardCols:     []string{"rookie_card", "rookie"},
			parallelCols: []string{"print_run", "numbering"},
			want:         ColumnRoles{Rookie: "rookie", Numbering: "numbering"},
		},
		{
			name:         "legacy_fallback",
			cardCols:     []string{"id", "rookie_card"},
			parallelCols: []string{"id", "print_run"},
			want:         ColumnRoles{Rookie: "rookie_card", Numbering: "print_run"},
		},
		{
			name:         "absent_columns_yield_empty_roles",
			cardCols:     []string{"id", "athlete_name"},
			parallelCols: []string{"id", "parallel_name"},
			want:         ColumnRoles{},
		},
		{
			name: "missing_tables_yield_empty_roles",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{cardCols: tt.cardCols, parallelCols: tt.parallelCols}
			got, err := DetectRoles(context.Background(), st)
			if err != nil {
				t.Fatalf("DetectRoles() err=%v", err)
			}
			if got != tt.want {
				t.Fatalf("DetectRoles() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseNumbering_TableDriven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
	}{
		{in: "25", want: 25},
		{in: "/99", want: 99},
		{in: " /99 ", want: 99},
		{in: "0", want: 0},
		{in: "", want: 0},
		{in: "one of one", want: 0},
		{in: "12.0", want: 12},
		{in: "/", want: 0},
	}

	for _, tt := range tests {
		if got := ParseNumbering(tt.in); got != tt.want {
			t.Errorf("ParseNumbering(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAthleteSummary_RookieFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		rookieVals []string
		want       bool
	}{
		{name: "exact_literal", rookieVals: []string{"Rookie"}, want: true},
		{name: "trailing_space_and_case", rookieVals: []string{"ROOKIE "}, want: true},
		{name: "one_of_many", rookieVals: []string{"", "veteran", "rookie"}, want: true},
		{name: "no_match", rookieVals: []string{"", "RC"}, want: false},
		{name: "no_rows", rookieVals: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cardCols, parallelCols := fullSchema()
			st := &fakeStore{cardCols: cardCols, parallelCols: parallelCols, rookieVals: tt.rookieVals}

			got, err := AthleteSummary(context.Background(), st, "Jane Doe")
			if err != nil {
				t.Fatalf("AthleteSummary() err=%v", err)
			}
			if got.IsRookie != tt.want {
				t.Fatalf("IsRookie = %v, want %v", got.IsRookie, tt.want)
			}
		})
	}
}

func TestAthleteSummary_NoRookieColumnMeansFalse(t *testing.T) {
	t.Parallel()

	st := &fakeStore{
		cardCols:     []string{"id", "athlete_name", "subset", "card_type"},
		parallelCols: []string{"id", "numbering"},
		rookieVals:   []string{"Rookie"}, // must never be consulted
	}

	got, err := AthleteSummary(context.Background(), st, "Jane Doe")
	if err != nil {
		t.Fatalf("AthleteSummary() err=%v", err)
	}
	if got.IsRookie {
		t.Fatal("IsRookie = true without a rookie column")
	}
	if st.gotRookieColumn != "" {
		t.Fatalf("rookie values fetched with column %q despite absent role", st.gotRookieColumn)
	}
}

func TestAthleteSummary_NoNumberingColumnZeroFills(t *testing.T) {
	t.Parallel()

	st := &fakeStore{
		cardCols:     []string{"id", "athlete_name", "rookie"},
		parallelCols: []string{"id", "parallel_name"},
		rookieVals:   []string{"rookie"},
		tuples:       []storage.ParallelTuple{{Subset: "Base", CardType: "Base", Numbering: num("25")}},
	}

	got, err := AthleteSummary(context.Background(), st, "Jane Doe")
	if err != nil {
		t.Fatalf("AthleteSummary() err=%v", err)
	}
	if !got.IsRookie {
		t.Error("IsRookie = false, want true (rookie flag is independent of numbering)")
	}
	if got.CardTypeCount != 0 || got.TotalParallelCards != 0 || len(got.Breakdown) != 0 {
		t.Fatalf("summary not zero-filled: %+v", got)
	}
	if st.gotNumberingColumn != "" {
		t.Fatalf("tuples fetched despite absent numbering column")
	}
}

func TestAthleteSummary_NoRowsZeroFills(t *testing.T) {
	t.Parallel()

	cardCols, parallelCols := fullSchema()
	st := &fakeStore{cardCols: cardCols, parallelCols: parallelCols}

	got, err := AthleteSummary(context.Background(), st, "Nobody")
	if err != nil {
		t.Fatalf("AthleteSummary() err=%v", err)
	}
	want := &Summary{AthleteName: "Nobody", Breakdown: []BreakdownEntry{}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AthleteSummary() = %+v, want %+v", got, want)
	}
}

func TestAthleteSummary_GroupingAndTotals(t *testing.T) {
	t.Parallel()

	cardCols, parallelCols := fullSchema()
	st := &fakeStore{
		cardCols:     cardCols,
		parallelCols: parallelCols,
		tuples: []storage.ParallelTuple{
			{Subset: "Base", CardType: "Base", Numbering: num("25")},
			{Subset: "Base", CardType: "Base", Numbering: num("/99")},
			{Subset: "Autograph", CardType: "Insert", Numbering: num("10")},
			{Subset: "Autograph Relic", CardType: "Insert", Numbering: num("5")},
			// Near-miss subset spelling: counts toward the total only.
			{Subset: "Autographs", CardType: "Insert", Numbering: num("3")},
			// Card without parallels: null numbering, still grouped.
			{Subset: "Base", CardType: "Promo", Numbering: noNum()},
			// Unparseable numbering coerces to 0.
			{Subset: "Base", CardType: "Base", Numbering: num("one of one")},
		},
	}

	got, err := AthleteSummary(context.Background(), st, "Jane Doe")
	if err != nil {
		t.Fatalf("AthleteSummary() err=%v", err)
	}

	wantBreakdown := []BreakdownEntry{
		{Subset: "Autograph", CardType: "Insert", Total: 10},
		{Subset: "Autograph Relic", CardType: "Insert", Total: 5},
		{Subset: "Autographs", CardType: "Insert", Total: 3},
		{Subset: "Base", CardType: "Base", Total: 124},
		{Subset: "Base", CardType: "Promo", Total: 0},
	}
	if !reflect.DeepEqual(got.Breakdown, wantBreakdown) {
		t.Fatalf("Breakdown = %+v, want %+v", got.Breakdown, wantBreakdown)
	}
	if got.TotalParallelCards != 142 {
		t.Errorf("TotalParallelCards = %d, want 142", got.TotalParallelCards)
	}
	if got.AutographCount != 10 {
		t.Errorf("AutographCount = %d, want 10", got.AutographCount)
	}
	if got.AutographRelicCount != 5 {
		t.Errorf("AutographRelicCount = %d, want 5", got.AutographRelicCount)
	}
	// Distinct non-empty card types: Insert, Base, Promo.
	if got.CardTypeCount != 3 {
		t.Errorf("CardTypeCount = %d, want 3", got.CardTypeCount)
	}
	if got.AutographCount+got.AutographRelicCount > got.TotalParallelCards {
		t.Error("autograph counters exceed total")
	}
}

func TestAthleteSummary_EmptyGroupKeysAndCardTypes(t *testing.T) {
	t.Parallel()

	cardCols, parallelCols := fullSchema()
	st := &fakeStore{
		cardCols:     cardCols,
		parallelCols: parallelCols,
		tuples: []storage.ParallelTuple{
			{Subset: "", CardType: "", Numbering: num("7")},
			{Subset: "", CardType: "  ", Numbering: num("3")},
		},
	}

	got, err := AthleteSummary(context.Background(), st, "Jane Doe")
	if err != nil {
		t.Fatalf("AthleteSummary() err=%v", err)
	}
	if got.TotalParallelCards != 10 {
		t.Errorf("TotalParallelCards = %d, want 10", got.TotalParallelCards)
	}
	// Blank-after-trim card types never count.
	if got.CardTypeCount != 0 {
		t.Errorf("CardTypeCount = %d, want 0", got.CardTypeCount)
	}
}

// fakeCatalog serves canned store names for listing tests.
type fakeCatalog struct {
	names []string
}

func (f *fakeCatalog) Close() {}
func (f *fakeCatalog) Create(context.Context, string) (storage.Store, error) {
	return nil, nil
}
func (f *fakeCatalog) Open(context.Context, string) (storage.Store, error) {
	return nil, storage.ErrNotFound
}
func (f *fakeCatalog) List(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for _, n := range f.names {
		if len(n) >= len(prefix) && n[:len(prefix)] == prefix {
			out = append(out, n)
		}
	}
	return out, nil
}

func TestListSets(t *testing.T) {
	t.Parallel()

	cat := &fakeCatalog{names: []string{"football_2024", "football_2023", "baseball_2023"}}

	got, err := ListSets(context.Background(), cat, "Football")
	if err != nil {
		t.Fatalf("ListSets() err=%v", err)
	}
	want := []string{"2023", "2024"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ListSets() = %v, want %v", got, want)
	}
}

func TestListSets_UnderscoresBecomeSpaces(t *testing.T) {
	t.Parallel()

	cat := &fakeCatalog{names: []string{"football_2023_prizm"}}

	got, err := ListSets(context.Background(), cat, "football")
	if err != nil {
		t.Fatalf("ListSets() err=%v", err)
	}
	want := []string{"2023 prizm"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ListSets() = %v, want %v", got, want)
	}
}
