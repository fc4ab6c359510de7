// Package tabular defines the row-oriented record types shared by the
// upload parsers and the ingestion engine.
//
// A Table is the fully-read form of one checklist export: the ordered,
// normalized header sequence plus one Row per data line. Headers keep their
// original file order because the column classifier's pairing heuristic is
// position-dependent.
package tabular

// Row maps a normalized header name to the raw cell text of one input row.
// Cells absent from a ragged row are simply missing from the map; callers
// treat a missing key the same as an empty string via Row.Get.
type Row map[string]string

// Get returns the cell value for a normalized header name, or "" when the
// header is unknown or the cell was absent.
func (r Row) Get(header string) string {
	if header == "" {
		return ""
	}
	return r[header]
}

// Table is one parsed checklist export.
type Table struct {
	// Headers are the normalized column headers in original file order.
	Headers []string
	// Rows are the data rows, keyed by normalized header.
	Rows []Row
}
