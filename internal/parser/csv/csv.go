// Package csv reads CSV checklist exports into tabular form.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"checklist/internal/header"
	"checklist/internal/tabular"
)

// ReadTable reads a whole CSV export: the first record becomes the
// normalized header sequence, every following record becomes one
// tabular.Row keyed by normalized header.
//
// Edge cases:
//   - A UTF-8 BOM on the first header cell is stripped.
//   - Ragged records are tolerated; missing trailing cells are simply
//     absent from the row.
//   - Malformed lines are reported through onErr (which may be nil) and
//     skipped; they never fail the read.
//   - A completely empty input yields an empty table, not an error.
func ReadTable(src io.Reader, onErr func(line int, err error)) (*tabular.Table, error) {
	cr := csv.NewReader(src)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	var line int
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	hdr, err := readRec()
	if err == io.EOF {
		return &tabular.Table{}, nil
	}
	if err != nil {
		if onErr != nil {
			onErr(line, fmt.Errorf("read header: %w", err))
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	headers := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		headers[i] = header.Normalize(h)
	}

	tbl := &tabular.Table{Headers: headers}

	for {
		rec, err := readRec()
		if err == io.EOF {
			return tbl, nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}

		row := make(tabular.Row, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(rec) {
				continue
			}
			row[h] = strings.TrimSpace(rec[i])
		}
		tbl.Rows = append(tbl.Rows, row)
	}
}
