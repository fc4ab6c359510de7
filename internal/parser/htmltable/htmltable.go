// Package htmltable reads checklist exports saved as HTML tables into
// tabular form. Several checklist publishers export their spreadsheets as
// a single-page HTML table rather than CSV.
package htmltable

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"checklist/internal/header"
	"checklist/internal/tabular"
)

// ReadTable parses the first <table> of an HTML document. Header cells
// come from the table's first row (<th> cells when present, <td>
// otherwise); every following <tr> becomes one tabular.Row.
//
// Missing structure is not an error: a document without a table, or a
// table without rows, yields an empty tabular.Table.
func ReadTable(src io.Reader) (*tabular.Table, error) {
	doc, err := goquery.NewDocumentFromReader(src)
	if err != nil {
		return nil, fmt.Errorf("htmltable: parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return &tabular.Table{}, nil
	}

	rows := table.Find("tr")
	if rows.Length() == 0 {
		return &tabular.Table{}, nil
	}

	tbl := &tabular.Table{}

	headerRow := rows.First()
	cells := headerRow.Find("th")
	if cells.Length() == 0 {
		cells = headerRow.Find("td")
	}
	cells.Each(func(_ int, sel *goquery.Selection) {
		tbl.Headers = append(tbl.Headers, header.Normalize(sel.Text()))
	})

	rows.Slice(1, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
		row := make(tabular.Row, len(tbl.Headers))
		tr.Find("td").Each(func(i int, td *goquery.Selection) {
			if i >= len(tbl.Headers) || tbl.Headers[i] == "" {
				return
			}
			row[tbl.Headers[i]] = strings.TrimSpace(td.Text())
		})
		tbl.Rows = append(tbl.Rows, row)
	})

	return tbl, nil
}
