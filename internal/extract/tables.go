package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParishTable is a table whose header row maps to record fields
type ParishTable struct {
	Table   *goquery.Selection
	Columns []Field
	header  *goquery.Selection
}

// FindParishTable picks the table whose header matches the most parish
// field terms. A table qualifies with a name column plus at least one
// other recognized column.
func (p *Page) FindParishTable() *ParishTable {
	var best *ParishTable
	bestScore := 0

	p.Doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		header := headerRow(table)
		if header == nil {
			return
		}

		var cols []Field
		distinct := make(map[Field]bool)
		header.Children().Each(func(_ int, cell *goquery.Selection) {
			f := FieldForHeader(cell.Text())
			span := 1
			if n, err := atoiAttr(cell, "colspan"); err == nil && n > 1 && n < 10 {
				span = n
			}
			for i := 0; i < span; i++ {
				cols = append(cols, f)
			}
			if f != FieldNone {
				distinct[f] = true
			}
		})

		if !distinct[FieldName] || len(distinct) < 2 {
			return
		}
		if len(distinct) > bestScore {
			best = &ParishTable{Table: table, Columns: cols, header: header}
			bestScore = len(distinct)
		}
	})

	return best
}

// Rows returns the data rows: every row of the table except the header
// row and rows nested in inner tables.
func (t *ParishTable) Rows() []*goquery.Selection {
	var rows []*goquery.Selection
	t.Table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.IsSelection(t.header) {
			return
		}
		if tr.Closest("table").Get(0) != t.Table.Get(0) {
			return
		}
		if tr.Children().Filter("td").Length() == 0 {
			return
		}
		rows = append(rows, tr)
	})
	return rows
}

func headerRow(table *goquery.Selection) *goquery.Selection {
	if tr := table.Find("thead tr").First(); tr.Length() > 0 {
		return tr
	}
	if tr := table.Find("tr").First(); tr.Length() > 0 {
		return tr
	}
	return nil
}

func atoiAttr(s *goquery.Selection, name string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s.AttrOr(name, "")))
}
