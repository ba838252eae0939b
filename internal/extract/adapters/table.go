package adapters

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/parishscope/internal/extract"
	"github.com/ppiankov/parishscope/internal/model"
)

// TableStrategy maps the columns of a parish table positionally
type TableStrategy struct{}

// Name returns the strategy name
func (s *TableStrategy) Name() model.StrategyName {
	return model.StrategyStaticTable
}

// Extract parses every data row of the best parish table
func (s *TableStrategy) Extract(ctx context.Context, env *Env) ([]model.ParishRecord, error) {
	table := env.Page.FindParishTable()
	if table == nil {
		return nil, errors.New("no parish table on page")
	}

	var records []model.ParishRecord
	for _, r := range tableRecords(env.Page, table) {
		records = append(records, scored(r, env.Confidence))
	}
	return records, nil
}

func tableRecords(page *extract.Page, table *extract.ParishTable) []model.ParishRecord {
	var records []model.ParishRecord
	for _, row := range table.Rows() {
		if r, ok := rowRecord(page, table.Columns, row); ok {
			records = append(records, r)
		}
	}
	return records
}

func rowRecord(page *extract.Page, columns []extract.Field, row *goquery.Selection) (model.ParishRecord, bool) {
	var r model.ParishRecord
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}

	cells := expandCells(row)
	if strings.TrimSpace(row.Text()) == "" {
		return r, false
	}

	for i, cell := range cells {
		if i >= len(columns) {
			break
		}
		lines := extract.Lines(extract.VisibleText(cell))
		flat := strings.Join(lines, ", ")
		if flat == "" {
			continue
		}

		switch columns[i] {
		case extract.FieldName:
			r.Name = cleanName(lines[0])
			if len(lines) > 1 {
				if addr, last := extract.AddressFromLines(lines[1:]); last >= 0 {
					fill(&r.StreetAddress, addr.Street)
					fill(&r.City, addr.City)
					fill(&r.State, addr.State)
					fill(&r.PostalCode, addr.PostalCode)
				}
			}
		case extract.FieldAddress:
			if addr, last := extract.AddressFromLines(lines); last >= 0 {
				r.StreetAddress = addr.Street
				fill(&r.City, addr.City)
				fill(&r.State, addr.State)
				fill(&r.PostalCode, addr.PostalCode)
			} else {
				r.StreetAddress = flat
			}
		case extract.FieldCity:
			r.City = flat
		case extract.FieldState:
			r.State = flat
		case extract.FieldPostal:
			r.PostalCode = flat
		case extract.FieldPhone:
			if phone := extract.FindPhone(flat); phone != "" {
				r.Phone = phone
			} else {
				r.Phone = flat
			}
		case extract.FieldWebsite:
			if href, ok := cell.Find("a[href]").First().Attr("href"); ok {
				r.WebsiteURL = page.Resolve(href)
			}
			if r.WebsiteURL == "" {
				r.WebsiteURL = websiteInLine(flat)
			}
		}
	}

	if r.WebsiteURL == "" {
		for _, link := range page.LinksIn(row) {
			if !link.SameHost && !extract.IsSocialOrMapURL(link.URL) {
				r.WebsiteURL = link.URL
				break
			}
		}
	}

	return r, true
}

// expandCells repeats colspan cells so indexes line up with header columns
func expandCells(row *goquery.Selection) []*goquery.Selection {
	var cells []*goquery.Selection
	row.Children().Filter("td, th").Each(func(_ int, cell *goquery.Selection) {
		span := 1
		if v, err := strconv.Atoi(strings.TrimSpace(cell.AttrOr("colspan", ""))); err == nil && v > 1 && v < 10 {
			span = v
		}
		for i := 0; i < span; i++ {
			cells = append(cells, cell)
		}
	})
	return cells
}
