package adapters

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/parishscope/internal/extract"
	"github.com/ppiankov/parishscope/internal/model"
	"go.uber.org/zap"
)

const defaultMaxSearchPages = 25

const resultItemSelectors = "[id*=result] li, [class*=result] li, [class*=result-item], [class*=search-result], [id*=result] > div, [class*=results] > div"

const nextSelectors = `a[rel=next], .pagination .next a, .pagination a.next, a.next, li.next a, button.next, [aria-label="Next"], [aria-label="Next page"], [aria-label="next page"]`

var nextLabels = map[string]bool{
	"next": true, "next ›": true, "next »": true, "next page": true, "›": true, "»": true, "next >": true, ">": true,
}

// SearchStrategy drives a parish search widget and walks its result pages
type SearchStrategy struct{}

// Name returns the strategy name
func (s *SearchStrategy) Name() model.StrategyName {
	return model.StrategyInteractiveSearch
}

// Extract submits the broad query and reads result pages until the
// pagination runs out, a page repeats, or the page cap is hit.
func (s *SearchStrategy) Extract(ctx context.Context, env *Env) ([]model.ParishRecord, error) {
	if env.Session != nil {
		return s.interactive(ctx, env)
	}
	return s.paginate(ctx, env)
}

func (s *SearchStrategy) interactive(ctx context.Context, env *Env) ([]model.ParishRecord, error) {
	if input := env.Page.SearchInput(); input != nil {
		if err := env.Session.Type(ctx, extract.Selector(input), env.Limits.SearchQuery, true); err != nil {
			return nil, &model.ExtractionPolicyError{Strategy: s.Name(), URL: env.Page.URL(), Step: "submit query", Err: err}
		}
	}

	var records []model.ParishRecord
	seen := make(map[string]bool)
	for n := 0; n < maxPages(env); n++ {
		html, err := env.Session.HTML(ctx)
		if err != nil {
			if len(records) == 0 {
				return nil, &model.ExtractionPolicyError{Strategy: s.Name(), URL: env.Page.URL(), Step: "read results", Err: err}
			}
			break
		}
		pageURL := env.Session.URL()
		if pageURL == "" {
			pageURL = env.Page.URL()
		}
		page, err := extract.ParseHTML(pageURL, html)
		if err != nil {
			break
		}

		entries := resultEntries(page)
		sig := pageSignature(entries)
		if seen[sig] {
			break
		}
		seen[sig] = true
		records = append(records, scoredAll(entries, env.Confidence)...)

		next := nextControl(page)
		if next == nil {
			break
		}
		if err := env.Session.Click(ctx, extract.Selector(next)); err != nil {
			env.logger().Debug("pagination stopped", zap.Int("page", n+1), zap.Error(err))
			break
		}
	}

	return records, nil
}

// paginate follows next links through the fetcher when no browser is available
func (s *SearchStrategy) paginate(ctx context.Context, env *Env) ([]model.ParishRecord, error) {
	page := env.Page
	visited := map[string]bool{extract.NormalizeURL(page.URL()): true}

	var records []model.ParishRecord
	for n := 0; n < maxPages(env); n++ {
		records = append(records, scoredAll(resultEntries(page), env.Confidence)...)

		next := nextControl(page)
		if next == nil {
			break
		}
		href := page.Resolve(next.AttrOr("href", ""))
		if href == "" || visited[extract.NormalizeURL(href)] {
			break
		}
		visited[extract.NormalizeURL(href)] = true

		nextPage, err := env.fetch(ctx, href)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			env.logger().Debug("pagination stopped", zap.String("url", href), zap.Error(err))
			break
		}
		page = nextPage
	}

	return records, nil
}

func maxPages(env *Env) int {
	if env.Limits.MaxSearchPages > 0 {
		return env.Limits.MaxSearchPages
	}
	return defaultMaxSearchPages
}

// resultEntries parses a result page as cards, a table, or result list items
func resultEntries(page *extract.Page) []model.ParishRecord {
	if cards := page.FindCardGroup(); cards != nil {
		var out []model.ParishRecord
		cards.Each(func(_ int, card *goquery.Selection) {
			out = append(out, recordFromCard(page.CardFields(card)))
		})
		return out
	}

	if table := page.FindParishTable(); table != nil {
		return tableRecords(page, table)
	}

	var out []model.ParishRecord
	page.Doc.Find(resultItemSelectors).Each(func(_ int, item *goquery.Selection) {
		r, ok := recordFromLines(extract.Lines(extract.VisibleText(item)))
		if !ok {
			return
		}
		if r.WebsiteURL == "" {
			for _, link := range page.LinksIn(item) {
				if !link.SameHost && !extract.IsSocialOrMapURL(link.URL) {
					r.WebsiteURL = link.URL
					break
				}
			}
		}
		out = append(out, r)
	})
	return out
}

// nextControl finds an enabled "next page" link or button
func nextControl(page *extract.Page) *goquery.Selection {
	var found *goquery.Selection
	pick := func(_ int, s *goquery.Selection) bool {
		if disabled(s) {
			return true
		}
		found = s
		return false
	}

	page.Doc.Find(nextSelectors).EachWithBreak(pick)
	if found != nil {
		return found
	}
	page.Doc.Find("a, button").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if !nextLabels[strings.ToLower(extract.CleanText(s.Text()))] {
			return true
		}
		return pick(i, s)
	})
	return found
}

func disabled(s *goquery.Selection) bool {
	if _, ok := s.Attr("disabled"); ok {
		return true
	}
	if s.AttrOr("aria-disabled", "") == "true" {
		return true
	}
	return strings.Contains(s.AttrOr("class", ""), "disabled") || s.ParentFiltered(".disabled").Length() > 0
}

func pageSignature(entries []model.ParishRecord) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(model.NormalizeName(e.Name))
		b.WriteByte('|')
	}
	return b.String()
}

func scoredAll(records []model.ParishRecord, base int) []model.ParishRecord {
	out := make([]model.ParishRecord, len(records))
	for i, r := range records {
		out[i] = scored(r, base)
	}
	return out
}
