package crawl

import (
	"math"
	"net/url"
	"sort"
	"time"

	"github.com/ppiankov/parishscope/internal/model"
)

// Resolve keeps the best candidate per category and turns it into a
// FactRecord. Ties go to the shorter URL path, then to the lexically
// smaller URL. Categories without candidates are absent from the result.
func Resolve(site string, candidates []model.FactCandidate, confidenceScale float64, now time.Time) []model.FactRecord {
	if confidenceScale <= 0 {
		confidenceScale = 20
	}

	best := make(map[model.FactCategory]model.FactCandidate)
	for _, c := range candidates {
		cur, ok := best[c.Category]
		if !ok || better(c, cur) {
			best[c.Category] = c
		}
	}

	facts := make([]model.FactRecord, 0, len(best))
	for category, c := range best {
		facts = append(facts, model.FactRecord{
			ID:          model.FactID(site, category),
			Site:        site,
			Category:    category,
			Value:       c.Snippet,
			SourceURL:   c.SourceURL,
			Confidence:  model.ClampConfidence(int(math.Round(c.Score * 100 / confidenceScale))),
			Method:      model.MethodKeywordCrawl,
			ExtractedAt: now.UTC(),
		})
	}

	sort.Slice(facts, func(i, j int) bool { return facts[i].Category < facts[j].Category })
	return facts
}

func better(a, b model.FactCandidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	pa, pb := urlPath(a.SourceURL), urlPath(b.SourceURL)
	if len(pa) != len(pb) {
		return len(pa) < len(pb)
	}
	return a.SourceURL < b.SourceURL
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.EscapedPath()
}
