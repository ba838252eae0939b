package model

import (
	"time"

	"github.com/google/uuid"
)

// FactCategory is a kind of liturgical-schedule information
type FactCategory string

const (
	CategoryAll            FactCategory = "all" // category-agnostic rules only
	CategoryMass           FactCategory = "mass"
	CategoryReconciliation FactCategory = "reconciliation"
	CategoryAdoration      FactCategory = "adoration"
	CategoryOfficeHours    FactCategory = "office_hours"
)

// MethodKeywordCrawl tags facts resolved from the priority crawl
const MethodKeywordCrawl = "keyword_crawl"

// RelevanceRule is one weighted keyword. Negative weights push pages and links away.
type RelevanceRule struct {
	Keyword  string       `json:"keyword" yaml:"keyword"`
	Category FactCategory `json:"category" yaml:"category"`
	Weight   int          `json:"weight" yaml:"weight"`
	Active   bool         `json:"active" yaml:"active"`
}

// QueuedURL is a crawl frontier entry
type QueuedURL struct {
	URL      string
	Anchor   string
	Priority float64
	Depth    int
	Seq      int // insertion order, final tie-break
}

// FactCandidate is a scored snippet observed during a crawl
type FactCandidate struct {
	Category  FactCategory `json:"category"`
	SourceURL string       `json:"source_url"`
	Snippet   string       `json:"snippet"`
	Score     float64      `json:"score"`
}

// FactRecord is the resolved fact for one (site, category)
type FactRecord struct {
	ID          string       `json:"id"`
	Site        string       `json:"site"`
	Category    FactCategory `json:"category"`
	Value       string       `json:"value"`
	SourceURL   string       `json:"source_url"`
	Confidence  int          `json:"confidence"`
	Method      string       `json:"method"`
	ExtractedAt time.Time    `json:"extracted_at"`
}

// FactID derives a stable ID for a (site, category) pair
func FactID(site string, category FactCategory) string {
	return uuid.NewSHA1(recordNamespace, []byte(site+"\x00"+string(category))).String()
}
