package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// recordNamespace scopes deterministic record IDs
var recordNamespace = uuid.MustParse("6f1d8f5e-4c1b-5e7a-9a57-2b8e0c4d3a10")

// ParishRecord is one parish extracted from a directory page
type ParishRecord struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	StreetAddress string       `json:"street_address,omitempty"`
	City          string       `json:"city,omitempty"`
	State         string       `json:"state,omitempty"`
	PostalCode    string       `json:"postal_code,omitempty"`
	Phone         string       `json:"phone,omitempty"`
	WebsiteURL    string       `json:"website_url,omitempty"`
	SourceURL     string       `json:"source_url"`
	Strategy      StrategyName `json:"strategy"`
	Confidence    int          `json:"confidence"` // 0-100
	Latitude      *float64     `json:"latitude,omitempty"`
	Longitude     *float64     `json:"longitude,omitempty"`
	ExtractedAt   time.Time    `json:"extracted_at"`
}

// ParishID derives a stable ID so re-running a directory upserts instead of duplicating
func ParishID(sourceURL, name string) string {
	key := sourceURL + "\x00" + NormalizeName(name)
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}

// NormalizeName lowercases and collapses whitespace
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// placeholderNames are UI chrome strings that show up where a name should be
var placeholderNames = toSet([]string{
	"", "n/a", "na", "none", "name", "parish", "parish name", "church", "untitled",
	"read more", "learn more", "more info", "more information", "view details", "details",
	"directions", "get directions", "website", "visit website", "home", "menu", "search",
	"loading", "loading...", "click here", "map", "view map", "contact", "contact us",
	"next", "previous", "select", "close", "show all", "results", "no results",
	"address", "mailing address", "physical address", "location", "phone", "telephone", "tel",
	"fax", "email", "e-mail",
})

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// IsPlaceholderName reports whether name is empty or known UI chrome
func IsPlaceholderName(name string) bool {
	n := strings.Trim(NormalizeName(name), " :|-•»›")
	if placeholderNames[n] {
		return true
	}
	if len([]rune(n)) < 3 || len([]rune(n)) > 120 {
		return true
	}
	return false
}

// Validate checks the record invariants that gate persistence
func (r ParishRecord) Validate() error {
	if IsPlaceholderName(r.Name) {
		return RejectRecord("placeholder or empty name %q", r.Name)
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return RejectRecord("confidence %d out of range", r.Confidence)
	}
	if strings.ContainsAny(r.StreetAddress, "<>") {
		return RejectRecord("markup in address %q", r.StreetAddress)
	}
	return nil
}

// ClampConfidence bounds c to 0-100
func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
