package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`(?:\+?1[\s.-]?)?\(?\b\d{3}\)?[\s.-]?\d{3}[\s.-]\d{4}\b`)

	// No leading word boundary: concatenated select-all text glues the
	// house number straight onto the parish name ("Saint Mary123 Main St").
	streetPattern = regexp.MustCompile(`(?i)\d{1,6}[A-Z]?(?:[ \t]+[A-Za-z0-9.'#-]+){0,5}?[ \t]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln|Way|Court|Ct|Place|Pl|Parkway|Pkwy|Highway|Hwy|Terrace|Ter|Circle|Cir|Square|Sq|Trail|Trl|Pike|Plaza|Turnpike|Row|Loop|Alley)\b\.?|P\.?\s?O\.?\s+Box\s+\d+`)

	cityLinePattern = regexp.MustCompile(`^(.+?)[,\s]+([A-Za-z]{2})\.?(?:[,\s]+(\d{5}(?:-\d{4})?))?$`)
	postalPattern   = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	unitPattern     = regexp.MustCompile(`(?i)^(?:suite|ste\.?|apt\.?|unit|#|room|rm\.?)\s*[^\s,]+`)
)

var usStates = toSet(strings.Fields(`AL AK AZ AR CA CO CT DE DC FL GA HI ID IL IN IA KS KY LA ME MD MA MI MN MS MO
	MT NE NV NH NJ NM NY NC ND OH OK OR PA RI SC SD TN TX UT VT VA WA WV WI WY PR GU VI`))

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// Address is a parsed postal address
type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
}

// Empty reports whether nothing was parsed
func (a Address) Empty() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.PostalCode == ""
}

// FindPhone returns the first phone-shaped substring of s
func FindPhone(s string) string {
	return strings.TrimSpace(phonePattern.FindString(s))
}

// IsStreetAddress reports whether s contains a street-address-shaped segment
func IsStreetAddress(s string) bool {
	return streetPattern.MatchString(s)
}

// StreetIndex returns the byte offset of the first street-address segment, or -1
func StreetIndex(s string) int {
	loc := streetPattern.FindStringIndex(s)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// IsCityLine reports whether s looks like "Springfield, IL 62701"
func IsCityLine(s string) bool {
	s = strings.TrimSpace(s)
	if IsStreetAddress(s) || FindPhone(s) != "" {
		return false
	}
	m := cityLinePattern.FindStringSubmatch(s)
	return m != nil && usStates[strings.ToUpper(m[2])] && len(strings.Fields(m[1])) <= 4
}

// ParseAddress splits "123 Main St, Springfield, IL 62701" into parts.
// Text before the street number is ignored and a trailing phone is dropped.
func ParseAddress(s string) (Address, bool) {
	s = CleanText(s)
	loc := streetPattern.FindStringIndex(s)
	if loc == nil {
		return Address{}, false
	}

	addr := Address{Street: strings.TrimSpace(s[loc[0]:loc[1]])}
	rest := s[loc[1]:]
	if p := phonePattern.FindStringIndex(rest); p != nil {
		rest = rest[:p[0]]
	}
	rest = strings.Trim(rest, " ,;|-")

	// suite / unit belongs to the street line
	if m := unitPattern.FindString(rest); m != "" {
		addr.Street += " " + m
		rest = strings.Trim(rest[len(m):], " ,;")
	}

	parseCityLine(rest, &addr)
	return addr, true
}

func parseCityLine(rest string, addr *Address) {
	rest = strings.Trim(rest, " ,;|-")
	if rest == "" {
		return
	}

	if m := cityLinePattern.FindStringSubmatch(rest); m != nil && usStates[strings.ToUpper(m[2])] {
		addr.City = strings.Trim(m[1], " ,")
		addr.State = strings.ToUpper(m[2])
		addr.PostalCode = m[3]
		return
	}

	if zip := postalPattern.FindString(rest); zip != "" {
		addr.PostalCode = zip
		rest = strings.Replace(rest, zip, "", 1)
	}
	parts := strings.Split(rest, ",")
	addr.City = strings.TrimSpace(parts[0])
}

// AddressFromLines finds the first street line and joins it with a
// following city line when the street line carries no city. It returns
// the parsed address and the index of the last consumed line, or -1.
func AddressFromLines(lines []string) (Address, int) {
	for i, line := range lines {
		addr, ok := ParseAddress(line)
		if !ok {
			continue
		}
		if addr.City == "" && i+1 < len(lines) && IsCityLine(lines[i+1]) {
			parseCityLine(lines[i+1], &addr)
			return addr, i + 1
		}
		return addr, i
	}
	return Address{}, -1
}

// Field is a ParishRecord column
type Field int

const (
	FieldNone Field = iota
	FieldName
	FieldAddress
	FieldCity
	FieldState
	FieldPostal
	FieldPhone
	FieldWebsite
)

// headerVocabulary is checked in order; "Parish Address" must map to address, not name
var headerVocabulary = []struct {
	field Field
	terms []string
}{
	{FieldWebsite, []string{"website", "web site", "url", "web"}},
	{FieldPhone, []string{"phone", "telephone", "tel", "contact number"}},
	{FieldPostal, []string{"zip", "postal", "postcode"}},
	{FieldCity, []string{"city", "town", "municipality"}},
	{FieldState, []string{"state", "province"}},
	{FieldAddress, []string{"address", "street", "location"}},
	{FieldName, []string{"name", "parish", "church", "mission"}},
}

// FieldForHeader maps a table header label to a field
func FieldForHeader(label string) Field {
	label = strings.ToLower(CleanText(label))
	if label == "" {
		return FieldNone
	}
	words := strings.FieldsFunc(label, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	for _, entry := range headerVocabulary {
		for _, term := range entry.terms {
			if strings.Contains(term, " ") {
				if strings.Contains(label, term) {
					return entry.field
				}
				continue
			}
			for _, w := range words {
				if w == term {
					return entry.field
				}
			}
		}
	}
	return FieldNone
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}
