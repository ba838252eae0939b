package adapters

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/parishscope/internal/extract"
	"github.com/ppiankov/parishscope/internal/model"
)

// TextEntry is one parish span recovered from unstructured text
type TextEntry struct {
	Name    string
	Address extract.Address
	Phone   string
	Website string
}

// Record converts the entry into a ParishRecord
func (e TextEntry) Record() model.ParishRecord {
	return model.ParishRecord{
		Name:          e.Name,
		StreetAddress: e.Address.Street,
		City:          e.Address.City,
		State:         e.Address.State,
		PostalCode:    e.Address.PostalCode,
		Phone:         e.Phone,
		WebsiteURL:    e.Website,
	}
}

// maxNameWords bounds a name line; longer lines are prose
const maxNameWords = 10

// SplitDirectoryText splits concatenated directory text into parish
// entries. A new entry starts where a proper-noun-led name is immediately
// followed by a street-address-shaped segment, on the same line (the
// select-all buffer often glues them together) or on the next line. Phone,
// city and URL lines attach to the current entry; anything else is dropped.
func SplitDirectoryText(raw string) []TextEntry {
	lines := extract.Lines(strings.ReplaceAll(raw, "\r", "\n"))
	for i, line := range lines {
		lines[i] = stripFieldLabel(line)
	}

	var entries []TextEntry
	cur := -1

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		name, addrText, nextLine := "", "", false
		switch idx := extract.StreetIndex(line); {
		case idx > 0:
			name, addrText = cleanName(line[:idx]), line[idx:]
		case idx < 0 && i+1 < len(lines) && extract.StreetIndex(lines[i+1]) == 0:
			name, addrText, nextLine = cleanName(line), lines[i+1], true
		}

		if name != "" && isNameCandidate(name) {
			if nextLine {
				i++
			}
			addr, _ := extract.ParseAddress(addrText)
			if addr.City == "" && i+1 < len(lines) && extract.IsCityLine(lines[i+1]) {
				addr, _ = extract.ParseAddress(addrText + ", " + lines[i+1])
				i++
			}
			entries = append(entries, TextEntry{Name: name, Address: addr, Phone: extract.FindPhone(addrText)})
			cur = len(entries) - 1
			continue
		}

		if cur < 0 || model.IsPlaceholderName(line) {
			continue
		}
		e := &entries[cur]
		if e.Phone == "" {
			if phone := extract.FindPhone(line); phone != "" {
				e.Phone = phone
				continue
			}
		}
		if e.Address.City == "" && extract.IsCityLine(line) {
			if addr, ok := extract.ParseAddress(e.Address.Street + ", " + line); ok {
				e.Address = addr
			}
			continue
		}
		if e.Website == "" {
			if u := websiteInLine(line); u != "" {
				e.Website = u
			}
		}
	}

	return entries
}

// isNameCandidate accepts short lines led by an uppercase letter that are
// neither addresses, phones nor UI chrome.
func isNameCandidate(name string) bool {
	first, _ := utf8.DecodeRuneInString(name)
	if !unicode.IsUpper(first) {
		return false
	}
	if len(strings.Fields(name)) > maxNameWords {
		return false
	}
	if extract.FindPhone(name) != "" || extract.IsCityLine(name) {
		return false
	}
	if strings.HasSuffix(name, ":") {
		return false
	}
	return !model.IsPlaceholderName(name)
}

// cleanName trims separators and labels that cling to a name
func cleanName(s string) string {
	s = extract.CleanText(s)
	s = strings.Trim(s, " ,;:|-–—•»›·")
	for _, prefix := range []string{"Name:", "Parish:", "Church:"} {
		if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			s = strings.TrimSpace(s[len(prefix):])
		}
	}
	return s
}

// fieldLabels lead value lines ("Address: 123 Main St"); longest first
var fieldLabels = []string{
	"mailing address", "physical address", "street address", "address", "location",
	"telephone", "phone", "tel", "fax", "e-mail", "email", "website", "web",
}

// stripFieldLabel drops a leading "Label:" so the value is read on its own
func stripFieldLabel(line string) string {
	for _, label := range fieldLabels {
		if len(line) <= len(label) || !strings.EqualFold(line[:len(label)], label) {
			continue
		}
		rest := strings.TrimSpace(line[len(label):])
		if strings.HasPrefix(rest, ":") {
			if v := strings.TrimSpace(rest[1:]); v != "" {
				return v
			}
		}
	}
	return line
}

func websiteInLine(line string) string {
	for _, f := range strings.Fields(line) {
		lower := strings.ToLower(f)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			return strings.TrimRight(f, ".,;)")
		}
		if strings.HasPrefix(lower, "www.") && strings.Count(lower, ".") >= 2 {
			return "https://" + strings.TrimRight(f, ".,;)")
		}
	}
	return ""
}
