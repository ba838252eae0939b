package adapters

import (
	"strings"

	"github.com/ppiankov/parishscope/internal/extract"
	"github.com/ppiankov/parishscope/internal/model"
)

// penalties applied to the base confidence for missing fields
const (
	missingAddressPenalty = 15
	missingCityPenalty    = 5
)

func recordFromCard(f extract.CardFields) model.ParishRecord {
	return model.ParishRecord{
		Name:          f.Name,
		StreetAddress: f.Address.Street,
		City:          f.Address.City,
		State:         f.Address.State,
		PostalCode:    f.Address.PostalCode,
		Phone:         f.Phone,
		WebsiteURL:    f.WebsiteURL,
	}
}

// recordFromLines reads a popup or result block: the first line that is
// not an address, city or phone is the name.
func recordFromLines(lines []string) (model.ParishRecord, bool) {
	var r model.ParishRecord
	for _, line := range lines {
		if extract.IsStreetAddress(line) || extract.FindPhone(line) != "" || extract.IsCityLine(line) {
			continue
		}
		if name := cleanName(line); name != "" && !model.IsPlaceholderName(name) {
			r.Name = name
			break
		}
	}
	if r.Name == "" {
		return r, false
	}

	addr, _ := extract.AddressFromLines(lines)
	r.StreetAddress = addr.Street
	r.City = addr.City
	r.State = addr.State
	r.PostalCode = addr.PostalCode
	r.Phone = extract.FindPhone(strings.Join(lines, "\n"))
	for _, line := range lines {
		if u := websiteInLine(line); u != "" {
			r.WebsiteURL = u
			break
		}
	}
	return r, true
}

// scored applies the base confidence minus penalties for missing fields
func scored(r model.ParishRecord, base int) model.ParishRecord {
	c := base
	if r.StreetAddress == "" {
		c -= missingAddressPenalty
	}
	if r.City == "" {
		c -= missingCityPenalty
	}
	if c < 1 {
		c = 1
	}
	r.Confidence = c
	return r
}

// mergeMissing fills empty fields of r from detail
func mergeMissing(r, detail model.ParishRecord) model.ParishRecord {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&r.StreetAddress, detail.StreetAddress)
	fill(&r.City, detail.City)
	fill(&r.State, detail.State)
	fill(&r.PostalCode, detail.PostalCode)
	fill(&r.Phone, detail.Phone)
	fill(&r.WebsiteURL, detail.WebsiteURL)
	return r
}

func incomplete(r model.ParishRecord) bool {
	return r.StreetAddress == "" || r.City == "" || r.Phone == "" || r.WebsiteURL == ""
}
