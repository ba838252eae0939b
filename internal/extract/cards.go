package extract

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// nameSelectors are tried in order; document order decides within a group
var nameSelectors = []string{
	"h1, h2, h3, h4, h5, h6",
	"[itemprop=name], [class*=name], [class*=title]",
	"strong, b",
	"a",
}

const addressSelectors = "address, [itemprop=address], [itemprop=streetAddress], [class*=address], [class*=street], [class*=location]"

// containers that never hold a card group
var skipCardTags = map[string]bool{
	"html": true, "head": true, "script": true, "style": true, "table": true, "thead": true,
	"tbody": true, "tr": true, "select": true, "option": true, "svg": true, "form": true,
}

// CardFields are the parish fields found inside one card element
type CardFields struct {
	Name       string
	Address    Address
	Phone      string
	WebsiteURL string
	// DetailURL is a same-host link to a per-parish page
	DetailURL string
}

// FindCardGroup returns the largest set of sibling elements sharing a
// tag+class signature where at least two thirds carry a name and an
// address- or phone-shaped field. Nil when the page has none.
func (p *Page) FindCardGroup() *goquery.Selection {
	var best *goquery.Selection
	bestN := 0

	p.Doc.Find("body, body *").Each(func(_ int, parent *goquery.Selection) {
		if skipCardTags[goquery.NodeName(parent)] {
			return
		}

		groups := make(map[string][]*html.Node)
		var order []string
		parent.Children().Each(func(_ int, child *goquery.Selection) {
			sig := cardSignature(child)
			if sig == "" {
				return
			}
			if _, ok := groups[sig]; !ok {
				order = append(order, sig)
			}
			groups[sig] = append(groups[sig], child.Get(0))
		})

		sort.SliceStable(order, func(i, j int) bool {
			return len(groups[order[i]]) > len(groups[order[j]])
		})
		for _, sig := range order {
			nodes := groups[sig]
			if len(nodes) < 2 || len(nodes) <= bestN {
				continue
			}
			sel := parent.Children().FilterNodes(nodes...)
			if p.cardLike(sel) {
				best, bestN = sel, len(nodes)
				break
			}
		}
	})

	return best
}

func cardSignature(s *goquery.Selection) string {
	tag := goquery.NodeName(s)
	if skipCardTags[tag] {
		return ""
	}
	classes := strings.Fields(s.AttrOr("class", ""))
	if len(classes) == 0 {
		switch tag {
		case "li", "article", "section", "div", "dl":
		default:
			return ""
		}
	}
	sort.Strings(classes)
	return tag + "." + strings.Join(classes, ".")
}

func (p *Page) cardLike(cards *goquery.Selection) bool {
	good := 0
	cards.Each(func(_ int, card *goquery.Selection) {
		f := p.CardFields(card)
		if f.Name != "" && (f.Address.Street != "" || f.Phone != "") {
			good++
		}
	})
	return good >= 2 && good*3 >= cards.Length()*2
}

// CardFields extracts name, address, phone and links from one card element
func (p *Page) CardFields(card *goquery.Selection) CardFields {
	var f CardFields
	lines := Lines(VisibleText(card))

	for _, selector := range nameSelectors {
		card.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := CleanText(s.Text())
			if text == "" || IsStreetAddress(text) || FindPhone(text) != "" || len(text) > 120 {
				return true
			}
			f.Name = text
			return false
		})
		if f.Name != "" {
			break
		}
	}
	if f.Name == "" {
		for _, line := range lines {
			if !IsStreetAddress(line) && FindPhone(line) == "" && !IsCityLine(line) {
				f.Name = line
				break
			}
		}
	}

	if s := card.Find(addressSelectors).First(); s.Length() > 0 {
		if addr, _ := AddressFromLines(Lines(VisibleText(s))); addr.Street != "" {
			f.Address = addr
		}
	}
	if f.Address.Street == "" {
		f.Address, _ = AddressFromLines(lines)
	}

	if tel, ok := card.Find(`a[href^="tel:"]`).First().Attr("href"); ok {
		f.Phone = strings.TrimSpace(strings.TrimPrefix(tel, "tel:"))
	}
	if f.Phone == "" {
		f.Phone = FindPhone(strings.Join(lines, "\n"))
	}

	for _, link := range p.LinksIn(card) {
		switch {
		case !link.SameHost && f.WebsiteURL == "" && !IsSocialOrMapURL(link.URL):
			f.WebsiteURL = link.URL
		case link.SameHost && f.DetailURL == "" && link.URL != p.URL():
			f.DetailURL = link.URL
		}
	}

	return f
}

// socialOrMapDomains match the host or any parent domain
var socialOrMapDomains = []string{
	"facebook.com", "fb.com", "twitter.com", "x.com", "instagram.com", "youtube.com", "youtu.be",
	"linkedin.com", "pinterest.com", "tiktok.com", "flocknote.com", "mapquest.com",
	"maps.apple.com", "maps.google.com", "maps.app.goo.gl",
}

// mapPaths are map services that share a host with other products
var mapPaths = []struct{ domain, path string }{
	{"google.com", "/maps"},
	{"bing.com", "/maps"},
	{"goo.gl", "/maps"},
}

// IsSocialOrMapURL reports whether rawURL points at a social network or a map service
func IsSocialOrMapURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if strings.HasPrefix(host, "maps.google.") {
		return true
	}
	for _, d := range socialOrMapDomains {
		if domainMatch(host, d) {
			return true
		}
	}
	path := strings.ToLower(u.Path)
	for _, m := range mapPaths {
		if domainMatch(host, m.domain) && strings.HasPrefix(path, m.path) {
			return true
		}
	}
	return false
}

// domainMatch matches host against domain or a parent domain suffix
func domainMatch(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
