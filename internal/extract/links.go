package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is a resolved outbound anchor
type Link struct {
	URL      string
	Text     string
	SameHost bool
}

// Links returns the page's navigable links, resolved and deduplicated by
// normalized URL. The first anchor text seen for a URL wins unless it was empty.
func (p *Page) Links() []Link {
	return p.LinksIn(p.Doc.Selection)
}

// LinksIn is Links restricted to the subtree of sel
func (p *Page) LinksIn(sel *goquery.Selection) []Link {
	var links []Link
	index := make(map[string]int)

	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		resolved := p.Resolve(href)
		if resolved == "" {
			return
		}

		text := CleanText(a.Text())
		if text == "" {
			text = CleanText(a.AttrOr("title", a.AttrOr("aria-label", "")))
		}

		key := NormalizeURL(resolved)
		if i, ok := index[key]; ok {
			if links[i].Text == "" {
				links[i].Text = text
			}
			return
		}
		index[key] = len(links)
		links = append(links, Link{
			URL:      resolved,
			Text:     text,
			SameHost: p.SameHost(resolved),
		})
	})

	return links
}

// resolveURL resolves a relative URL against a base URL
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "sms:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)

	// Only keep http/https URLs
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""

	return resolved.String()
}

// NormalizeURL gives the identity used for visited sets: lowercase scheme
// and host, no fragment, no default port, no trailing slash on the path.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !(u.Scheme == "http" && port == "80") && !(u.Scheme == "https" && port == "443") {
		host += ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""

	return u.String()
}
