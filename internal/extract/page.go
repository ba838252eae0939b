// Package extract inspects fetched directory pages: DOM access, visible
// text, links, field parsing and listing-pattern classification.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/parishscope/internal/model"
)

// Page is a parsed document with its base URL
type Page struct {
	Raw  *model.RenderedPage
	Base *url.URL
	Doc  *goquery.Document

	text        string
	contentText string
}

// NewPage parses a fetched page
func NewPage(raw *model.RenderedPage) (*Page, error) {
	if raw == nil {
		return nil, fmt.Errorf("nil page")
	}

	base, err := url.Parse(raw.URL())
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", raw.URL(), err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", raw.URL(), err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	return &Page{Raw: raw, Base: base, Doc: doc}, nil
}

// ParseHTML builds a Page from a URL and markup, mostly for fixtures
func ParseHTML(rawURL, html string) (*Page, error) {
	return NewPage(&model.RenderedPage{RequestURL: rawURL, HTML: html, StatusCode: 200})
}

// URL returns the page URL
func (p *Page) URL() string {
	return p.Raw.URL()
}

// Host returns the lowercased page host
func (p *Page) Host() string {
	return strings.ToLower(p.Base.Hostname())
}

// Text returns the visible text of the whole document, one block per line
func (p *Page) Text() string {
	if p.text == "" {
		p.text = VisibleText(p.Doc.Selection)
	}
	return p.text
}

// siteChrome is repeated on every page of a site and says nothing about the page itself
const siteChrome = "nav, header, footer, [role=navigation], [role=banner], [role=contentinfo]"

// ContentText is Text without site navigation, headers and footers. A page
// made only of chrome falls back to the full text.
func (p *Page) ContentText() string {
	if p.contentText == "" {
		body := p.Doc.Selection.Clone()
		body.Find(siteChrome).Remove()
		p.contentText = VisibleText(body)
		if strings.TrimSpace(p.contentText) == "" {
			p.contentText = p.Text()
		}
	}
	return p.contentText
}

// Resolve turns href into an absolute http(s) URL, or "" when it is not navigable
func (p *Page) Resolve(href string) string {
	return resolveURL(p.Base, href)
}

// SameHost reports whether rawURL is on the page host
func (p *Page) SameHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return SameSite(p.Host(), u.Hostname())
}

// SameSite compares hosts ignoring case and a leading www.
func SameSite(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	return a != "" && a == b
}
