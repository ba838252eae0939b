package crawl

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type xmlSitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// ParseSitemap returns the page URLs of a urlset document
func ParseSitemap(body string) ([]string, error) {
	var set xmlURLSet
	if err := xml.Unmarshal([]byte(body), &set); err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}
	out := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			out = append(out, loc)
		}
	}
	return out, nil
}

// ParseSitemapIndex returns the child sitemap URLs of a sitemap index
func ParseSitemapIndex(body string) ([]string, error) {
	var index xmlSitemapIndex
	if err := xml.Unmarshal([]byte(body), &index); err != nil {
		return nil, fmt.Errorf("parse sitemap index: %w", err)
	}
	out := make([]string, 0, len(index.Sitemaps))
	for _, s := range index.Sitemaps {
		if loc := strings.TrimSpace(s.Loc); loc != "" {
			out = append(out, loc)
		}
	}
	return out, nil
}

// sitemapURLs reads /sitemap.xml and at most one level of sitemap index.
// Missing or malformed sitemaps yield nothing; every fetch is charged to
// the crawl budget.
func (c *Crawler) sitemapURLs(ctx context.Context, root *url.URL, state *State) []string {
	if c.cfg.MaxSitemapURLs <= 0 {
		return nil
	}

	loc := root.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()
	body, ok := c.fetchSitemap(ctx, loc, state)
	if !ok {
		return nil
	}

	docs := []string{body}
	if strings.Contains(body, "<sitemapindex") {
		children, err := ParseSitemapIndex(body)
		if err != nil {
			c.logger.Debug("sitemap index unreadable", zap.String("url", loc), zap.Error(err))
			return nil
		}
		docs = docs[:0]
		for _, child := range children {
			if len(docs) >= maxChildSitemaps {
				break
			}
			if b, ok := c.fetchSitemap(ctx, child, state); ok {
				docs = append(docs, b)
			}
		}
	}

	var out []string
	for _, doc := range docs {
		urls, err := ParseSitemap(doc)
		if err != nil {
			c.logger.Debug("sitemap unreadable", zap.Error(err))
			continue
		}
		for _, u := range urls {
			if len(out) >= c.cfg.MaxSitemapURLs {
				return out
			}
			out = append(out, u)
		}
	}
	return out
}

// maxChildSitemaps bounds how many children of an index are read
const maxChildSitemaps = 5

func (c *Crawler) fetchSitemap(ctx context.Context, loc string, state *State) (string, bool) {
	if !state.Spend() {
		return "", false
	}
	page, err := c.fetcher.Fetch(ctx, loc)
	if err != nil {
		c.logger.Debug("no sitemap", zap.String("url", loc), zap.Error(err))
		return "", false
	}
	return page.HTML, true
}
