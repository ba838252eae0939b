// Package crawl explores one parish website best-first and resolves the
// schedule facts it finds.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ppiankov/parishscope/internal/extract"
	"github.com/ppiankov/parishscope/internal/model"
	"github.com/ppiankov/parishscope/internal/score"
	"go.uber.org/zap"
)

// Config bounds one crawl
type Config struct {
	PageBudget           int
	MaxDepth             int
	MaxSitemapURLs       int
	MinPageScore         float64
	SiteFailureThreshold int
	SameHostOnly         bool
}

// ConfigFromModel converts the crawl section of the application config
func ConfigFromModel(c model.CrawlConfig) Config {
	return Config{
		PageBudget:           c.PageBudget,
		MaxDepth:             c.MaxDepth,
		MaxSitemapURLs:       c.MaxSitemapURLs,
		MinPageScore:         c.MinPageScore,
		SiteFailureThreshold: c.SiteFailureThreshold,
		SameHostOnly:         c.SameHostOnly,
	}
}

// DefaultConfig returns the documented crawl defaults
func DefaultConfig() Config {
	return ConfigFromModel(model.DefaultConfig().Crawl)
}

// Stats describe how a crawl spent its budget
type Stats struct {
	Fetched         int           `json:"fetched"`
	Failed          int           `json:"failed"`
	Enqueued        int           `json:"enqueued"`
	SitemapURLs     int           `json:"sitemap_urls"`
	Candidates      int           `json:"candidates"`
	BudgetExhausted bool          `json:"budget_exhausted"`
	Duration        time.Duration `json:"duration"`
}

// Result is everything one crawl observed
type Result struct {
	Site       string
	Candidates []model.FactCandidate
	Stats      Stats
}

// Crawler runs budgeted best-first crawls. It holds no per-crawl state and
// may be shared by concurrent Crawl calls.
type Crawler struct {
	fetcher model.PageFetcher
	lexicon *score.Lexicon
	cfg     Config
	logger  *zap.Logger
}

// NewCrawler creates a crawler over fetcher scored by lexicon
func NewCrawler(fetcher model.PageFetcher, lexicon *score.Lexicon, cfg Config, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageBudget <= 0 {
		cfg.PageBudget = 100
	}
	if cfg.SiteFailureThreshold <= 0 {
		cfg.SiteFailureThreshold = 3
	}
	return &Crawler{fetcher: fetcher, lexicon: lexicon, cfg: cfg, logger: logger}
}

// skippedExtensions never hold schedule text worth a fetch
var skippedExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
	".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".zip": true, ".mp3": true, ".mp4": true, ".mov": true, ".ics": true, ".css": true, ".js": true,
}

// Crawl explores the site at rootURL until the queue empties or the
// budget is spent, and returns every candidate that crossed MinPageScore.
// When no page at all could be fetched it returns a *model.SiteFailure
// alongside the (empty) result.
func (c *Crawler) Crawl(ctx context.Context, rootURL string) (*Result, error) {
	start := time.Now()
	root, err := url.Parse(strings.TrimSpace(rootURL))
	if err != nil || root.Host == "" {
		return nil, fmt.Errorf("invalid site URL %q", rootURL)
	}
	if root.Scheme == "" {
		root.Scheme = "https"
	}

	res := &Result{Site: SiteKey(root.String())}
	hosts := map[string]bool{strings.ToLower(root.Hostname()): true}
	state := NewState(c.cfg.PageBudget)
	log := c.logger.With(zap.String("site", res.Site))

	state.Push(root.String(), "", math.Inf(1), 0)
	for _, u := range c.sitemapURLs(ctx, root, state) {
		if !c.allowed(u, hosts) {
			continue
		}
		if state.Push(u, "", c.lexicon.LinkPriority(u, ""), 1) {
			res.Stats.SitemapURLs++
		}
	}

	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		q, ok := state.Pop()
		if !ok {
			break
		}

		raw, err := c.fetcher.Fetch(ctx, q.URL)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			res.Stats.Failed++
			lastErr = err
			log.Debug("fetch failed", zap.String("url", q.URL), zap.Error(err))

			if res.Stats.Fetched == 0 && res.Stats.Failed >= c.cfg.SiteFailureThreshold {
				break
			}
			continue
		}
		res.Stats.Fetched++

		page, err := extract.NewPage(raw)
		if err != nil {
			log.Debug("unparseable page", zap.String("url", q.URL), zap.Error(err))
			continue
		}
		if final := page.URL(); final != q.URL {
			state.MarkVisited(final)
			if q.Depth == 0 {
				// the root redirected, e.g. to www. or https
				hosts[page.Host()] = true
			}
		}

		c.score(page, res)
		if q.Depth >= c.cfg.MaxDepth && c.cfg.MaxDepth > 0 {
			continue
		}
		res.Stats.Enqueued += c.enqueue(page, q.Depth+1, hosts, state)
	}

	res.Stats.BudgetExhausted = state.Exhausted()
	res.Stats.Candidates = len(res.Candidates)
	res.Stats.Duration = time.Since(start)

	if res.Stats.BudgetExhausted {
		log.Debug("crawl stopped", zap.Error(model.ErrBudgetExhausted), zap.Int("pending", state.Pending()))
	}
	log.Info("crawl finished",
		zap.Int("fetched", res.Stats.Fetched),
		zap.Int("failed", res.Stats.Failed),
		zap.Int("candidates", res.Stats.Candidates),
		zap.Duration("duration", res.Stats.Duration),
	)

	if res.Stats.Fetched == 0 && res.Stats.Failed > 0 {
		return res, &model.SiteFailure{URL: res.Site, Failures: res.Stats.Failed, Last: lastErr}
	}
	return res, nil
}

// score records a candidate for every category that crosses MinPageScore
func (c *Crawler) score(page *extract.Page, res *Result) {
	for _, ps := range c.lexicon.ScorePage(page.ContentText()) {
		if ps.Score < c.cfg.MinPageScore {
			continue
		}
		res.Candidates = append(res.Candidates, model.FactCandidate{
			Category:  ps.Category,
			SourceURL: page.URL(),
			Snippet:   ps.Snippet,
			Score:     ps.Score,
		})
		c.logger.Debug("fact candidate",
			zap.String("url", page.URL()),
			zap.String("category", string(ps.Category)),
			zap.Float64("score", ps.Score),
			zap.Strings("matches", ps.Matches),
		)
	}
}

// enqueue scores and queues the page's unvisited in-scope links
func (c *Crawler) enqueue(page *extract.Page, depth int, hosts map[string]bool, state *State) int {
	n := 0
	for _, link := range page.Links() {
		if !c.allowed(link.URL, hosts) || state.Visited(link.URL) {
			continue
		}
		if state.Push(link.URL, link.Text, c.lexicon.LinkPriority(link.URL, link.Text), depth) {
			n++
		}
	}
	return n
}

func (c *Crawler) allowed(rawURL string, hosts map[string]bool) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if skippedExtensions[strings.ToLower(path.Ext(u.Path))] {
		return false
	}
	if !c.cfg.SameHostOnly {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for h := range hosts {
		if extract.SameSite(h, host) {
			return true
		}
	}
	return false
}

// SiteKey is the stable identity of a parish site: scheme and host
func SiteKey(rawURL string) string {
	u, err := url.Parse(extract.NormalizeURL(rawURL))
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + strings.TrimPrefix(u.Host, "www.")
}
