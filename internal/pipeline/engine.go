// Package pipeline wires fetchers, extraction strategies, the fact crawl
// and the sink into the two units of work a scheduler calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/parishscope/internal/browser"
	"github.com/ppiankov/parishscope/internal/crawl"
	"github.com/ppiankov/parishscope/internal/extract"
	"github.com/ppiankov/parishscope/internal/extract/adapters"
	"github.com/ppiankov/parishscope/internal/llm"
	"github.com/ppiankov/parishscope/internal/model"
	"github.com/ppiankov/parishscope/internal/score"
	"github.com/ppiankov/parishscope/internal/store"
	"github.com/ppiankov/parishscope/internal/validate"
)

// Deps are the collaborators an Engine runs with. Only Fetcher and Lexicon are required.
type Deps struct {
	// Fetcher loads directory pages, detail pages and parish sites
	Fetcher model.PageFetcher
	// CrawlFetcher overrides Fetcher for the fact crawl
	CrawlFetcher model.PageFetcher
	// Opener enables browser sessions for directory pages
	Opener     browser.Opener
	Lexicon    *score.Lexicon
	Classifier llm.Classifier
	Checker    *validate.WebsiteChecker
	Sink       store.Sink
	Logger     *zap.Logger
}

// Stats are cumulative engine counters
type Stats struct {
	Directories     int64 `json:"directories"`
	Records         int64 `json:"records"`
	Rejected        int64 `json:"rejected"`
	PolicyErrors    int64 `json:"policy_errors"`
	FactSites       int64 `json:"fact_sites"`
	SitesSkipped    int64 `json:"sites_skipped"`
	PagesFetched    int64 `json:"pages_fetched"`
	FetchErrors     int64 `json:"fetch_errors"`
	SiteFailures    int64 `json:"site_failures"`
	Facts           int64 `json:"facts"`
	PersistFailures int64 `json:"persist_failures"`
}

type counters struct {
	directories, records, rejected, policyErrors       atomic.Int64
	factSites, sitesSkipped, pagesFetched, fetchErrors atomic.Int64
	siteFailures, facts, persistFailures               atomic.Int64
}

// Engine implements the WorkSource port. It is safe for concurrent use;
// every call owns its own crawl state and browser session.
type Engine struct {
	cfg        *model.Config
	fetcher    model.PageFetcher
	opener     browser.Opener
	dispatcher *adapters.Dispatcher
	crawler    *crawl.Crawler
	classifier llm.Classifier
	checker    *validate.WebsiteChecker
	sink       store.Sink
	logger     *zap.Logger
	stats      counters
	now        func() time.Time
}

// NewEngine creates an engine from config and collaborators
func NewEngine(cfg *model.Config, deps Deps) (*Engine, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("engine: fetcher is required")
	}
	if deps.Lexicon == nil {
		return nil, fmt.Errorf("engine: lexicon is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Sink == nil {
		deps.Sink = store.Discard
	}
	crawlFetcher := deps.CrawlFetcher
	if crawlFetcher == nil {
		crawlFetcher = deps.Fetcher
	}

	return &Engine{
		cfg:        cfg,
		fetcher:    deps.Fetcher,
		opener:     deps.Opener,
		dispatcher: adapters.NewDispatcher(),
		crawler:    crawl.NewCrawler(crawlFetcher, deps.Lexicon, crawl.ConfigFromModel(cfg.Crawl), deps.Logger.Named("crawl")),
		classifier: deps.Classifier,
		checker:    deps.Checker,
		sink:       deps.Sink,
		logger:     deps.Logger,
		now:        time.Now,
	}, nil
}

// ProcessDirectory extracts every parish listed on a diocese directory
// page. The error is non-nil only when the page itself could not be loaded.
func (e *Engine) ProcessDirectory(ctx context.Context, url string) ([]model.ParishRecord, error) {
	e.stats.directories.Add(1)
	log := e.logger.With(zap.String("directory", url))

	raw, sess, err := e.loadDirectory(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.stats.fetchErrors.Add(1)
		e.stats.siteFailures.Add(1)
		log.Warn("directory page unreachable", zap.Error(err))
		return nil, &model.SiteFailure{URL: url, Failures: 1, Last: err}
	}
	if sess != nil {
		defer func() { _ = sess.Close() }()
	}

	page, err := extract.NewPage(raw)
	if err != nil {
		e.stats.policyErrors.Add(1)
		log.Warn("directory page unparseable", zap.Error(err))
		return nil, nil
	}

	env := &adapters.Env{
		Page:          page,
		Session:       sess,
		Fetcher:       e.fetcher,
		Classifier:    e.classifier,
		MinConfidence: e.cfg.Classifier.MinConfidence,
		Limits:        e.cfg.Extraction,
		Logger:        log,
	}
	res := e.dispatcher.Run(ctx, env)

	e.stats.records.Add(int64(len(res.Records)))
	e.stats.rejected.Add(int64(res.Rejected))
	if res.Err != nil {
		e.stats.policyErrors.Add(1)
	}

	for _, r := range res.Records {
		if err := e.sink.PersistParish(ctx, r); err != nil {
			e.stats.persistFailures.Add(1)
			log.Warn("persist parish failed", zap.String("id", r.ID), zap.Error(err))
		}
	}

	log.Info("directory processed",
		zap.String("pattern", res.Classification.Pattern.String()),
		zap.String("strategy", string(res.Strategy)),
		zap.Int("records", len(res.Records)),
		zap.Int("rejected", res.Rejected),
	)
	return res.Records, nil
}

// loadDirectory renders the page in a browser session when one is
// available and falls back to a plain fetch otherwise. The returned
// session, if any, belongs to the caller.
func (e *Engine) loadDirectory(ctx context.Context, url string) (*model.RenderedPage, browser.Session, error) {
	if e.opener != nil {
		sess, err := e.opener.Open(ctx, url)
		if err == nil {
			html, herr := sess.HTML(ctx)
			if herr == nil {
				e.stats.pagesFetched.Add(1)
				return &model.RenderedPage{
					RequestURL: url,
					FinalURL:   sess.URL(),
					HTML:       html,
					StatusCode: 200,
					FetchedAt:  e.now().UTC(),
					Rendered:   true,
				}, sess, nil
			}
			_ = sess.Close()
			err = herr
		}
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		e.logger.Warn("browser session failed, falling back to HTTP", zap.String("url", url), zap.Error(err))
	}

	raw, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	e.stats.pagesFetched.Add(1)
	return raw, nil, nil
}

// ProcessParishFacts crawls a parish website and returns one resolved
// fact per category. Sites that are not the parish's own (social pages,
// directory aggregators) are skipped without error. The error is non-nil
// only for a per-site failure.
func (e *Engine) ProcessParishFacts(ctx context.Context, url string) ([]model.FactRecord, error) {
	e.stats.factSites.Add(1)
	log := e.logger.With(zap.String("site", url))

	root := url
	if e.checker != nil && e.cfg.Website.Check {
		status := e.checker.Check(ctx, url)
		switch {
		case status.Class != validate.HostOwned:
			e.stats.sitesSkipped.Add(1)
			log.Info("website skipped", zap.String("class", string(status.Class)))
			return nil, nil
		case status.Dead:
			e.stats.siteFailures.Add(1)
			log.Warn("website dead", zap.Int("status", status.StatusCode), zap.String("error", status.Error))
			return nil, &model.SiteFailure{URL: url, Failures: 1, Last: errors.New(deadReason(status))}
		}
		if status.FinalURL != "" {
			root = status.FinalURL
		}
	}

	result, err := e.crawler.Crawl(ctx, root)
	if result != nil {
		e.stats.pagesFetched.Add(int64(result.Stats.Fetched))
		e.stats.fetchErrors.Add(int64(result.Stats.Failed))
	}
	if err != nil {
		var sf *model.SiteFailure
		if errors.As(err, &sf) {
			e.stats.siteFailures.Add(1)
			log.Warn("site failure", zap.Error(err))
		}
		return nil, err
	}

	facts := crawl.Resolve(result.Site, result.Candidates, e.cfg.Crawl.ConfidenceScale, e.now())
	e.stats.facts.Add(int64(len(facts)))

	for _, f := range facts {
		if err := e.sink.PersistFact(ctx, f); err != nil {
			e.stats.persistFailures.Add(1)
			log.Warn("persist fact failed", zap.String("category", string(f.Category)), zap.Error(err))
		}
	}

	log.Info("facts resolved",
		zap.Int("pages", result.Stats.Fetched),
		zap.Int("candidates", len(result.Candidates)),
		zap.Int("facts", len(facts)),
		zap.Bool("budget_exhausted", result.Stats.BudgetExhausted),
	)
	return facts, nil
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() Stats {
	return Stats{
		Directories:     e.stats.directories.Load(),
		Records:         e.stats.records.Load(),
		Rejected:        e.stats.rejected.Load(),
		PolicyErrors:    e.stats.policyErrors.Load(),
		FactSites:       e.stats.factSites.Load(),
		SitesSkipped:    e.stats.sitesSkipped.Load(),
		PagesFetched:    e.stats.pagesFetched.Load(),
		FetchErrors:     e.stats.fetchErrors.Load(),
		SiteFailures:    e.stats.siteFailures.Load(),
		Facts:           e.stats.facts.Load(),
		PersistFailures: e.stats.persistFailures.Load(),
	}
}

func deadReason(s validate.WebsiteStatus) string {
	if s.Error != "" {
		return s.Error
	}
	return fmt.Sprintf("website returned status %d", s.StatusCode)
}
