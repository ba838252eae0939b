package pipeline

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/parishscope/internal/browser"
	"github.com/ppiankov/parishscope/internal/cache"
	"github.com/ppiankov/parishscope/internal/llm"
	"github.com/ppiankov/parishscope/internal/model"
	"github.com/ppiankov/parishscope/internal/score"
	"github.com/ppiankov/parishscope/internal/store"
	"github.com/ppiankov/parishscope/internal/util"
	"github.com/ppiankov/parishscope/internal/validate"
	"github.com/ppiankov/parishscope/internal/worker"
)

var _ worker.WorkSource = (*Engine)(nil)

// Runtime is a fully wired engine plus the resources it must release
type Runtime struct {
	Engine  *Engine
	Lexicon *score.Lexicon
	Limiter *worker.Limiter
	Store   *store.SQLiteStore

	manager *browser.Manager
}

// Close releases the browser and the database
func (r *Runtime) Close() error {
	var errs []error
	if r.manager != nil {
		errs = append(errs, r.manager.Close())
	}
	if r.Store != nil {
		errs = append(errs, r.Store.Close())
	}
	return errors.Join(errs...)
}

// Build assembles an Engine from configuration. Every process-wide
// safeguard (limiter, breakers, robots cache, page cache) is shared by the
// HTTP and browser fetch paths.
func Build(cfg *model.Config, logger *zap.Logger) (*Runtime, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	lexicon, err := score.Load(cfg.Lexicon.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}

	rt := &Runtime{Lexicon: lexicon}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	for host, rps := range cfg.RateLimiting.HostRates {
		limiter.SetHostRate(host, rps, 0)
	}
	rt.Limiter = limiter
	breakers := NewBreakers(cfg.Resilience.FailureThreshold, cfg.Resilience.OpenTimeout)
	pages := cache.NewPageCacheFromConfig(cfg.Cache)
	var robots *util.RobotsChecker
	if cfg.RateLimiting.RespectRobots {
		robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout,
			util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy))
	}

	wrap := func(next model.PageFetcher, rendered bool, name string) *ResilientFetcher {
		rf := NewResilientFetcher(next, rendered, cfg.Resilience, logger.Named(name))
		rf.Robots = robots
		rf.Limiter = limiter
		rf.Breakers = breakers
		rf.Cache = pages
		return rf
	}

	deps := Deps{
		Fetcher: wrap(NewHTTPFetcher(cfg.HTTP), false, "http"),
		Lexicon: lexicon,
		Logger:  logger,
	}

	if cfg.Browser.Enabled {
		rt.manager = browser.NewManager(browser.Config{
			RemoteURL:        cfg.Browser.RemoteURL,
			Headless:         cfg.Browser.Headless,
			Stealth:          cfg.Browser.Stealth,
			MaxSessions:      cfg.Browser.MaxSessions,
			NavigateTimeout:  cfg.Browser.NavigateTimeout,
			CommandTimeout:   cfg.Browser.CommandTimeout,
			SettleDelay:      cfg.Browser.SettleDelay,
			ResourceBlocking: cfg.Browser.ResourceBlocking,
			Logger:           logger.Named("browser"),
		})
		deps.Opener = rt.manager
		deps.CrawlFetcher = wrap(NewBrowserFetcher(rt.manager), true, "rendered")
	}

	classifier, err := llm.NewClassifier(llm.ConfigFromModel(cfg.Classifier, cfg.HTTP))
	if err != nil {
		logger.Warn("content classifier disabled", zap.Error(err))
	} else if classifier != nil {
		deps.Classifier = classifier
	}

	if cfg.Website.Check {
		deps.Checker = validate.NewWebsiteChecker(&cfg.Website, cfg.HTTP, cfg.Concurrency.Workers)
	}

	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.Store = st
		deps.Sink = st
	}

	engine, err := NewEngine(cfg, deps)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Engine = engine
	return rt, nil
}
