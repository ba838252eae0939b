package pipeline

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ppiankov/parishscope/internal/cache"
	"github.com/ppiankov/parishscope/internal/model"
	"github.com/ppiankov/parishscope/internal/util"
	"github.com/ppiankov/parishscope/internal/worker"
)

// ErrRobotsDisallowed is wrapped in the FetchError for URLs robots.txt forbids
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// ResilientFetcher wraps a PageFetcher with the politeness and fault
// handling every component relies on: page cache, robots.txt, per-host
// rate limit, per-host circuit breaker and retry of transient failures.
// All parts are optional and safe for concurrent use.
type ResilientFetcher struct {
	next     model.PageFetcher
	rendered bool

	Robots   *util.RobotsChecker
	Limiter  *worker.Limiter
	Breakers *Breakers
	Cache    *cache.PageCache

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *zap.Logger
}

// NewResilientFetcher wraps next. rendered marks pages from a browser so
// they are cached apart from plain HTTP copies.
func NewResilientFetcher(next model.PageFetcher, rendered bool, cfg model.ResilienceConfig, logger *zap.Logger) *ResilientFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff < initial {
		maxBackoff = initial
	}
	return &ResilientFetcher{
		next:           next,
		rendered:       rendered,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: initial,
		maxBackoff:     maxBackoff,
		logger:         logger,
	}
}

// Fetch retrieves rawURL through every configured safeguard
func (f *ResilientFetcher) Fetch(ctx context.Context, rawURL string) (*model.RenderedPage, error) {
	if f.Cache != nil {
		if page, ok := f.Cache.Get(rawURL, f.rendered); ok {
			return page, nil
		}
	}

	host := hostOf(rawURL)
	if host == "" {
		return nil, &model.FetchError{Kind: model.FetchNetwork, URL: rawURL, Err: errors.New("missing host")}
	}

	if f.Robots != nil {
		allowed, delay, err := f.Robots.CanFetch(ctx, rawURL)
		if err == nil && !allowed {
			return nil, &model.FetchError{Kind: model.FetchBlocked, URL: rawURL, Err: ErrRobotsDisallowed}
		}
		if f.Limiter != nil && delay > 0 {
			f.Limiter.ApplyCrawlDelay(rawURL, delay)
		}
	}

	if f.Breakers != nil && !f.Breakers.Allow(host) {
		return nil, &model.FetchError{Kind: model.FetchBlocked, URL: rawURL, Err: ErrCircuitOpen}
	}

	var page *model.RenderedPage
	attempts := 0
	op := func() error {
		attempts++
		if f.Limiter != nil {
			if err := f.Limiter.Wait(ctx, rawURL); err != nil {
				return backoff.Permanent(&model.FetchError{Kind: model.FetchTimeout, URL: rawURL, Err: err})
			}
		}
		p, err := f.next.Fetch(ctx, rawURL)
		if err != nil {
			var fe *model.FetchError
			if errors.As(err, &fe) && fe.Transient() && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		page = p
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(f.policy(), ctx))
	f.record(host, err)

	if err != nil {
		if !model.IsFetchError(err) {
			err = classifyTransportError(rawURL, err)
		}
		f.logger.Debug("fetch failed",
			zap.String("url", rawURL),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return nil, err
	}

	if f.Cache != nil {
		if cerr := f.Cache.Put(page); cerr != nil {
			f.logger.Debug("page cache write failed", zap.String("url", rawURL), zap.Error(cerr))
		}
	}
	return page, nil
}

func (f *ResilientFetcher) policy() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.initialBackoff
	eb.MaxInterval = f.maxBackoff
	eb.MaxElapsedTime = 0
	if f.maxRetries <= 0 {
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(eb, uint64(f.maxRetries))
}

// record feeds the breaker. Missing pages and robots refusals say nothing
// about the host's health and count as success.
func (f *ResilientFetcher) record(host string, err error) {
	if f.Breakers == nil {
		return
	}
	var fe *model.FetchError
	switch {
	case err == nil:
		f.Breakers.Success(host)
	case errors.Is(err, context.Canceled):
	case errors.As(err, &fe) && (fe.Kind == model.FetchNotFound || errors.Is(fe, ErrRobotsDisallowed)):
		f.Breakers.Success(host)
	default:
		f.Breakers.Failure(host)
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
