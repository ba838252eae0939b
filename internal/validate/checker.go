// Package validate checks parish websites before they are crawled.
package validate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/parishscope/internal/model"
	"github.com/ppiankov/parishscope/internal/util"
)

const checkMaxRetries = 3

// checkSleepFunc is the sleep function used between retries (injectable for tests)
var checkSleepFunc = time.Sleep

// WebsiteStatus is the outcome of one website check
type WebsiteStatus struct {
	URL        string    `json:"url"`
	FinalURL   string    `json:"final_url,omitempty"`
	Class      HostClass `json:"class"`
	Live       bool      `json:"live"`
	Dead       bool      `json:"dead"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Crawlable reports whether a fact crawl should run against the site
func (s WebsiteStatus) Crawlable() bool {
	return s.Live && s.Class == HostOwned
}

// WebsiteChecker classifies a parish website host and probes its liveness
type WebsiteChecker struct {
	httpClient *http.Client
	userAgent  string
	hosts      *HostClassifier
	maxWorkers int
}

// NewWebsiteChecker creates a checker sharing the fetcher's proxy settings
func NewWebsiteChecker(cfg *model.WebsiteConfig, httpCfg model.HTTPConfig, maxWorkers int) *WebsiteChecker {
	timeout := 10 * time.Second
	if cfg != nil && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	if maxWorkers <= 0 {
		maxWorkers = 8
	}

	return &WebsiteChecker{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		userAgent:  httpCfg.UserAgent,
		hosts:      NewHostClassifier(cfg),
		maxWorkers: maxWorkers,
	}
}

// Check classifies the host and, for owned hosts, probes liveness. A
// redirect to a social or aggregator host reclassifies the site.
func (c *WebsiteChecker) Check(ctx context.Context, rawURL string) WebsiteStatus {
	status := WebsiteStatus{URL: rawURL, Class: c.hosts.Classify(rawURL)}
	if status.Class != HostOwned {
		return status
	}

	for attempt := 0; attempt < checkMaxRetries; attempt++ {
		status = c.probe(ctx, rawURL)
		if !retryable(status) || ctx.Err() != nil {
			break
		}
		if attempt < checkMaxRetries-1 {
			checkSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}

	if status.FinalURL != "" {
		status.Class = c.hosts.Classify(status.FinalURL)
	}
	return status
}

// CheckAll checks many websites concurrently, preserving input order
func (c *WebsiteChecker) CheckAll(ctx context.Context, urls []string) []WebsiteStatus {
	results := make([]WebsiteStatus, len(urls))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.maxWorkers)

	for i, u := range urls {
		wg.Add(1)
		go func(idx int, rawURL string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = WebsiteStatus{URL: rawURL, Class: c.hosts.Classify(rawURL), Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = c.Check(ctx, rawURL)
		}(i, u)
	}

	wg.Wait()
	return results
}

// probe sends HEAD and falls back to GET for servers that refuse HEAD
func (c *WebsiteChecker) probe(ctx context.Context, rawURL string) WebsiteStatus {
	status := WebsiteStatus{URL: rawURL, Class: HostOwned}

	resp, err := c.do(ctx, http.MethodHead, rawURL)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotImplemented) {
		_ = resp.Body.Close()
		resp, err = c.do(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		status.Error = fmt.Sprintf("request failed: %v", err)
		status.Dead = true
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	status.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		status.Live = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		status.Dead = true
	}

	if final := resp.Request.URL.String(); final != rawURL {
		status.FinalURL = final
	}
	return status
}

func (c *WebsiteChecker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

// retryable returns true for results that indicate transient failures
func retryable(s WebsiteStatus) bool {
	if s.StatusCode >= 500 && s.StatusCode < 600 {
		return true
	}
	if s.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if s.Error != "" {
		e := strings.ToLower(s.Error)
		return strings.Contains(e, "timeout") ||
			strings.Contains(e, "connection refused") ||
			strings.Contains(e, "connection reset")
	}
	return false
}
