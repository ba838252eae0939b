package pipeline

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ppiankov/parishscope/internal/model"
	"github.com/ppiankov/parishscope/internal/util"
)

// HTTPFetcher reads pages over plain HTTP. It never runs scripts.
type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	now        func() time.Time
}

// NewHTTPFetcher creates an HTTPFetcher from the HTTP config
func NewHTTPFetcher(cfg model.HTTPConfig) *HTTPFetcher {
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 5
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 4_000_000
	}

	transport := &http.Transport{
		Proxy:               util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for misconfigured parish sites
	}

	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		now:       time.Now,
	}
}

// Fetch retrieves rawURL. Non-2xx responses and transport failures become *model.FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*model.RenderedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &model.FetchError{Kind: model.FetchNetwork, URL: rawURL, Err: err}
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if kind, refused := statusKind(resp.StatusCode); refused {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &model.FetchError{Kind: kind, URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, classifyTransportError(rawURL, err)
	}

	return &model.RenderedPage{
		RequestURL:  rawURL,
		FinalURL:    resp.Request.URL.String(),
		HTML:        string(body),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   f.now().UTC(),
	}, nil
}

// statusKind maps a response status to a refusal kind
func statusKind(status int) (model.FetchErrorKind, bool) {
	switch {
	case status >= 200 && status < 300:
		return "", false
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return model.FetchBlocked, true
	case status == http.StatusNotFound, status == http.StatusGone:
		return model.FetchNotFound, true
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return model.FetchTimeout, true
	default:
		return model.FetchHTTP, true
	}
}

func classifyTransportError(rawURL string, err error) *model.FetchError {
	kind := model.FetchNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = model.FetchTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = model.FetchTimeout
	}
	return &model.FetchError{Kind: kind, URL: rawURL, Err: err}
}
