package pipeline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ppiankov/parishscope/internal/browser"
	"github.com/ppiankov/parishscope/internal/model"
)

// BrowserFetcher renders pages in a browser tab so script-built parish
// sites expose their schedule text. Each fetch opens and closes one tab.
type BrowserFetcher struct {
	opener browser.Opener
	now    func() time.Time
}

// NewBrowserFetcher creates a fetcher over opener
func NewBrowserFetcher(opener browser.Opener) *BrowserFetcher {
	return &BrowserFetcher{opener: opener, now: time.Now}
}

// Fetch opens rawURL and returns the rendered DOM
func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*model.RenderedPage, error) {
	sess, err := f.opener.Open(ctx, rawURL)
	if err != nil {
		return nil, browserFetchError(rawURL, err)
	}
	defer func() { _ = sess.Close() }()

	status := http.StatusOK
	if sr, ok := sess.(browser.StatusReporter); ok && sr.StatusCode() > 0 {
		status = sr.StatusCode()
	}
	if kind, bad := statusKind(status); bad && status >= 400 {
		return nil, &model.FetchError{Kind: kind, URL: rawURL, Status: status}
	}

	html, err := sess.HTML(ctx)
	if err != nil {
		return nil, browserFetchError(rawURL, err)
	}

	return &model.RenderedPage{
		RequestURL:  rawURL,
		FinalURL:    sess.URL(),
		HTML:        html,
		StatusCode:  status,
		ContentType: "text/html",
		FetchedAt:   f.now().UTC(),
		Rendered:    true,
	}, nil
}

func browserFetchError(rawURL string, err error) *model.FetchError {
	var fe *model.FetchError
	if errors.As(err, &fe) {
		return fe
	}
	kind := model.FetchNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = model.FetchTimeout
	}
	return &model.FetchError{Kind: kind, URL: rawURL, Err: err}
}
