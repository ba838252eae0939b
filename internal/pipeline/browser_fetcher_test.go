package pipeline

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/parishscope/internal/browser"
	"github.com/ppiankov/parishscope/internal/model"
)

type stubSession struct {
	url    string
	html   string
	status int
	closed bool
}

func (s *stubSession) URL() string                                      { return s.url }
func (s *stubSession) Navigate(ctx context.Context, url string) error   { s.url = url; return nil }
func (s *stubSession) HTML(ctx context.Context) (string, error)         { return s.html, nil }
func (s *stubSession) Hover(ctx context.Context, selector string) error { return nil }
func (s *stubSession) Click(ctx context.Context, selector string) error { return nil }
func (s *stubSession) Type(ctx context.Context, selector, text string, submit bool) error {
	return nil
}
func (s *stubSession) SelectAllText(ctx context.Context) (string, error) { return s.html, nil }
func (s *stubSession) Frame(ctx context.Context, selector string) (browser.Session, error) {
	return s, nil
}
func (s *stubSession) Close() error    { s.closed = true; return nil }
func (s *stubSession) StatusCode() int { return s.status }

type stubOpener struct{ sess *stubSession }

func (o stubOpener) Open(ctx context.Context, url string) (browser.Session, error) {
	o.sess.url = url
	return o.sess, nil
}

func TestBrowserFetcher_ReportsDocumentStatus(t *testing.T) {
	sess := &stubSession{html: "<html><body>Mass 9am</body></html>", status: http.StatusOK}
	page, err := NewBrowserFetcher(stubOpener{sess}).Fetch(context.Background(), "https://stmary.org/mass")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.True(t, page.Rendered)
	assert.True(t, sess.closed)
}

func TestBrowserFetcher_MissingPages(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusGone} {
		sess := &stubSession{html: "<html><body>Page not found</body></html>", status: code}
		_, err := NewBrowserFetcher(stubOpener{sess}).Fetch(context.Background(), "https://stmary.org/old-schedule")

		require.Error(t, err, "status %d", code)
		assert.True(t, model.IsFetchError(err, model.FetchNotFound), "status %d", code)
		assert.True(t, sess.closed)
	}
}

func TestBrowserFetcher_ServerErrorStatus(t *testing.T) {
	sess := &stubSession{html: "<html></html>", status: http.StatusBadGateway}
	_, err := NewBrowserFetcher(stubOpener{sess}).Fetch(context.Background(), "https://stmary.org/")

	require.Error(t, err)
	assert.True(t, model.IsFetchError(err, model.FetchHTTP))
}

func TestBrowserFetcher_UnknownStatusDefaultsToOK(t *testing.T) {
	sess := &stubSession{html: "<html><body>Confessions</body></html>"}
	page, err := NewBrowserFetcher(stubOpener{sess}).Fetch(context.Background(), "https://stmary.org/")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
}
