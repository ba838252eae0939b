package adapters

import (
	"context"
	"fmt"
	"testing"

	"github.com/ppiankov/parishscope/internal/browser"
	"github.com/ppiankov/parishscope/internal/extract"
	"github.com/ppiankov/parishscope/internal/llm"
	"github.com/ppiankov/parishscope/internal/model"
	"github.com/stretchr/testify/require"
)

// fakeSession serves a fixed sequence of DOM snapshots; every click or
// navigation advances to the next one.
type fakeSession struct {
	url       string
	pages     []string
	cur       int
	frames    map[string]*fakeSession
	selectAll string
	hoverHTML string

	typed  []string
	clicks []string
}

func (s *fakeSession) URL() string { return s.url }

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.url = url
	s.advance()
	return nil
}

func (s *fakeSession) HTML(ctx context.Context) (string, error) {
	if len(s.pages) == 0 {
		return "", fmt.Errorf("no page")
	}
	return s.pages[s.cur], nil
}

func (s *fakeSession) Hover(ctx context.Context, selector string) error {
	if s.hoverHTML != "" {
		s.pages[s.cur] = s.hoverHTML
	}
	return nil
}

func (s *fakeSession) Click(ctx context.Context, selector string) error {
	s.clicks = append(s.clicks, selector)
	s.advance()
	return nil
}

func (s *fakeSession) Type(ctx context.Context, selector, text string, submit bool) error {
	s.typed = append(s.typed, selector+"="+text)
	return nil
}

func (s *fakeSession) SelectAllText(ctx context.Context) (string, error) {
	return s.selectAll, nil
}

func (s *fakeSession) Frame(ctx context.Context, selector string) (browser.Session, error) {
	if f, ok := s.frames[selector]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
}

func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) advance() {
	if s.cur < len(s.pages)-1 {
		s.cur++
	}
}

// siteFetcher serves fixture pages by URL
func siteFetcher(pages map[string]string) model.PageFetcher {
	return model.PageFetcherFunc(func(ctx context.Context, rawURL string) (*model.RenderedPage, error) {
		html, ok := pages[rawURL]
		if !ok {
			return nil, &model.FetchError{Kind: model.FetchNotFound, URL: rawURL, Status: 404}
		}
		return &model.RenderedPage{RequestURL: rawURL, HTML: html, StatusCode: 200}, nil
	})
}

type fakeClassifier func(text, question string) llm.Label

func (f fakeClassifier) Name() string                   { return "fake" }
func (f fakeClassifier) Ping(ctx context.Context) error { return nil }
func (f fakeClassifier) Classify(ctx context.Context, text, question string) (llm.Label, error) {
	return f(text, question), nil
}

func newEnv(t *testing.T, rawURL, html string) *Env {
	t.Helper()
	page, err := extract.ParseHTML(rawURL, html)
	require.NoError(t, err)
	return &Env{
		Page:          page,
		MinConfidence: 0.6,
		Limits: model.ExtractionConfig{
			MaxSearchPages:    25,
			FollowDetailPages: true,
			MaxDetailPages:    10,
			MaxMapMarkers:     100,
			HoverPenalty:      10,
		},
	}
}

const directoryURL = "https://diocese.example.org/parishes"

const tableFixture = `<html><body>
<h1>Parish Directory</h1>
<table>
  <thead><tr><th>Name</th><th>Address</th><th>City</th><th>Phone</th></tr></thead>
  <tbody>
    <tr><td>St. Anne</td><td>1 Church Rd</td><td>Alton</td><td>618-555-0101</td></tr>
    <tr><td>St. Paul</td><td>22 River Dr</td><td>Bethalto</td><td>618-555-0102</td></tr>
    <tr><td>Our Lady of Lourdes</td><td>300 Hill Ave</td><td>Godfrey</td><td>618-555-0103</td></tr>
  </tbody>
</table>
</body></html>`
