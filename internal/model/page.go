package model

import (
	"context"
	"time"
)

// RenderedPage is a fetched document, rendered by a browser or read over HTTP
type RenderedPage struct {
	RequestURL  string    `json:"request_url"`
	FinalURL    string    `json:"final_url"`
	HTML        string    `json:"html"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
	Rendered    bool      `json:"rendered"`
}

// URL returns the final URL when known
func (p *RenderedPage) URL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.RequestURL
}

// PageFetcher retrieves a URL. Refusals surface as *FetchError.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*RenderedPage, error)
}

// PageFetcherFunc adapts a function to PageFetcher
type PageFetcherFunc func(ctx context.Context, rawURL string) (*RenderedPage, error)

// Fetch calls f
func (f PageFetcherFunc) Fetch(ctx context.Context, rawURL string) (*RenderedPage, error) {
	return f(ctx, rawURL)
}
