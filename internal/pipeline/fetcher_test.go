package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/parishscope/internal/model"
)

func TestHTTPFetcher_Success(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	cfg := testConfig().HTTP
	cfg.UserAgent = "parishscope-test"
	page, err := NewHTTPFetcher(cfg).Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "<html><body>OK</body></html>", page.HTML)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "text/html", page.ContentType)
	assert.Equal(t, "parishscope-test", gotUA)
	assert.False(t, page.Rendered)
	assert.False(t, page.FetchedAt.IsZero())
}

func TestHTTPFetcher_StatusKinds(t *testing.T) {
	tests := []struct {
		status    int
		kind      model.FetchErrorKind
		transient bool
	}{
		{http.StatusNotFound, model.FetchNotFound, false},
		{http.StatusGone, model.FetchNotFound, false},
		{http.StatusForbidden, model.FetchBlocked, false},
		{http.StatusTooManyRequests, model.FetchBlocked, false},
		{http.StatusServiceUnavailable, model.FetchHTTP, true},
		{http.StatusGatewayTimeout, model.FetchTimeout, true},
		{http.StatusTeapot, model.FetchHTTP, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := NewHTTPFetcher(testConfig().HTTP).Fetch(context.Background(), server.URL)

			var fe *model.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.kind, fe.Kind)
			assert.Equal(t, tt.status, fe.Status)
			assert.Equal(t, tt.transient, fe.Transient())
		})
	}
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	cfg := testConfig().HTTP
	cfg.Timeout = 20 * time.Millisecond
	_, err := NewHTTPFetcher(cfg).Fetch(context.Background(), server.URL)

	assert.True(t, model.IsFetchError(err, model.FetchTimeout), "got %v", err)
}

func TestHTTPFetcher_NetworkError(t *testing.T) {
	_, err := NewHTTPFetcher(testConfig().HTTP).Fetch(context.Background(), "http://127.0.0.1:1/")
	assert.True(t, model.IsFetchError(err, model.FetchNetwork), "got %v", err)
}

func TestHTTPFetcher_BodyCapAndRedirect(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("a", 100))
	}))
	defer final.Close()
	redirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/home", http.StatusFound)
	}))
	defer redirect.Close()

	cfg := testConfig().HTTP
	cfg.MaxBodyBytes = 10
	page, err := NewHTTPFetcher(cfg).Fetch(context.Background(), redirect.URL)

	require.NoError(t, err)
	assert.Len(t, page.HTML, 10)
	assert.Equal(t, redirect.URL, page.RequestURL)
	assert.Equal(t, final.URL+"/home", page.FinalURL)
}

func TestHTTPFetcher_RedirectCap(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	cfg := testConfig().HTTP
	cfg.MaxRedirects = 2
	_, err := NewHTTPFetcher(cfg).Fetch(context.Background(), server.URL+"/")

	assert.True(t, model.IsFetchError(err, model.FetchNetwork), "got %v", err)
}
