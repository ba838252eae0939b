package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func robotsServer(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRobotsChecker_Disallow(t *testing.T) {
	srv := robotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /admin\nCrawl-delay: 2\n", nil)
	rc := NewRobotsChecker("parishscope/1.0 (+https://example.org)", 5*time.Second, nil)

	allowed, delay, err := rc.CanFetch(context.Background(), srv.URL+"/mass-times")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2*time.Second, delay)

	allowed, _, err = rc.CanFetch(context.Background(), srv.URL+"/admin/login")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRobotsChecker_AgentSpecificGroup(t *testing.T) {
	srv := robotsServer(t, http.StatusOK, "User-agent: parishscope\nDisallow: /\n\nUser-agent: *\nAllow: /\n", nil)
	rc := NewRobotsChecker("parishscope/1.0", 5*time.Second, nil)

	assert.False(t, rc.IsAllowed(context.Background(), srv.URL+"/schedule"))
}

func TestRobotsChecker_MissingAllowsAll(t *testing.T) {
	srv := robotsServer(t, http.StatusNotFound, "", nil)
	rc := NewRobotsChecker("parishscope/1.0", 5*time.Second, nil)

	assert.True(t, rc.IsAllowed(context.Background(), srv.URL+"/anything"))
}

func TestRobotsChecker_CachesPerHost(t *testing.T) {
	var hits int32
	srv := robotsServer(t, http.StatusOK, "User-agent: *\nDisallow:\n", &hits)
	rc := NewRobotsChecker("parishscope/1.0", 5*time.Second, nil)

	for _, p := range []string{"/", "/a", "/b"} {
		assert.True(t, rc.IsAllowed(context.Background(), srv.URL+p))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	rc.Clear()
	rc.IsAllowed(context.Background(), srv.URL+"/")
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	rc := NewRobotsChecker("parishscope/1.0", 500*time.Millisecond, nil)

	allowed, delay, err := rc.CanFetch(context.Background(), "http://127.0.0.1:1/page")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, delay)
}

func TestRobotsChecker_InvalidURL(t *testing.T) {
	rc := NewRobotsChecker("parishscope/1.0", time.Second, nil)

	_, _, err := rc.CanFetch(context.Background(), "/relative/only")
	assert.Error(t, err)
}

func TestNormalizeUserAgent(t *testing.T) {
	assert.Equal(t, "parishscope", NormalizeUserAgent("parishscope/1.0 (+https://example.org)"))
	assert.Equal(t, "Mozilla", NormalizeUserAgent("Mozilla/5.0 (X11; Linux x86_64)"))
	assert.Equal(t, "", NormalizeUserAgent(""))
}
