package pipeline

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/parishscope/internal/model"
)

// fixtureSite serves pages by path, substituting {{base}} with the server URL.
// Status overrides let a path answer with an error code.
type fixtureSite struct {
	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	hits   map[string]int
	srv    *httptest.Server
}

func newFixtureSite(t *testing.T, pages map[string]string) *fixtureSite {
	t.Helper()
	s := &fixtureSite{pages: pages, status: map[string]int{}, hits: map[string]int{}}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		code, forced := s.status[r.URL.Path]
		s.mu.Unlock()

		if forced {
			w.WriteHeader(code)
			return
		}
		body, ok := s.pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = io.WriteString(w, strings.ReplaceAll(body, "{{base}}", s.srv.URL))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *fixtureSite) setStatus(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[path] = code
}

func (s *fixtureSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// testConfig returns a config that never sleeps and keeps nothing on disk
func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.RateLimiting.RequestsPerSecond = 0
	cfg.Resilience.InitialBackoff = time.Millisecond
	cfg.Resilience.MaxBackoff = 2 * time.Millisecond
	cfg.Cache.Enabled = false
	cfg.Website.Timeout = 5 * time.Second
	return cfg
}

const directoryTable = `<html><body>
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

var parishSite = map[string]string{
	"/": `<html><body><h1>Welcome to Saint Mary Parish</h1>
<a href="/about">About</a> <a href="/schedule">Schedule</a></body></html>`,
	"/about":    `<html><body><p>Our community was founded in 1901.</p><a href="/">Home</a></body></html>`,
	"/schedule": `<html><body><h1>Schedule</h1><p>Confessions: Saturdays 3-4pm</p></body></html>`,
}
