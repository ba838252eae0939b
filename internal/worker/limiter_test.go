package worker

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}

	l3 := NewLimiter(0, 1)
	if l3.defaultRate != rate.Inf {
		t.Errorf("expected unlimited rate for 0 rps, got %v", l3.defaultRate)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://stanne.org/mass"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "http://stpaul.org"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "/relative"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestLimiter_PerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !limiter.Allow("http://stanne.org/") {
		t.Error("first request should pass")
	}
	if limiter.Allow("http://STANNE.org/schedule") {
		t.Error("second request to the same host should be throttled")
	}
	if !limiter.Allow("http://stpaul.org/") {
		t.Error("other host should pass")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetHostRate("Slow.org", 0.1, 1)

	if !limiter.Allow("http://slow.org") {
		t.Error("first request should pass")
	}
	if limiter.Allow("http://slow.org") {
		t.Error("second request should fail")
	}
	if !limiter.Allow("http://fast.org") {
		t.Error("other host should pass")
	}
}

func TestLimiter_ApplyCrawlDelay(t *testing.T) {
	limiter := NewLimiter(10, 5)
	u := "https://stanne.org/"

	limiter.ApplyCrawlDelay(u, 2*time.Second)
	if got := limiter.Rate(u); got != rate.Every(2*time.Second) {
		t.Errorf("expected rate %v, got %v", rate.Every(2*time.Second), got)
	}

	// a looser delay never speeds the host back up
	limiter.ApplyCrawlDelay(u, 100*time.Millisecond)
	if got := limiter.Rate(u); got != rate.Every(2*time.Second) {
		t.Errorf("expected rate unchanged, got %v", got)
	}

	if got := limiter.Rate("https://stpaul.org/"); got != 10 {
		t.Errorf("expected default rate for other host, got %v", got)
	}
}

func TestHostKey(t *testing.T) {
	host, err := hostKey("http://Diocese.Example.org:8080/parishes")
	if err != nil {
		t.Fatalf("hostKey failed: %v", err)
	}
	if host != "diocese.example.org:8080" {
		t.Errorf("expected diocese.example.org:8080, got %s", host)
	}

	if _, err := hostKey("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestLimiter_SetHostRateZeroLiftsLimit(t *testing.T) {
	limiter := NewLimiter(0.1, 1)
	limiter.SetHostRate("open.org", 0, 0)

	for i := 0; i < 5; i++ {
		if !limiter.Allow("http://open.org/page") {
			t.Fatalf("request %d should pass on an unlimited host", i)
		}
	}
}
