package model

import (
	"errors"
	"fmt"
)

var (
	// ErrClassificationAmbiguous means no pattern matched with confidence; callers fall through to generic
	ErrClassificationAmbiguous = errors.New("classification ambiguous")

	// ErrRecordRejected marks a record that failed the name/address invariant
	ErrRecordRejected = errors.New("record rejected")

	// ErrBudgetExhausted is the expected end of a crawl, not a failure
	ErrBudgetExhausted = errors.New("crawl budget exhausted")

	// ErrNoSession is returned by steps that need a live browser
	ErrNoSession = errors.New("no browser session")
)

// FetchErrorKind classifies why a fetch was refused
type FetchErrorKind string

const (
	FetchBlocked  FetchErrorKind = "blocked"   // robots.txt, 401/403/429, open breaker
	FetchTimeout  FetchErrorKind = "timeout"   // deadline or client timeout
	FetchNotFound FetchErrorKind = "not_found" // 404/410
	FetchHTTP     FetchErrorKind = "http"      // other non-2xx
	FetchNetwork  FetchErrorKind = "network"   // DNS, refused, reset
)

// FetchError is the uniform refusal surfaced by every PageFetcher
type FetchError struct {
	Kind   FetchErrorKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient reports whether retrying may help
func (e *FetchError) Transient() bool {
	switch e.Kind {
	case FetchTimeout, FetchNetwork:
		return true
	case FetchHTTP:
		return e.Status >= 500
	}
	return false
}

// IsFetchError reports whether err is a FetchError of any of the given kinds (any kind when none given)
func IsFetchError(err error, kinds ...FetchErrorKind) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if fe.Kind == k {
			return true
		}
	}
	return false
}

// ExtractionPolicyError records a strategy whose navigation failed
type ExtractionPolicyError struct {
	Strategy StrategyName
	URL      string
	Step     string
	Err      error
}

func (e *ExtractionPolicyError) Error() string {
	return fmt.Sprintf("extraction %s on %s failed at %s: %v", e.Strategy, e.URL, e.Step, e.Err)
}

func (e *ExtractionPolicyError) Unwrap() error { return e.Err }

// RejectRecord wraps ErrRecordRejected with a reason
func RejectRecord(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRecordRejected, fmt.Sprintf(format, args...))
}

// SiteFailure is surfaced to the external caller when one site keeps refusing fetches
type SiteFailure struct {
	URL      string
	Failures int
	Last     error
}

func (e *SiteFailure) Error() string {
	return fmt.Sprintf("site %s unreachable after %d fetch failures: %v", e.URL, e.Failures, e.Last)
}

func (e *SiteFailure) Unwrap() error { return e.Last }
