// Package browser drives a real Chrome through rod for the directory
// strategies that need interaction: hover menus, search widgets, map
// popups and iframe select-all.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Session is one browser tab. Every command is bounded by a timeout and
// retried once; no command waits indefinitely.
type Session interface {
	// URL returns the current document URL
	URL() string
	// Navigate loads url and waits for the load event
	Navigate(ctx context.Context, url string) error
	// HTML returns the current serialized DOM
	HTML(ctx context.Context) (string, error)
	// Hover moves the mouse over the first element matching selector
	Hover(ctx context.Context, selector string) error
	// Click clicks the first element matching selector
	Click(ctx context.Context, selector string) error
	// Type focuses the element, replaces its value with text, and optionally presses Enter
	Type(ctx context.Context, selector, text string, submit bool) error
	// SelectAllText performs select-all and returns the selection buffer
	SelectAllText(ctx context.Context) (string, error)
	// Frame returns a session scoped to the iframe matching selector
	Frame(ctx context.Context, selector string) (Session, error)
	// Close releases the tab. Frame sessions close nothing.
	Close() error
}

// StatusReporter is implemented by sessions that observe the HTTP status of
// the main document.
type StatusReporter interface {
	StatusCode() int
}

// Opener opens sessions. Manager is the rod-backed implementation.
type Opener interface {
	Open(ctx context.Context, url string) (Session, error)
}

// ErrElementNotFound is returned when a selector matches nothing within the command timeout
var ErrElementNotFound = errors.New("browser: element not found")

// Run executes fn with a per-attempt timeout and a single retry. Context
// cancellation of the parent is never retried.
func Run(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err = fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrElementNotFound) {
			break
		}
	}
	return fmt.Errorf("browser: %s: %w", name, err)
}
