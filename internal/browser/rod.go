package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// selectAllJS selects the whole document and returns what the browser put
// in the selection buffer, which is what a user would copy.
const selectAllJS = `() => {
	const sel = window.getSelection();
	sel.removeAllRanges();
	document.execCommand('selectAll', false, null);
	const text = sel.toString();
	sel.removeAllRanges();
	return text;
}`

// RodSession is a Session backed by a rod page
type RodSession struct {
	page    *rod.Page
	cfg     Config
	release func()
	owner   bool
	status  int
}

// StatusCode returns the HTTP status of the last navigated document, or 0
// when the browser did not report one.
func (s *RodSession) StatusCode() int { return s.status }

// URL returns the current page URL
func (s *RodSession) URL() string {
	info, err := s.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

// Navigate loads url and waits for the load event plus the settle delay
func (s *RodSession) Navigate(ctx context.Context, url string) error {
	s.status = 0
	err := Run(ctx, s.cfg.NavigateTimeout, "navigate", func(ctx context.Context) error {
		p := s.page.Context(ctx)
		watchCtx, stop := context.WithCancel(ctx)
		defer stop()
		statusCh := make(chan int, 1)
		wait := s.page.Context(watchCtx).EachEvent(func(e *proto.NetworkResponseReceived) bool {
			if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
				return false
			}
			statusCh <- e.Response.Status
			return true
		})
		go wait()

		if err := p.Navigate(url); err != nil {
			return err
		}
		if err := p.WaitLoad(); err != nil {
			return err
		}
		select {
		case code := <-statusCh:
			s.status = code
		default:
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.settle(ctx)
}

// HTML returns the serialized DOM
func (s *RodSession) HTML(ctx context.Context) (string, error) {
	var html string
	err := Run(ctx, s.cfg.CommandTimeout, "html", func(ctx context.Context) error {
		h, err := s.page.Context(ctx).HTML()
		html = h
		return err
	})
	return html, err
}

// Hover moves the mouse over selector
func (s *RodSession) Hover(ctx context.Context, selector string) error {
	err := Run(ctx, s.cfg.CommandTimeout, "hover "+selector, func(ctx context.Context) error {
		el, err := s.element(ctx, selector)
		if err != nil {
			return err
		}
		return el.Hover()
	})
	if err != nil {
		return err
	}
	return s.settle(ctx)
}

// Click clicks selector
func (s *RodSession) Click(ctx context.Context, selector string) error {
	err := Run(ctx, s.cfg.CommandTimeout, "click "+selector, func(ctx context.Context) error {
		el, err := s.element(ctx, selector)
		if err != nil {
			return err
		}
		if err := el.ScrollIntoView(); err != nil {
			return err
		}
		return el.Click(proto.InputMouseButtonLeft, 1)
	})
	if err != nil {
		return err
	}
	return s.settle(ctx)
}

// Type replaces the value of selector with text
func (s *RodSession) Type(ctx context.Context, selector, text string, submit bool) error {
	err := Run(ctx, s.cfg.CommandTimeout, "type "+selector, func(ctx context.Context) error {
		el, err := s.element(ctx, selector)
		if err != nil {
			return err
		}
		if err := el.SelectAllText(); err != nil {
			return err
		}
		if err := el.Input(text); err != nil {
			return err
		}
		if submit {
			return el.Type(input.Enter)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.settle(ctx)
}

// SelectAllText returns the select-all selection buffer of the document
func (s *RodSession) SelectAllText(ctx context.Context) (string, error) {
	var text string
	err := Run(ctx, s.cfg.CommandTimeout, "select all", func(ctx context.Context) error {
		res, err := s.page.Context(ctx).Eval(selectAllJS)
		if err != nil {
			return err
		}
		text = res.Value.Str()
		return nil
	})
	return text, err
}

// Frame enters the iframe matching selector
func (s *RodSession) Frame(ctx context.Context, selector string) (Session, error) {
	var frame *rod.Page
	err := Run(ctx, s.cfg.CommandTimeout, "frame "+selector, func(ctx context.Context) error {
		el, err := s.element(ctx, selector)
		if err != nil {
			return err
		}
		f, err := el.Frame()
		if err != nil {
			return err
		}
		frame = f
		return f.Context(ctx).WaitLoad()
	})
	if err != nil {
		return nil, err
	}
	return &RodSession{page: frame, cfg: s.cfg}, nil
}

// Close closes the tab and frees its slot
func (s *RodSession) Close() error {
	if !s.owner {
		return nil
	}
	err := s.page.Close()
	if s.release != nil {
		s.release()
		s.release = nil
	}
	return err
}

func (s *RodSession) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
		}
		return nil, err
	}
	return el, nil
}

func (s *RodSession) settle(ctx context.Context) error {
	if s.cfg.SettleDelay <= 0 {
		return nil
	}
	t := time.NewTimer(s.cfg.SettleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
