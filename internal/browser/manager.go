package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// Config configures the browser manager
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome. Empty launches a local one.
	RemoteURL string

	Headless bool
	Stealth  bool

	// MaxSessions bounds concurrently open tabs. Open blocks when saturated.
	MaxSessions int

	NavigateTimeout time.Duration
	CommandTimeout  time.Duration

	// SettleDelay is waited after navigation and interactions so scripts can render
	SettleDelay time.Duration

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets)
	ResourceBlocking []string

	Logger *zap.Logger
}

func (c *Config) defaults() {
	if c.MaxSessions <= 0 {
		c.MaxSessions = 4
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Manager owns one Chrome process and hands out tabs
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	slots   chan struct{}
	closed  bool
}

// NewManager creates a Manager. Chrome is launched lazily on first Open.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{
		cfg:   cfg,
		slots: make(chan struct{}, cfg.MaxSessions),
	}
}

// Open acquires a session slot, opens a tab and navigates to url
func (m *Manager) Open(ctx context.Context, url string) (Session, error) {
	select {
	case m.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	sess, err := m.open(ctx, url)
	if err != nil {
		<-m.slots
		return nil, err
	}
	return sess, nil
}

func (m *Manager) open(ctx context.Context, url string) (*RodSession, error) {
	b, err := m.ensureBrowser()
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if m.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(m.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, m.cfg.ResourceBlocking); err != nil {
			m.cfg.Logger.Warn("resource blocking failed", zap.Error(err))
		}
	}

	sess := &RodSession{
		page:    page,
		cfg:     m.cfg,
		release: func() { <-m.slots },
		owner:   true,
	}
	if err := sess.Navigate(ctx, url); err != nil {
		_ = page.Close()
		return nil, err
	}
	return sess, nil
}

func (m *Manager) ensureBrowser() (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}

	wsURL := m.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(m.cfg.Headless)
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		m.cfg.Logger.Info("launched local chrome", zap.String("url", wsURL))
	} else {
		m.cfg.Logger.Info("connecting to remote chrome", zap.String("url", wsURL))
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		m.cfg.Logger.Warn("ignore cert errors failed", zap.Error(err))
	}

	m.browser = b
	return b, nil
}

// Close shuts Chrome down
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return err
}
