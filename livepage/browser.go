// Package livepage runs the notice panel inside a real Chrome tab: it
// launches the browser, injects the panel shell and a mutation observer,
// and routes page events to a panel.Controller.
package livepage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// BrowserConfig configures the Manager.
type BrowserConfig struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome. Empty
	// launches a local one.
	RemoteURL string
	// Headful shows the browser window of a local launch.
	Headful bool
	// NavigateTimeout bounds page loads. Default: 30s.
	NavigateTimeout time.Duration
	Logger          *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the Chrome process.
type Manager struct {
	cfg     BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager returns a Manager. Call Start before opening tabs.
func NewManager(cfg BrowserConfig) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches or connects to Chrome.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("livepage: manager is closed")
	}
	if m.browser != nil {
		return nil
	}
	log := m.cfg.Logger

	wsURL := m.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(!m.cfg.Headful).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return fmt.Errorf("livepage: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("livepage: launched local chrome", "url", wsURL, "headful", m.cfg.Headful)
	} else {
		log.Info("livepage: connecting to remote chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		m.cleanupLocked()
		return fmt.Errorf("livepage: connect: %w", err)
	}
	m.browser = b
	return nil
}

// OpenTab opens a stealth tab on pageURL and waits for it to load.
func (m *Manager) OpenTab(ctx context.Context, pageURL string) (*rod.Page, error) {
	m.mu.Lock()
	b := m.browser
	m.mu.Unlock()
	if b == nil {
		return nil, fmt.Errorf("livepage: browser not started")
	}

	p, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("livepage: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavigateTimeout)
	defer cancel()
	if err := p.Context(navCtx).Navigate(pageURL); err != nil {
		p.Close()
		return nil, fmt.Errorf("livepage: navigate %s: %w", pageURL, err)
	}
	if err := p.Context(navCtx).WaitLoad(); err != nil {
		m.cfg.Logger.Warn("livepage: wait load timeout", "url", pageURL, "error", err)
	}
	// Detach the navigation deadline from the returned page.
	return p.Context(ctx), nil
}

// Close shuts Chrome down.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cleanupLocked()
	return nil
}

func (m *Manager) cleanupLocked() {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
}
