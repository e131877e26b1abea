package livepage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/noticepanel/bridge"
	"github.com/hazyhaar/noticepanel/notice"
	"github.com/hazyhaar/noticepanel/page"
	"github.com/hazyhaar/noticepanel/page/rodpage"
	"github.com/hazyhaar/noticepanel/panel"
)

//go:embed observer.js
var observerJS string

const bindingName = "__noticepanel_event"

// panelCSS keeps relocated notices out of the flow and hides the closed panel.
const panelCSS = `.` + page.HiddenClass + `{display:none!important}` +
	`#` + panel.PanelID + `[aria-hidden="true"]{display:none}` +
	`.` + notice.HighlightClass + `{outline:2px solid #d63638;outline-offset:2px}`

// SessionConfig wires a Session.
type SessionConfig struct {
	// Bootstrap supplies settings, labels and dismissed ids. Nil uses the
	// built-in defaults.
	Bootstrap *bridge.Bootstrap
	// Persister receives dismissal changes; nil keeps them local.
	Persister panel.Persister
	// Renderer gets every view in addition to the page itself.
	Renderer panel.Renderer
	// Root is the monitored region. Default: page.DefaultRoot.
	Root string
	// HighlightDuration is passed to the controller.
	HighlightDuration time.Duration
	Logger            *slog.Logger
}

// Session is a mounted panel on a live tab.
type Session struct {
	page   *rod.Page
	c      *panel.Controller
	focus  *pageFocus
	logger *slog.Logger
	cancel context.CancelFunc
	once   sync.Once
}

type pageEvent struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	ID     string `json:"id,omitempty"`
	Value  string `json:"value,omitempty"`
	panel.KeyEvent
}

// Attach injects the panel into p and mounts a controller on it.
func Attach(ctx context.Context, p *rod.Page, cfg SessionConfig) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Root == "" {
		cfg.Root = page.DefaultRoot
	}
	boot := cfg.Bootstrap
	if boot == nil {
		boot = &bridge.Bootstrap{I18n: bridge.DefaultI18n(), Settings: bridge.DefaultSettings()}
	}

	doc := rodpage.New(p)
	if !doc.Exists(panel.PanelSelector) {
		shell, err := panel.ShellHTML(boot.I18n, boot.Settings)
		if err != nil {
			return nil, err
		}
		_, err = p.Eval(`(html, css) => {
			const style = document.createElement('style');
			style.textContent = css;
			document.head.appendChild(style);
			document.body.insertAdjacentHTML('beforeend', html);
		}`, shell, panelCSS)
		if err != nil {
			return nil, fmt.Errorf("livepage: inject shell: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{page: p, focus: &pageFocus{page: p}, logger: cfg.Logger, cancel: cancel}

	renderer := panel.DOMRenderer(doc)
	if cfg.Renderer != nil {
		renderer = panel.Multi(renderer, cfg.Renderer)
	}
	c, err := panel.Mount(ctx, panel.Config{
		Document:  doc,
		Focus:     s.focus,
		Frames:    panel.TimerFrames{},
		Renderer:  renderer,
		Persister: cfg.Persister,
		Settings:  boot.Settings,
		I18n:      boot.I18n,
		Dismissed: boot.Dismissed,
		Root:      cfg.Root,
		Logger:    cfg.Logger,

		HighlightDuration: cfg.HighlightDuration,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	s.c = c

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(p); err != nil {
		cfg.Logger.Warn("livepage: addBinding failed (may already exist)", "error", err)
	}
	go s.listen(ctx)

	if _, err := p.Eval(observerJS, cfg.Root, bindingName); err != nil {
		s.Close()
		return nil, fmt.Errorf("livepage: inject observer: %w", err)
	}
	cfg.Logger.Info("livepage: panel attached", "notices", c.ActiveCount())
	return s, nil
}

// Controller returns the mounted controller.
func (s *Session) Controller() *panel.Controller { return s.c }

// Close stops listening and unmounts the controller. The tab stays open.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		if s.c != nil {
			s.c.Unmount()
		}
	})
}

func (s *Session) listen(ctx context.Context) {
	s.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		var ev pageEvent
		if err := json.Unmarshal([]byte(e.Payload), &ev); err != nil {
			s.logger.Warn("livepage: bad event payload", "error", err)
			return
		}
		if err := s.dispatch(ev); err != nil {
			s.logger.Debug("livepage: event", "type", ev.Type, "action", ev.Action, "error", err)
		}
	})()
}

func (s *Session) dispatch(ev pageEvent) error {
	c := s.c
	switch ev.Type {
	case "mutation":
		c.NotifyMutation()
	case "key":
		// The page already prevented the default, so moves the controller
		// leaves alone are performed here.
		if !c.HandleKey(ev.KeyEvent) && ev.Key == "Tab" && c.IsOpen() {
			s.focus.step(ev.Shift)
		}
	case "action":
		return s.action(ev)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

func (s *Session) action(ev pageEvent) error {
	c := s.c
	switch ev.Action {
	case "trigger":
		c.Toggle()
	case "close":
		c.Close()
	case "filter":
		f, err := notice.ParseFilter(ev.Value)
		if err != nil {
			return err
		}
		c.SetFilter(f)
	case "search":
		c.SetSearch(ev.Value)
	case "toggle":
		_, err := c.ToggleDismissed(ev.ID)
		return err
	case "reveal":
		return c.Reveal(ev.ID)
	case "bulk":
		switch ev.Value {
		case "read":
			c.MarkAllRead()
		case "unread":
			c.MarkAllUnread()
		case "toggle-archived":
			c.ToggleShowDismissed()
		default:
			return fmt.Errorf("unknown bulk action %q", ev.Value)
		}
	default:
		return errors.New("unknown action " + ev.Action)
	}
	return nil
}
