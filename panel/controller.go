// Package panel is the notice panel controller: open and close lifecycle,
// focus handling, keyboard shortcuts, the mutation hook and the user
// actions, all driven against one owned state object.
package panel

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/noticepanel/bridge"
	"github.com/hazyhaar/noticepanel/notice"
	"github.com/hazyhaar/noticepanel/page"
)

var (
	// ErrMissingAnchors means the page lacks the panel or trigger container.
	// Callers treat it as "nothing to do".
	ErrMissingAnchors = errors.New("panel: missing panel or trigger anchor")
	// ErrUnknownNotice is returned by actions naming an id not in the store.
	ErrUnknownNotice = errors.New("panel: unknown notice")
)

// Persister sends dismissal changes to the external store.
type Persister interface {
	Dispatch(ctx context.Context, ids []string, dismissed bool) <-chan bridge.Result
}

// Config wires a Controller.
type Config struct {
	// Document is the host page. Required.
	Document page.Document
	// Focus defaults to a VirtualFocus.
	Focus FocusHost
	// Frames defaults to TimerFrames.
	Frames FrameScheduler
	// Renderer defaults to a no-op.
	Renderer Renderer
	// Persister is optional; without it dismissals stay local.
	Persister Persister

	Settings  bridge.Settings
	I18n      bridge.I18n
	Dismissed []string

	// Root is the monitored region. Default: page.DefaultRoot.
	Root string
	// HighlightDuration is how long a revealed notice stays highlighted.
	// Default: 2s.
	HighlightDuration time.Duration
	Logger            *slog.Logger
}

func (c *Config) defaults() {
	if c.Focus == nil {
		c.Focus = NewVirtualFocus("")
	}
	if c.Frames == nil {
		c.Frames = TimerFrames{}
	}
	if c.Renderer == nil {
		c.Renderer = RendererFunc(func(View) error { return nil })
	}
	if c.I18n == nil {
		c.I18n = bridge.I18n{}
	}
	if c.Root == "" {
		c.Root = page.DefaultRoot
	}
	if c.HighlightDuration <= 0 {
		c.HighlightDuration = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// KeyEvent is a keydown seen anywhere on the page.
type KeyEvent struct {
	Key   string `json:"key"`
	Code  string `json:"code,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
}

// Controller owns the panel state. All methods are safe for concurrent use;
// they serialise on one mutex which plays the part of the UI thread.
type Controller struct {
	mu      sync.Mutex
	ctx     context.Context
	cfg     Config
	scanner *page.Scanner
	store   *notice.Store
	logger  *slog.Logger

	open        bool
	criteria    notice.Criteria
	lastFocused string
	scheduled   bool
	rendered    bool
	lastCount   int
	view        View
	unmounted   bool
}

// Mount builds a controller over cfg.Document and runs the first pass.
// It returns ErrMissingAnchors when the panel or trigger is absent.
func Mount(ctx context.Context, cfg Config) (*Controller, error) {
	if cfg.Document == nil {
		return nil, errors.New("panel: nil document")
	}
	cfg.defaults()
	if !cfg.Document.Exists(PanelSelector) || !cfg.Document.Exists(TriggerSelector) {
		return nil, ErrMissingAnchors
	}

	c := &Controller{
		ctx: ctx,
		cfg: cfg,
		scanner: page.NewScanner(page.ScannerConfig{
			Root:             cfg.Root,
			Panel:            PanelSelector,
			IncludeUpdateNag: cfg.Settings.IncludeUpdateNag,
			Logger:           cfg.Logger,
		}),
		store:    notice.NewStore(cfg.Logger),
		logger:   cfg.Logger,
		criteria: notice.Criteria{Filter: notice.FilterAll},
	}
	c.store.Hydrate(cfg.Dismissed)

	c.mu.Lock()
	c.passLocked()
	c.mu.Unlock()

	c.logger.Info("panel: mounted", "notices", c.store.Len(), "active", c.store.ActiveCount())
	return c, nil
}

// Unmount stops reacting to mutations.
func (c *Controller) Unmount() {
	c.mu.Lock()
	c.unmounted = true
	c.mu.Unlock()
}

// NotifyMutation is the change callback for the page's mutation observer.
// Bursts collapse into one reconciliation per frame.
func (c *Controller) NotifyMutation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduled || c.unmounted {
		return
	}
	c.scheduled = true
	c.cfg.Frames.RequestFrame(c.runFrame)
}

func (c *Controller) runFrame() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduled = false
	if c.unmounted {
		return
	}
	c.passLocked()
}

// Refresh runs a reconciliation pass immediately.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.passLocked()
}

func (c *Controller) passLocked() {
	res := c.store.Reconcile(c.scanner.Scan(c.cfg.Document))
	c.renderLocked()
	if res.NewCritical && c.cfg.Settings.AutoOpenCritical && !c.open {
		c.logger.Info("panel: auto-open on new critical notice", "added", res.Added)
		c.openLocked()
	}
}

// IsOpen reports the panel state.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Open shows the panel and moves focus into it.
func (c *Controller) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openLocked()
}

// Close hides the panel and gives focus back.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// Toggle flips the panel state.
func (c *Controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toggleLocked()
}

func (c *Controller) toggleLocked() {
	if c.open {
		c.closeLocked()
	} else {
		c.openLocked()
	}
}

func (c *Controller) openLocked() {
	if c.open {
		return
	}
	c.open = true
	c.lastFocused = c.cfg.Focus.Active()
	if err := c.cfg.Focus.Focus(FocusPanelBody); err != nil {
		c.logger.Debug("panel: focus panel body", "error", err)
	}
	c.renderLocked()
}

func (c *Controller) closeLocked() {
	if !c.open {
		return
	}
	c.open = false
	target := FocusTrigger
	if f := c.lastFocused; f != "" && f != FocusPanelBody && c.cfg.Focus.Connected(f) {
		target = f
	}
	if err := c.cfg.Focus.Focus(target); err != nil {
		c.logger.Debug("panel: restore focus", "target", target, "error", err)
	}
	c.lastFocused = ""
	c.renderLocked()
}

// HandleKey applies the global shortcut, Escape and the focus trap. It
// reports whether the event was consumed and its default must be prevented.
func (c *Controller) HandleKey(ev KeyEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case isToggleChord(ev):
		c.toggleLocked()
		return true
	case ev.Key == "Escape":
		if !c.open {
			return false
		}
		c.closeLocked()
		return true
	case ev.Key == "Tab":
		if !c.open {
			return false
		}
		return c.trapLocked(ev.Shift)
	}
	return false
}

// Alt+Shift+N, clear of the usual browser and OS chords.
func isToggleChord(ev KeyEvent) bool {
	if !ev.Alt || !ev.Shift || ev.Ctrl || ev.Meta {
		return false
	}
	return ev.Code == "KeyN" || strings.EqualFold(ev.Key, "n")
}

// trapLocked keeps Tab cycling inside the panel. Moves that stay inside
// are left to the browser.
func (c *Controller) trapLocked(backward bool) bool {
	fs := c.cfg.Focus.PanelFocusables()
	if len(fs) == 0 {
		return true
	}
	idx := slices.Index(fs, c.cfg.Focus.Active())
	var target string
	switch {
	case backward && idx <= 0:
		target = fs[len(fs)-1]
	case !backward && (idx < 0 || idx == len(fs)-1):
		target = fs[0]
	default:
		return false
	}
	if err := c.cfg.Focus.Focus(target); err != nil {
		c.logger.Debug("panel: trap focus", "target", target, "error", err)
	}
	return true
}

// Criteria returns the active view controls.
func (c *Controller) Criteria() notice.Criteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria
}

// SetFilter changes the severity filter.
func (c *Controller) SetFilter(f notice.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == "" {
		f = notice.FilterAll
	}
	c.criteria.Filter = f
	c.renderLocked()
}

// SetSearch changes the free-text search.
func (c *Controller) SetSearch(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria.Search = s
	c.renderLocked()
}

// ToggleShowDismissed flips archive visibility and returns the new value.
func (c *Controller) ToggleShowDismissed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria.ShowDismissed = !c.criteria.ShowDismissed
	c.renderLocked()
	return c.criteria.ShowDismissed
}

// SetDismissed archives or restores one notice.
func (c *Controller) SetDismissed(id string, dismissed bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.store.Get(id)
	if !ok {
		return ErrUnknownNotice
	}
	if c.store.SetDismissed(n, dismissed) {
		c.persistLocked([]string{id}, dismissed)
		c.renderLocked()
	}
	return nil
}

// ToggleDismissed flips one notice and returns its new state.
func (c *Controller) ToggleDismissed(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.store.Get(id)
	if !ok {
		return false, ErrUnknownNotice
	}
	d := !n.Dismissed
	c.store.SetDismissed(n, d)
	c.persistLocked([]string{id}, d)
	c.renderLocked()
	return d, nil
}

// MarkAllRead archives every notice matching the filter and search.
// It returns how many changed.
func (c *Controller) MarkAllRead() int { return c.bulk(true) }

// MarkAllUnread restores every notice matching the filter and search.
func (c *Controller) MarkAllUnread() int { return c.bulk(false) }

// Bulk actions target the filter and search matches, archived ones
// included, so "mark all unread" has something to act on.
func (c *Controller) bulk(dismissed bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	crit := c.criteria
	crit.ShowDismissed = true
	targets := notice.Project(c.store.Notices(), crit).Visible
	changed := c.store.BulkSetDismissed(targets, dismissed)
	if len(changed) == 0 {
		return 0
	}
	ids := make([]string, len(changed))
	for i, n := range changed {
		ids[i] = n.ID
	}
	c.persistLocked(ids, dismissed)
	c.renderLocked()
	return len(changed)
}

// Reveal puts the source of a notice back in the page, scrolls to it,
// highlights it for a while and closes the panel.
func (c *Controller) Reveal(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.store.Get(id)
	if !ok {
		return ErrUnknownNotice
	}
	el := n.Source
	if err := page.Unhide(el); err != nil {
		c.logger.Debug("panel: reveal unhide", "id", id, "error", err)
	}
	if err := el.ScrollIntoView(); err != nil {
		c.logger.Debug("panel: reveal scroll", "id", id, "error", err)
	}
	if err := el.AddClass(notice.HighlightClass); err == nil {
		time.AfterFunc(c.cfg.HighlightDuration, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			_ = el.RemoveClass(notice.HighlightClass)
		})
	}
	c.closeLocked()
	return nil
}

// persistLocked pushes a change to the external store. Local state is
// already applied and stays authoritative: the result channel is dropped on
// purpose and failures only reach the bridge's log.
func (c *Controller) persistLocked(ids []string, dismissed bool) {
	if c.cfg.Persister == nil {
		return
	}
	_ = c.cfg.Persister.Dispatch(c.ctx, ids, dismissed)
}

// View returns the last rendered view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Notices returns copies of the known notices in scan order.
func (c *Controller) Notices() []notice.Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	ns := c.store.Notices()
	out := make([]notice.Notice, len(ns))
	for i, n := range ns {
		out[i] = *n
	}
	return out
}

// ActiveCount is the trigger count.
func (c *Controller) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.ActiveCount()
}

func (c *Controller) renderLocked() {
	i18n := c.cfg.I18n
	proj := notice.Project(c.store.Notices(), c.criteria)
	count := c.store.ActiveCount()

	v := View{
		Open:           c.open,
		Title:          i18n.Get(bridge.KeyTitle),
		Criteria:       c.criteria,
		FiltersEnabled: c.cfg.Settings.FiltersEnabled,
		Items:          make([]Item, 0, len(proj.Visible)),
		Empty:          proj.Empty,
		EmptyMessage:   emptyMessage(i18n, proj.Empty),
		ArchiveToggle:  i18n.Get(bridge.KeyShowDismissed),
		Trigger:        Trigger{Count: count, Expanded: c.open},
	}
	if c.criteria.ShowDismissed {
		v.ArchiveToggle = i18n.Get(bridge.KeyHideDismissed)
	}
	if proj.Empty == notice.EmptyNoNotices && c.cfg.Settings.EmptyStateHelpURL != "" {
		v.EmptyHelpURL = c.cfg.Settings.EmptyStateHelpURL
		v.EmptyAction = i18n.Get(bridge.KeyEmptyAction)
	}
	label := i18n.Get(bridge.KeyOpenPanel)
	if c.open {
		label = i18n.Get(bridge.KeyClosePanel)
	}
	v.Trigger.Label = TriggerLabel(label, count)
	for _, n := range proj.Visible {
		v.Items = append(v.Items, buildItem(i18n, n))
	}

	if c.rendered && count > c.lastCount {
		v.Announcement = i18n.Count(bridge.KeyNewNotice, count-c.lastCount)
	}
	c.rendered = true
	c.lastCount = count
	c.view = v

	if err := c.cfg.Renderer.Render(v); err != nil {
		c.logger.Debug("panel: render failed", "error", err)
	}
	c.store.ClearTransient()
}
