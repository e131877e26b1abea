package panel_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/noticepanel/bridge"
	"github.com/hazyhaar/noticepanel/notice"
	"github.com/hazyhaar/noticepanel/page"
	"github.com/hazyhaar/noticepanel/page/htmldoc"
	"github.com/hazyhaar/noticepanel/panel"
)

type persistCall struct {
	ids       []string
	dismissed bool
}

type fakePersister struct {
	mu    sync.Mutex
	calls []persistCall
}

func (f *fakePersister) Dispatch(_ context.Context, ids []string, dismissed bool) <-chan bridge.Result {
	f.mu.Lock()
	f.calls = append(f.calls, persistCall{ids: slices.Clone(ids), dismissed: dismissed})
	f.mu.Unlock()
	ch := make(chan bridge.Result, 1)
	ch <- bridge.Result{Response: &bridge.Response{NoticeIDs: ids, Dismissed: dismissed}}
	close(ch)
	return ch
}

func (f *fakePersister) Calls() []persistCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

type fixture struct {
	c       *panel.Controller
	doc     *htmldoc.Document
	frames  *panel.ManualFrames
	focus   *panel.VirtualFocus
	persist *fakePersister
	i18n    bridge.I18n
}

const (
	errNotice  = `<div class="notice notice-error" id="disk"><p>Disk full</p></div>`
	warnNotice = `<div class="notice notice-warning" id="php"><p>PHP is outdated</p></div>`
	okNotice   = `<div class="notice updated" id="saved"><p>Settings saved</p></div>`
)

func mount(t *testing.T, s bridge.Settings, notices ...string) *fixture {
	t.Helper()
	i18n := bridge.DefaultI18n()
	shell, err := panel.ShellHTML(i18n, s)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := htmldoc.ParseString(`<html><body><a id="menu" href="#">menu</a>` + shell +
		`<div id="wpbody-content">` + strings.Join(notices, "") + `</div></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		doc:     doc,
		frames:  &panel.ManualFrames{},
		focus:   panel.NewVirtualFocus("menu"),
		persist: &fakePersister{},
		i18n:    i18n,
	}
	f.c, err = panel.Mount(context.Background(), panel.Config{
		Document:          doc,
		Focus:             f.focus,
		Frames:            f.frames,
		Renderer:          panel.DOMRenderer(doc),
		Persister:         f.persist,
		Settings:          s,
		I18n:              i18n,
		HighlightDuration: time.Hour,
	})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	doc.Observe(f.c.NotifyMutation)
	return f
}

func quiet() bridge.Settings {
	s := bridge.DefaultSettings()
	s.AutoOpenCritical = false
	return s
}

func (f *fixture) id(t *testing.T, elementID string) string {
	t.Helper()
	for _, n := range f.c.Notices() {
		if n.Source.ID() == elementID {
			return n.ID
		}
	}
	t.Fatalf("no notice for #%s", elementID)
	return ""
}

func TestMount_MissingAnchors(t *testing.T) {
	doc, err := htmldoc.ParseString(`<html><body><div id="wpbody-content">` + errNotice + `</div></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = panel.Mount(context.Background(), panel.Config{Document: doc})
	if !errors.Is(err, panel.ErrMissingAnchors) {
		t.Fatalf("err = %v, want ErrMissingAnchors", err)
	}
	el, _ := doc.First("#disk")
	if page.IsHidden(el) {
		t.Fatal("notice hidden although nothing was mounted")
	}
}

func TestMount_CollectsAndHides(t *testing.T) {
	f := mount(t, quiet(), errNotice, warnNotice)

	ns := f.c.Notices()
	if len(ns) != 2 {
		t.Fatalf("notices = %d, want 2", len(ns))
	}
	for _, n := range ns {
		if !page.IsHidden(n.Source) {
			t.Errorf("%s not hidden", n.ID)
		}
	}
	if ns[0].Severity != notice.SeverityError || ns[1].Severity != notice.SeverityWarning {
		t.Fatalf("severities = %s, %s", ns[0].Severity, ns[1].Severity)
	}
	v := f.c.View()
	if v.Trigger.Count != 2 {
		t.Fatalf("count = %d", v.Trigger.Count)
	}
	if want := "Open notifications (2)"; v.Trigger.Label != want {
		t.Fatalf("label = %q, want %q", v.Trigger.Label, want)
	}
	if v.Announcement != "" {
		t.Fatalf("first render announced %q", v.Announcement)
	}
	if f.c.IsOpen() {
		t.Fatal("opened without auto-open")
	}
}

func TestAutoOpenCritical(t *testing.T) {
	t.Run("on mount", func(t *testing.T) {
		f := mount(t, bridge.DefaultSettings(), warnNotice, errNotice)
		if !f.c.IsOpen() {
			t.Fatal("panel closed with a critical notice present")
		}
		if got := f.focus.Active(); got != panel.FocusPanelBody {
			t.Fatalf("focus = %q, want panel body", got)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		f := mount(t, quiet(), errNotice)
		if f.c.IsOpen() {
			t.Fatal("panel opened although auto-open is off")
		}
	})

	t.Run("on mutation", func(t *testing.T) {
		f := mount(t, bridge.DefaultSettings(), warnNotice)
		if f.c.IsOpen() {
			t.Fatal("opened for a warning")
		}
		if err := f.doc.Append("#wpbody-content", errNotice); err != nil {
			t.Fatal(err)
		}
		f.frames.Flush()
		if !f.c.IsOpen() {
			t.Fatal("new error did not open the panel")
		}
	})

	t.Run("dismissed critical", func(t *testing.T) {
		s := bridge.DefaultSettings()
		f := mount(t, quiet(), errNotice)
		id := f.id(t, "disk")

		f2 := mountWithDismissed(t, s, []string{id}, errNotice)
		if f2.IsOpen() {
			t.Fatal("archived critical notice opened the panel")
		}
	})
}

func mountWithDismissed(t *testing.T, s bridge.Settings, dismissed []string, notices ...string) *panel.Controller {
	t.Helper()
	i18n := bridge.DefaultI18n()
	shell, _ := panel.ShellHTML(i18n, s)
	doc, err := htmldoc.ParseString(`<html><body>` + shell + `<div id="wpbody-content">` +
		strings.Join(notices, "") + `</div></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	c, err := panel.Mount(context.Background(), panel.Config{
		Document:  doc,
		Frames:    &panel.ManualFrames{},
		Settings:  s,
		I18n:      i18n,
		Dismissed: dismissed,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestHydratedDismissed(t *testing.T) {
	first := mount(t, quiet(), errNotice, warnNotice)
	id := first.id(t, "disk")

	c := mountWithDismissed(t, quiet(), []string{id, "notice-gone"}, errNotice, warnNotice)
	if got := c.ActiveCount(); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}
	v := c.View()
	if len(v.Items) != 1 || v.Items[0].ID == id {
		t.Fatalf("archived notice visible: %+v", v.Items)
	}
}

func TestNotifyMutation_Debounced(t *testing.T) {
	f := mount(t, quiet(), errNotice)

	for _, n := range []string{warnNotice, okNotice} {
		if err := f.doc.Append("#wpbody-content", n); err != nil {
			t.Fatal(err)
		}
	}
	f.doc.Remove("#disk")
	if got := f.frames.Pending(); got != 1 {
		t.Fatalf("pending frames = %d, want 1", got)
	}
	if got := len(f.c.Notices()); got != 1 {
		t.Fatalf("reconciled before the frame: %d notices", got)
	}

	if ran := f.frames.Flush(); ran != 1 {
		t.Fatalf("ran %d frames", ran)
	}
	ns := f.c.Notices()
	if len(ns) != 2 {
		t.Fatalf("notices = %d, want 2", len(ns))
	}
	if ns[0].Source.ID() != "php" || ns[1].Source.ID() != "saved" {
		t.Fatalf("order = %s, %s", ns[0].Source.ID(), ns[1].Source.ID())
	}

	// Next mutation schedules again.
	f.doc.Remove("#php")
	if got := f.frames.Pending(); got != 1 {
		t.Fatalf("pending after flush = %d", got)
	}
}

func TestUnmount_StopsScheduling(t *testing.T) {
	f := mount(t, quiet(), errNotice)
	f.c.Unmount()
	_ = f.doc.Append("#wpbody-content", warnNotice)
	if f.frames.Pending() != 0 {
		t.Fatal("mutation scheduled after unmount")
	}
}

func TestAnnouncement(t *testing.T) {
	f := mount(t, quiet(), errNotice)

	_ = f.doc.Append("#wpbody-content", warnNotice+okNotice)
	f.frames.Flush()
	v := f.c.View()
	if want := f.i18n.Count(bridge.KeyNewNotice, 2); v.Announcement != want {
		t.Fatalf("announcement = %q, want %q", v.Announcement, want)
	}
	live, _ := f.doc.First(panel.LiveSelector)
	if !strings.Contains(live.Text(), "2") {
		t.Fatalf("live region = %q", live.Text())
	}

	f.c.Refresh()
	if v := f.c.View(); v.Announcement != "" {
		t.Fatalf("steady render announced %q", v.Announcement)
	}
	if got := strings.TrimSpace(live.Text()); got != "" {
		t.Fatalf("live region kept %q", got)
	}

	// A drop in the count is not announced.
	if err := f.c.SetDismissed(f.id(t, "php"), true); err != nil {
		t.Fatal(err)
	}
	if v := f.c.View(); v.Announcement != "" {
		t.Fatalf("dismissal announced %q", v.Announcement)
	}
}

func TestOpenClose_RestoresFocus(t *testing.T) {
	f := mount(t, quiet(), errNotice)

	f.c.Open()
	if got := f.focus.Active(); got != panel.FocusPanelBody {
		t.Fatalf("focus after open = %q", got)
	}
	el, _ := f.doc.First(panel.PanelSelector)
	if v, _ := el.Attr("aria-hidden"); v != "false" {
		t.Fatalf("aria-hidden = %q", v)
	}
	a, _ := f.doc.First(panel.TriggerAnchorSelector)
	if v, _ := a.Attr("aria-expanded"); v != "true" {
		t.Fatalf("aria-expanded = %q", v)
	}
	if v, _ := a.Attr("aria-label"); v != "Close notifications (1)" {
		t.Fatalf("aria-label = %q", v)
	}

	f.c.Close()
	if got := f.focus.Active(); got != "menu" {
		t.Fatalf("focus after close = %q, want menu", got)
	}

	f.c.Open()
	f.focus.Detach("menu")
	f.c.Close()
	if got := f.focus.Active(); got != panel.FocusTrigger {
		t.Fatalf("focus after close = %q, want trigger", got)
	}
}

func TestHandleKey(t *testing.T) {
	f := mount(t, quiet(), errNotice)
	chord := panel.KeyEvent{Key: "N", Code: "KeyN", Alt: true, Shift: true}

	if f.c.HandleKey(panel.KeyEvent{Key: "Escape"}) {
		t.Fatal("Escape consumed while closed")
	}
	if !f.c.HandleKey(chord) || !f.c.IsOpen() {
		t.Fatal("shortcut did not open")
	}
	if !f.c.HandleKey(panel.KeyEvent{Key: "Escape"}) || f.c.IsOpen() {
		t.Fatal("Escape did not close")
	}
	if !f.c.HandleKey(panel.KeyEvent{Key: "Ë", Code: "KeyN", Alt: true, Shift: true}) || !f.c.IsOpen() {
		t.Fatal("shortcut by code did not open")
	}
	if !f.c.HandleKey(chord) || f.c.IsOpen() {
		t.Fatal("shortcut did not close")
	}

	withCtrl := chord
	withCtrl.Ctrl = true
	if f.c.HandleKey(withCtrl) {
		t.Fatal("Ctrl chord consumed")
	}
	if f.c.HandleKey(panel.KeyEvent{Key: "n", Alt: true}) {
		t.Fatal("Alt+N consumed")
	}
}

func TestHandleKey_FocusTrap(t *testing.T) {
	f := mount(t, quiet(), errNotice)
	tab := panel.KeyEvent{Key: "Tab"}
	back := panel.KeyEvent{Key: "Tab", Shift: true}

	if f.c.HandleKey(tab) {
		t.Fatal("Tab trapped while closed")
	}

	f.c.Open()
	if !f.c.HandleKey(tab) {
		t.Fatal("Tab with no focusables not swallowed")
	}

	f.focus.SetPanelFocusables("close", "search", "item")
	tests := []struct {
		name   string
		from   string
		ev     panel.KeyEvent
		handle bool
		to     string
	}{
		{"forward wraps", "item", tab, true, "close"},
		{"backward wraps", "close", back, true, "item"},
		{"forward inside", "close", tab, false, "close"},
		{"backward inside", "item", back, false, "item"},
		{"forward from outside", "menu", tab, true, "close"},
		{"backward from outside", "menu", back, true, "item"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = f.focus.Focus(tt.from)
			if got := f.c.HandleKey(tt.ev); got != tt.handle {
				t.Fatalf("handled = %v, want %v", got, tt.handle)
			}
			if got := f.focus.Active(); got != tt.to {
				t.Fatalf("focus = %q, want %q", got, tt.to)
			}
		})
	}
}

func TestSetDismissed_Persists(t *testing.T) {
	f := mount(t, quiet(), errNotice, warnNotice)
	id := f.id(t, "disk")

	if err := f.c.SetDismissed(id, true); err != nil {
		t.Fatal(err)
	}
	if got := f.c.ActiveCount(); got != 1 {
		t.Fatalf("active = %d", got)
	}
	if err := f.c.SetDismissed(id, true); err != nil {
		t.Fatal(err)
	}
	calls := f.persist.Calls()
	if len(calls) != 1 || !slices.Equal(calls[0].ids, []string{id}) || !calls[0].dismissed {
		t.Fatalf("calls = %+v", calls)
	}

	d, err := f.c.ToggleDismissed(id)
	if err != nil || d {
		t.Fatalf("toggle = %v, %v", d, err)
	}
	for _, n := range f.c.Notices() {
		if n.ID == id && !page.IsHidden(n.Source) {
			t.Fatal("restored notice back in the page flow")
		}
	}
	if got := len(f.persist.Calls()); got != 2 {
		t.Fatalf("calls = %d", got)
	}

	if err := f.c.SetDismissed("notice-nope", true); !errors.Is(err, panel.ErrUnknownNotice) {
		t.Fatalf("err = %v", err)
	}
}

func TestBulk_FilterScope(t *testing.T) {
	f := mount(t, quiet(), errNotice, warnNotice, okNotice)
	errID := f.id(t, "disk")

	f.c.SetFilter(notice.Filter(notice.SeverityError))
	if n := f.c.MarkAllRead(); n != 1 {
		t.Fatalf("changed = %d, want 1", n)
	}
	if got := f.c.ActiveCount(); got != 2 {
		t.Fatalf("active = %d", got)
	}
	if n := f.c.MarkAllRead(); n != 0 {
		t.Fatalf("second pass changed %d", n)
	}

	// Archived matches are restored even while the archive is hidden.
	if f.c.Criteria().ShowDismissed {
		t.Fatal("archive shown")
	}
	if n := f.c.MarkAllUnread(); n != 1 {
		t.Fatalf("unread changed = %d", n)
	}

	f.c.SetFilter(notice.FilterAll)
	f.c.SetSearch("php")
	f.c.MarkAllRead()

	calls := f.persist.Calls()
	if len(calls) != 3 {
		t.Fatalf("calls = %+v", calls)
	}
	if !slices.Equal(calls[0].ids, []string{errID}) || !calls[0].dismissed {
		t.Fatalf("first call = %+v", calls[0])
	}
	if calls[1].dismissed {
		t.Fatalf("second call = %+v", calls[1])
	}
	if !slices.Equal(calls[2].ids, []string{f.id(t, "php")}) {
		t.Fatalf("third call = %+v", calls[2])
	}
}

func TestView_EmptyStates(t *testing.T) {
	t.Run("no notices", func(t *testing.T) {
		s := quiet()
		s.EmptyStateHelpURL = "https://example.com/help"
		f := mount(t, s)
		v := f.c.View()
		if v.Empty != notice.EmptyNoNotices || v.EmptyHelpURL == "" || v.EmptyAction == "" {
			t.Fatalf("view = %+v", v)
		}
		list, _ := f.doc.First(panel.ListSelector)
		if !strings.Contains(list.Text(), "There are no notifications.") {
			t.Fatalf("list = %q", list.Text())
		}
	})

	t.Run("no matches", func(t *testing.T) {
		f := mount(t, quiet(), errNotice)
		f.c.SetSearch("unrelated")
		if v := f.c.View(); v.Empty != notice.EmptyNoMatches {
			t.Fatalf("empty = %s", v.Empty)
		}
	})

	t.Run("all archived", func(t *testing.T) {
		f := mount(t, quiet(), errNotice)
		f.c.MarkAllRead()
		v := f.c.View()
		if v.Empty != notice.EmptyAllArchived || v.Trigger.Count != 0 {
			t.Fatalf("view = %+v", v)
		}
		if v.Trigger.Label != "Open notifications" {
			t.Fatalf("label = %q", v.Trigger.Label)
		}
		if !f.c.ToggleShowDismissed() {
			t.Fatal("archive still hidden")
		}
		v = f.c.View()
		if len(v.Items) != 1 || !v.Items[0].Dismissed || v.ArchiveToggle != "Hide archived" {
			t.Fatalf("view = %+v", v)
		}
		btn, _ := f.doc.First(panel.ArchiveButtonSelector)
		if p, _ := btn.Attr("aria-pressed"); p != "true" {
			t.Fatalf("aria-pressed = %q", p)
		}
	})
}

func TestReveal(t *testing.T) {
	f := mount(t, quiet(), errNotice)
	id := f.id(t, "disk")
	f.c.Open()

	if err := f.c.Reveal(id); err != nil {
		t.Fatal(err)
	}
	el, _ := f.doc.First("#wpbody-content #disk")
	if page.IsHidden(el) {
		t.Fatal("revealed notice still hidden")
	}
	if !el.HasClass(notice.HighlightClass) {
		t.Fatal("revealed notice not highlighted")
	}
	if s := f.doc.Scrolled(); len(s) != 1 || s[0] != el.Key() {
		t.Fatalf("scrolled = %v", s)
	}
	if f.c.IsOpen() {
		t.Fatal("panel still open")
	}
	if err := f.c.Reveal("notice-nope"); !errors.Is(err, panel.ErrUnknownNotice) {
		t.Fatalf("err = %v", err)
	}
}

func TestDOMRenderer_List(t *testing.T) {
	f := mount(t, quiet(), errNotice, warnNotice)

	list, _ := f.doc.First(panel.ListSelector)
	markup, err := list.OuterHTML()
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{f.id(t, "disk"), f.id(t, "php")} {
		if !strings.Contains(markup, `data-notice-id="`+id+`"`) {
			t.Errorf("list lacks %s", id)
		}
	}
	if strings.Contains(markup, page.HiddenClass) {
		t.Error("copied notice carries the hidden marker")
	}
	count, _ := f.doc.First(panel.CountSelector)
	if got := count.Text(); got != "2" {
		t.Fatalf("count = %q", got)
	}

	// The copies inside the panel are never collected.
	f.c.Refresh()
	if got := len(f.c.Notices()); got != 2 {
		t.Fatalf("notices = %d", got)
	}
}
