package panel_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hazyhaar/noticepanel/bridge"
	"github.com/hazyhaar/noticepanel/notice"
	"github.com/hazyhaar/noticepanel/panel"
)

func TestTriggerLabel(t *testing.T) {
	tests := []struct {
		label string
		n     int
		want  string
	}{
		{"Open notifications", 3, "Open notifications (3)"},
		{"Open notifications", 0, "Open notifications"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := panel.TriggerLabel(tt.label, tt.n); got != tt.want {
			t.Errorf("TriggerLabel(%q, %d) = %q, want %q", tt.label, tt.n, got, tt.want)
		}
	}
}

func TestCloneMarkup(t *testing.T) {
	out, err := panel.CloneMarkup(`<div class="notice notice-error is-dismissible notice-panel-hidden" data-notice-panel="hidden">` +
		`<p>Disk <strong>full</strong></p><button type="button" class="notice-dismiss">x</button>` +
		`<script>alert(1)</script></div>`)
	if err != nil {
		t.Fatal(err)
	}
	for _, bad := range []string{"notice-dismiss", "is-dismissible", "notice-panel-hidden", "<script", "data-notice-panel"} {
		if strings.Contains(out, bad) {
			t.Errorf("clone keeps %q: %s", bad, out)
		}
	}
	for _, good := range []string{panel.ItemClass, "notice-error", "<strong>full</strong>"} {
		if !strings.Contains(out, good) {
			t.Errorf("clone lacks %q: %s", good, out)
		}
	}
}

func TestCloneMarkup_Empty(t *testing.T) {
	out, err := panel.CloneMarkup("")
	if err != nil || out != "" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func sampleView() panel.View {
	return panel.View{
		Title:   "Notifications",
		Trigger: panel.Trigger{Count: 1, Label: "Open notifications (1)"},
		Items: []panel.Item{{
			ID:            "notice-abc",
			Severity:      notice.SeverityError,
			SeverityLabel: "Errors",
			StateLabel:    "Active",
			ToggleLabel:   "Mark as read",
			RevealLabel:   "Show on page",
			Text:          "Disk full",
			Markup:        `<div class="notice notice-error notice-panel__item"><p>Disk full</p></div>`,
			IsNew:         true,
		}},
	}
}

func TestRenderHTML(t *testing.T) {
	out, err := panel.RenderHTML(sampleView())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`data-notice-id="notice-abc"`, "notice-panel__entry--error", "is-new", `aria-pressed="false"`, "<p>Disk full</p>"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}

	empty := panel.View{EmptyMessage: "There are no notifications.", EmptyHelpURL: "https://example.com/help", EmptyAction: "Learn more"}
	out, err = panel.RenderHTML(empty)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "notice-panel__empty") || !strings.Contains(out, `href="https://example.com/help"`) {
		t.Fatalf("empty state: %s", out)
	}
}

func TestRenderMarkdown(t *testing.T) {
	out, err := panel.RenderMarkdown(sampleView())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "# Notifications") {
		t.Fatalf("missing heading: %s", out)
	}
	if !strings.Contains(out, "## Errors / Active") || !strings.Contains(out, "Disk full") {
		t.Fatalf("missing item: %s", out)
	}
}

func TestShellHTML_FiltersGated(t *testing.T) {
	s := bridge.DefaultSettings()
	on, err := panel.ShellHTML(bridge.DefaultI18n(), s)
	if err != nil {
		t.Fatal(err)
	}
	s.FiltersEnabled = false
	off, err := panel.ShellHTML(bridge.DefaultI18n(), s)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(on, `data-filter="warning"`) || !strings.Contains(on, `type="search"`) {
		t.Fatal("filters missing when enabled")
	}
	if strings.Contains(off, "data-filter") || strings.Contains(off, `type="search"`) {
		t.Fatal("filters rendered when disabled")
	}
	for _, want := range []string{`id="` + panel.PanelID + `"`, `id="` + panel.TriggerID + `"`, `aria-keyshortcuts="Alt+Shift+N"`} {
		if !strings.Contains(off, want) {
			t.Errorf("shell lacks %s", want)
		}
	}
}

func TestJSONLines(t *testing.T) {
	var buf bytes.Buffer
	r := panel.Multi(panel.JSONLines(&buf), panel.RendererFunc(func(panel.View) error { return nil }))
	if err := r.Render(sampleView()); err != nil {
		t.Fatal(err)
	}
	var got struct {
		Trigger panel.Trigger `json:"trigger"`
		Empty   string        `json:"empty"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Trigger.Count != 1 || got.Empty != "none" {
		t.Fatalf("decoded = %+v", got)
	}
}
