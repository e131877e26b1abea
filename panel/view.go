package panel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/noticepanel/bridge"
	"github.com/hazyhaar/noticepanel/notice"
	"github.com/hazyhaar/noticepanel/page"
)

// Item is one rendered notice.
type Item struct {
	ID            string          `json:"id"`
	Severity      notice.Severity `json:"severity"`
	SeverityLabel string          `json:"severity_label"`
	StateLabel    string          `json:"state_label"`
	Dismissed     bool            `json:"dismissed"`
	ToggleLabel   string          `json:"toggle_label"`
	RevealLabel   string          `json:"reveal_label"`
	Text          string          `json:"text"`
	// Markup is the sanitised copy of the source element.
	Markup      string `json:"markup,omitempty"`
	IsNew       bool   `json:"is_new,omitempty"`
	JustToggled bool   `json:"just_toggled,omitempty"`
}

// Trigger is the state of the control that opens the panel.
type Trigger struct {
	// Count is the number of notices not dismissed, whatever the filters.
	Count    int    `json:"count"`
	Label    string `json:"label"`
	Expanded bool   `json:"expanded"`
}

// View is everything a renderer needs to draw the panel.
type View struct {
	Open           bool              `json:"open"`
	Title          string            `json:"title"`
	Criteria       notice.Criteria   `json:"criteria"`
	FiltersEnabled bool              `json:"filters_enabled"`
	Items          []Item            `json:"items"`
	Empty          notice.EmptyState `json:"empty"`
	EmptyMessage   string            `json:"empty_message,omitempty"`
	EmptyHelpURL   string            `json:"empty_help_url,omitempty"`
	EmptyAction    string            `json:"empty_action,omitempty"`
	ArchiveToggle  string            `json:"archive_toggle"`
	Trigger        Trigger           `json:"trigger"`
	// Announcement is set only on the render where the count went up.
	Announcement string `json:"announcement,omitempty"`
}

// Renderer draws views.
type Renderer interface {
	Render(View) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(View) error

func (f RendererFunc) Render(v View) error { return f(v) }

// JSONLines writes each view as one JSON line.
func JSONLines(w io.Writer) Renderer {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return RendererFunc(func(v View) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(v)
	})
}

// Multi fans a view out to several renderers and returns the first error.
func Multi(rs ...Renderer) Renderer {
	return RendererFunc(func(v View) error {
		var first error
		for _, r := range rs {
			if err := r.Render(v); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

var severityKeys = map[notice.Severity]string{
	notice.SeverityError:   bridge.KeyFilterError,
	notice.SeverityWarning: bridge.KeyFilterWarning,
	notice.SeveritySuccess: bridge.KeyFilterSuccess,
	notice.SeverityInfo:    bridge.KeyFilterInfo,
}

// TriggerLabel formats the accessible trigger label: "label (n)", or just
// the label when n is zero.
func TriggerLabel(label string, n int) string {
	if label == "" {
		return ""
	}
	if n > 0 {
		return label + " (" + strconv.Itoa(n) + ")"
	}
	return label
}

func emptyMessage(i18n bridge.I18n, e notice.EmptyState) string {
	switch e {
	case notice.EmptyNoNotices:
		return i18n.Get(bridge.KeyNoNotices)
	case notice.EmptyNoMatches:
		return i18n.Get(bridge.KeyNoMatches)
	case notice.EmptyAllArchived:
		return i18n.Get(bridge.KeyNoUnreadMatches)
	}
	return ""
}

func buildItem(i18n bridge.I18n, n *notice.Notice) Item {
	it := Item{
		ID:            n.ID,
		Severity:      n.Severity,
		SeverityLabel: i18n.Get(severityKeys[n.Severity]),
		StateLabel:    i18n.Get(bridge.KeyBadgeActive),
		Dismissed:     n.Dismissed,
		ToggleLabel:   i18n.Get(bridge.KeyMarkRead),
		RevealLabel:   i18n.Get(bridge.KeyShowNotice),
		Text:          n.Text,
		IsNew:         n.IsNew,
		JustToggled:   n.JustToggled,
	}
	if n.Dismissed {
		it.StateLabel = i18n.Get(bridge.KeyBadgeArchived)
		it.ToggleLabel = i18n.Get(bridge.KeyMarkUnread)
	}
	if n.Source != nil {
		if outer, err := n.Source.OuterHTML(); err == nil {
			if m, err := CloneMarkup(outer); err == nil {
				it.Markup = m
			}
		}
	}
	return it
}

// ItemClass marks notice copies rendered inside the panel.
const ItemClass = "notice-panel__item"

var itemPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	return p
}()

// CloneMarkup turns the outer HTML of a page notice into the copy shown in
// the panel: dismiss buttons and panel markers are stripped, the item class
// is added and the result is sanitised.
func CloneMarkup(outer string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(outer))
	if err != nil {
		return "", fmt.Errorf("panel: clone: %w", err)
	}
	root := doc.Find("body").Children().First()
	if root.Length() == 0 {
		return "", nil
	}
	root.Find(".notice-dismiss, .dismiss-notice").Remove()
	root.RemoveClass("is-dismissible", page.HiddenClass, notice.HighlightClass)
	root.AddClass(ItemClass)
	out, err := goquery.OuterHtml(root)
	if err != nil {
		return "", fmt.Errorf("panel: clone: %w", err)
	}
	return itemPolicy.Sanitize(out), nil
}

var funcs = template.FuncMap{
	// Markup has been through itemPolicy.
	"markup": func(s string) template.HTML { return template.HTML(s) },
}

var listTmpl = template.Must(template.New("list").Funcs(funcs).Parse(
	`{{range .Items}}<li class="notice-panel__entry notice-panel__entry--{{.Severity}}` +
		`{{if .Dismissed}} is-dismissed{{end}}{{if .IsNew}} is-new{{end}}{{if .JustToggled}} is-toggled{{end}}" data-notice-id="{{.ID}}">` +
		`<div class="notice-panel__badges"><span class="notice-panel__badge notice-panel__badge--{{.Severity}}">{{.SeverityLabel}}</span>` +
		`<span class="notice-panel__badge notice-panel__badge--state">{{.StateLabel}}</span></div>` +
		`{{if .Markup}}{{markup .Markup}}{{else}}<p>{{.Text}}</p>{{end}}` +
		`<div class="notice-panel__actions">` +
		`<button type="button" class="button-link" data-action="toggle" data-notice-id="{{.ID}}" aria-pressed="{{.Dismissed}}">{{.ToggleLabel}}</button>` +
		`<button type="button" class="button-link" data-action="reveal" data-notice-id="{{.ID}}">{{.RevealLabel}}</button>` +
		`</div></li>{{else}}<li class="notice-panel__empty"><p class="notice-panel__empty-title">{{.EmptyMessage}}</p>` +
		`{{if .EmptyHelpURL}}<a class="notice-panel__empty-action" href="{{.EmptyHelpURL}}">{{.EmptyAction}}</a>{{end}}</li>{{end}}`))

// RenderHTML renders the inner markup of the panel list.
func RenderHTML(v View) (string, error) {
	var buf bytes.Buffer
	if err := listTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("panel: render html: %w", err)
	}
	return buf.String(), nil
}

var digestTmpl = template.Must(template.New("digest").Funcs(funcs).Parse(
	`<h1>{{.Title}} ({{.Trigger.Count}})</h1>` +
		`{{range .Items}}<h2>{{.SeverityLabel}} / {{.StateLabel}}</h2>` +
		`{{if .Markup}}{{markup .Markup}}{{else}}<p>{{.Text}}</p>{{end}}` +
		`{{else}}<p><em>{{.EmptyMessage}}</em></p>{{end}}`))

var md = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// RenderMarkdown renders a plain-text digest of the view.
func RenderMarkdown(v View) (string, error) {
	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("panel: render digest: %w", err)
	}
	out, err := md.ConvertString(buf.String())
	if err != nil {
		return "", fmt.Errorf("panel: markdown: %w", err)
	}
	return out, nil
}
