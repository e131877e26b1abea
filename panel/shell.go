package panel

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/hazyhaar/noticepanel/bridge"
)

// Anchor ids of the shell markup.
const (
	PanelID   = "notice-panel"
	TriggerID = "notice-panel-toggle"

	PanelSelector   = "#" + PanelID
	TriggerSelector = "#" + TriggerID
	ListSelector    = PanelSelector + " .notice-panel__list"
	LiveSelector    = PanelSelector + " .notice-panel__announcement"
)

type filterButton struct {
	Value, Label string
}

var shellTmpl = template.Must(template.New("shell").Parse(`<div id="` + TriggerID + `" class="notice-panel-toggle">` +
	`<a href="#` + PanelID + `" role="button" aria-controls="` + PanelID + `" aria-expanded="false" aria-label="{{.Open}}" aria-keyshortcuts="Alt+Shift+N">` +
	`<span class="notice-panel-toggle__label">{{.Title}}</span> <span class="notice-panel-count"></span></a></div>` +
	`<div id="` + PanelID + `" class="notice-panel" aria-hidden="true" role="dialog" aria-modal="true" aria-labelledby="notice-panel-title">` +
	`<div class="notice-panel__overlay" data-action="close"></div>` +
	`<div class="notice-panel__dialog">` +
	`<header class="notice-panel__header"><h2 id="notice-panel-title">{{.Title}}</h2>` +
	`<button type="button" class="notice-panel__close" data-action="close" aria-label="{{.Close}}">&times;</button></header>` +
	`{{if .FiltersEnabled}}<div class="notice-panel__filters" role="group" aria-label="{{.FiltersLabel}}">` +
	`{{range .Filters}}<button type="button" class="notice-panel__filter" data-filter="{{.Value}}">{{.Label}}</button>{{end}}</div>` +
	`<input type="search" class="notice-panel__search" placeholder="{{.Search}}" aria-label="{{.Search}}">{{end}}` +
	`<div class="notice-panel__bulk">` +
	`<button type="button" data-bulk-action="read">{{.MarkAllRead}}</button>` +
	`<button type="button" data-bulk-action="unread">{{.MarkAllUnread}}</button>` +
	`<button type="button" data-bulk-action="toggle-archived" aria-pressed="false">{{.ShowDismissed}}</button></div>` +
	`<div class="notice-panel__body" tabindex="0"><ul class="notice-panel__list"></ul></div>` +
	`<div class="notice-panel__announcement screen-reader-text" aria-live="assertive" role="status"></div>` +
	`</div></div>`))

// ShellHTML renders the trigger and the empty panel container.
func ShellHTML(i18n bridge.I18n, s bridge.Settings) (string, error) {
	data := struct {
		Title, Open, Close, FiltersLabel, Search  string
		MarkAllRead, MarkAllUnread, ShowDismissed string
		FiltersEnabled                            bool
		Filters                                   []filterButton
	}{
		Title:          i18n.Get(bridge.KeyTitle),
		Open:           i18n.Get(bridge.KeyOpenPanel),
		Close:          i18n.Get(bridge.KeyClosePanel),
		FiltersLabel:   i18n.Get(bridge.KeyFiltersLabel),
		Search:         i18n.Get(bridge.KeySearchPlaceholder),
		MarkAllRead:    i18n.Get(bridge.KeyMarkAllRead),
		MarkAllUnread:  i18n.Get(bridge.KeyMarkAllUnread),
		ShowDismissed:  i18n.Get(bridge.KeyShowDismissed),
		FiltersEnabled: s.FiltersEnabled,
		Filters: []filterButton{
			{"all", i18n.Get(bridge.KeyFilterAll)},
			{"error", i18n.Get(bridge.KeyFilterError)},
			{"warning", i18n.Get(bridge.KeyFilterWarning)},
			{"success", i18n.Get(bridge.KeyFilterSuccess)},
			{"info", i18n.Get(bridge.KeyFilterInfo)},
		},
	}
	var buf bytes.Buffer
	if err := shellTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("panel: render shell: %w", err)
	}
	return buf.String(), nil
}
