package panel

import (
	"html"
	"strconv"
	"sync"

	"github.com/hazyhaar/noticepanel/page"
)

// Shell parts updated by DOMRenderer.
const (
	TriggerAnchorSelector = TriggerSelector + " a"
	CountSelector         = TriggerSelector + " .notice-panel-count"
	ArchiveButtonSelector = PanelSelector + ` [data-bulk-action="toggle-archived"]`
	OpenClass             = "is-open"
	ActiveClass           = "is-active"
)

// domState is what DOMRenderer last wrote.
type domState struct {
	list         string
	open         bool
	label        string
	expanded     bool
	count        string
	announcement string
	archived     bool
	archiveLabel string
}

// DOMRenderer draws views into the shell markup of doc. Each part is
// written only when it differs from the previous render: the page observer
// sees these writes, and a render that changes nothing must not schedule
// another pass.
func DOMRenderer(doc page.Document) Renderer {
	var (
		mu      sync.Mutex
		last    domState
		written bool
	)
	return RendererFunc(func(v View) error {
		mu.Lock()
		defer mu.Unlock()

		list, err := RenderHTML(v)
		if err != nil {
			return err
		}
		next := domState{
			list:         list,
			open:         v.Open,
			label:        v.Trigger.Label,
			expanded:     v.Trigger.Expanded,
			announcement: v.Announcement,
			archived:     v.Criteria.ShowDismissed,
			archiveLabel: v.ArchiveToggle,
		}
		if v.Trigger.Count > 0 {
			next.count = strconv.Itoa(v.Trigger.Count)
		}
		first := !written

		if first || next.list != last.list {
			if el, ok := page.First(doc, ListSelector); ok {
				if err := el.SetInnerHTML(next.list); err != nil {
					return err
				}
			}
		}
		if first || next.open != last.open {
			if el, ok := page.First(doc, PanelSelector); ok {
				_ = el.SetAttr("aria-hidden", strconv.FormatBool(!next.open))
				if next.open {
					_ = el.AddClass(OpenClass)
				} else {
					_ = el.RemoveClass(OpenClass)
				}
			}
		}
		if first || next.label != last.label || next.expanded != last.expanded {
			if el, ok := page.First(doc, TriggerAnchorSelector); ok {
				_ = el.SetAttr("aria-label", next.label)
				_ = el.SetAttr("aria-expanded", strconv.FormatBool(next.expanded))
				if next.expanded {
					_ = el.AddClass(ActiveClass)
				} else {
					_ = el.RemoveClass(ActiveClass)
				}
			}
		}
		if first || next.count != last.count {
			if el, ok := page.First(doc, CountSelector); ok {
				_ = el.SetInnerHTML(next.count)
			}
		}
		// A new announcement is always written so a repeated increase is
		// spoken again; a render without one clears the region.
		if next.announcement != "" || last.announcement != "" {
			if el, ok := page.First(doc, LiveSelector); ok {
				_ = el.SetInnerHTML(html.EscapeString(next.announcement))
			}
		}
		if first || next.archived != last.archived || next.archiveLabel != last.archiveLabel {
			if el, ok := page.First(doc, ArchiveButtonSelector); ok {
				_ = el.SetAttr("aria-pressed", strconv.FormatBool(next.archived))
				_ = el.SetInnerHTML(html.EscapeString(next.archiveLabel))
			}
		}

		last, written = next, true
		return nil
	})
}
