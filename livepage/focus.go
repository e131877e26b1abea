package livepage

import (
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/noticepanel/panel"
)

// focusJS resolves a focus key to an element. The panel body and trigger
// have fixed keys; other elements get a data-notice-panel-focus attribute.
const focusJS = `(key) => {
	if (key === '` + panel.FocusPanelBody + `') return document.querySelector('` + panel.PanelSelector + ` .notice-panel__body');
	if (key === '` + panel.FocusTrigger + `') return document.querySelector('` + panel.TriggerAnchorSelector + `');
	return document.querySelector('[data-notice-panel-focus="' + CSS.escape(key) + '"]');
}`

const keyOfJS = `(el) => {
	if (!el || el === document.body) return '';
	if (el.matches('` + panel.PanelSelector + ` .notice-panel__body')) return '` + panel.FocusPanelBody + `';
	if (el.closest('` + panel.TriggerSelector + `')) return '` + panel.FocusTrigger + `';
	if (!el.dataset.noticePanelFocus) {
		window.__noticePanelFocusSeq = (window.__noticePanelFocusSeq || 0) + 1;
		el.dataset.noticePanelFocus = 'f' + window.__noticePanelFocusSeq;
	}
	return el.dataset.noticePanelFocus;
}`

// pageFocus is the FocusHost of a live tab.
type pageFocus struct {
	page *rod.Page
}

func (f *pageFocus) Active() string {
	res, err := f.page.Eval(`() => (` + keyOfJS + `)(document.activeElement)`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func (f *pageFocus) Focus(key string) error {
	res, err := f.page.Eval(`(key) => {
		const el = (`+focusJS+`)(key);
		if (!el) return false;
		el.focus();
		return true;
	}`, key)
	if err != nil {
		return fmt.Errorf("livepage: focus: %w", err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("livepage: focus: %q not found", key)
	}
	return nil
}

func (f *pageFocus) Connected(key string) bool {
	res, err := f.page.Eval(`(key) => { const el = (`+focusJS+`)(key); return !!el && el.isConnected; }`, key)
	return err == nil && res.Value.Bool()
}

func (f *pageFocus) PanelFocusables() []string {
	res, err := f.page.Eval(`() => {
		const keyOf = ` + keyOfJS + `;
		const sel = 'a[href], button:not([disabled]), input:not([disabled]), select, textarea, [tabindex]:not([tabindex="-1"])';
		const p = document.querySelector('` + panel.PanelSelector + ` .notice-panel__dialog');
		if (!p) return [];
		return Array.from(p.querySelectorAll(sel))
			.filter((el) => el.offsetParent !== null || el === document.activeElement)
			.map(keyOf);
	}`)
	if err != nil {
		return nil
	}
	arr := res.Value.Arr()
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.Str())
	}
	return out
}

// step moves focus to the next or previous panel focusable, for Tab
// presses the controller leaves to the page.
func (f *pageFocus) step(backward bool) {
	fs := f.PanelFocusables()
	if len(fs) == 0 {
		return
	}
	cur := f.Active()
	idx := -1
	for i, k := range fs {
		if k == cur {
			idx = i
			break
		}
	}
	next := idx + 1
	if backward {
		next = idx - 1
	}
	if next < 0 || next >= len(fs) {
		return
	}
	_ = f.Focus(fs[next])
}
