// Package rodpage implements page.Document over a live Chrome tab.
//
// Remote object handles change on every query, so element identity is
// carried by a data-notice-panel-key attribute assigned on first sight.
// Every CDP failure is returned to the caller; the scanner treats them as
// transient and skips the element.
package rodpage

import (
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/noticepanel/page"
)

const keyJS = `() => {
	if (!this.dataset.noticePanelKey) {
		window.__noticePanelSeq = (window.__noticePanelSeq || 0) + 1;
		this.dataset.noticePanelKey = 'k' + window.__noticePanelSeq;
	}
	return this.dataset.noticePanelKey;
}`

// Document wraps a rod page.
type Document struct {
	page *rod.Page
}

// New wraps p.
func New(p *rod.Page) *Document { return &Document{page: p} }

// Page returns the underlying rod page.
func (d *Document) Page() *rod.Page { return d.page }

// QueryAll implements page.Document.
func (d *Document) QueryAll(selector string) ([]page.Element, error) {
	els, err := d.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("rodpage: query %q: %w", selector, err)
	}
	out := make([]page.Element, 0, len(els))
	for _, el := range els {
		w := &element{el: el}
		res, err := el.Eval(keyJS)
		if err != nil {
			// Detached between the query and the key assignment.
			continue
		}
		w.key = res.Value.Str()
		out = append(out, w)
	}
	return out, nil
}

// Exists implements page.Document.
func (d *Document) Exists(selector string) bool {
	has, _, err := d.page.Has(selector)
	return err == nil && has
}

type element struct {
	el  *rod.Element
	key string
}

func (e *element) Key() string { return e.key }

func (e *element) ID() string {
	v, _ := e.Attr("id")
	return v
}

func (e *element) Classes() []string {
	res, err := e.el.Eval(`() => Array.from(this.classList)`)
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

func (e *element) HasClass(name string) bool {
	res, err := e.el.Eval(`(c) => this.classList.contains(c)`, name)
	return err == nil && res.Value.Bool()
}

func (e *element) Text() string {
	res, err := e.el.Eval(`() => this.textContent || ''`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func (e *element) Attr(name string) (string, bool) {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return "", false
	}
	return *v, true
}

func (e *element) SetAttr(name, value string) error {
	return e.call(`(n, v) => this.setAttribute(n, v)`, name, value)
}

func (e *element) RemoveAttr(name string) error {
	return e.call(`(n) => this.removeAttribute(n)`, name)
}

func (e *element) AddClass(name string) error {
	return e.call(`(c) => this.classList.add(c)`, name)
}

func (e *element) RemoveClass(name string) error {
	return e.call(`(c) => this.classList.remove(c)`, name)
}

func (e *element) Within(selector string) bool {
	res, err := e.el.Eval(`(s) => this.closest(s) !== null`, selector)
	return err == nil && res.Value.Bool()
}

func (e *element) OuterHTML() (string, error) {
	s, err := e.el.HTML()
	if err != nil {
		return "", fmt.Errorf("rodpage: outer html: %w", err)
	}
	return s, nil
}

func (e *element) SetInnerHTML(markup string) error {
	return e.call(`(h) => { this.innerHTML = h; }`, markup)
}

func (e *element) ScrollIntoView() error {
	if err := e.el.ScrollIntoView(); err != nil {
		return fmt.Errorf("rodpage: scroll: %w", err)
	}
	return nil
}

func (e *element) call(js string, args ...any) error {
	res, err := e.el.Eval(`function(...a) {
		if (!this.isConnected) return false;
		(`+js+`).apply(this, a);
		return true;
	}`, args...)
	if err != nil {
		return fmt.Errorf("rodpage: eval: %w", err)
	}
	if !res.Value.Bool() {
		return page.ErrDetached
	}
	return nil
}
