// Package page abstracts the host document the notice panel lives in.
//
// Two backends implement it: htmldoc (a parsed HTML tree, used by the scan
// command and tests) and rodpage (a live Chrome tab driven over CDP). The
// panel never owns the elements it is handed. External code may detach or
// rewrite them at any time, so every mutating method returns an error the
// caller is free to ignore.
package page

import "errors"

// ErrDetached is returned when an element is no longer attached to its document.
var ErrDetached = errors.New("page: element detached")

// Element is a non-owning handle to a node of the host document.
type Element interface {
	// Key identifies the underlying node within its document. Two handles
	// to the same node return the same key.
	Key() string
	ID() string
	Classes() []string
	HasClass(name string) bool
	// Text returns the raw textContent of the element.
	Text() string
	Attr(name string) (string, bool)
	SetAttr(name, value string) error
	RemoveAttr(name string) error
	AddClass(name string) error
	RemoveClass(name string) error
	// Within reports whether the element or one of its ancestors matches selector.
	Within(selector string) bool
	OuterHTML() (string, error)
	// SetInnerHTML replaces the children of the element.
	SetInnerHTML(markup string) error
	ScrollIntoView() error
}

// Document is the queryable host page.
type Document interface {
	// QueryAll returns matching elements in document order.
	QueryAll(selector string) ([]Element, error)
	Exists(selector string) bool
}

// Markers applied to notices relocated into the panel.
const (
	HiddenClass = "notice-panel-hidden"
	HiddenAttr  = "data-notice-panel"
	HiddenValue = "hidden"
)

// Hide takes el out of the normal page flow without removing it.
func Hide(el Element) error {
	if err := el.AddClass(HiddenClass); err != nil {
		return err
	}
	return el.SetAttr(HiddenAttr, HiddenValue)
}

// Unhide reverses Hide.
func Unhide(el Element) error {
	if err := el.RemoveClass(HiddenClass); err != nil {
		return err
	}
	return el.RemoveAttr(HiddenAttr)
}

// First returns the first element matching selector.
func First(doc Document, selector string) (Element, bool) {
	els, err := doc.QueryAll(selector)
	if err != nil || len(els) == 0 {
		return nil, false
	}
	return els[0], true
}

// IsHidden reports whether el carries both hidden markers.
func IsHidden(el Element) bool {
	v, ok := el.Attr(HiddenAttr)
	return ok && v == HiddenValue && el.HasClass(HiddenClass)
}
