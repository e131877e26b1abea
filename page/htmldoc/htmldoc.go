// Package htmldoc implements page.Document over a parsed HTML tree.
//
// It backs the scan command and the tests. A Document is not safe for
// concurrent use; the panel controller serialises access to it.
package htmldoc

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/hazyhaar/noticepanel/page"
)

// Document is an in-memory HTML page.
type Document struct {
	doc      *goquery.Document
	keys     map[*html.Node]string
	seq      int
	observer func()
	scrolled []string
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return &Document{doc: doc, keys: make(map[*html.Node]string)}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// QueryAll implements page.Document.
func (d *Document) QueryAll(selector string) ([]page.Element, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: selector %q: %w", selector, err)
	}
	sel := d.doc.FindMatcher(m)
	out := make([]page.Element, 0, sel.Length())
	for _, n := range sel.Nodes {
		out = append(out, d.wrap(n))
	}
	return out, nil
}

// Exists implements page.Document.
func (d *Document) Exists(selector string) bool {
	return d.doc.Find(selector).Length() > 0
}

// First returns the first element matching selector.
func (d *Document) First(selector string) (page.Element, bool) {
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, false
	}
	return d.wrap(sel.Nodes[0]), true
}

// Observe registers fn to run after every structural change made through
// Append or Remove, the way a childList MutationObserver would fire.
func (d *Document) Observe(fn func()) { d.observer = fn }

// Append parses markup and appends it to the first element matching selector.
func (d *Document) Append(selector, markup string) error {
	target := d.doc.Find(selector).First()
	if target.Length() == 0 {
		return fmt.Errorf("htmldoc: append: no element matches %q", selector)
	}
	target.AppendHtml(markup)
	d.changed()
	return nil
}

// Remove detaches every element matching selector.
func (d *Document) Remove(selector string) int {
	sel := d.doc.Find(selector)
	n := sel.Length()
	if n > 0 {
		sel.Remove()
		d.changed()
	}
	return n
}

// SetHTML replaces the inner markup of the first element matching selector.
func (d *Document) SetHTML(selector, markup string) error {
	target := d.doc.Find(selector).First()
	if target.Length() == 0 {
		return fmt.Errorf("htmldoc: set html: no element matches %q", selector)
	}
	target.SetHtml(markup)
	return nil
}

// HTML serialises the whole document.
func (d *Document) HTML() (string, error) {
	return d.doc.Html()
}

// Scrolled lists the keys passed to ScrollIntoView, oldest first.
func (d *Document) Scrolled() []string { return d.scrolled }

func (d *Document) changed() {
	if d.observer != nil {
		d.observer()
	}
}

func (d *Document) wrap(n *html.Node) *element {
	return &element{d: d, n: n}
}

func (d *Document) keyFor(n *html.Node) string {
	if k, ok := d.keys[n]; ok {
		return k
	}
	d.seq++
	k := "n" + strconv.Itoa(d.seq)
	d.keys[n] = k
	return k
}

func (d *Document) attached(n *html.Node) bool {
	root := d.doc.Nodes[0]
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

type element struct {
	d *Document
	n *html.Node
}

func (e *element) sel() *goquery.Selection {
	return goquery.NewDocumentFromNode(e.n).Selection
}

func (e *element) Key() string { return e.d.keyFor(e.n) }

func (e *element) ID() string {
	v, _ := e.Attr("id")
	return v
}

func (e *element) Classes() []string {
	v, _ := e.Attr("class")
	return strings.Fields(v)
}

func (e *element) HasClass(name string) bool {
	for _, c := range e.Classes() {
		if c == name {
			return true
		}
	}
	return false
}

func (e *element) Text() string { return e.sel().Text() }

func (e *element) Attr(name string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (e *element) SetAttr(name, value string) error {
	if !e.d.attached(e.n) {
		return page.ErrDetached
	}
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			e.n.Attr[i].Val = value
			return nil
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
	return nil
}

func (e *element) RemoveAttr(name string) error {
	if !e.d.attached(e.n) {
		return page.ErrDetached
	}
	attrs := e.n.Attr[:0]
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	e.n.Attr = attrs
	return nil
}

func (e *element) AddClass(name string) error {
	if e.HasClass(name) {
		return nil
	}
	return e.SetAttr("class", strings.Join(append(e.Classes(), name), " "))
}

func (e *element) RemoveClass(name string) error {
	classes := e.Classes()
	kept := classes[:0]
	for _, c := range classes {
		if c != name {
			kept = append(kept, c)
		}
	}
	return e.SetAttr("class", strings.Join(kept, " "))
}

func (e *element) Within(selector string) bool {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return false
	}
	for p := e.n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && m.Match(p) {
			return true
		}
	}
	return false
}

func (e *element) OuterHTML() (string, error) {
	if !e.d.attached(e.n) {
		return "", page.ErrDetached
	}
	return goquery.OuterHtml(e.sel())
}

func (e *element) SetInnerHTML(markup string) error {
	if !e.d.attached(e.n) {
		return page.ErrDetached
	}
	e.sel().SetHtml(markup)
	return nil
}

func (e *element) ScrollIntoView() error {
	if !e.d.attached(e.n) {
		return page.ErrDetached
	}
	e.d.scrolled = append(e.d.scrolled, e.Key())
	return nil
}
