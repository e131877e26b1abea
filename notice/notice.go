// Package notice holds the aggregation state: identity, severity, the
// reconciling store and the view projection.
//
// Nothing in this package is safe for concurrent use. The panel controller
// owns a Store and serialises every call on its UI goroutine.
package notice

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/hazyhaar/noticepanel/page"
)

// Severity classifies a notice.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
)

// Severities lists every severity in precedence order.
var Severities = []Severity{SeverityError, SeverityWarning, SeveritySuccess, SeverityInfo}

// ParseSeverity accepts the lowercase severity names.
func ParseSeverity(s string) (Severity, error) {
	for _, sev := range Severities {
		if string(sev) == s {
			return sev, nil
		}
	}
	return "", fmt.Errorf("notice: unknown severity %q", s)
}

// Notice is one aggregated page notice.
type Notice struct {
	ID string `json:"id"`
	// Source is a back-reference only. The page owns the element.
	Source    page.Element `json:"-"`
	Severity  Severity     `json:"severity"`
	Text      string       `json:"text"`
	Dismissed bool         `json:"dismissed"`
	Order     int          `json:"order"`

	// Render hints, cleared by Store.ClearTransient.
	IsNew       bool `json:"is_new,omitempty"`
	JustToggled bool `json:"just_toggled,omitempty"`
}

// IDAttr caches a computed identity on the source element.
const IDAttr = "data-notice-panel-id"

// Classes the panel itself puts on page elements. They never take part in
// identity.
var ownClasses = map[string]bool{
	page.HiddenClass: true,
	HighlightClass:   true,
}

// HighlightClass marks a source element revealed from the panel.
const HighlightClass = "notice-panel-highlight"

// EnsureIdentity returns the identity cached on el, computing and caching it
// on first sight. Structurally identical notices with the same text share an
// identity and are treated as one notice.
func EnsureIdentity(el page.Element) string {
	if v, ok := el.Attr(IDAttr); ok && v != "" {
		return v
	}
	id := Identity(el.ID(), el.Classes(), el.Text())
	// A detached element cannot cache; the id is still valid for this pass.
	_ = el.SetAttr(IDAttr, id)
	return id
}

// Identity hashes the structural and textual content of a notice.
// It is deterministic and not collision resistant.
func Identity(elementID string, classes []string, text string) string {
	var b strings.Builder
	b.WriteString(elementID)
	b.WriteByte(0)
	first := true
	for _, c := range classes {
		if ownClasses[c] {
			continue
		}
		if !first {
			b.WriteByte(' ')
		}
		b.WriteString(c)
		first = false
	}
	b.WriteByte(0)
	b.WriteString(NormalizeText(text))
	return "notice-" + strconv.FormatUint(xxhash.Sum64String(b.String()), 36)
}

var severityMarkers = []struct {
	severity Severity
	classes  []string
}{
	{SeverityError, []string{"notice-error", "error"}},
	{SeverityWarning, []string{"notice-warning", "update-nag"}},
	{SeveritySuccess, []string{"notice-success", "updated"}},
}

// Classify returns the highest-precedence severity whose marker el carries.
func Classify(el page.Element) Severity {
	return ClassifyClasses(el.Classes())
}

// ClassifyClasses is Classify over a class list.
func ClassifyClasses(classes []string) Severity {
	set := make(map[string]bool, len(classes))
	for _, c := range classes {
		set[c] = true
	}
	for _, m := range severityMarkers {
		for _, c := range m.classes {
			if set[c] {
				return m.severity
			}
		}
	}
	return SeverityInfo
}

// NormalizeText collapses whitespace, drops zero-width characters and trims.
func NormalizeText(text string) string {
	text = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}
