package notice

import (
	"errors"
	"fmt"
	"strings"
)

// Filter selects notices by severity. FilterAll passes everything.
type Filter string

const FilterAll Filter = "all"

// ErrUnknownFilter is returned by ParseFilter for names it does not know.
var ErrUnknownFilter = errors.New("notice: unknown filter")

// ParseFilter accepts "all" or a severity name. The empty string means all.
func ParseFilter(s string) (Filter, error) {
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	sev, err := ParseSeverity(s)
	if err != nil {
		return "", fmt.Errorf("%w %q", ErrUnknownFilter, s)
	}
	return Filter(sev), nil
}

// Criteria are the view controls.
type Criteria struct {
	Filter        Filter `json:"filter"`
	Search        string `json:"search"`
	ShowDismissed bool   `json:"show_dismissed"`
}

// EmptyState tells why a projection is empty.
type EmptyState int

const (
	EmptyNone EmptyState = iota
	// EmptyNoNotices: the store holds nothing.
	EmptyNoNotices
	// EmptyNoMatches: nothing passes filter and search.
	EmptyNoMatches
	// EmptyAllArchived: matches exist but all are dismissed and hidden.
	EmptyAllArchived
)

func (e EmptyState) String() string {
	switch e {
	case EmptyNoNotices:
		return "no_notices"
	case EmptyNoMatches:
		return "no_matches"
	case EmptyAllArchived:
		return "all_archived"
	default:
		return "none"
	}
}

// MarshalText renders the state name in JSON output.
func (e EmptyState) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// Projection is the visible subset of the store.
type Projection struct {
	Visible []*Notice
	Empty   EmptyState
}

// Project applies the severity filter, then search, then the archive rule.
// Input order is kept.
func Project(notices []*Notice, c Criteria) Projection {
	if len(notices) == 0 {
		return Projection{Empty: EmptyNoNotices}
	}
	term := strings.ToLower(strings.TrimSpace(c.Search))

	matched := 0
	var visible []*Notice
	for _, n := range notices {
		if c.Filter != "" && c.Filter != FilterAll && Filter(n.Severity) != c.Filter {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(n.Text), term) {
			continue
		}
		matched++
		if n.Dismissed && !c.ShowDismissed {
			continue
		}
		visible = append(visible, n)
	}

	p := Projection{Visible: visible}
	switch {
	case matched == 0:
		p.Empty = EmptyNoMatches
	case len(visible) == 0:
		p.Empty = EmptyAllArchived
	}
	return p
}
