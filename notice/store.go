package notice

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/hazyhaar/noticepanel/page"
)

// Store is the authoritative collection of known notices.
type Store struct {
	byID      map[string]*Notice
	ordered   []*Notice
	dismissed map[string]struct{}
	// primed is set after the first reconciliation; notices created before
	// it are not flagged as new.
	primed bool
	logger *slog.Logger
}

// NewStore returns an empty store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		byID:      make(map[string]*Notice),
		dismissed: make(map[string]struct{}),
		logger:    logger,
	}
}

// Hydrate seeds the dismissed set, typically from the bootstrap payload.
// Notices already known are not touched.
func (s *Store) Hydrate(ids []string) {
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s.dismissed[id] = struct{}{}
		}
	}
}

// ReconcileResult reports what a reconciliation changed.
type ReconcileResult struct {
	// NewCritical is true when a notice created by this pass is active and
	// of error severity.
	NewCritical bool
	Added       []string
	Removed     []string
}

// Reconcile rebuilds the store from a fresh scan. Known notices keep their
// dismissed state; new ones take it from the dismissed set. Notices absent
// from the scan are dropped. When two elements share an identity the first
// one in scan order wins.
func (s *Store) Reconcile(elements []page.Element) ReconcileResult {
	var res ReconcileResult
	seen := make(map[string]struct{}, len(elements))
	next := make([]*Notice, 0, len(elements))

	for _, el := range elements {
		id := EnsureIdentity(el)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		n, known := s.byID[id]
		if !known {
			n = &Notice{ID: id, IsNew: s.primed}
			_, n.Dismissed = s.dismissed[id]
			s.byID[id] = n
			res.Added = append(res.Added, id)
		}
		n.Source = el
		n.Severity = Classify(el)
		n.Text = NormalizeText(el.Text())
		n.Order = len(next)
		next = append(next, n)

		if !known && !n.Dismissed && n.Severity == SeverityError {
			res.NewCritical = true
		}
	}

	for id := range s.byID {
		if _, ok := seen[id]; !ok {
			delete(s.byID, id)
			res.Removed = append(res.Removed, id)
		}
	}
	slices.Sort(res.Removed)

	s.ordered = next
	s.primed = true
	if len(res.Added) > 0 || len(res.Removed) > 0 {
		s.logger.Debug("notice: reconciled",
			"total", len(next), "added", len(res.Added), "removed", len(res.Removed),
			"new_critical", res.NewCritical)
	}
	return res
}

// SetDismissed moves n to the given state. Un-dismissing hides the source
// element again, since a reveal may have put it back in the page flow.
// It reports whether the state changed.
func (s *Store) SetDismissed(n *Notice, dismissed bool) bool {
	if n.Dismissed == dismissed {
		return false
	}
	n.Dismissed = dismissed
	n.JustToggled = true
	if dismissed {
		s.dismissed[n.ID] = struct{}{}
		return true
	}
	delete(s.dismissed, n.ID)
	if n.Source != nil {
		if err := page.Hide(n.Source); err != nil {
			s.logger.Debug("notice: re-hide skipped", "id", n.ID, "error", err)
		}
	}
	return true
}

// BulkSetDismissed applies SetDismissed to every notice and returns the ones
// whose state actually changed.
func (s *Store) BulkSetDismissed(ns []*Notice, dismissed bool) []*Notice {
	var changed []*Notice
	for _, n := range ns {
		if s.SetDismissed(n, dismissed) {
			changed = append(changed, n)
		}
	}
	return changed
}

// Notices returns the known notices in scan order.
func (s *Store) Notices() []*Notice {
	return slices.Clone(s.ordered)
}

// Get looks a notice up by identity.
func (s *Store) Get(id string) (*Notice, bool) {
	n, ok := s.byID[id]
	return n, ok
}

// Len is the number of known notices.
func (s *Store) Len() int { return len(s.ordered) }

// ActiveCount is the number of notices not dismissed.
func (s *Store) ActiveCount() int {
	c := 0
	for _, n := range s.ordered {
		if !n.Dismissed {
			c++
		}
	}
	return c
}

// DismissedIDs returns the dismissed set, sorted. It includes ids of notices
// not currently on the page.
func (s *Store) DismissedIDs() []string {
	ids := make([]string, 0, len(s.dismissed))
	for id := range s.dismissed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ClearTransient resets the per-render hints.
func (s *Store) ClearTransient() {
	for _, n := range s.ordered {
		n.IsNew = false
		n.JustToggled = false
	}
}
