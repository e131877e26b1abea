package notice

import (
	"slices"
	"testing"

	"github.com/hazyhaar/noticepanel/page"
)

const (
	errNotice  = `<div class="notice notice-error" id="e1"><p>Payment gateway down</p></div>`
	warnNotice = `<div class="notice notice-warning"><p>License expires soon</p></div>`
	infoNotice = `<div class="notice notice-info"><p>Weekly report ready</p></div>`
)

func ids(ns []*Notice) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func TestReconcile_OnePerIdentityAndGC(t *testing.T) {
	doc, sc := testDoc(t, errNotice, warnNotice, infoNotice)
	s := NewStore(nil)

	res := s.Reconcile(sc.Scan(doc))
	if len(res.Added) != 3 || s.Len() != 3 {
		t.Fatalf("added %d, len %d, want 3", len(res.Added), s.Len())
	}

	doc.Remove(".notice-warning")
	res = s.Reconcile(sc.Scan(doc))
	if len(res.Removed) != 1 || s.Len() != 2 {
		t.Fatalf("removed %v, len %d", res.Removed, s.Len())
	}
	for _, n := range s.Notices() {
		if n.Severity == SeverityWarning {
			t.Fatal("stale warning notice kept")
		}
	}
	for i, n := range s.Notices() {
		if n.Order != i {
			t.Errorf("notice %s order %d, want %d", n.ID, n.Order, i)
		}
	}
}

func TestReconcile_CollisionDedupes(t *testing.T) {
	dup := `<div class="notice notice-info"><p>Same text</p></div>`
	doc, sc := testDoc(t, dup, dup, warnNotice)
	s := NewStore(nil)

	s.Reconcile(sc.Scan(doc))
	if s.Len() != 2 {
		t.Fatalf("len %d, want 2 (identical notices collapse)", s.Len())
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	doc, sc := testDoc(t, errNotice, warnNotice, infoNotice)
	s := NewStore(nil)
	s.Reconcile(sc.Scan(doc))
	n := s.Notices()[1]
	s.SetDismissed(n, true)

	crit := Criteria{Filter: FilterAll}
	before := ids(Project(s.Notices(), crit).Visible)
	res := s.Reconcile(sc.Scan(doc))
	after := ids(Project(s.Notices(), crit).Visible)

	if len(res.Added) != 0 || len(res.Removed) != 0 || res.NewCritical {
		t.Fatalf("second pass changed the store: %+v", res)
	}
	if !slices.Equal(before, after) {
		t.Fatalf("visible list changed: %v -> %v", before, after)
	}
	if !n.Dismissed {
		t.Fatal("dismissed state lost across reconcile")
	}
}

func TestReconcile_HydratedDismissed(t *testing.T) {
	doc, sc := testDoc(t, errNotice, infoNotice)
	els := sc.Scan(doc)
	id := EnsureIdentity(els[0])

	s := NewStore(nil)
	s.Hydrate([]string{id, " ", ""})
	res := s.Reconcile(els)

	n, ok := s.Get(id)
	if !ok || !n.Dismissed {
		t.Fatalf("hydrated notice not dismissed: %+v", n)
	}
	if res.NewCritical {
		t.Fatal("dismissed error notice reported as new critical")
	}
	if s.ActiveCount() != 1 {
		t.Fatalf("active count %d, want 1", s.ActiveCount())
	}
}

func TestReconcile_NewCritical(t *testing.T) {
	doc, sc := testDoc(t, infoNotice)
	s := NewStore(nil)

	if res := s.Reconcile(sc.Scan(doc)); res.NewCritical {
		t.Fatal("info notice reported as critical")
	}
	if err := doc.Append("#wpbody-content", errNotice); err != nil {
		t.Fatal(err)
	}
	res := s.Reconcile(sc.Scan(doc))
	if !res.NewCritical {
		t.Fatal("new error notice not reported")
	}
	n, _ := s.Get(res.Added[0])
	if !n.IsNew {
		t.Fatal("notice added after the first pass not flagged new")
	}
	if res := s.Reconcile(sc.Scan(doc)); res.NewCritical {
		t.Fatal("known error notice reported again")
	}
}

func TestReconcile_SeverityRefreshed(t *testing.T) {
	doc, sc := testDoc(t, `<div class="notice" id="s"><p>status</p></div>`)
	s := NewStore(nil)
	s.Reconcile(sc.Scan(doc))

	el, _ := doc.First("#s")
	if err := el.AddClass("notice-warning"); err != nil {
		t.Fatal(err)
	}
	s.Reconcile(sc.Scan(doc))
	if got := s.Notices()[0].Severity; got != SeverityWarning {
		t.Fatalf("severity %s, want warning", got)
	}
}

func TestSetDismissed_RoundTripRehides(t *testing.T) {
	doc, sc := testDoc(t, errNotice)
	s := NewStore(nil)
	s.Reconcile(sc.Scan(doc))
	n := s.Notices()[0]
	orig := n.Dismissed

	if !s.SetDismissed(n, true) {
		t.Fatal("dismiss reported no change")
	}
	if s.SetDismissed(n, true) {
		t.Fatal("repeated dismiss reported a change")
	}
	if err := page.Unhide(n.Source); err != nil {
		t.Fatal(err)
	}
	s.SetDismissed(n, false)

	if n.Dismissed != orig {
		t.Fatalf("dismissed %v, want %v", n.Dismissed, orig)
	}
	if !page.IsHidden(n.Source) {
		t.Fatal("source not hidden again after un-dismiss")
	}
	if !n.JustToggled {
		t.Fatal("justToggled not set")
	}
	if n.Severity != SeverityError || n.Text != "Payment gateway down" || n.Order != 0 {
		t.Fatalf("SetDismissed touched other fields: %+v", n)
	}
}

func TestBulkSetDismissed_ChangedSubset(t *testing.T) {
	doc, sc := testDoc(t, errNotice, warnNotice, infoNotice)
	s := NewStore(nil)
	s.Reconcile(sc.Scan(doc))
	all := s.Notices()
	s.SetDismissed(all[0], true)

	changed := s.BulkSetDismissed(all, true)
	if len(changed) != 2 {
		t.Fatalf("changed %d, want 2", len(changed))
	}
	if slices.Contains(ids(changed), all[0].ID) {
		t.Fatal("already dismissed notice reported as changed")
	}
	if got := s.DismissedIDs(); len(got) != 3 {
		t.Fatalf("dismissed ids %v", got)
	}
}

func TestActiveCount(t *testing.T) {
	doc, sc := testDoc(t,
		errNotice, warnNotice, infoNotice,
		`<div class="updated"><p>Saved</p></div>`,
		`<div class="notice notice-success"><p>Imported</p></div>`)
	s := NewStore(nil)
	s.Reconcile(sc.Scan(doc))
	all := s.Notices()
	s.BulkSetDismissed(all[3:], true)

	if got := s.ActiveCount(); got != 3 {
		t.Fatalf("active count %d, want 3", got)
	}
	s.SetDismissed(all[0], true)
	if got := s.ActiveCount(); got != 2 {
		t.Fatalf("active count %d, want 2", got)
	}
}

func TestClearTransient(t *testing.T) {
	doc, sc := testDoc(t, errNotice)
	s := NewStore(nil)
	s.Reconcile(sc.Scan(doc))
	n := s.Notices()[0]
	s.SetDismissed(n, true)
	s.ClearTransient()
	if n.JustToggled || n.IsNew {
		t.Fatalf("transient hints survive: %+v", n)
	}
}
