package page_test

import (
	"testing"

	"github.com/hazyhaar/noticepanel/page"
	"github.com/hazyhaar/noticepanel/page/htmldoc"
)

const fixture = `<html><body>
<div id="wpbody-content">
  <div class="notice notice-error" id="n1"><p>Database error</p></div>
  <div class="updated"><p>Settings saved</p></div>
  <div class="update-nag">WordPress 9.9 is available</div>
  <div class="notice error"><p>Both markers</p></div>
  <div id="notice-panel"><div class="notice notice-info">panel copy</div></div>
</div>
<div class="notice">outside root</div>
</body></html>`

func parse(t *testing.T, s string) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.ParseString(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestScan_DocumentOrderAndExclusions(t *testing.T) {
	doc := parse(t, fixture)
	s := page.NewScanner(page.ScannerConfig{})

	got := s.Scan(doc)
	if len(got) != 3 {
		t.Fatalf("scanned %d elements, want 3", len(got))
	}
	if got[0].ID() != "n1" {
		t.Errorf("first element id: got %q, want n1", got[0].ID())
	}
	if !got[1].HasClass("updated") {
		t.Errorf("second element classes: %v", got[1].Classes())
	}
	for _, el := range got {
		if el.Within(page.DefaultPanel) {
			t.Errorf("panel element scanned: %v", el.Classes())
		}
	}
}

func TestScan_UpdateNagGated(t *testing.T) {
	doc := parse(t, fixture)
	s := page.NewScanner(page.ScannerConfig{IncludeUpdateNag: true})
	if got := s.Scan(doc); len(got) != 4 {
		t.Fatalf("scanned %d elements, want 4", len(got))
	}
}

func TestScan_HidesScannedElements(t *testing.T) {
	doc := parse(t, fixture)
	s := page.NewScanner(page.ScannerConfig{})
	for _, el := range s.Scan(doc) {
		if !page.IsHidden(el) {
			t.Errorf("element %v not hidden", el.Classes())
		}
	}

	nag, ok := doc.First(".update-nag")
	if !ok {
		t.Fatal("update-nag missing")
	}
	if page.IsHidden(nag) {
		t.Error("unscanned element was hidden")
	}
}

func TestScan_MissingRoot(t *testing.T) {
	doc := parse(t, `<html><body><div class="notice">x</div></body></html>`)
	s := page.NewScanner(page.ScannerConfig{})
	if got := s.Scan(doc); got != nil {
		t.Fatalf("scan without root: got %d elements", len(got))
	}
}

func TestHideUnhide_RoundTrip(t *testing.T) {
	doc := parse(t, fixture)
	el, _ := doc.First("#n1")

	if err := page.Hide(el); err != nil {
		t.Fatal(err)
	}
	if !page.IsHidden(el) {
		t.Fatal("not hidden after Hide")
	}
	if err := page.Unhide(el); err != nil {
		t.Fatal(err)
	}
	if page.IsHidden(el) {
		t.Fatal("still hidden after Unhide")
	}
	if !el.HasClass("notice-error") {
		t.Fatal("Unhide dropped an unrelated class")
	}
}

func TestHide_Detached(t *testing.T) {
	doc := parse(t, fixture)
	el, _ := doc.First("#n1")
	doc.Remove("#n1")

	if err := page.Hide(el); err != page.ErrDetached {
		t.Fatalf("hide detached: got %v, want ErrDetached", err)
	}
}
