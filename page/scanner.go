package page

import (
	"log/slog"
	"strings"
)

// Default anchors of the admin screen.
const (
	DefaultRoot  = "#wpbody-content"
	DefaultPanel = "#notice-panel"
)

// ScannerConfig configures a Scanner.
type ScannerConfig struct {
	// Root is the monitored region. Default: DefaultRoot.
	Root string
	// Panel is the panel container whose descendants are never scanned.
	// Default: DefaultPanel.
	Panel string
	// Markers are the notice classes matched under Root.
	// Default: notice, error, updated.
	Markers []string
	// IncludeUpdateNag adds the update-nag marker.
	IncludeUpdateNag bool
	Logger           *slog.Logger
}

func (c *ScannerConfig) defaults() {
	if c.Root == "" {
		c.Root = DefaultRoot
	}
	if c.Panel == "" {
		c.Panel = DefaultPanel
	}
	if len(c.Markers) == 0 {
		c.Markers = []string{"notice", "error", "updated"}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Scanner discovers candidate notice elements in the monitored region.
type Scanner struct {
	cfg      ScannerConfig
	selector string
}

// NewScanner builds a Scanner. The selector group is compiled once.
func NewScanner(cfg ScannerConfig) *Scanner {
	cfg.defaults()
	markers := append([]string(nil), cfg.Markers...)
	if cfg.IncludeUpdateNag {
		markers = append(markers, "update-nag")
	}
	parts := make([]string, 0, len(markers))
	for _, m := range markers {
		parts = append(parts, cfg.Root+" ."+m)
	}
	return &Scanner{cfg: cfg, selector: strings.Join(parts, ", ")}
}

// Selector returns the compiled selector group.
func (s *Scanner) Selector() string { return s.selector }

// Root returns the monitored region selector.
func (s *Scanner) Root() string { return s.cfg.Root }

// Scan returns the notice elements under the root in document order and
// hides each of them. Elements inside the panel and repeated nodes are
// skipped. A missing root yields an empty scan.
func (s *Scanner) Scan(doc Document) []Element {
	if !doc.Exists(s.cfg.Root) {
		return nil
	}
	found, err := doc.QueryAll(s.selector)
	if err != nil {
		s.cfg.Logger.Debug("page: scan query failed", "error", err)
		return nil
	}

	seen := make(map[string]struct{}, len(found))
	out := make([]Element, 0, len(found))
	for _, el := range found {
		if el.Within(s.cfg.Panel) {
			continue
		}
		key := el.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		// The element may vanish between the query and the hide.
		if err := Hide(el); err != nil {
			s.cfg.Logger.Debug("page: hide skipped", "key", key, "error", err)
			continue
		}
		out = append(out, el)
	}
	return out
}
