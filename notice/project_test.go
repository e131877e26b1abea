package notice

import "testing"

func fixtureNotices() []*Notice {
	return []*Notice{
		{ID: "a", Severity: SeverityError, Text: "Backup failed on host db1"},
		{ID: "b", Severity: SeverityWarning, Text: "Plugin outdated"},
		{ID: "c", Severity: SeverityInfo, Text: "Backup scheduled", Dismissed: true},
		{ID: "d", Severity: SeverityWarning, Text: "Cache nearly full", Dismissed: true},
	}
}

func TestProject(t *testing.T) {
	tests := []struct {
		name  string
		crit  Criteria
		want  []string
		empty EmptyState
	}{
		{"all active", Criteria{Filter: FilterAll}, []string{"a", "b"}, EmptyNone},
		{"all with archive", Criteria{Filter: FilterAll, ShowDismissed: true}, []string{"a", "b", "c", "d"}, EmptyNone},
		{"warning filter", Criteria{Filter: Filter(SeverityWarning), ShowDismissed: true}, []string{"b", "d"}, EmptyNone},
		{"warning filter active", Criteria{Filter: Filter(SeverityWarning)}, []string{"b"}, EmptyNone},
		{"search case insensitive", Criteria{Search: "BACKUP"}, []string{"a"}, EmptyNone},
		{"search archived only", Criteria{Search: "scheduled"}, nil, EmptyAllArchived},
		{"search archived shown", Criteria{Search: "scheduled", ShowDismissed: true}, []string{"c"}, EmptyNone},
		{"no match", Criteria{Filter: Filter(SeveritySuccess)}, nil, EmptyNoMatches},
		{"search no match", Criteria{Search: "zzz", ShowDismissed: true}, nil, EmptyNoMatches},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project(fixtureNotices(), tt.crit)
			got := ids(p.Visible)
			if len(got) != len(tt.want) {
				t.Fatalf("visible %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("visible %v, want %v", got, tt.want)
				}
			}
			if p.Empty != tt.empty {
				t.Fatalf("empty state %s, want %s", p.Empty, tt.empty)
			}
		})
	}
}

func TestProject_FilterIgnoresSearchAndArchive(t *testing.T) {
	ns := []*Notice{
		{ID: "e", Severity: SeverityError},
		{ID: "w", Severity: SeverityWarning, Dismissed: true},
		{ID: "i", Severity: SeverityInfo},
	}
	for _, show := range []bool{false, true} {
		p := Project(ns, Criteria{Filter: Filter(SeverityWarning), ShowDismissed: show})
		for _, n := range p.Visible {
			if n.Severity != SeverityWarning {
				t.Fatalf("filter leaked %s", n.Severity)
			}
		}
	}
}

func TestProject_Empty(t *testing.T) {
	if p := Project(nil, Criteria{}); p.Empty != EmptyNoNotices {
		t.Fatalf("empty store: %s", p.Empty)
	}
}
