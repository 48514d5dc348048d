package fleet

import (
	"testing"

	"github.com/spike-land/spike/internal/upstream"
)

func TestDescribePrefixesServerName(t *testing.T) {
	got := describe("github", toolNamed("search_issues", "searches issues"))
	want := "[github] searches issues"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDescribeFallsBackToToolName(t *testing.T) {
	got := describe("github", toolNamed("search_issues", ""))
	want := "[github] search_issues"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApplyConfigDiffComputesAddedRemoved(t *testing.T) {
	m := NewManager("__", false, nil, discardLogger())
	old := map[string]upstream.Config{
		"keep":    {Transport: upstream.TransportStdio, Command: "node"},
		"removed": {Transport: upstream.TransportStdio, Command: "node"},
	}
	m.configs = old

	new := map[string]upstream.Config{
		"keep":  {Transport: upstream.TransportStdio, Command: "node"},
		"added": {Transport: upstream.TransportStdio, Command: "does-not-exist-binary"},
	}

	diff := m.ApplyConfigDiff(testContext(), old, new)
	if len(diff.Removed) != 1 || diff.Removed[0] != "removed" {
		t.Fatalf("expected 'removed' to be removed, got %v", diff.Removed)
	}
	if len(diff.Added) != 0 {
		t.Fatalf("expected 'added' not reported since its command cannot start, got %v", diff.Added)
	}
	if len(diff.Changed) != 0 {
		t.Fatalf("expected no changes for identical config, got %v", diff.Changed)
	}
}

func TestCallToolUnresolvableNameReturnsError(t *testing.T) {
	m := NewManager("__", false, nil, discardLogger())
	_, err := m.CallTool(testContext(), "not_a_known_wire_name", nil)
	if err == nil {
		t.Fatal("expected error for unresolvable wire name")
	}
}

func TestNamesSortedAndEmptyInitially(t *testing.T) {
	m := NewManager("__", false, nil, discardLogger())
	if len(m.Names()) != 0 {
		t.Fatalf("expected empty fleet, got %v", m.Names())
	}
}
