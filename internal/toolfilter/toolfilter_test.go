package toolfilter

import (
	"reflect"
	"testing"
)

func TestApplyNoFilterUnchanged(t *testing.T) {
	names := []string{"read_file", "write_file"}
	got := Filter{}.Apply(names)
	if !reflect.DeepEqual(got, names) {
		t.Fatalf("expected unchanged, got %v", got)
	}
}

func TestApplyAllowedThenBlocked(t *testing.T) {
	names := []string{"read_file", "write_file", "search_code", "dangerous_delete", "run_tests"}
	f := Filter{Allowed: []string{"read_*", "write_*"}, Blocked: []string{"write_*"}}
	got := f.Apply(names)
	want := []string{"read_file"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestApplyIdempotent(t *testing.T) {
	names := []string{"read_file", "write_file", "search_code"}
	f := Filter{Allowed: []string{"read_*"}}
	once := f.Apply(names)
	twice := f.Apply(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("filter not idempotent: %v vs %v", once, twice)
	}
}

func TestAllows(t *testing.T) {
	f := Filter{Blocked: []string{"dangerous_*"}}
	if f.Allows("dangerous_delete") {
		t.Fatal("expected dangerous_delete to be blocked")
	}
	if !f.Allows("read_file") {
		t.Fatal("expected read_file to be allowed")
	}
}
