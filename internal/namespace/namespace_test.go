package namespace

import "testing"

func TestJoinParseRoundTrip(t *testing.T) {
	servers := []string{"vitest", "playwright"}
	for _, srv := range servers {
		wire := Join(srv, "run", "__")
		gotServer, gotTool, ok := Parse(wire, servers, "__")
		if !ok || gotServer != srv || gotTool != "run" {
			t.Fatalf("round trip failed for %s: got (%s, %s, %v)", srv, gotServer, gotTool, ok)
		}
	}
}

func TestParseGreedyLongestPrefix(t *testing.T) {
	servers := []string{"test", "test_server"}
	server, tool, ok := Parse("test_server__do_thing", servers, "__")
	if !ok {
		t.Fatal("expected a match")
	}
	if server != "test_server" || tool != "do_thing" {
		t.Fatalf("expected (test_server, do_thing), got (%s, %s)", server, tool)
	}
}

func TestParseNoMatch(t *testing.T) {
	_, _, ok := Parse("unknown__tool", []string{"vitest"}, "__")
	if ok {
		t.Fatal("expected no match")
	}
}

func TestStripUnchangedWhenNoPrefix(t *testing.T) {
	got := Strip("bare_tool", "vitest", "__")
	if got != "bare_tool" {
		t.Fatalf("expected unchanged, got %s", got)
	}
}

func TestEmptyToolNamePermitted(t *testing.T) {
	wire := Join("vitest", "", "__")
	server, tool, ok := Parse(wire, []string{"vitest"}, "__")
	if !ok || server != "vitest" || tool != "" {
		t.Fatalf("expected (vitest, \"\"), got (%s, %s, %v)", server, tool, ok)
	}
}
