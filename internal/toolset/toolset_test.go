package toolset

import (
	"context"
	"strings"
	"testing"
)

type fakeCounts struct{ m map[string]int }

func (f fakeCounts) ToolCount(name string) int { return f.m[name] }

func newTestController() *Controller {
	groups := map[string][]string{
		"default": {"github"},
		"db":      {"postgres", "redis"},
	}
	return New(groups, fakeCounts{m: map[string]int{"github": 3, "postgres": 5, "redis": 2}}, "__")
}

func TestServerWithoutGroupAlwaysVisible(t *testing.T) {
	c := New(map[string][]string{}, nil, "__")
	if !c.IsServerVisible("anything") {
		t.Fatal("expected ungrouped server to be visible")
	}
}

func TestToolsetHiddenUntilLoaded(t *testing.T) {
	c := newTestController()
	if c.IsServerVisible("postgres") {
		t.Fatal("expected postgres hidden before load")
	}
	c.loadToolset("db")
	if !c.IsServerVisible("postgres") || !c.IsServerVisible("redis") {
		t.Fatal("expected db group servers visible after load")
	}
}

func TestUnloadHidesGroupAgain(t *testing.T) {
	c := newTestController()
	c.loadToolset("db")
	c.unloadToolset("db")
	if c.IsServerVisible("postgres") {
		t.Fatal("expected postgres hidden after unload")
	}
}

func TestLoadToolsetIdempotent(t *testing.T) {
	c := newTestController()
	first := c.loadToolset("db")
	second := c.loadToolset("db")
	if first.IsError || second.IsError {
		t.Fatal("expected repeated load to stay a no-op, not an error")
	}
}

func TestLoadUnknownToolsetErrors(t *testing.T) {
	c := newTestController()
	resp := c.loadToolset("nonexistent")
	if !resp.IsError {
		t.Fatal("expected error for unknown toolset")
	}
}

func TestUnloadUnknownToolsetErrors(t *testing.T) {
	c := newTestController()
	resp := c.unloadToolset("nonexistent")
	if !resp.IsError {
		t.Fatal("expected error for unknown toolset")
	}
}

func TestUnloadNotLoadedToolsetErrors(t *testing.T) {
	c := newTestController()
	resp := c.unloadToolset("db")
	if !resp.IsError {
		t.Fatal("expected error for unloading a toolset that was never loaded")
	}
}

func TestIsMetaToolRecognizesAllThree(t *testing.T) {
	c := newTestController()
	for _, name := range []string{"spike__list_toolsets", "spike__load_toolset", "spike__unload_toolset"} {
		if !c.IsMetaTool(name) {
			t.Fatalf("expected %s to be recognized as a meta tool", name)
		}
	}
	if c.IsMetaTool("github__search_issues") {
		t.Fatal("expected ordinary upstream tool not to be a meta tool")
	}
}

func TestMetaToolsAlwaysListedRegardlessOfLoadState(t *testing.T) {
	c := newTestController()
	tools := c.MetaTools()
	if len(tools) != 3 {
		t.Fatalf("expected 3 meta tools, got %d", len(tools))
	}
}

func TestCallMetaToolListToolsetsRendersGroups(t *testing.T) {
	c := newTestController()
	result, err := c.CallMetaTool(context.Background(), "spike__list_toolsets", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Content) == 0 || !strings.Contains(result.Content[0].Text, "db") {
		t.Fatalf("expected rendered output to mention toolset names, got %+v", result.Content)
	}
}

func TestCallMetaToolLoadThenVisible(t *testing.T) {
	c := newTestController()
	_, err := c.CallMetaTool(context.Background(), "spike__load_toolset", map[string]interface{}{"name": "db"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsServerVisible("postgres") {
		t.Fatal("expected postgres visible after load_toolset call")
	}
}
