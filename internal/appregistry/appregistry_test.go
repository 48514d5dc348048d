package appregistry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spike-land/spike/internal/protocol"
)

func bundled() []AppInfo {
	return []AppInfo{
		{Slug: "github", Name: "GitHub", ToolNames: []string{"search_issues", "create_issue"}},
		{Slug: "notion", Name: "Notion", ToolNames: []string{"search_pages"}},
	}
}

func TestLookupByToolName(t *testing.T) {
	r := New(bundled())
	app, ok := r.Lookup("search_issues")
	if !ok || app.Slug != "github" {
		t.Fatalf("expected github app, got %+v ok=%v", app, ok)
	}
}

func TestBySlug(t *testing.T) {
	r := New(bundled())
	app, ok := r.BySlug("notion")
	if !ok || app.Name != "Notion" {
		t.Fatalf("expected Notion app, got %+v ok=%v", app, ok)
	}
}

type fakeFleet struct {
	tools  []protocol.Tool
	result protocol.CallResult
	err    error
}

func (f fakeFleet) GetAllTools() []protocol.Tool { return f.tools }
func (f fakeFleet) CallTool(ctx context.Context, wireName string, args map[string]interface{}) (protocol.CallResult, error) {
	return f.result, f.err
}

func TestRefreshFromRemoteReplacesOnSuccess(t *testing.T) {
	r := New(bundled())
	newApps := []AppInfo{{Slug: "slack", Name: "Slack", ToolNames: []string{"post_message"}}}
	payload, _ := json.Marshal(newApps)

	fleet := fakeFleet{
		tools: []protocol.Tool{{Name: "store__store_list_apps_with_tools"}},
		result: protocol.CallResult{
			Content: []protocol.ContentBlock{{Type: "text", Text: string(payload)}},
		},
	}
	r.RefreshFromRemote(context.Background(), fleet)

	if _, ok := r.Lookup("search_issues"); ok {
		t.Fatal("expected old registry to be replaced")
	}
	if _, ok := r.Lookup("post_message"); !ok {
		t.Fatal("expected new registry to be active")
	}
}

func TestRefreshFromRemoteNoToolFoundLeavesRegistryUntouched(t *testing.T) {
	r := New(bundled())
	fleet := fakeFleet{tools: nil}
	r.RefreshFromRemote(context.Background(), fleet)

	if _, ok := r.Lookup("search_issues"); !ok {
		t.Fatal("expected original registry to remain when no remote tool is found")
	}
}

func TestRefreshFromRemoteBadJSONLeavesRegistryUntouched(t *testing.T) {
	r := New(bundled())
	fleet := fakeFleet{
		tools:  []protocol.Tool{{Name: "store_list_apps_with_tools"}},
		result: protocol.CallResult{Content: []protocol.ContentBlock{{Type: "text", Text: "not json"}}},
	}
	r.RefreshFromRemote(context.Background(), fleet)

	if _, ok := r.Lookup("search_issues"); !ok {
		t.Fatal("expected original registry to remain on parse failure")
	}
}

func TestRefreshFromRemoteEmptyListLeavesRegistryUntouched(t *testing.T) {
	r := New(bundled())
	fleet := fakeFleet{
		tools:  []protocol.Tool{{Name: "store_list_apps_with_tools"}},
		result: protocol.CallResult{Content: []protocol.ContentBlock{{Type: "text", Text: "[]"}}},
	}
	r.RefreshFromRemote(context.Background(), fleet)

	if _, ok := r.Lookup("search_issues"); !ok {
		t.Fatal("expected original registry to remain on empty list")
	}
}
