package agent

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/spike-land/spike/ai"
	"github.com/spike-land/spike/internal/protocol"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClient implements ai.Client with scripted streamed responses, one
// per call to StreamChatCompletion, consumed in order.
type fakeClient struct {
	scripted []ai.ChatCompletionResponse
	calls    int
}

func (f *fakeClient) Provider() string                  { return "fake" }
func (f *fakeClient) SupportsCapability(cap string) bool { return false }
func (f *fakeClient) GetModels(ctx context.Context) (*ai.ModelsResponse, error) {
	return nil, nil
}
func (f *fakeClient) ChatCompletion(ctx context.Context, req ai.ChatCompletionRequest) (*ai.ChatCompletionResponse, error) {
	return nil, nil
}

func (f *fakeClient) StreamChatCompletion(ctx context.Context, req ai.ChatCompletionRequest) *ai.ChatStream {
	resp := f.scripted[f.calls]
	f.calls++

	respChan := make(chan ai.ChatCompletionResponse, 1)
	errChan := make(chan error, 1)
	respChan <- resp
	close(respChan)
	close(errChan)
	return ai.NewChatStream(ctx, respChan, errChan)
}

func (f *fakeClient) CreateEmbedding(ctx context.Context, req ai.EmbeddingRequest) (*ai.EmbeddingResponse, error) {
	return nil, nil
}
func (f *fakeClient) Close() error { return nil }

type fakeRouter struct {
	result protocol.CallResult
}

func (f fakeRouter) CallTool(ctx context.Context, wireName string, args map[string]interface{}) (protocol.CallResult, error) {
	return f.result, nil
}

func textResponse(text string) ai.ChatCompletionResponse {
	return ai.ChatCompletionResponse{
		Choices: []ai.Choice{{Delta: ai.Delta{Content: text}}},
	}
}

func toolCallResponse(name, argsJSON string) ai.ChatCompletionResponse {
	return ai.ChatCompletionResponse{
		Choices: []ai.Choice{{Delta: ai.Delta{ToolCalls: []ai.DeltaToolCall{
			{Index: 0, ID: "call_1", Function: ai.DeltaFunction{Name: name, Arguments: argsJSON}},
		}}}},
	}
}

func TestRunStopsWhenNoToolCallsRequested(t *testing.T) {
	client := VendorChatClient{Client: &fakeClient{scripted: []ai.ChatCompletionResponse{textResponse("hello there")}}}
	loop := New(client, "gpt-test", fakeRouter{}, nil, 0, nil, discardLogger())

	messages, err := loop.Run(context.Background(), []Message{UserText("hi")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected user + assistant messages, got %d", len(messages))
	}
	if messages[1].TextContent() != "hello there" {
		t.Fatalf("unexpected assistant content: %v", messages[1].TextContent())
	}
}

func TestRunExecutesToolCallThenStops(t *testing.T) {
	client := VendorChatClient{Client: &fakeClient{scripted: []ai.ChatCompletionResponse{
		toolCallResponse("github__search_issues", `{"q":"bug"}`),
		textResponse("found it"),
	}}}
	router := fakeRouter{result: protocol.CallResult{Content: []protocol.ContentBlock{{Type: "text", Text: "issue #1"}}}}
	loop := New(client, "gpt-test", router, nil, 0, nil, discardLogger())

	messages, err := loop.Run(context.Background(), []Message{UserText("find bugs")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawToolResult bool
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		for _, b := range m.Blocks {
			if b.Type == BlockToolResult && b.Content == "issue #1" && b.ToolUseID == "call_1" {
				sawToolResult = true
			}
		}
	}
	if !sawToolResult {
		t.Fatalf("expected a bundled tool_result block in transcript: %+v", messages)
	}
}

func TestRunBundlesToolResultsIntoOneMessage(t *testing.T) {
	client := VendorChatClient{Client: &fakeClient{scripted: []ai.ChatCompletionResponse{
		toolCallResponse("github__search_issues", `{"q":"bug"}`),
		textResponse("done"),
	}}}
	router := fakeRouter{result: protocol.CallResult{Content: []protocol.ContentBlock{{Type: "text", Text: "issue #1"}}}}
	loop := New(client, "gpt-test", router, nil, 0, nil, discardLogger())

	messages, err := loop.Run(context.Background(), []Message{UserText("find bugs")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("expected user, assistant, bundled tool_result, assistant, got %d: %+v", len(messages), messages)
	}
	if messages[2].Role != RoleUser || len(messages[2].Blocks) != 1 || messages[2].Blocks[0].Type != BlockToolResult {
		t.Fatalf("expected a single bundled user message of tool_result blocks, got %+v", messages[2])
	}
}

func TestRunAbortsAtTurnCap(t *testing.T) {
	scripted := make([]ai.ChatCompletionResponse, 3)
	for i := range scripted {
		scripted[i] = toolCallResponse("loop_tool", `{}`)
	}
	client := VendorChatClient{Client: &fakeClient{scripted: scripted}}
	router := fakeRouter{result: protocol.CallResult{Content: []protocol.ContentBlock{{Type: "text", Text: "ok"}}}}
	loop := New(client, "gpt-test", router, nil, 2, nil, discardLogger())

	_, err := loop.Run(context.Background(), []Message{UserText("loop forever")})
	if err == nil {
		t.Fatal("expected turn cap error")
	}
}

func TestToVendorMessagesExpandsBundledToolResults(t *testing.T) {
	messages := []Message{
		UserText("find bugs"),
		{Role: RoleAssistant, Blocks: []Block{{Type: BlockToolUse, ID: "call_1", Name: "search", Input: map[string]interface{}{"q": "bug"}}}},
		ToolResultMessage([]Block{
			{ToolUseID: "call_1", Type: BlockToolResult, Content: "issue #1"},
			{ToolUseID: "call_2", Type: BlockToolResult, Content: "issue #2"},
		}),
	}

	out := toVendorMessages(messages)
	if len(out) != 4 {
		t.Fatalf("expected user, assistant, tool, tool on the wire, got %d: %+v", len(out), out)
	}
	if out[2].Role != "tool" || out[2].Content != "issue #1" || out[2].ToolCallID != "call_1" {
		t.Fatalf("unexpected first expanded tool message: %+v", out[2])
	}
	if out[3].Role != "tool" || out[3].Content != "issue #2" || out[3].ToolCallID != "call_2" {
		t.Fatalf("unexpected second expanded tool message: %+v", out[3])
	}
}

func TestToVendorToolsForwardsSchema(t *testing.T) {
	schema := map[string]interface{}{"type": "object"}
	tools := toVendorTools([]protocol.Tool{{Name: "github__search_issues", Description: "search", InputSchema: schema}})
	if len(tools) != 1 || tools[0].Function.Name != "github__search_issues" {
		t.Fatalf("unexpected conversion: %+v", tools)
	}
}
