// Package agent implements the Agent Loop: the send -> stream ->
// tool_use -> tool_result -> repeat turn machine that drives an
// interactive chat session against the downstream tool catalog. The
// loop drains the ChatClient/Stream abstraction (chatclient.go) via
// Next()/Current(), never the vendor's own wire types directly.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spike-land/spike/internal/protocol"
)

// DefaultTurnCap is the maximum number of send/tool_use round trips in a
// single Run call before the loop aborts.
const DefaultTurnCap = 20

// ToolRouter resolves and executes a single tool call, the same
// interface internal/fleet.Manager and internal/toolset.Controller
// already implement.
type ToolRouter interface {
	CallTool(ctx context.Context, wireName string, args map[string]interface{}) (protocol.CallResult, error)
}

// Observer receives loop progress notifications. Every method is
// optional to implement in full; embed NoopObserver to no-op the rest.
type Observer interface {
	OnTextDelta(text string)
	OnToolCall(name string, args map[string]interface{})
	OnToolResult(name string, result protocol.CallResult)
	OnTurnComplete(turn int)
}

// NoopObserver implements Observer with no-ops, embeddable by callers
// that only care about a subset of events.
type NoopObserver struct{}

func (NoopObserver) OnTextDelta(string)                        {}
func (NoopObserver) OnToolCall(string, map[string]interface{}) {}
func (NoopObserver) OnToolResult(string, protocol.CallResult)  {}
func (NoopObserver) OnTurnComplete(int)                        {}

// Loop drives one conversation against a chat model and a tool router.
type Loop struct {
	client   ChatClient
	model    string
	router   ToolRouter
	tools    []protocol.Tool
	turnCap  int
	logger   *slog.Logger
	observer Observer
}

// New constructs a Loop. tools is the wire-visible tool catalog, passed
// through to the ChatClient byte-exact on every turn.
func New(client ChatClient, model string, router ToolRouter, tools []protocol.Tool, turnCap int, observer Observer, logger *slog.Logger) *Loop {
	if turnCap <= 0 {
		turnCap = DefaultTurnCap
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Loop{client: client, model: model, router: router, tools: tools, turnCap: turnCap, logger: logger, observer: observer}
}

// Run executes the turn machine starting from messages (which should
// already include the user's latest message), sending partial text to
// the observer and invoking tools serially within each turn (in-turn
// tool execution is serial, never concurrent) until the model stops
// requesting tools, or the turn cap is reached. A turn's tool results
// are appended as a single bundled user Message carrying one
// tool_result block per call, in call order — never as separate
// per-call messages.
func (l *Loop) Run(ctx context.Context, messages []Message) ([]Message, error) {
	for turn := 0; turn < l.turnCap; turn++ {
		stream, err := l.client.CreateStream(ctx, l.model, messages, l.tools)
		if err != nil {
			return messages, fmt.Errorf("turn %d: %w", turn, err)
		}

		assistant, err := l.drainStream(stream)
		if err != nil {
			return messages, fmt.Errorf("turn %d: %w", turn, err)
		}
		messages = append(messages, assistant)
		l.observer.OnTurnComplete(turn)

		calls := assistant.ToolUseBlocks()
		if len(calls) == 0 {
			return messages, nil
		}

		results := make([]Block, 0, len(calls))
		for _, call := range calls {
			results = append(results, l.executeToolCall(ctx, call))
		}
		messages = append(messages, ToolResultMessage(results))
	}
	return messages, fmt.Errorf("turn cap of %d reached", l.turnCap)
}

// drainStream accumulates streamed deltas into one assistant Message,
// following the Next()/Current()/Err() Stream contract.
func (l *Loop) drainStream(stream Stream) (Message, error) {
	var text string
	type pendingCall struct {
		id, name string
		rawArgs  string
	}
	pendingByIndex := map[int]*pendingCall{}
	var order []int

	for stream.Next() {
		ev := stream.Current()
		if ev.TextDelta != "" {
			text += ev.TextDelta
			l.observer.OnTextDelta(ev.TextDelta)
		}
		for _, tc := range ev.ToolCalls {
			existing, ok := pendingByIndex[tc.Index]
			if !ok {
				existing = &pendingCall{id: tc.ID}
				pendingByIndex[tc.Index] = existing
				order = append(order, tc.Index)
			}
			if tc.NameFrag != "" {
				existing.name = tc.NameFrag
			}
			existing.rawArgs += tc.ArgsFrag
		}
	}
	if err := stream.Err(); err != nil {
		return Message{}, err
	}

	var blocks []Block
	if text != "" {
		blocks = append(blocks, Block{Type: BlockText, Text: text})
	}
	for _, idx := range order {
		p := pendingByIndex[idx]
		var args map[string]interface{}
		if p.rawArgs != "" {
			json.Unmarshal([]byte(p.rawArgs), &args)
		}
		blocks = append(blocks, Block{Type: BlockToolUse, ID: p.id, Name: p.name, Input: args})
	}
	if len(blocks) == 0 {
		return Message{Role: RoleAssistant, Content: text}, nil
	}
	return Message{Role: RoleAssistant, Blocks: blocks}, nil
}

// executeToolCall runs one tool_use block through the router and
// returns the matching tool_result block.
func (l *Loop) executeToolCall(ctx context.Context, call Block) Block {
	l.observer.OnToolCall(call.Name, call.Input)

	result, err := l.router.CallTool(ctx, call.Name, call.Input)
	if err != nil {
		result = protocol.CallResult{
			Content: []protocol.ContentBlock{{Type: "text", Text: err.Error()}},
			IsError: true,
		}
	}
	l.observer.OnToolResult(call.Name, result)

	return Block{
		Type:      BlockToolResult,
		ToolUseID: call.ID,
		Content:   renderResultText(result),
		IsError:   result.IsError,
	}
}

func renderResultText(result protocol.CallResult) string {
	var text string
	for _, block := range result.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" && result.StructuredContent != nil {
		if data, err := json.Marshal(result.StructuredContent); err == nil {
			text = string(data)
		}
	}
	return text
}
