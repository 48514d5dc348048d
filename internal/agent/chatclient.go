package agent

import (
	"context"

	"github.com/spike-land/spike/ai"
	"github.com/spike-land/spike/internal/protocol"
)

// ToolCallDelta is one streamed fragment of an in-progress tool_use
// block, keyed by Index — the vendor's slot for this call within the
// current turn, since a streamed call's id/name/arguments each arrive
// split across multiple events.
type ToolCallDelta struct {
	Index    int
	ID       string
	NameFrag string
	ArgsFrag string
}

// StreamEvent is one incremental event off a Stream: a fragment of
// assistant text, a fragment of a tool call, or both.
type StreamEvent struct {
	TextDelta string
	ToolCalls []ToolCallDelta
}

// Stream is the turn machine's view of a single in-flight model
// response, following the same Next/Current/Err iterator contract as
// ai.ChatStream.
type Stream interface {
	Next() bool
	Current() StreamEvent
	Err() error
}

// ChatClient is the single-method streaming abstraction the turn
// machine depends on, so it never has to know which vendor, or which
// vendor wire shape, is behind it.
type ChatClient interface {
	CreateStream(ctx context.Context, model string, messages []Message, tools []protocol.Tool) (Stream, error)
}

// VendorChatClient adapts a vendor ai.Client (OpenAI-shaped chat
// completions, shared by the openai/claude/gemini backends) into a
// ChatClient, translating spike's block-based Message to and from the
// vendor's flat role/tool_calls wire shape at the boundary.
type VendorChatClient struct {
	Client ai.Client
}

// CreateStream implements ChatClient.
func (v VendorChatClient) CreateStream(ctx context.Context, model string, messages []Message, tools []protocol.Tool) (Stream, error) {
	req := ai.ChatCompletionRequest{
		Model:    model,
		Messages: toVendorMessages(messages),
		Tools:    toVendorTools(tools),
	}
	return &vendorStream{inner: v.Client.StreamChatCompletion(ctx, req)}, nil
}

// toVendorTools converts wire-visible protocol.Tool descriptors into the
// vendor's function-calling Tool shape, forwarding the schema
// byte-exact.
func toVendorTools(tools []protocol.Tool) []ai.Tool {
	out := make([]ai.Tool, 0, len(tools))
	for _, t := range tools {
		schema, _ := t.InputSchema.(map[string]interface{})
		out = append(out, ai.Tool{
			Type: "function",
			Function: ai.ToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
	}
	return out
}

// toVendorMessages flattens spike's Message list into the vendor's wire
// shape. An assistant Message's tool_use blocks become ToolCalls on one
// "assistant" entry; a user Message's tool_result blocks each become
// their own "tool" entry (the vendor has no concept of a bundled
// tool-results message), emitted in block order ahead of any plain text
// the same Message also carries.
func toVendorMessages(messages []Message) []ai.Message {
	out := make([]ai.Message, 0, len(messages))
	for _, m := range messages {
		if len(m.Blocks) == 0 {
			out = append(out, ai.Message{Role: string(m.Role), Content: m.Content})
			continue
		}

		switch m.Role {
		case RoleAssistant:
			var text string
			var calls []ai.ToolCall
			for _, b := range m.Blocks {
				switch b.Type {
				case BlockText:
					text += b.Text
				case BlockToolUse:
					calls = append(calls, ai.ToolCall{
						ID:       b.ID,
						Type:     "function",
						Function: ai.ToolCallFunction{Name: b.Name, Arguments: b.Input},
					})
				}
			}
			out = append(out, ai.Message{Role: "assistant", Content: text, ToolCalls: calls})

		case RoleUser:
			var text string
			for _, b := range m.Blocks {
				switch b.Type {
				case BlockToolResult:
					out = append(out, ai.Message{Role: "tool", Content: b.Content, ToolCallID: b.ToolUseID})
				case BlockText:
					text += b.Text
				}
			}
			if text != "" {
				out = append(out, ai.Message{Role: "user", Content: text})
			}
		}
	}
	return out
}

// vendorStream adapts *ai.ChatStream (OpenAI-shaped streaming deltas)
// into the Stream interface.
type vendorStream struct {
	inner *ai.ChatStream
}

func (s *vendorStream) Next() bool { return s.inner.Next() }

func (s *vendorStream) Current() StreamEvent {
	chunk := s.inner.Current()
	var ev StreamEvent
	if len(chunk.Choices) == 0 {
		return ev
	}
	delta := chunk.Choices[0].Delta
	ev.TextDelta = delta.Content
	for _, tc := range delta.ToolCalls {
		ev.ToolCalls = append(ev.ToolCalls, ToolCallDelta{
			Index:    tc.Index,
			ID:       tc.ID,
			NameFrag: tc.Function.Name,
			ArgsFrag: tc.Function.Arguments,
		})
	}
	return ev
}

func (s *vendorStream) Err() error { return s.inner.Err() }
