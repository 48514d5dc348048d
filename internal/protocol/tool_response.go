package protocol

import (
	"encoding/json"
	"fmt"
)

// ToolResponse is what a ToolHandler returns; wrapped into a CallResult at
// the MCP boundary.
type ToolResponse struct {
	Content           []ContentBlock
	StructuredContent interface{}
	IsError           bool
}

// ToolHandler handles one of spike's own synthetic tool calls (the toolset
// meta-tools). Upstream tools never go through a ToolHandler — they are
// forwarded to the owning connection verbatim.
type ToolHandler func(req *ToolRequest) (*ToolResponse, error)

func NewToolResponseText(text string) *ToolResponse {
	return &ToolResponse{Content: []ContentBlock{{Type: "text", Text: text}}}
}

func NewToolResponseErrorText(text string) *ToolResponse {
	return &ToolResponse{Content: []ContentBlock{{Type: "text", Text: text}}, IsError: true}
}

func NewToolResponseJSON(data interface{}) *ToolResponse {
	b, err := json.Marshal(data)
	if err != nil {
		return NewToolResponseErrorText(fmt.Sprintf("error marshaling result: %v", err))
	}
	return NewToolResponseText(string(b))
}

// ToCallResult converts a ToolResponse into the wire CallResult shape.
func (r *ToolResponse) ToCallResult() CallResult {
	return CallResult{Content: r.Content, StructuredContent: r.StructuredContent, IsError: r.IsError}
}
