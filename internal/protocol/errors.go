package protocol

import (
	"errors"
	"fmt"
)

// Error taxonomy sentinels. Fleet and server code wraps these
// with fmt.Errorf("...: %w", ...) so errors.Is still matches at the MCP
// boundary, where every one of them is converted into a CallResult with
// IsError: true rather than a transport-level fault.
var (
	ErrNotConnected       = errors.New("upstream not connected")
	ErrToolNotFound       = errors.New("tool not found")
	ErrCannotResolve      = errors.New("cannot resolve namespaced tool name")
	ErrServerNotConnected = errors.New("server not connected")
	ErrToolsetNotLoaded   = errors.New("toolset not loaded")
	ErrUnknownToolset     = errors.New("unknown toolset")
	ErrToolFiltered       = errors.New("tool is filtered out")
	ErrUnknownParameter   = errors.New("parameter not found")
)

// WireError is a JSON-RPC error with an explicit code, returned from a tool
// handler when the implementation-defined code range is needed.
type WireError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *WireError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func NewInvalidParamsError(message string) error {
	return &WireError{Code: ErrorCodeInvalidParams, Message: message}
}

func NewInternalError(message string) error {
	return &WireError{Code: ErrorCodeInternalError, Message: message}
}
