package tool

import (
	"context"
	"fmt"
)

// Descriptor describes a callable tool exposed by a provider. The schema
// fields follow the MCP wire format.
type Descriptor struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	InputSchema  map[string]interface{} `json:"inputSchema,omitempty"`
	OutputSchema map[string]interface{} `json:"outputSchema,omitempty"`
}

// Port is the tool invocation boundary the engines depend on. Implementations
// decide transport and process placement; the engines only assume that
// CallTool honors the context and that failures are ordinary error values.
// CallTool must be safe for concurrent use.
type Port interface {
	DiscoverTools(ctx context.Context) ([]Descriptor, error)
	CallTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
}

// ToolError is a structured failure from a tool call. Engines record it on
// the task result and keep independent branches running. Err, when set,
// carries the underlying transport error so context sentinels stay
// detectable through errors.Is.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error %s: %s", e.Code, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Error codes used by the built-in ports.
const (
	CodeNotFound    = "tool_not_found"
	CodeInvocation  = "invocation_failed"
	CodeTransport   = "transport_error"
	CodeServerError = "server_error"
)
