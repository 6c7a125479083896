// Package llm provides provider-agnostic LLM chat and tool-calling clients.
package llm

import (
	"context"
)

// Message represents a chat message in provider-neutral form.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents a tool call requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Function ToolCallFunc `json:"function"`
}

// ToolCallFunc represents a function call within a tool call.
type ToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON-encoded
}

// Request is one chat completion request.
type Request struct {
	SystemPrompt string
	Messages     []Message
	Tools        []ToolDefinition
	Temperature  float64
}

// Response is one chat completion response. ToolCalls is non-empty when
// the model wants tools executed before it can answer.
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// Client defines the interface for chat completion with tool support.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// Complete performs a single chat completion round.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// ToolExecutor defines the interface for executing tools.
type ToolExecutor interface {
	ExecuteTool(ctx context.Context, name string, arguments string) (string, error)
}
