package llm

import (
	"context"
	"time"
)

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolSpec describes a callable tool advertised to the model.
// ParametersJSON is a JSON Schema document for the tool's arguments.
type ToolSpec struct {
	Name           string
	Description    string
	ParametersJSON string
}

// ToolCall is a single tool invocation requested by the model. Arguments
// holds the decoded params; RawArguments preserves the provider's exact
// JSON so assistant messages can round-trip it unchanged.
type ToolCall struct {
	ID               string
	Type             string
	Name             string
	Arguments        map[string]any
	RawArguments     string
	ThoughtSignature string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	Cost         float64
}

type Result struct {
	Text      string
	ToolCalls []ToolCall
	JSON      any
	Usage     Usage
	Duration  time.Duration
}

type Request struct {
	Model      string
	Messages   []Message
	Tools      []ToolSpec
	ForceJSON  bool
	Parameters map[string]any
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
