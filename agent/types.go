package agent

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/llm"
)

const (
	TypeToolCall = "tool_call"
	TypeFinal    = "final"
)

type ToolCall struct {
	ID      string         `json:"-"`
	Thought string         `json:"thought"`
	Name    string         `json:"tool_name"`
	Params  map[string]any `json:"tool_params"`
}

type Final struct {
	Thought string `json:"thought,omitempty"`
	Output  any    `json:"output,omitempty"`
}

// Text renders the final output as reply text. Models occasionally put a
// JSON value where a string belongs; anything non-string is re-marshaled
// so the caller always gets something sendable.
func (f *Final) Text() string {
	if f == nil {
		return ""
	}
	switch v := f.Output.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

type AgentResponse struct {
	Type      string     `json:"type"`
	ToolCall  *ToolCall  `json:"tool_call,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Final     *Final     `json:"final,omitempty"`
}

func (r *AgentResponse) FinalPayload() *Final {
	return r.Final
}

type Step struct {
	StepNumber  int
	Thought     string
	Action      string
	ActionInput map[string]any
	Observation string
	Error       error
	Duration    time.Duration
}

type RunOptions struct {
	Model string

	// UserID scopes the run to one user; concurrent runs for the same
	// user serialize, runs for different users proceed in parallel.
	UserID string

	// Context carries per-run patient background (profile, history,
	// location) rendered into the system prompt.
	Context []PromptBlock

	History []llm.Message
}
