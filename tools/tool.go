package tools

import "context"

// Tool is a named capability the orchestrator can execute on the model's
// behalf. ParameterSchema returns a JSON Schema document for the params.
// Execute returns an observation string; a non-nil error is reported back
// to the model as an error observation, never raised past the loop.
type Tool interface {
	Name() string
	Description() string
	ParameterSchema() string
	Execute(ctx context.Context, params map[string]any) (string, error)
}
