package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/llm"
)

// forceConclusion asks the model for a final reply with no tools on offer.
// Used when the step cap, token budget or repeat limit is hit. It cannot
// fail upward: any problem falls back to the configured fallback final.
func (e *Engine) forceConclusion(ctx context.Context, messages []llm.Message, model string, agentCtx *Context, extraParams map[string]any, log *slog.Logger) (*Final, *Context, error) {
	if log == nil {
		log = e.log.With("model", model)
	}
	log.Warn("force_conclusion", "steps", len(agentCtx.Steps), "messages", len(messages))
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: "You have reached the maximum number of steps or token budget. Provide your final reply NOW as a JSON final response.",
	})

	result, err := e.client.Chat(ctx, llm.Request{
		Model:      model,
		Messages:   messages,
		ForceJSON:  true,
		Parameters: extraParams,
	})
	if err != nil {
		log.Error("force_conclusion_llm_error", "error", err.Error())
		return e.conclusionFallback(), agentCtx, nil
	}
	agentCtx.AddUsage(result.Usage, result.Duration)

	resp, err := ParseResponse(result)
	if err != nil {
		log.Warn("force_conclusion_parse_error", "error", err.Error())
		return e.conclusionFallback(), agentCtx, nil
	}
	if resp.Type != TypeFinal {
		log.Warn("force_conclusion_invalid_type", "type", resp.Type)
		return e.conclusionFallback(), agentCtx, nil
	}
	log.Info("force_conclusion_final")
	return resp.FinalPayload(), agentCtx, nil
}

func (e *Engine) conclusionFallback() *Final {
	if e.fallbackFinal != nil {
		return e.fallbackFinal()
	}
	return &Final{}
}

func toAgentToolCalls(calls []llm.ToolCall) []ToolCall {
	out := make([]ToolCall, 0, len(calls))
	for _, c := range calls {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		params := c.Arguments
		if params == nil {
			params = map[string]any{}
		}
		out = append(out, ToolCall{ID: c.ID, Name: name, Params: params})
	}
	return out
}

func toolArgsSummary(toolName string, params map[string]any, opts LogOptions) map[string]any {
	if len(params) == 0 {
		return nil
	}

	out := make(map[string]any)
	switch toolName {
	case "web_search_medical":
		if v, ok := params["query"].(string); ok && strings.TrimSpace(v) != "" {
			out["query"] = truncateString(strings.TrimSpace(v), opts.MaxStringValueChars)
		}
	case "search_medical_database":
		if v, ok := params["symptoms"].(string); ok && strings.TrimSpace(v) != "" {
			out["symptoms"] = truncateString(strings.TrimSpace(v), opts.MaxStringValueChars)
		}
	case "find_nearby_hospitals":
		// Coordinates stay out of the logs; the radius is enough to debug.
		if v, ok := params["radius_km"]; ok {
			out["radius_km"] = v
		}
	case "get_user_profile", "save_user_profile", "check_disease_outbreaks", "final_diagnosis":
		if v, ok := params["user_id"].(string); ok && strings.TrimSpace(v) != "" {
			out["user_id"] = truncateString(strings.TrimSpace(v), 80)
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
