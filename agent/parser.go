package agent

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/llm"
)

var (
	ErrParseFailure    = errors.New("failed to parse agent response from LLM output")
	ErrInvalidToolCall = errors.New("tool_call response missing tool name")
	ErrInvalidFinal    = errors.New("final response missing payload")
)

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n\\s*```")

// ParseResponse recovers a structured response from a chat result when the
// provider did not surface native tool calls. It tries the decoded JSON
// payload first, then the raw text, then JSON embedded in a code fence or
// buried in surrounding prose.
func ParseResponse(result llm.Result) (*AgentResponse, error) {
	var lastErr error

	if result.JSON != nil {
		data, err := json.Marshal(result.JSON)
		if err == nil {
			resp, err := unmarshalAndValidate(data)
			if err == nil {
				return resp, nil
			}
			lastErr = err
		}
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrParseFailure
	}

	if resp, err := unmarshalAndValidate([]byte(text)); err == nil {
		return resp, nil
	} else {
		lastErr = err
	}

	if jsonStr := extractFromCodeBlock(text); jsonStr != "" {
		resp, err := unmarshalAndValidate([]byte(jsonStr))
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}

	if jsonStr := extractJSONObject(text); jsonStr != "" {
		resp, err := unmarshalAndValidate([]byte(jsonStr))
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrParseFailure
}

func unmarshalAndValidate(data []byte) (*AgentResponse, error) {
	var resp AgentResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return validate(&resp)
}

func validate(resp *AgentResponse) (*AgentResponse, error) {
	switch resp.Type {
	case TypeToolCall:
		if resp.ToolCall == nil && len(resp.ToolCalls) == 0 {
			return nil, ErrInvalidToolCall
		}
		if resp.ToolCall != nil && resp.ToolCall.Name == "" {
			return nil, ErrInvalidToolCall
		}
		for _, tc := range resp.ToolCalls {
			if tc.Name == "" {
				return nil, ErrInvalidToolCall
			}
		}
	case TypeFinal:
		if resp.FinalPayload() == nil {
			return nil, ErrInvalidFinal
		}
	default:
		return nil, ErrParseFailure
	}
	return resp, nil
}

func extractFromCodeBlock(text string) string {
	matches := codeBlockRe.FindStringSubmatch(text)
	if len(matches) >= 2 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
