package dialect

import "strings"

// responsesAPIUnsupportedFields are stripped from the request when
// re-encoding for the Responses API (§4.3.3).
var responsesAPIUnsupportedFields = []string{
	"temperature", "top_p", "n", "presence_penalty",
	"frequency_penalty", "logit_bias", "user", "response_format",
	"stop",
}

// UsesResponsesAPI reports whether the effective model id selects the
// Responses API encoding: any id beginning with "gpt-5".
func UsesResponsesAPI(modelID string) bool {
	return strings.HasPrefix(modelID, "gpt-5")
}

// InternalToResponsesAPI re-encodes an internal OpenAI-shaped request for
// the Responses API: messages collapse into a single input string, tools
// and tool_choice flatten, and max_tokens plus the Chat-Completions-only
// sampling fields are stripped.
func InternalToResponsesAPI(internal map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range internal {
		out[k] = v
	}

	for _, field := range responsesAPIUnsupportedFields {
		delete(out, field)
	}
	delete(out, "max_tokens")
	delete(out, "messages")

	if tools, ok := internal["tools"].([]any); ok {
		out["tools"] = flattenToolsForResponses(tools)
	}
	if toolChoice, ok := internal["tool_choice"]; ok {
		out["tool_choice"] = flattenToolChoiceForResponses(toolChoice)
	}

	messages, _ := internal["messages"].([]any)
	out["input"] = collapseMessagesToInput(messages)

	return out
}

func flattenToolsForResponses(tools []any) []any {
	var out []any
	for _, raw := range tools {
		t, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fn, ok := t["function"].(map[string]any)
		if !ok {
			continue
		}
		out = append(out, map[string]any{
			"type":        "function",
			"name":        fn["name"],
			"description": fn["description"],
			"parameters":  fn["parameters"],
		})
	}
	return out
}

func flattenToolChoiceForResponses(choice any) any {
	m, ok := choice.(map[string]any)
	if !ok {
		return choice
	}
	if m["type"] != "function" {
		return choice
	}
	fn, ok := m["function"].(map[string]any)
	if !ok {
		return choice
	}
	return map[string]any{"type": "function", "name": fn["name"]}
}

func collapseMessagesToInput(messages []any) string {
	var b strings.Builder
	for _, raw := range messages {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		role, _ := m["role"].(string)
		text := messageTextForResponses(m["content"])
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), " \t\r\n")
}

func messageTextForResponses(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, block := range v {
			bm, ok := block.(map[string]any)
			if !ok {
				continue
			}
			if bm["type"] == "text" {
				if t, ok := bm["text"].(string); ok {
					parts = append(parts, t)
				}
			}
		}
		return strings.Join(parts, "")
	default:
		return ""
	}
}
