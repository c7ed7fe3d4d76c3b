package dialect

import (
	"encoding/json"
)

// ChatCompletionsResponseToAnthropic converts a Chat-Completions shaped
// response body into an Anthropic /v1/messages response (§4.3.4, first
// half).
func ChatCompletionsResponseToAnthropic(response map[string]any) map[string]any {
	out := map[string]any{
		"id":   response["id"],
		"type": "message",
		"role": "assistant",
	}

	choices, _ := response["choices"].([]any)
	var message map[string]any
	var finishReason string
	if len(choices) > 0 {
		if c, ok := choices[0].(map[string]any); ok {
			message, _ = c["message"].(map[string]any)
			finishReason, _ = c["finish_reason"].(string)
		}
	}

	var content []any
	if message != nil {
		if text, ok := message["content"].(string); ok && text != "" {
			content = append(content, map[string]any{"type": "text", "text": text})
		}
		if toolCalls, ok := message["tool_calls"].([]any); ok {
			for _, raw := range toolCalls {
				tc, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				fn, _ := tc["function"].(map[string]any)
				name, _ := fn["name"].(string)
				argsStr, _ := fn["arguments"].(string)

				var input any
				if err := json.Unmarshal([]byte(argsStr), &input); err != nil {
					input = map[string]any{"raw_arguments": argsStr}
				}
				content = append(content, map[string]any{
					"type":  "tool_use",
					"id":    tc["id"],
					"name":  name,
					"input": input,
				})
			}
		}
	}
	if len(content) == 0 {
		content = append(content, map[string]any{"type": "text", "text": ""})
	}
	out["content"] = content
	out["stop_reason"] = mapFinishReason(finishReason)

	if usage, ok := response["usage"].(map[string]any); ok {
		out["usage"] = map[string]any{
			"input_tokens":  usage["prompt_tokens"],
			"output_tokens": usage["completion_tokens"],
		}
	}

	return out
}

func mapFinishReason(reason string) string {
	switch reason {
	case "length":
		return "max_tokens"
	case "tool_calls", "function_call":
		return "tool_use"
	default:
		return "end_turn"
	}
}

// ResponsesAPIResponseToAnthropic converts a Responses-API shaped response
// body into an Anthropic /v1/messages response (§4.3.4, second half).
// requestToolNames is the set of tool names present in the original
// request's tools list; a tool_call naming a tool outside that set is
// dropped rather than surfaced, per spec.
func ResponsesAPIResponseToAnthropic(response map[string]any, requestToolNames map[string]struct{}) map[string]any {
	out := map[string]any{
		"id":   response["id"],
		"type": "message",
		"role": "assistant",
	}

	var content []any
	hasToolUse := false

	output, _ := response["output"].([]any)
	for _, rawItem := range output {
		item, ok := rawItem.(map[string]any)
		if !ok || item["type"] != "message" {
			continue
		}
		blocks, _ := item["content"].([]any)
		for _, rawBlock := range blocks {
			block, ok := rawBlock.(map[string]any)
			if !ok {
				continue
			}
			switch block["type"] {
			case "output_text":
				if text, ok := block["text"].(string); ok {
					content = append(content, map[string]any{"type": "text", "text": text})
				}
			case "tool_call":
				name, _ := block["name"].(string)
				if _, allowed := requestToolNames[name]; !allowed {
					continue
				}
				content = append(content, map[string]any{
					"type":  "tool_use",
					"id":    block["id"],
					"name":  name,
					"input": block["input"],
				})
				hasToolUse = true
			}
		}
	}

	if len(content) == 0 {
		content = append(content, map[string]any{"type": "text", "text": ""})
	}
	out["content"] = content

	if hasToolUse {
		out["stop_reason"] = "tool_use"
	} else {
		out["stop_reason"] = "end_turn"
	}

	if usage, ok := response["usage"].(map[string]any); ok {
		out["usage"] = usage
	}

	return out
}
