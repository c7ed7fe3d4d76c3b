// Package dialect translates request and response bodies between the
// Anthropic "messages" dialect, the internal OpenAI-shaped normalized
// form, and the Responses-API encoding used for gpt-5* models. All
// functions operate on decoded map[string]interface{} trees: the same
// representation the payload shaper uses, so a translated request can be
// shaped without an intermediate typed struct.
package dialect

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/llmgateway/llmgateway/internal/imageutil"
)

// AnthropicToInternal converts an Anthropic /v1/messages request body into
// the internal, OpenAI-shaped normalized form (§4.3.1).
func AnthropicToInternal(body map[string]any) map[string]any {
	out := map[string]any{}

	if model, ok := body["model"]; ok {
		out["model"] = model
	}
	if stream, ok := body["stream"]; ok {
		out["stream"] = stream
	}
	if temp, ok := body["temperature"]; ok {
		out["temperature"] = temp
	} else {
		out["temperature"] = 1.0
	}
	if topP, ok := body["top_p"]; ok {
		out["top_p"] = topP
	}
	if stop, ok := body["stop_sequences"]; ok {
		out["stop"] = stop
	}
	if maxTokens, ok := body["max_tokens"]; ok {
		out["max_tokens"] = maxTokens
	}

	messages := []any{}

	if system := joinSystemPrompt(body["system"]); system != "" {
		messages = append(messages, map[string]any{"role": "system", "content": system})
	}

	inMessages, _ := body["messages"].([]any)
	for i := 0; i < len(inMessages); i++ {
		raw, ok := inMessages[i].(map[string]any)
		if !ok {
			continue
		}
		role, _ := raw["role"].(string)

		switch role {
		case "user":
			messages = append(messages, convertUserMessage(raw))
		case "assistant":
			assistantMsg, toolUseIDs := convertAssistantMessage(raw)
			messages = append(messages, assistantMsg)
			if len(toolUseIDs) > 0 && i+1 < len(inMessages) {
				if next, ok := inMessages[i+1].(map[string]any); ok {
					if nextRole, _ := next["role"].(string); nextRole == "user" {
						if toolMsgs, consumed := extractToolResults(next); consumed {
							messages = append(messages, toolMsgs...)
							i++
						}
					}
				}
			}
		}
	}
	out["messages"] = messages

	if tools, ok := body["tools"].([]any); ok {
		out["tools"] = convertTools(tools)
	}
	if toolChoice, ok := body["tool_choice"]; ok {
		out["tool_choice"] = convertToolChoice(toolChoice)
	}

	return out
}

func joinSystemPrompt(system any) string {
	switch v := system.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		var parts []string
		for _, block := range v {
			if m, ok := block.(map[string]any); ok {
				if t, ok := m["text"].(string); ok {
					parts = append(parts, t)
				}
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n\n"))
	default:
		return ""
	}
}

func convertUserMessage(raw map[string]any) map[string]any {
	msg := map[string]any{"role": "user"}

	switch content := raw["content"].(type) {
	case string:
		msg["content"] = content
	case []any:
		var blocks []any
		for _, b := range content {
			bm, ok := b.(map[string]any)
			if !ok {
				continue
			}
			switch bm["type"] {
			case "text":
				blocks = append(blocks, map[string]any{"type": "text", "text": bm["text"]})
			case "image":
				if url := imageBlockToDataURI(bm); url != "" {
					blocks = append(blocks, map[string]any{
						"type":      "image_url",
						"image_url": map[string]any{"url": url},
					})
				}
			}
		}
		if len(blocks) == 1 {
			if onlyText, ok := blocks[0].(map[string]any); ok && onlyText["type"] == "text" {
				msg["content"] = onlyText["text"]
				return msg
			}
		}
		msg["content"] = blocks
	default:
		msg["content"] = content
	}
	return msg
}

func imageBlockToDataURI(block map[string]any) string {
	source, ok := block["source"].(map[string]any)
	if !ok {
		return ""
	}
	if t, _ := source["type"].(string); t != "base64" {
		return ""
	}
	mediaType, _ := source["media_type"].(string)
	data, _ := source["data"].(string)
	if mediaType == "" || data == "" {
		return ""
	}
	// Anthropic's source.data already is base64 text; decode it first so
	// ConvertToDataURI validates and re-encodes rather than trusting the
	// caller's encoding verbatim.
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return ""
	}
	return imageutil.ConvertToDataURI(raw, mediaType)
}

// convertAssistantMessage returns the internal assistant message and the
// list of tool_use block ids it produced, for tool_result stitching.
func convertAssistantMessage(raw map[string]any) (map[string]any, []string) {
	msg := map[string]any{"role": "assistant"}

	content, _ := raw["content"].([]any)
	var textParts []string
	var toolCalls []any
	var toolUseIDs []string

	for _, b := range content {
		bm, ok := b.(map[string]any)
		if !ok {
			continue
		}
		switch bm["type"] {
		case "text":
			if t, ok := bm["text"].(string); ok {
				textParts = append(textParts, t)
			}
		case "tool_use":
			id, _ := bm["id"].(string)
			name, _ := bm["name"].(string)
			argsJSON, _ := json.Marshal(bm["input"])
			toolCalls = append(toolCalls, map[string]any{
				"id":   id,
				"type": "function",
				"function": map[string]any{
					"name":      name,
					"arguments": string(argsJSON),
				},
			})
			toolUseIDs = append(toolUseIDs, id)
		}
	}

	if len(textParts) > 0 {
		msg["content"] = strings.Join(textParts, "")
	} else {
		msg["content"] = nil
	}
	if len(toolCalls) > 0 {
		msg["tool_calls"] = toolCalls
	}

	return msg, toolUseIDs
}

// extractToolResults converts a user message containing one or more
// tool_result blocks into internal {role:"tool", ...} messages. Returns
// (nil, false) if the message contains no tool_result blocks.
func extractToolResults(userMsg map[string]any) ([]any, bool) {
	content, ok := userMsg["content"].([]any)
	if !ok {
		return nil, false
	}

	var out []any
	for _, b := range content {
		bm, ok := b.(map[string]any)
		if !ok || bm["type"] != "tool_result" {
			continue
		}
		toolUseID, _ := bm["tool_use_id"].(string)
		out = append(out, map[string]any{
			"role":         "tool",
			"tool_call_id": toolUseID,
			"content":      stringifyToolResult(bm["content"]),
		})
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func stringifyToolResult(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, el := range v {
			if m, ok := el.(map[string]any); ok {
				if t, ok := m["text"].(string); ok {
					parts = append(parts, t)
				}
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	case map[string]any:
		if v["type"] == "text" {
			if t, ok := v["text"].(string); ok {
				return t
			}
		}
		encoded, _ := json.Marshal(v)
		return string(encoded)
	default:
		encoded, _ := json.Marshal(v)
		return string(encoded)
	}
}

func convertTools(tools []any) []any {
	var out []any
	for _, raw := range tools {
		t, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := t["name"].(string)
		if name == "" {
			continue
		}
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        name,
				"description": t["description"],
				"parameters":  t["input_schema"],
			},
		})
	}
	return out
}

func convertToolChoice(choice any) any {
	m, ok := choice.(map[string]any)
	if !ok {
		return "auto"
	}
	switch m["type"] {
	case "auto", "any":
		return "auto"
	case "tool":
		name, _ := m["name"].(string)
		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": name},
		}
	default:
		return "auto"
	}
}
