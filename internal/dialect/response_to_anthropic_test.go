package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionsResponseToAnthropicText(t *testing.T) {
	response := map[string]any{
		"id": "chatcmpl-1",
		"choices": []any{
			map[string]any{
				"message":       map[string]any{"content": "hello there"},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 10.0, "completion_tokens": 5.0},
	}

	out := ChatCompletionsResponseToAnthropic(response)
	content := out["content"].([]any)
	require.Len(t, content, 1)
	block := content[0].(map[string]any)
	assert.Equal(t, "text", block["type"])
	assert.Equal(t, "hello there", block["text"])
	assert.Equal(t, "end_turn", out["stop_reason"])

	usage := out["usage"].(map[string]any)
	assert.Equal(t, 10.0, usage["input_tokens"])
	assert.Equal(t, 5.0, usage["output_tokens"])
}

func TestChatCompletionsResponseToAnthropicToolCalls(t *testing.T) {
	response := map[string]any{
		"id": "chatcmpl-2",
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"tool_calls": []any{
						map[string]any{
							"id": "call_1",
							"function": map[string]any{
								"name":      "get_weather",
								"arguments": `{"city":"sf"}`,
							},
						},
					},
				},
				"finish_reason": "tool_calls",
			},
		},
	}

	out := ChatCompletionsResponseToAnthropic(response)
	assert.Equal(t, "tool_use", out["stop_reason"])
	content := out["content"].([]any)
	require.Len(t, content, 1)
	block := content[0].(map[string]any)
	assert.Equal(t, "tool_use", block["type"])
	input := block["input"].(map[string]any)
	assert.Equal(t, "sf", input["city"])
}

func TestChatCompletionsResponseToAnthropicEmptyContentFallback(t *testing.T) {
	response := map[string]any{
		"id":      "chatcmpl-3",
		"choices": []any{map[string]any{"message": map[string]any{}, "finish_reason": "length"}},
	}

	out := ChatCompletionsResponseToAnthropic(response)
	assert.Equal(t, "max_tokens", out["stop_reason"])
	content := out["content"].([]any)
	require.Len(t, content, 1)
	block := content[0].(map[string]any)
	assert.Equal(t, "", block["text"])
}

func TestResponsesAPIResponseToAnthropicDropsUnknownTool(t *testing.T) {
	response := map[string]any{
		"id":     "resp-1",
		"object": "response",
		"output": []any{
			map[string]any{
				"type": "message",
				"content": []any{
					map[string]any{"type": "output_text", "text": "answer"},
					map[string]any{"type": "tool_call", "id": "t1", "name": "unlisted_tool"},
				},
			},
		},
	}

	out := ResponsesAPIResponseToAnthropic(response, map[string]struct{}{"get_weather": {}})
	content := out["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "end_turn", out["stop_reason"])
}

func TestResponsesAPIResponseToAnthropicKeepsKnownTool(t *testing.T) {
	response := map[string]any{
		"id":     "resp-2",
		"object": "response",
		"output": []any{
			map[string]any{
				"type": "message",
				"content": []any{
					map[string]any{"type": "tool_call", "id": "t1", "name": "get_weather", "input": map[string]any{}},
				},
			},
		},
	}

	out := ResponsesAPIResponseToAnthropic(response, map[string]struct{}{"get_weather": {}})
	assert.Equal(t, "tool_use", out["stop_reason"])
	content := out["content"].([]any)
	require.Len(t, content, 1)
}
