package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicToInternalSystemPromptConcatenation(t *testing.T) {
	body := map[string]any{
		"model": "claude-3-opus-20240229",
		"system": []any{
			map[string]any{"type": "text", "text": "Be concise."},
			map[string]any{"type": "text", "text": "Avoid jargon."},
		},
		"messages": []any{
			map[string]any{"role": "user", "content": "hi"},
		},
	}

	out := AnthropicToInternal(body)
	messages := out["messages"].([]any)
	require.GreaterOrEqual(t, len(messages), 1)

	sysMsg := messages[0].(map[string]any)
	assert.Equal(t, "system", sysMsg["role"])
	assert.Equal(t, "Be concise.\n\nAvoid jargon.", sysMsg["content"])
}

func TestAnthropicToInternalUserImageBlock(t *testing.T) {
	body := map[string]any{
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": "what is this"},
					map[string]any{
						"type": "image",
						"source": map[string]any{
							"type":       "base64",
							"media_type": "image/png",
							"data":       "YWJj",
						},
					},
				},
			},
		},
	}

	out := AnthropicToInternal(body)
	messages := out["messages"].([]any)
	userMsg := messages[0].(map[string]any)
	blocks := userMsg["content"].([]any)
	require.Len(t, blocks, 2)

	imageBlock := blocks[1].(map[string]any)
	assert.Equal(t, "image_url", imageBlock["type"])
	imageURL := imageBlock["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,YWJj", imageURL["url"])
}

func TestAnthropicToInternalSingleTextBlockFlattensToString(t *testing.T) {
	body := map[string]any{
		"messages": []any{
			map[string]any{
				"role":    "user",
				"content": []any{map[string]any{"type": "text", "text": "just text"}},
			},
		},
	}

	out := AnthropicToInternal(body)
	messages := out["messages"].([]any)
	userMsg := messages[0].(map[string]any)
	assert.Equal(t, "just text", userMsg["content"])
}

func TestAnthropicToInternalAssistantToolUseAndResult(t *testing.T) {
	body := map[string]any{
		"messages": []any{
			map[string]any{"role": "user", "content": "what's the weather?"},
			map[string]any{
				"role": "assistant",
				"content": []any{
					map[string]any{
						"type":  "tool_use",
						"id":    "toolu_1",
						"name":  "get_weather",
						"input": map[string]any{"city": "sf"},
					},
				},
			},
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{
						"type":        "tool_result",
						"tool_use_id": "toolu_1",
						"content":     "72F and sunny",
					},
				},
			},
		},
	}

	out := AnthropicToInternal(body)
	messages := out["messages"].([]any)
	require.Len(t, messages, 3)

	assistantMsg := messages[1].(map[string]any)
	assert.Nil(t, assistantMsg["content"])
	toolCalls := assistantMsg["tool_calls"].([]any)
	require.Len(t, toolCalls, 1)
	tc := toolCalls[0].(map[string]any)
	assert.Equal(t, "toolu_1", tc["id"])
	fn := tc["function"].(map[string]any)
	assert.Equal(t, "get_weather", fn["name"])
	assert.JSONEq(t, `{"city":"sf"}`, fn["arguments"].(string))

	toolMsg := messages[2].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "toolu_1", toolMsg["tool_call_id"])
	assert.Equal(t, "72F and sunny", toolMsg["content"])
}

func TestAnthropicToInternalToolsAndToolChoice(t *testing.T) {
	body := map[string]any{
		"messages": []any{},
		"tools": []any{
			map[string]any{
				"name":         "get_weather",
				"description":  "look up weather",
				"input_schema": map[string]any{"type": "object"},
			},
			map[string]any{"name": ""},
		},
		"tool_choice": map[string]any{"type": "tool", "name": "get_weather"},
	}

	out := AnthropicToInternal(body)
	tools := out["tools"].([]any)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	assert.Equal(t, "function", tool["type"])

	choice := out["tool_choice"].(map[string]any)
	assert.Equal(t, "function", choice["type"])
	fn := choice["function"].(map[string]any)
	assert.Equal(t, "get_weather", fn["name"])
}

func TestAnthropicToInternalDefaultTemperature(t *testing.T) {
	body := map[string]any{"messages": []any{}}
	out := AnthropicToInternal(body)
	assert.Equal(t, 1.0, out["temperature"])
}
