// Package tokenizer estimates the token count of a normalized request so
// the Selector can gate backend choice against each descriptor's context
// window. It prefers a real BPE encoder and falls back to a character
// heuristic when none is available, matching the teacher's own pattern of
// never hard-failing a request over a missing optional dependency.
package tokenizer

import (
	"math"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// imageTokenCost is the fixed per-image-block token cost (§4.2).
const imageTokenCost = 85

// messageFramingOverhead is added once per message for role/framing (§4.2).
const messageFramingOverhead = 4

// defaultEncoding is the BPE encoding used for every request; the
// request's model is not consulted when choosing an encoding.
const defaultEncoding = "cl100k_base"

// Estimator estimates token counts for normalized requests. It is safe
// for concurrent use: the underlying tiktoken encoder is immutable once
// built, and encoder construction is memoized behind a mutex.
type Estimator struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

// NewEstimator returns a ready-to-use Estimator.
func NewEstimator() *Estimator {
	return &Estimator{encoders: map[string]*tiktoken.Tiktoken{}}
}

func (e *Estimator) encoderFor(encoding string) *tiktoken.Tiktoken {
	e.mu.Lock()
	defer e.mu.Unlock()

	if enc, ok := e.encoders[encoding]; ok {
		return enc
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		e.encoders[encoding] = nil
		return nil
	}
	e.encoders[encoding] = enc
	return enc
}

// Estimate walks a decoded request body (the map[string]interface{} tree
// produced by json.Unmarshal) and returns a nonnegative token estimate
// covering the system prompt, every message's text and image content, and
// per-message framing overhead.
func (e *Estimator) Estimate(request map[string]any) int {
	texts, images := collectTextAndImages(request)

	enc := e.encoderFor(defaultEncoding)
	messageCount := countMessages(request)

	if enc == nil {
		return e.fallbackEstimate(texts, images, messageCount)
	}

	total := 0
	for _, s := range texts {
		total += len(enc.Encode(s, nil, nil))
	}
	total += images * imageTokenCost
	total += messageCount * messageFramingOverhead

	return total
}

func (e *Estimator) fallbackEstimate(texts []string, images, messageCount int) int {
	totalChars := 0
	for _, s := range texts {
		totalChars += len(s)
	}
	estimate := int(math.Floor(float64(totalChars) / 4))
	estimate += images * imageTokenCost
	estimate += messageCount * messageFramingOverhead
	if estimate < 1 {
		estimate = 1
	}
	return estimate
}

// countMessages counts the request's system field (string or block
// array, if present and non-nil) as one message plus every entry of
// request["messages"].
func countMessages(request map[string]any) int {
	count := 0
	if sys, ok := request["system"]; ok && sys != nil {
		count++
	}
	if msgs, ok := request["messages"].([]any); ok {
		count += len(msgs)
	}
	return count
}

// collectTextAndImages extracts every text string worth tokenizing and
// counts every image content block, across the system prompt and the
// messages array, in both string-content and content-block-array shapes.
func collectTextAndImages(request map[string]any) ([]string, int) {
	var texts []string
	images := 0

	switch sys := request["system"].(type) {
	case string:
		if sys != "" {
			texts = append(texts, sys)
		}
	case []any:
		for _, block := range sys {
			if m, ok := block.(map[string]any); ok {
				if t, ok := m["text"].(string); ok {
					texts = append(texts, t)
				}
			}
		}
	}

	msgs, _ := request["messages"].([]any)
	for _, raw := range msgs {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch content := m["content"].(type) {
		case string:
			texts = append(texts, content)
		case []any:
			for _, block := range content {
				bm, ok := block.(map[string]any)
				if !ok {
					continue
				}
				switch bm["type"] {
				case "text":
					if t, ok := bm["text"].(string); ok {
						texts = append(texts, t)
					}
				case "image", "image_url":
					images++
				}
			}
		}
	}

	return texts, images
}
