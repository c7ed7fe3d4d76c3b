package catalog

import (
	"regexp"
	"strings"
)

// Requirements captures the capability facts the Selector needs about an
// incoming request. It is derived by the caller (the request handler) from
// the normalized Request and is deliberately decoupled from the dialect
// package to avoid an import cycle.
type Requirements struct {
	Model           string
	EstimatedTokens int
	NeedsVision     bool
	NeedsThinking   bool
}

// NeedsThinking reports whether a request requires a thinking-capable
// backend: an explicit thinking.type=="enabled" field, a reasoning_mode
// flag, or a model id containing "o1"/"o3".
func NeedsThinking(thinkingEnabled bool, reasoningMode bool, modelID string) bool {
	if thinkingEnabled || reasoningMode {
		return true
	}
	lower := strings.ToLower(modelID)
	return strings.Contains(lower, "o1") || strings.Contains(lower, "o3")
}

// Select performs a linear scan of the catalog and returns the first
// descriptor satisfying all of: not excluded, within the token budget,
// vision capability (if required), thinking capability (if required), and
// model_match (if the descriptor restricts it). The selector mutates no
// state; it reads the catalog and returns a copy of the winning descriptor.
func (c *Catalog) Select(req Requirements, excluded []string) (Descriptor, bool) {
	excludedSet := make(map[string]struct{}, len(excluded))
	for _, m := range excluded {
		excludedSet[m] = struct{}{}
	}

	for _, d := range c.descriptors {
		if _, skip := excludedSet[d.Model]; skip {
			continue
		}
		if req.EstimatedTokens > d.Context {
			continue
		}
		if req.NeedsVision && !d.Vision {
			continue
		}
		if req.NeedsThinking && !d.Thinking {
			continue
		}
		if !matchesModelPattern(d.ModelMatch, req.Model) {
			continue
		}
		return d, true
	}
	return Descriptor{}, false
}

func matchesModelPattern(patterns []string, model string) bool {
	if len(patterns) == 0 {
		return true
	}
	lowerModel := strings.ToLower(model)
	for _, p := range patterns {
		if globMatch(strings.ToLower(p), lowerModel) {
			return true
		}
	}
	return false
}

// globMatch reports whether s matches the glob-like pattern p, where `*`
// matches any run of characters and `?` matches exactly one. The pattern
// is anchored to the full string.
func globMatch(pattern, s string) bool {
	re, err := globToRegexp(pattern)
	if err != nil {
		return pattern == s
	}
	return re.MatchString(s)
}

func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
