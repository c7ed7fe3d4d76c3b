// Package upstream builds outbound requests against a backend's provider
// (standard or Azure-style), dispatches them buffered or streamed, and
// classifies failures for the Failover Orchestrator.
package upstream

import (
	"net/url"
	"strings"
)

// APIType selects which upstream wire shape a request is encoded for.
type APIType string

const (
	APIChatCompletions APIType = "chat.completions"
	APIResponses       APIType = "responses"
)

// ResolveAPIType returns the API type for an effective model id: the
// Responses API for any id beginning with "gpt-5", Chat Completions
// otherwise (§4.5).
func ResolveAPIType(modelID string) APIType {
	if strings.HasPrefix(modelID, "gpt-5") {
		return APIResponses
	}
	return APIChatCompletions
}

// ProviderTarget is the resolved provider connection information a
// Descriptor's provider token maps to.
type ProviderTarget struct {
	APIKey     string
	BaseURL    string
	APIVersion string // empty ⇒ standard endpoint style
}

// IsAzureStyle reports whether this target uses the Azure-style
// deployment path and api-key header.
func (t ProviderTarget) IsAzureStyle() bool {
	return t.APIVersion != ""
}

// BuildEndpoint constructs the outbound URL for a (target, modelID,
// apiType) triple, per §4.5.
func BuildEndpoint(target ProviderTarget, modelID string, apiType APIType) string {
	baseURL := strings.TrimRight(target.BaseURL, "/")
	opPath := "chat/completions"
	if apiType == APIResponses {
		opPath = "responses"
	}

	if !target.IsAzureStyle() {
		return baseURL + "/" + opPath
	}

	return baseURL +
		"/openai/deployments/" + url.PathEscape(modelID) +
		"/" + opPath +
		"?api-version=" + url.QueryEscape(target.APIVersion)
}

// BuildAuthHeader returns the header name and value to set for
// authenticating against target: standard providers use Authorization:
// Bearer, Azure-style providers use api-key.
func BuildAuthHeader(target ProviderTarget) (name, value string) {
	if target.IsAzureStyle() {
		return "api-key", target.APIKey
	}
	return "Authorization", "Bearer " + target.APIKey
}
