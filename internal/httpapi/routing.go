package httpapi

import (
	"context"
	"fmt"

	"github.com/basinlabs/conclave/internal/llmcore"
	"github.com/basinlabs/conclave/internal/observability"
	"github.com/basinlabs/conclave/internal/stream"
	"github.com/basinlabs/conclave/internal/toolloop"
)

// AnthropicURL resolves the Anthropic Messages endpoint for path (e.g.
// "/v1/messages") and the header/value pair to authenticate it with,
// per spec §6's URL routing table.
func (c Credentials) AnthropicURL(path string) (url, headerName, headerValue string) {
	if c.Mode == ModeDirect {
		return "https://api.anthropic.com" + path, "x-api-key", c.AnthropicKey
	}
	return c.ProxyBaseURL + "/anthropic" + path, "Authorization", "Bearer " + c.ProxyToken
}

// OpenAIURL resolves an OpenAI-family endpoint (Responses or Chat
// Completions share the same routing rule).
func (c Credentials) OpenAIURL(path string) (url, bearerToken string) {
	if c.Mode == ModeDirect {
		return "https://api.openai.com" + path, c.OpenAIKey
	}
	return c.ProxyBaseURL + "/openai" + path, c.ProxyToken
}

// GeminiURL resolves the Gemini streamGenerateContent endpoint for a given
// model, appending ":streamGenerateContent?alt=sse" as spec §6 requires.
func (c Credentials) GeminiURL(model string) (url, headerName, headerValue string) {
	path := fmt.Sprintf("/v1beta/models/%s:streamGenerateContent?alt=sse", model)
	if c.Mode == ModeDirect {
		return "https://generativelanguage.googleapis.com" + path, "x-goog-api-key", c.GeminiKey
	}
	return c.ProxyBaseURL + "/google-vertex" + path, "Authorization", "Bearer " + c.ProxyToken
}

// logStreamError reports a failed provider turn to whatever Provider is
// attached to ctx, if any (spec's ambient logging concern; streaming
// errors are the one place in this layer worth a log line, since every
// caller already turns them into a finalized failed Session).
func logStreamError(ctx context.Context, provider string, err error) {
	if obs := observability.FromContext(ctx); obs != nil {
		obs.Warn(ctx, "provider stream failed", "provider", provider, "error", err.Error())
	}
}

// ResponsesStreamFunc binds a model to the Responses-family endpoint.
func (c Credentials) ResponsesStreamFunc(model string) toolloop.StreamFunc {
	url, token := c.OpenAIURL("/v1/responses")
	return func(ctx context.Context, payload map[string]any) (llmcore.TurnResult, error) {
		result, err := stream.StreamResponses(ctx, url, token, payload)
		if err != nil {
			logStreamError(ctx, "responses", err)
		}
		return result, err
	}
}

// ChatStreamFunc binds a model to the Chat Completions endpoint.
func (c Credentials) ChatStreamFunc(model string) toolloop.StreamFunc {
	url, token := c.OpenAIURL("/v1/chat/completions")
	return func(ctx context.Context, payload map[string]any) (llmcore.TurnResult, error) {
		result, err := stream.StreamChat(ctx, url, token, payload)
		if err != nil {
			logStreamError(ctx, "chat_completions", err)
		}
		return result, err
	}
}

// AnthropicStreamFunc binds a model to the Messages endpoint.
func (c Credentials) AnthropicStreamFunc(model string) toolloop.StreamFunc {
	url, headerName, headerValue := c.AnthropicURL("/v1/messages")
	return func(ctx context.Context, payload map[string]any) (llmcore.TurnResult, error) {
		result, err := stream.StreamAnthropic(ctx, url, headerName, headerValue, payload)
		if err != nil {
			logStreamError(ctx, "anthropic", err)
		}
		return result, err
	}
}

// GeminiStreamFunc binds a model to its streamGenerateContent endpoint.
func (c Credentials) GeminiStreamFunc(model string) toolloop.StreamFunc {
	url, headerName, headerValue := c.GeminiURL(model)
	return func(ctx context.Context, payload map[string]any) (llmcore.TurnResult, error) {
		result, err := stream.StreamGemini(ctx, url, headerName, headerValue, payload)
		if err != nil {
			logStreamError(ctx, "gemini", err)
		}
		return result, err
	}
}
