package stream

import (
	"context"

	"github.com/basinlabs/conclave/internal/decode"
	"github.com/basinlabs/conclave/internal/llmcore"
	"github.com/basinlabs/conclave/internal/sse"
	"github.com/basinlabs/conclave/internal/utils"
)

// StreamResponses drives one turn against the OpenAI Responses-family API
// (spec §4.4). bearerToken is sent as "Authorization: Bearer <token>".
func StreamResponses(ctx context.Context, url, bearerToken string, payload map[string]any) (llmcore.TurnResult, error) {
	var d decode.ResponsesDecoder
	return run(ctx, runConfig{
		providerLabel: "responses",
		url:           url,
		headers:       []utils.HeaderOption{{Key: "Authorization", Value: "Bearer " + bearerToken}},
		payload:       injectStream(payload),
		decoder:       d,
		onEvent: func(ev sse.Event) (string, bool) {
			return decode.ResponseCreatedID(ev)
		},
	})
}

// StreamChat drives one turn against the OpenAI Chat-Completions API.
func StreamChat(ctx context.Context, url, bearerToken string, payload map[string]any) (llmcore.TurnResult, error) {
	var d decode.ChatDecoder
	return run(ctx, runConfig{
		providerLabel: "chat",
		url:           url,
		headers:       []utils.HeaderOption{{Key: "Authorization", Value: "Bearer " + bearerToken}},
		payload:       injectStream(payload),
		decoder:       d,
	})
}

// StreamAnthropic drives one turn against the Anthropic Messages API.
// authHeaderName/authHeaderValue let callers switch between proxy mode
// ("Authorization: Bearer <token>") and direct mode ("x-api-key: <key>")
// per spec §6's URL-routing table. anthropic-version is always attached.
func StreamAnthropic(ctx context.Context, url, authHeaderName, authHeaderValue string, payload map[string]any) (llmcore.TurnResult, error) {
	var d decode.AnthropicDecoder
	return run(ctx, runConfig{
		providerLabel: "anthropic",
		url:           url,
		headers: []utils.HeaderOption{
			{Key: authHeaderName, Value: authHeaderValue},
			{Key: "anthropic-version", Value: "2023-06-01"},
		},
		payload: injectStream(payload),
		decoder: d,
	})
}

// StreamGemini drives one turn against the Gemini streamGenerateContent
// API. The URL itself (":streamGenerateContent?alt=sse") signals SSE mode,
// so no "stream" field is injected into the payload.
func StreamGemini(ctx context.Context, url, authHeaderName, authHeaderValue string, payload map[string]any) (llmcore.TurnResult, error) {
	d := decode.NewGeminiDecoder()
	return run(ctx, runConfig{
		providerLabel: "gemini",
		url:           url,
		headers:       []utils.HeaderOption{{Key: authHeaderName, Value: authHeaderValue}},
		payload:       payload,
		decoder:       d,
	})
}
