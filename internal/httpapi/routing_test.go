package httpapi

import "testing"

func TestAnthropicURL_DirectVsProxy(t *testing.T) {
	direct := Credentials{Mode: ModeDirect, AnthropicKey: "key-1"}
	url, header, value := direct.AnthropicURL("/v1/messages")
	if url != "https://api.anthropic.com/v1/messages" || header != "x-api-key" || value != "key-1" {
		t.Errorf("unexpected direct routing: %s %s %s", url, header, value)
	}

	proxy := Credentials{Mode: ModeProxy, ProxyBaseURL: "https://proxy.example.com", ProxyToken: "tok"}
	url, header, value = proxy.AnthropicURL("/v1/messages")
	if url != "https://proxy.example.com/anthropic/v1/messages" || header != "Authorization" || value != "Bearer tok" {
		t.Errorf("unexpected proxy routing: %s %s %s", url, header, value)
	}
}

func TestOpenAIURL_DirectVsProxy(t *testing.T) {
	direct := Credentials{Mode: ModeDirect, OpenAIKey: "key-2"}
	url, token := direct.OpenAIURL("/v1/responses")
	if url != "https://api.openai.com/v1/responses" || token != "key-2" {
		t.Errorf("unexpected direct routing: %s %s", url, token)
	}

	proxy := Credentials{Mode: ModeProxy, ProxyBaseURL: "https://proxy.example.com", ProxyToken: "tok"}
	url, token = proxy.OpenAIURL("/v1/chat/completions")
	if url != "https://proxy.example.com/openai/v1/chat/completions" || token != "tok" {
		t.Errorf("unexpected proxy routing: %s %s", url, token)
	}
}

func TestGeminiURL_AppendsStreamGenerateContentSuffix(t *testing.T) {
	direct := Credentials{Mode: ModeDirect, GeminiKey: "key-3"}
	url, header, value := direct.GeminiURL("gemini-2.5-pro")
	want := "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-pro:streamGenerateContent?alt=sse"
	if url != want || header != "x-goog-api-key" || value != "key-3" {
		t.Errorf("unexpected direct routing: %s %s %s", url, header, value)
	}

	proxy := Credentials{Mode: ModeProxy, ProxyBaseURL: "https://proxy.example.com", ProxyToken: "tok"}
	url, header, value = proxy.GeminiURL("gemini-2.5-pro")
	wantProxy := "https://proxy.example.com/google-vertex/v1beta/models/gemini-2.5-pro:streamGenerateContent?alt=sse"
	if url != wantProxy || header != "Authorization" || value != "Bearer tok" {
		t.Errorf("unexpected proxy routing: %s %s %s", url, header, value)
	}
}
