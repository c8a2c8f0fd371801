// Package httpapi resolves which base URL and credential reach each
// provider, following the proxy-vs-direct mode table and credential
// precedence spec §6 specifies, and exposes StreamFunc closures that bind
// a resolved endpoint/model to internal/stream's entry points so
// internal/toolloop and internal/meeting never need to know about
// transport configuration.
package httpapi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Mode selects between the proxy-fronted and direct-to-provider routing
// tables (spec §6 "URL routing").
type Mode int

const (
	ModeProxy Mode = iota
	ModeDirect
)

// Credentials holds every secret the router might need, resolved once at
// startup.
type Credentials struct {
	Mode Mode

	ProxyBaseURL  string // AI_PROXY_BASE_URL, trailing slash stripped
	ProxyToken    string // ~/.codeb/credentials.json "token", else AI_PROXY_PERSONAL_TOKEN

	AnthropicKey string // ANTHROPIC_API_KEY, direct mode only
	OpenAIKey    string // OPENAI_API_KEY, direct mode only
	GeminiKey    string // GEMINI_API_KEY, direct mode only
}

type credentialsFile struct {
	Token string `json:"token"`
}

// LoadCredentials resolves Credentials from the environment, following
// spec §6: NO_AIPROXY=1|true selects direct mode; otherwise proxy mode
// using a token loaded from ~/.codeb/credentials.json's "token" field,
// falling back to AI_PROXY_PERSONAL_TOKEN.
func LoadCredentials() (Credentials, error) {
	if isTruthyEnv(os.Getenv("NO_AIPROXY")) {
		creds := Credentials{
			Mode:         ModeDirect,
			AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
			OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
			GeminiKey:    os.Getenv("GEMINI_API_KEY"),
		}
		if creds.AnthropicKey == "" && creds.OpenAIKey == "" && creds.GeminiKey == "" {
			return creds, fmt.Errorf("NO_AIPROXY is set but no provider API key is configured")
		}
		return creds, nil
	}

	baseURL := strings.TrimRight(os.Getenv("AI_PROXY_BASE_URL"), "/")
	if baseURL == "" {
		return Credentials{}, fmt.Errorf("AI_PROXY_BASE_URL is required unless NO_AIPROXY is set")
	}

	token, err := loadProxyToken()
	if err != nil {
		return Credentials{}, err
	}

	return Credentials{Mode: ModeProxy, ProxyBaseURL: baseURL, ProxyToken: token}, nil
}

func loadProxyToken() (string, error) {
	home, err := os.UserHomeDir()
	if err == nil {
		path := filepath.Join(home, ".codeb", "credentials.json")
		if b, readErr := os.ReadFile(path); readErr == nil {
			var cf credentialsFile
			if jsonErr := json.Unmarshal(b, &cf); jsonErr == nil && cf.Token != "" {
				return cf.Token, nil
			}
		}
	}
	if token := os.Getenv("AI_PROXY_PERSONAL_TOKEN"); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("no proxy token found in ~/.codeb/credentials.json or AI_PROXY_PERSONAL_TOKEN")
}

func isTruthyEnv(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true"
}
