package httpapi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func clearProxyEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"NO_AIPROXY", "AI_PROXY_BASE_URL", "AI_PROXY_PERSONAL_TOKEN", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoadCredentials_DirectModeRequiresAtLeastOneKey(t *testing.T) {
	clearProxyEnv(t)
	t.Setenv("NO_AIPROXY", "true")

	if _, err := LoadCredentials(); err == nil {
		t.Fatal("expected error when NO_AIPROXY is set with no provider keys")
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	creds, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.Mode != ModeDirect || creds.AnthropicKey != "sk-ant-test" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}

func TestLoadCredentials_ProxyModeRequiresBaseURL(t *testing.T) {
	clearProxyEnv(t)
	if _, err := LoadCredentials(); err == nil {
		t.Fatal("expected error when AI_PROXY_BASE_URL is unset and NO_AIPROXY is unset")
	}
}

func TestLoadCredentials_ProxyModeFallsBackToPersonalToken(t *testing.T) {
	clearProxyEnv(t)
	t.Setenv("AI_PROXY_BASE_URL", "https://proxy.example.com/")
	t.Setenv("AI_PROXY_PERSONAL_TOKEN", "env-token")
	t.Setenv("HOME", t.TempDir())

	creds, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.Mode != ModeProxy || creds.ProxyBaseURL != "https://proxy.example.com" || creds.ProxyToken != "env-token" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}

func TestLoadCredentials_ProxyModePrefersCredentialsFileOverEnv(t *testing.T) {
	clearProxyEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AI_PROXY_BASE_URL", "https://proxy.example.com")
	t.Setenv("AI_PROXY_PERSONAL_TOKEN", "env-token")

	dir := filepath.Join(home, ".codeb")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	b, _ := json.Marshal(credentialsFile{Token: "file-token"})
	if err := os.WriteFile(filepath.Join(dir, "credentials.json"), b, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	creds, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.ProxyToken != "file-token" {
		t.Errorf("expected credentials file token to take precedence, got %q", creds.ProxyToken)
	}
}

func TestIsTruthyEnv(t *testing.T) {
	cases := map[string]bool{"1": true, "true": true, "TRUE": true, " true ": true, "0": false, "false": false, "": false, "yes": false}
	for in, want := range cases {
		if got := isTruthyEnv(in); got != want {
			t.Errorf("isTruthyEnv(%q) = %v, want %v", in, got, want)
		}
	}
}
