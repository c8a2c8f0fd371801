package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/basinlabs/conclave/internal/llmcore"
)

func TestStreamResponses_HappyPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)

		fmt.Fprint(w, "event: response.created\ndata: {\"response\":{\"id\":\"resp_test123\"}}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "event: response.output_text.delta\ndata: {\"output_index\":0,\"delta\":\"Found \"}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "event: response.output_text.delta\ndata: {\"output_index\":0,\"delta\":\"issues.\"}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "event: response.completed\ndata: {\"response\":{\"status\":\"completed\",\"output\":[{\"type\":\"message\"}]}}\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	result, err := StreamResponses(context.Background(), server.URL, "token", map[string]any{"model": "gpt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ResponseID != "resp_test123" || result.Text != "Found issues." || result.StopReason != llmcore.StopEndTurn {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestStreamDriver_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "server exploded")
	}))
	defer server.Close()

	_, err := StreamChat(context.Background(), server.URL, "token", map[string]any{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "server exploded") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStreamDriver_IdleTimeoutPartialSuccess(t *testing.T) {
	old := IdleTimeout
	IdleTimeout = 30 * time.Millisecond
	defer func() { IdleTimeout = old }()

	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"},\"index\":0}]}\n\n")
		flusher.Flush()
		<-block // stall forever, simulating a stuck connection
	}))
	defer func() {
		close(block)
		server.Close()
	}()

	result, err := StreamChat(context.Background(), server.URL, "token", map[string]any{})
	if err != nil {
		t.Fatalf("expected partial success, got error: %v", err)
	}
	if result.Text != "partial" {
		t.Fatalf("unexpected partial text: %q", result.Text)
	}
}

func TestStreamDriver_IdleTimeoutNoContentFails(t *testing.T) {
	old := IdleTimeout
	IdleTimeout = 20 * time.Millisecond
	defer func() { IdleTimeout = old }()

	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		<-block
	}))
	defer func() {
		close(block)
		server.Close()
	}()

	_, err := StreamChat(context.Background(), server.URL, "token", map[string]any{})
	if err == nil {
		t.Fatal("expected idle timeout error")
	}
	if !strings.Contains(err.Error(), "idle timeout") {
		t.Fatalf("unexpected error: %v", err)
	}
}
