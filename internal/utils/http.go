package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// CloseWithLog closes an io.Closer and logs any error that occurs, useful in
// defer statements where cleanup must happen without overriding the
// function's primary return error.
func CloseWithLog(closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close resource", "error", err.Error())
	}
}

// HeaderOption is one custom HTTP header to add to a request (e.g.
// Authorization, x-api-key), applied after the default Content-Type and
// Accept headers so it can override them.
type HeaderOption struct {
	Key   string
	Value string
}

// maxResponseBodySize caps error-body reads to prevent unbounded memory use
// from a misbehaving or adversarial server.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// DoPostStream performs an HTTP POST with a JSON body and returns the raw
// response with its body left open for streaming consumption. On a non-2xx
// response the body is read (bounded) and closed, and the status/body are
// folded into the returned error per spec §4.4 ("HTTP <status>: <body>").
func DoPostStream(ctx context.Context, client *http.Client, url string, body any, headers ...HeaderOption) (*http.Response, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return resp, fmt.Errorf("error sending stream request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer CloseWithLog(resp.Body)
		errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		if readErr != nil {
			return resp, fmt.Errorf("HTTP %d: (failed to read body: %v)", resp.StatusCode, readErr)
		}
		return resp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(errBody))
	}

	return resp, nil
}
