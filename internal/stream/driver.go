// Package stream implements the Stream Driver (spec component C4): one
// exported function per provider family that POSTs a streaming request,
// drives an idle-timeout read loop over the raw body, and folds the
// decoded Actions into a TurnResult via internal/accumulate.
//
// The per-read-chunk idle timeout (§4.4) is implemented with a background
// reader goroutine feeding a channel, selected against a resettable timer —
// the same shape the teacher's react pattern uses for bounding a single
// blocking call (patterns/react/react.go's iteration loop), generalized
// here to a byte-level read instead of a whole-request call.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/basinlabs/conclave/internal/accumulate"
	"github.com/basinlabs/conclave/internal/decode"
	"github.com/basinlabs/conclave/internal/llmcore"
	"github.com/basinlabs/conclave/internal/observability"
	"github.com/basinlabs/conclave/internal/sse"
	"github.com/basinlabs/conclave/internal/utils"
)

// IdleTimeout is the maximum time the driver waits for the next byte chunk
// before treating the stream as stalled (spec §4.4, §5). Declared as a var
// rather than a const so tests can shrink it instead of waiting 60s.
var IdleTimeout = 60 * time.Second

// decoder is the common shape of all four provider decoders (spec C2); the
// stream driver is decoder-agnostic beyond this interface.
type decoder interface {
	Decode(ev sse.Event) []llmcore.Action
}

// httpClient is the process-wide client shared by every provider (spec §9
// "Global state"). Callers may override per-call via runConfig for testing.
var httpClient = &http.Client{
	Timeout: 0, // the idle-timeout loop governs streaming duration, not the client
}

type runConfig struct {
	providerLabel string
	url           string
	headers       []utils.HeaderOption
	payload       map[string]any
	decoder       decoder
	onEvent       func(ev sse.Event) (responseID string, ok bool)
	client        *http.Client
}

// run executes the common POST + idle-timeout-read + decode + accumulate
// protocol shared by all four provider families (spec §4.4). Logs a before/
// after pair at standard detail, adapted from the teacher's
// core/client/middleware.NewLoggingMiddleware (minus its verbose tier, which
// would log raw prompt/response text this package never needs to hold).
func run(ctx context.Context, cfg runConfig) (llmcore.TurnResult, error) {
	client := cfg.client
	if client == nil {
		client = httpClient
	}

	obs := observability.FromContext(ctx)
	start := time.Now()
	if obs != nil {
		obs.Info(ctx, "provider stream send", "provider", cfg.providerLabel)
	}

	result, err := runStream(ctx, cfg, client)

	if obs != nil {
		if err != nil {
			obs.Warn(ctx, "provider stream complete", "provider", cfg.providerLabel, "duration_ms", time.Since(start).Milliseconds(), "error", err.Error())
		} else {
			obs.Info(ctx, "provider stream complete", "provider", cfg.providerLabel, "duration_ms", time.Since(start).Milliseconds(), "stop_reason", result.StopReason.String(), "tool_calls", len(result.ToolCalls))
		}
	}
	return result, err
}

func runStream(ctx context.Context, cfg runConfig, client *http.Client) (llmcore.TurnResult, error) {
	resp, err := utils.DoPostStream(ctx, client, cfg.url, cfg.payload, cfg.headers...)
	if err != nil {
		return llmcore.TurnResult{}, err
	}
	defer utils.CloseWithLog(resp.Body)

	framer := sse.New()
	acc := accumulate.New()
	var responseID string

	feed := func(events []sse.Event) {
		for _, ev := range events {
			if cfg.onEvent != nil {
				if id, ok := cfg.onEvent(ev); ok {
					responseID = id
				}
			}
			for _, action := range cfg.decoder.Decode(ev) {
				acc.Apply(action)
			}
		}
	}

	readErr := readWithIdleTimeout(ctx, resp.Body, IdleTimeout, func(chunk []byte) {
		feed(framer.Feed(chunk))
	})
	feed(framer.Flush())

	if readErr != nil && !errors.Is(readErr, io.EOF) {
		if errors.Is(readErr, errIdleTimeout) {
			partial := acc.IntoResult(responseID)
			if partial.Text != "" || len(partial.ToolCalls) > 0 {
				return partial, nil
			}
			return llmcore.TurnResult{}, fmt.Errorf("%s stream idle timeout (60s)", cfg.providerLabel)
		}
		return llmcore.TurnResult{}, fmt.Errorf("%s stream error: %w", cfg.providerLabel, readErr)
	}

	return acc.IntoResult(responseID), nil
}

var errIdleTimeout = errors.New("idle timeout")

type readResult struct {
	chunk []byte
	err   error
}

// readWithIdleTimeout reads from body in a background goroutine, invoking
// onChunk for every non-empty read, and returns errIdleTimeout if no chunk
// (and no terminal read error) arrives within timeout. io.EOF is returned
// as-is on a clean stream end; any other read error is returned unwrapped
// for the caller to label.
func readWithIdleTimeout(ctx context.Context, body io.Reader, timeout time.Duration, onChunk func([]byte)) error {
	results := make(chan readResult, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		buf := make([]byte, 32*1024)
		for {
			n, err := body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case results <- readResult{chunk: chunk}:
				case <-done:
					return
				}
			}
			if err != nil {
				select {
				case results <- readResult{err: err}:
				case <-done:
				}
				return
			}
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return errIdleTimeout
		case res := <-results:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(timeout)

			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					return io.EOF
				}
				return res.err
			}
			onChunk(res.chunk)
		}
	}
}

// injectStream sets payload["stream"] = true, mutating a shallow copy so
// callers' original payload maps are never modified (spec §4.4 step 1;
// Gemini is exempt since its URL already signals SSE).
func injectStream(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["stream"] = true
	return out
}
