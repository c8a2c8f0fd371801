// Package observability carries structured logging through context.Context,
// adapted from the teacher's providers/observability + providers/observability/slog
// pair but trimmed to the surface the orchestrator, stream driver and
// httpapi stream funcs call: a handful of leveled log calls and named
// counters, backed by log/slog. A context without a Provider is safe — every
// call site checks FromContext's result for nil before logging.
package observability

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Provider is the logging/metrics surface used across the module.
type Provider interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	Debug(ctx context.Context, msg string, args ...any)
	Count(name string, delta int64, args ...any)
}

// SlogProvider implements Provider on top of log/slog, matching the
// teacher's providers/observability/slog.Observer pattern.
type SlogProvider struct {
	logger *slog.Logger
}

// New returns a SlogProvider. A nil logger defaults to slog.Default().
func New(logger *slog.Logger) *SlogProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogProvider{logger: logger}
}

func (p *SlogProvider) Info(ctx context.Context, msg string, args ...any) {
	p.logger.InfoContext(ctx, msg, args...)
}

func (p *SlogProvider) Warn(ctx context.Context, msg string, args ...any) {
	p.logger.WarnContext(ctx, msg, args...)
}

func (p *SlogProvider) Error(ctx context.Context, msg string, args ...any) {
	p.logger.ErrorContext(ctx, msg, args...)
}

func (p *SlogProvider) Debug(ctx context.Context, msg string, args ...any) {
	p.logger.DebugContext(ctx, msg, args...)
}

// Count logs a named counter increment at debug level. A full metrics
// backend is out of scope (spec.md Non-goals); this keeps the call sites
// that want counters (e.g. "meeting.rounds.total") cheap to add without a
// metrics SDK dependency the rest of the pack does not share.
func (p *SlogProvider) Count(name string, delta int64, args ...any) {
	allArgs := append([]any{"counter", name, "delta", delta}, args...)
	p.logger.Debug("metric", allArgs...)
}

// ContextWithProvider attaches a Provider to ctx.
func ContextWithProvider(ctx context.Context, provider Provider) context.Context {
	return context.WithValue(ctx, ctxKey{}, provider)
}

// FromContext retrieves the Provider attached to ctx, or nil if none.
func FromContext(ctx context.Context) Provider {
	p, _ := ctx.Value(ctxKey{}).(Provider)
	return p
}
