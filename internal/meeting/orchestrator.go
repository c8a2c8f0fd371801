// Package meeting implements the Meeting Orchestrator (spec component C7):
// runs three tool-loop drivers concurrently per round, invokes a chair
// model to decide whether to continue, and persists every round through
// internal/session so a meeting can be resumed later. Generalizes the
// teacher's patterns/react single-agent loop into a multi-participant,
// retried, durable deliberation loop.
package meeting

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/basinlabs/conclave/internal/llmcore"
	"github.com/basinlabs/conclave/internal/observability"
	"github.com/basinlabs/conclave/internal/session"
	"github.com/basinlabs/conclave/internal/toolloop"
)

// Participant identifies one of the three fixed seats in a round. Spec
// §5 "Ordering guarantees" requires a fixed positional order (GPT,
// Gemini, Claude) regardless of completion order.
type Participant string

const (
	ParticipantOpenAI Participant = "openai"
	ParticipantGemini Participant = "gemini"
	ParticipantClaude Participant = "claude"
)

// participantOrder is the fixed positional order every round's sessions
// are reported/persisted in.
var participantOrder = []Participant{ParticipantOpenAI, ParticipantGemini, ParticipantClaude}

// ParticipantConfig binds one seat to a concrete provider driver, model,
// and stream function.
type ParticipantConfig struct {
	Model  string
	Stream toolloop.StreamFunc
	// Run invokes the provider-specific tool-loop driver (toolloop.RunResponses,
	// RunAnthropic, or RunGemini) bound to Model/Stream.
	Run func(ctx context.Context, cfg toolloop.RunConfig) *toolloop.Session
}

// ChairConfig binds the chair model's provider and payload shape.
type ChairConfig struct {
	Model        string
	Stream       toolloop.StreamFunc
	BuildPayload func(systemPrompt, userPrompt string) map[string]any
}

// Orchestrator runs meetings against a fixed set of participants, a chair,
// and a session store.
type Orchestrator struct {
	Participants map[Participant]ParticipantConfig
	Chair        ChairConfig
	Store        *session.Store

	SystemPrompt string
	ToolDefs     []llmcore.ToolDefinition
	ProjectPath  string
	MaxIterations int

	// retryBackoffs are the fixed delays between the 3 allowed attempts
	// per participant per round (spec §4.7: "up to 3 attempts with
	// exponential backoff (2s, then 4s)").
	retryBackoffs []time.Duration
}

// NewOrchestrator constructs an Orchestrator with the spec-mandated retry
// backoff schedule.
func NewOrchestrator(participants map[Participant]ParticipantConfig, chair ChairConfig, store *session.Store, systemPrompt string, toolDefs []llmcore.ToolDefinition, projectPath string, maxIterations int) *Orchestrator {
	if maxIterations <= 0 {
		maxIterations = 3
	}
	return &Orchestrator{
		Participants:  participants,
		Chair:         chair,
		Store:         store,
		SystemPrompt:  systemPrompt,
		ToolDefs:      toolDefs,
		ProjectPath:   projectPath,
		MaxIterations: maxIterations,
		retryBackoffs: []time.Duration{2 * time.Second, 4 * time.Second},
	}
}

// Request is run_meeting's input (spec §3/§4.7).
type Request struct {
	Agenda  string
	Context string
}

// Result is MeetingResult (spec §3).
type Result struct {
	MeetingID      string
	Summary        string
	RawResponses   map[Participant]CompactResponse
	TotalIterations int
	ElapsedMs      int64
}

// CompactResponse is the compact response form raw_responses projects
// finalized sessions to (spec §4.7 step 6).
type CompactResponse struct {
	Provider string
	Success  bool
	Content  string
	Error    string
}

// RunMeeting executes the normal flow (spec §4.7 "Normal flow").
func (o *Orchestrator) RunMeeting(ctx context.Context, meetingID string, req Request) (Result, error) {
	startMs := session.NowMs()
	meta := session.MeetingMeta{
		MeetingID: meetingID,
		CreatedMs: startMs,
		Agenda:    req.Agenda,
		Context:   req.Context,
		Status:    session.StatusRunning,
	}
	if err := o.Store.SaveMeta(meta); err != nil {
		return Result{}, fmt.Errorf("persisting initial meeting metadata: %w", err)
	}

	var lastSessions map[Participant]*toolloop.Session
	question := req.Agenda
	iterationsRun := 0

	for r := 0; r < o.MaxIterations; r++ {
		prompt := question
		if r > 0 {
			prompt = followUpPrompt(question, req.Agenda, req.Context)
		} else {
			prompt = initialPrompt(req.Agenda, req.Context)
		}

		sessions := o.runRound(ctx, r, prompt)
		lastSessions = sessions
		iterationsRun = r + 1

		if err := o.persistRound(r, prompt, sessions); err != nil {
			o.logDebug(ctx, "error", "", "persist_round", err.Error(), nil)
		}

		if r == o.MaxIterations-1 {
			break
		}

		next, shouldContinue := o.askChairForFollowUp(ctx, allIterationsSummary(sessions, r))
		if !shouldContinue {
			break
		}
		question = next
	}

	summary, err := o.finalSynthesis(ctx, lastSessions)
	if err != nil {
		return Result{}, fmt.Errorf("final synthesis: %w", err)
	}

	elapsed := session.NowMs() - startMs
	completed := session.NowMs()
	meta.Status = session.StatusCompleted
	meta.CompletedMs = &completed
	meta.ElapsedMs = &elapsed
	if err := o.Store.SaveMeta(meta); err != nil {
		return Result{}, fmt.Errorf("persisting completed meeting metadata: %w", err)
	}

	return Result{
		MeetingID:       meetingID,
		Summary:         summary,
		RawResponses:    compactFromSessions(lastSessions),
		TotalIterations: iterationsRun,
		ElapsedMs:       elapsed,
	}, nil
}

// ResumeMeeting executes the resume flow (spec §4.7 "Resume flow").
func (o *Orchestrator) ResumeMeeting(ctx context.Context, meetingID string) (Result, error) {
	meta, err := o.Store.LoadMeta()
	if err != nil {
		return Result{}, fmt.Errorf("loading meeting metadata: %w", err)
	}

	iterationMetas, iterationSessions, err := o.Store.LoadIterations()
	if err != nil {
		return Result{}, fmt.Errorf("loading iterations: %w", err)
	}
	prevCount := len(iterationMetas)

	var lastSessions map[Participant]*toolloop.Session
	if prevCount > 0 {
		lastSessions = sessionsFromRecords(iterationSessions[iterationMetas[prevCount-1].Iteration])
	}

	summaryInput := resumeSummary(iterationMetas, iterationSessions)
	next, shouldContinue := o.askChairForFollowUp(ctx, summaryInput)

	iterationsRun := prevCount
	if shouldContinue {
		question := next
		for r := 0; r < o.MaxIterations; r++ {
			ordinal := prevCount + r
			prompt := followUpPrompt(question, meta.Agenda, meta.Context)
			sessions := o.runRound(ctx, ordinal, prompt)
			lastSessions = sessions
			iterationsRun = ordinal + 1

			if err := o.persistRound(ordinal, prompt, sessions); err != nil {
				o.logDebug(ctx, "error", "", "persist_round", err.Error(), nil)
			}
			if r == o.MaxIterations-1 {
				break
			}
			nextQuestion, cont := o.askChairForFollowUp(ctx, allIterationsSummary(sessions, ordinal))
			if !cont {
				break
			}
			question = nextQuestion
		}
	}

	summary, err := o.finalSynthesis(ctx, lastSessions)
	if err != nil {
		return Result{}, fmt.Errorf("final synthesis: %w", err)
	}

	startMs := meta.CreatedMs
	elapsed := session.NowMs() - startMs
	completed := session.NowMs()
	meta.Status = session.StatusCompleted
	meta.CompletedMs = &completed
	meta.ElapsedMs = &elapsed
	if err := o.Store.SaveMeta(meta); err != nil {
		return Result{}, fmt.Errorf("persisting completed meeting metadata: %w", err)
	}

	return Result{
		MeetingID:       meetingID,
		Summary:         summary,
		RawResponses:    compactFromSessions(lastSessions),
		TotalIterations: iterationsRun,
		ElapsedMs:       elapsed,
	}, nil
}

// runRound runs all three participants concurrently and rejoins them into
// the fixed positional order (spec §5 "Ordering guarantees").
func (o *Orchestrator) runRound(ctx context.Context, ordinal int, prompt string) map[Participant]*toolloop.Session {
	results := make(map[Participant]*toolloop.Session, len(participantOrder))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range participantOrder {
		cfg, ok := o.Participants[p]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(p Participant, cfg ParticipantConfig) {
			defer wg.Done()
			sess := o.runParticipantWithRetry(ctx, p, cfg, prompt)
			mu.Lock()
			results[p] = sess
			mu.Unlock()
		}(p, cfg)
	}
	wg.Wait()
	return results
}

// runParticipantWithRetry wraps one participant's tool loop with up to 3
// attempts and the fixed 2s/4s backoff schedule (spec §4.7 step 3b). A
// provider that exhausts retries yields a finalized failed session rather
// than aborting the round (graceful degradation).
func (o *Orchestrator) runParticipantWithRetry(ctx context.Context, p Participant, cfg ParticipantConfig, prompt string) *toolloop.Session {
	runCfg := toolloop.RunConfig{
		SystemPrompt: o.SystemPrompt,
		UserPrompt:   prompt,
		ToolDefs:     o.ToolDefs,
		ProjectPath:  o.ProjectPath,
	}

	var lastErr string
	attempts := 1 + len(o.retryBackoffs)
	for attempt := 0; attempt < attempts; attempt++ {
		sess := cfg.Run(ctx, runCfg)
		if sess.Success {
			return sess
		}
		lastErr = sess.Error
		o.logDebug(ctx, "warn", string(p), "participant_attempt_failed", lastErr, map[string]any{"attempt": attempt + 1})
		if attempt < len(o.retryBackoffs) {
			timer := time.NewTimer(o.retryBackoffs[attempt])
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return toolloop.NewFailedSession(string(p), cfg.Model, ctx.Err().Error())
			}
		}
	}

	return toolloop.NewFailedSession(string(p), cfg.Model, fmt.Sprintf("exhausted retries: %s", lastErr))
}

// askChairForFollowUp calls the chair with an analysis prompt; on chair
// failure it logs and stops iterating (spec §4.7 step 3e).
func (o *Orchestrator) askChairForFollowUp(ctx context.Context, analysisPrompt string) (string, bool) {
	result := toolloop.RunChair(ctx, o.Chair.Stream, o.Chair.BuildPayload, chairAnalysisSystemPrompt(), analysisPrompt)
	if !result.Success {
		o.logDebug(ctx, "error", "chair", "chair_analysis_failed", result.Error, nil)
		return "", false
	}
	trimmed := strings.TrimSpace(result.Text)
	if !strings.HasPrefix(trimmed, "CONTINUE:") {
		return "", false
	}
	next := strings.TrimSpace(strings.TrimPrefix(trimmed, "CONTINUE:"))
	if next == "" {
		return "", false
	}
	return next, true
}

// finalSynthesis calls the chair once more for the meeting summary; chair
// failure here is fatal (spec §4.7 step 4, §7 "Chair error").
func (o *Orchestrator) finalSynthesis(ctx context.Context, sessions map[Participant]*toolloop.Session) (string, error) {
	prompt := synthesisPrompt(sessions)
	result := toolloop.RunChair(ctx, o.Chair.Stream, o.Chair.BuildPayload, chairSynthesisSystemPrompt(), prompt)
	if !result.Success {
		return "", fmt.Errorf("chair synthesis failed: %s", result.Error)
	}

	rec := session.ChairRecord{Provider: chairProviderLabel(o.Chair.Model), Model: o.Chair.Model, Content: result.Text, Success: true}
	if err := o.Store.SaveChair(rec); err != nil {
		o.logDebug(ctx, "error", "chair", "persist_chair_failed", err.Error(), nil)
	}
	return result.Text, nil
}

func (o *Orchestrator) persistRound(ordinal int, question string, sessions map[Participant]*toolloop.Session) error {
	named := make(map[string]*toolloop.Session, len(sessions))
	for p, sess := range sessions {
		named[string(p)] = sess
	}
	meta := session.IterationMetadata{
		Iteration:        ordinal,
		Question:         question,
		TimestampMs:      session.NowMs(),
		ParticipantCount: len(sessions),
	}
	return o.Store.SaveIteration(meta, named)
}

// logDebug records an event both to the meeting's durable debug.jsonl and,
// when a Provider is attached to ctx, to structured logging (adapted from
// the teacher's providers/observability pattern of carrying a logger
// through context.Context rather than threading it as a parameter).
func (o *Orchestrator) logDebug(ctx context.Context, level, provider, event, message string, data map[string]any) {
	if obs := observability.FromContext(ctx); obs != nil {
		args := []any{"event", event, "provider", provider}
		for k, v := range data {
			args = append(args, k, v)
		}
		switch level {
		case "error":
			obs.Error(ctx, message, args...)
		case "warn":
			obs.Warn(ctx, message, args...)
		default:
			obs.Info(ctx, message, args...)
		}
	}

	if o.Store == nil {
		return
	}
	_ = o.Store.AppendDebug(session.DebugRecord{
		TimestampMs: session.NowMs(),
		Level:       level,
		Provider:    provider,
		Event:       event,
		Message:     message,
		Data:        data,
	})
}

// chairProviderLabel matches spec §4.7 "Chair selection": claude-prefixed
// model names use the Anthropic chair, everything else uses Responses.
func chairProviderLabel(model string) string {
	if strings.HasPrefix(model, "claude") {
		return "anthropic"
	}
	return "responses"
}

func compactFromSessions(sessions map[Participant]*toolloop.Session) map[Participant]CompactResponse {
	out := make(map[Participant]CompactResponse, len(sessions))
	for p, sess := range sessions {
		out[p] = CompactResponse{Provider: sess.Provider, Success: sess.Success, Content: sess.FinalContent, Error: sess.Error}
	}
	return out
}

func sessionsFromRecords(records map[string]session.ParticipantRecord) map[Participant]*toolloop.Session {
	out := make(map[Participant]*toolloop.Session, len(records))
	for name, rec := range records {
		sess := &toolloop.Session{Provider: rec.Provider, Model: rec.Model, Steps: rec.Steps, FinalContent: rec.FinalContent, Success: rec.Success, Error: rec.Error}
		out[Participant(name)] = sess
	}
	return out
}
