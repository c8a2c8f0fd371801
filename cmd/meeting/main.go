// Command meeting runs the multi-participant deliberation orchestrator
// (spec §6 "CLI (orchestrator)"): it polls three provider families in
// parallel across a bounded number of rounds, has a chair model decide
// whether to continue or synthesize, and persists every round under
// STATE_DIR so a meeting can be resumed later.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/basinlabs/conclave/internal/httpapi"
	"github.com/basinlabs/conclave/internal/meeting"
	"github.com/basinlabs/conclave/internal/observability"
	"github.com/basinlabs/conclave/internal/session"
	"github.com/basinlabs/conclave/internal/tools"
	"github.com/basinlabs/conclave/internal/toolloop"
)

var (
	agendaFlag        string
	contextFlag       string
	projectPathFlag   string
	maxIterationsFlag int
	chairModelFlag    string
	resumeFlag        string
	listSessionsFlag  bool
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "meeting",
	Short: "Run a multi-model deliberation and persist its transcript",
	RunE:  runMeetingCmd,
}

func init() {
	rootCmd.Flags().StringVar(&agendaFlag, "agenda", "", "agenda text for the deliberation (required unless --resume or --list-sessions)")
	rootCmd.Flags().StringVar(&contextFlag, "context", "", "optional supporting context text")
	rootCmd.Flags().StringVar(&projectPathFlag, "project-path", ".", "repository root the read-only tools operate against")
	rootCmd.Flags().IntVar(&maxIterationsFlag, "max-iterations", 3, "maximum number of deliberation rounds")
	rootCmd.Flags().StringVar(&chairModelFlag, "chair-model", "claude-opus-4-6", "model used for the chair's follow-up and synthesis calls")
	rootCmd.Flags().StringVar(&resumeFlag, "resume", "", "resume an existing meeting by id instead of starting a new one")
	rootCmd.Flags().BoolVar(&listSessionsFlag, "list-sessions", false, "list stored meetings as JSON and exit")
}

func stateDir() string {
	if dir := os.Getenv("STATE_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(".", ".meetings")
}

func runMeetingCmd(cmd *cobra.Command, args []string) error {
	baseDir := stateDir()

	if listSessionsFlag {
		metas, err := session.ListSessions(baseDir)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		b, err := json.MarshalIndent(metas, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding session list: %w", err)
		}
		fmt.Println(string(b))
		return nil
	}

	creds, err := httpapi.LoadCredentials()
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	orch, meetingID, isResume, err := buildOrchestrator(creds, baseDir)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = observability.ContextWithProvider(ctx, observability.New(nil))

	var result meeting.Result
	if isResume {
		result, err = orch.ResumeMeeting(ctx, meetingID)
	} else {
		if agendaFlag == "" {
			return fmt.Errorf("--agenda is required to start a new meeting")
		}
		result, err = orch.RunMeeting(ctx, meetingID, meeting.Request{Agenda: agendaFlag, Context: contextFlag})
	}
	if err != nil {
		errJSON, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Println(string(errJSON))
		return err
	}

	out, err := json.MarshalIndent(map[string]any{
		"meeting_id":       result.MeetingID,
		"summary":          result.Summary,
		"total_iterations": result.TotalIterations,
		"elapsed_ms":       result.ElapsedMs,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func buildOrchestrator(creds httpapi.Credentials, baseDir string) (*meeting.Orchestrator, string, bool, error) {
	meetingID := resumeFlag
	isResume := meetingID != ""
	if !isResume {
		meetingID = uuid.NewString()
	}

	store, err := session.Open(baseDir, meetingID)
	if err != nil {
		return nil, "", false, fmt.Errorf("opening session store: %w", err)
	}

	toolDefs := tools.Definitions()
	systemPrompt := "You are a participant in a multi-model deliberation. Use the available " +
		"read-only repository tools to ground your answers in the actual codebase."

	participants := map[meeting.Participant]meeting.ParticipantConfig{
		meeting.ParticipantOpenAI: {
			Model: "gpt-5",
			Run: func(ctx context.Context, cfg toolloop.RunConfig) *toolloop.Session {
				return toolloop.RunResponses(ctx, "gpt-5", creds.ResponsesStreamFunc("gpt-5"), cfg)
			},
		},
		meeting.ParticipantGemini: {
			Model: "gemini-2.5-pro",
			Run: func(ctx context.Context, cfg toolloop.RunConfig) *toolloop.Session {
				return toolloop.RunGemini(ctx, "gemini-2.5-pro", creds.GeminiStreamFunc("gemini-2.5-pro"), cfg)
			},
		},
		meeting.ParticipantClaude: {
			Model: "claude-sonnet-4-6",
			Run: func(ctx context.Context, cfg toolloop.RunConfig) *toolloop.Session {
				return toolloop.RunAnthropic(ctx, "claude-sonnet-4-6", creds.AnthropicStreamFunc("claude-sonnet-4-6"), cfg)
			},
		},
	}

	chair := buildChairConfig(creds, chairModelFlag)

	orch := meeting.NewOrchestrator(participants, chair, store, systemPrompt, toolDefs, projectPathFlag, maxIterationsFlag)
	return orch, meetingID, isResume, nil
}

// buildChairConfig implements spec §4.7 "Chair selection": a claude-prefixed
// model name uses the Anthropic streaming chair, anything else the
// Responses-family chair.
func buildChairConfig(creds httpapi.Credentials, model string) meeting.ChairConfig {
	if len(model) >= 6 && model[:6] == "claude" {
		return meeting.ChairConfig{
			Model:  model,
			Stream: creds.AnthropicStreamFunc(model),
			BuildPayload: func(systemPrompt, userPrompt string) map[string]any {
				return map[string]any{
					"model":      model,
					"max_tokens": 4096,
					"system":     systemPrompt,
					"messages":   []map[string]any{{"role": "user", "content": userPrompt}},
				}
			},
		}
	}
	return meeting.ChairConfig{
		Model:  model,
		Stream: creds.ResponsesStreamFunc(model),
		BuildPayload: func(systemPrompt, userPrompt string) map[string]any {
			return map[string]any{
				"model":        model,
				"instructions": systemPrompt,
				"input":        []map[string]any{{"role": "user", "content": userPrompt}},
			}
		},
	}
}
