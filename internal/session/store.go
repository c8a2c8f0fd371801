// Package session implements the Session Store (spec component C8): a
// deterministic filesystem layout under <base>/<meeting_id>/ persisting
// MeetingMeta, per-iteration participant sessions, the chair's final
// synthesis, and an append-only debug log. Generalizes the teacher's
// providers/memory/array in-process history into a durable, resumable
// directory structure with one writer per meeting, whose debug log accepts
// concurrent appends from goroutines of that writer (spec §4.8).
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/basinlabs/conclave/internal/toolloop"
)

// MeetingStatus is MeetingMeta's lifecycle field (spec §3).
type MeetingStatus string

const (
	StatusRunning   MeetingStatus = "running"
	StatusCompleted MeetingStatus = "completed"
)

// MeetingMeta is the top-level record for one meeting (spec §3).
type MeetingMeta struct {
	MeetingID   string        `json:"meeting_id"`
	CreatedMs   int64         `json:"created_ms"`
	CompletedMs *int64        `json:"completed_ms,omitempty"`
	ElapsedMs   *int64        `json:"elapsed_ms,omitempty"`
	Agenda      string        `json:"agenda"`
	Context     string        `json:"context,omitempty"`
	Status      MeetingStatus `json:"status"`
}

// IterationMetadata describes one round (spec §4.8).
type IterationMetadata struct {
	Iteration        int    `json:"iteration"`
	Question         string `json:"question"`
	TimestampMs      int64  `json:"timestamp"`
	ParticipantCount int    `json:"participant_count"`
}

// ParticipantRecord is the durable projection of a toolloop.Session.
type ParticipantRecord struct {
	Provider     string          `json:"provider"`
	Model        string          `json:"model"`
	Steps        []toolloop.Step `json:"steps"`
	FinalContent string          `json:"final_content"`
	Success      bool            `json:"success"`
	Error        string          `json:"error,omitempty"`
	// ResponseID carries toolloop.Session.ResponseID for the review CLI's
	// session.json (spec §6 "CLI (code review)" resumption); meeting
	// participant records leave it empty since only RunResponsesReview sets
	// it on the session.
	ResponseID string `json:"response_id,omitempty"`
}

// ChairRecord is the final synthesis persisted to chair.json (spec §4.8).
type ChairRecord struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Content  string `json:"content"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// DebugRecord is one line of debug.jsonl (spec §4.8).
type DebugRecord struct {
	TimestampMs int64          `json:"timestamp"`
	Level       string         `json:"level"`
	Provider    string         `json:"provider,omitempty"`
	Event       string         `json:"event"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data,omitempty"`
}

// Store is a single-meeting-directory handle. Meeting directories are
// single-writer per meeting (spec §4.7 "Shared resources"); a Store's
// debugMu only protects concurrent appends from goroutines within this
// one orchestrator process, not across processes.
type Store struct {
	baseDir   string
	meetingID string
	debugMu   sync.Mutex
}

// Open returns a Store rooted at baseDir/meetingID, creating the directory
// if needed.
func Open(baseDir, meetingID string) (*Store, error) {
	dir := filepath.Join(baseDir, meetingID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating meeting directory: %w", err)
	}
	return &Store{baseDir: baseDir, meetingID: meetingID}, nil
}

func (s *Store) dir() string {
	return filepath.Join(s.baseDir, s.meetingID)
}

func (s *Store) iterationDir(ordinal int) string {
	return filepath.Join(s.dir(), fmt.Sprintf("iteration_%d", ordinal))
}

// writeJSONAtomic marshals v and writes it to path via a temp-file-then-
// rename, so a reader never observes a partially written metadata.json
// (spec §4.8 "atomic write recommended").
func writeJSONAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}

// SaveMeta rewrites metadata.json; this is the one file in a meeting
// directory that is rewritten rather than write-once (spec §4.3
// "Ownership").
func (s *Store) SaveMeta(meta MeetingMeta) error {
	return writeJSONAtomic(filepath.Join(s.dir(), "metadata.json"), meta)
}

// LoadMeta reads metadata.json.
func (s *Store) LoadMeta() (MeetingMeta, error) {
	var meta MeetingMeta
	b, err := os.ReadFile(filepath.Join(s.dir(), "metadata.json"))
	if err != nil {
		return meta, fmt.Errorf("reading metadata.json: %w", err)
	}
	if err := json.Unmarshal(b, &meta); err != nil {
		return meta, fmt.Errorf("parsing metadata.json: %w", err)
	}
	return meta, nil
}

// SaveIteration writes iteration_<r>/metadata.json and one
// iteration_<r>/<provider>.json per session, all write-once.
func (s *Store) SaveIteration(meta IterationMetadata, sessions map[string]*toolloop.Session) error {
	dir := s.iterationDir(meta.Iteration)
	if err := writeJSONAtomic(filepath.Join(dir, "metadata.json"), meta); err != nil {
		return err
	}
	for provider, sess := range sessions {
		record := ParticipantRecord{
			Provider:     sess.Provider,
			Model:        sess.Model,
			Steps:        sess.Steps,
			FinalContent: sess.FinalContent,
			Success:      sess.Success,
			Error:        sess.Error,
		}
		path := filepath.Join(dir, provider+".json")
		if err := writeJSONAtomic(path, record); err != nil {
			return fmt.Errorf("saving session for %s: %w", provider, err)
		}
	}
	return nil
}

// LoadIterations walks iteration_0, iteration_1, ... in ascending ordinal
// order, tolerating a missing provider file within an iteration (a
// provider can fail without the iteration disappearing).
func (s *Store) LoadIterations() ([]IterationMetadata, map[int]map[string]ParticipantRecord, error) {
	entries, err := os.ReadDir(s.dir())
	if err != nil {
		return nil, nil, fmt.Errorf("reading meeting directory: %w", err)
	}

	var ordinals []int
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "iteration_") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "iteration_"))
		if err != nil {
			continue
		}
		ordinals = append(ordinals, n)
	}
	sort.Ints(ordinals)

	metas := make([]IterationMetadata, 0, len(ordinals))
	sessions := make(map[int]map[string]ParticipantRecord, len(ordinals))
	for _, ord := range ordinals {
		dir := s.iterationDir(ord)
		var meta IterationMetadata
		b, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
		if err != nil {
			return nil, nil, fmt.Errorf("reading iteration %d metadata: %w", ord, err)
		}
		if err := json.Unmarshal(b, &meta); err != nil {
			return nil, nil, fmt.Errorf("parsing iteration %d metadata: %w", ord, err)
		}
		metas = append(metas, meta)

		providerFiles, err := os.ReadDir(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("reading iteration %d directory: %w", ord, err)
		}
		records := make(map[string]ParticipantRecord)
		for _, f := range providerFiles {
			if f.IsDir() || f.Name() == "metadata.json" || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			provider := strings.TrimSuffix(f.Name(), ".json")
			pb, err := os.ReadFile(filepath.Join(dir, f.Name()))
			if err != nil {
				continue
			}
			var rec ParticipantRecord
			if err := json.Unmarshal(pb, &rec); err != nil {
				continue
			}
			records[provider] = rec
		}
		sessions[ord] = records
	}
	return metas, sessions, nil
}

// SaveChair writes chair.json, write-once.
func (s *Store) SaveChair(rec ChairRecord) error {
	return writeJSONAtomic(filepath.Join(s.dir(), "chair.json"), rec)
}

// LoadChair reads chair.json.
func (s *Store) LoadChair() (ChairRecord, error) {
	var rec ChairRecord
	b, err := os.ReadFile(filepath.Join(s.dir(), "chair.json"))
	if err != nil {
		return rec, fmt.Errorf("reading chair.json: %w", err)
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("parsing chair.json: %w", err)
	}
	return rec, nil
}

// AppendDebug appends one whole-line JSON record to debug.jsonl, guarded
// by a mutex so concurrent appenders never interleave partial lines
// (spec §4.7 "writes MUST be whole-line to keep JSONL valid under
// concurrent appenders").
func (s *Store) AppendDebug(rec DebugRecord) error {
	s.debugMu.Lock()
	defer s.debugMu.Unlock()

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling debug record: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.dir(), "debug.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening debug.jsonl: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("appending to debug.jsonl: %w", err)
	}
	return nil
}

// ListSessions returns every meeting's metadata under baseDir, sorted by
// created_at descending (spec §6 "--list-sessions").
func ListSessions(baseDir string) ([]MeetingMeta, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading base directory: %w", err)
	}

	var metas []MeetingMeta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(baseDir, e.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta MeetingMeta
		if err := json.Unmarshal(b, &meta); err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedMs > metas[j].CreatedMs
	})
	return metas, nil
}

// NowMs is the session package's clock seam; kept as a var (not a direct
// time.Now().UnixMilli() call site scattered everywhere) so tests can pin
// a timestamp.
var NowMs = func() int64 {
	return time.Now().UnixMilli()
}
