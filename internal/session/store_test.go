package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/basinlabs/conclave/internal/toolloop"
)

func newTestSession(t *testing.T, provider string) *toolloop.Session {
	t.Helper()
	// toolloop.Session has no exported constructor for a successful session
	// (only NewFailedSession); build via its exported fields directly since
	// the zero value plus field assignment is a
	// valid, already-finalized-looking record for persistence purposes.
	return &toolloop.Session{Provider: provider, Model: "test-model", FinalContent: "ok", Success: true}
}

func TestStore_SaveAndLoadMeta(t *testing.T) {
	base := t.TempDir()
	store, err := Open(base, "meeting-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	meta := MeetingMeta{MeetingID: "meeting-1", CreatedMs: 1000, Agenda: "discuss X", Status: StatusRunning}
	if err := store.SaveMeta(meta); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}

	loaded, err := store.LoadMeta()
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if loaded.Agenda != "discuss X" || loaded.Status != StatusRunning {
		t.Errorf("unexpected loaded meta: %+v", loaded)
	}

	completed := int64(2000)
	elapsed := int64(1000)
	meta.Status = StatusCompleted
	meta.CompletedMs = &completed
	meta.ElapsedMs = &elapsed
	if err := store.SaveMeta(meta); err != nil {
		t.Fatalf("SaveMeta (rewrite): %v", err)
	}
	loaded, err = store.LoadMeta()
	if err != nil {
		t.Fatalf("LoadMeta (after rewrite): %v", err)
	}
	if loaded.Status != StatusCompleted || loaded.ElapsedMs == nil || *loaded.ElapsedMs != 1000 {
		t.Errorf("expected rewritten completed metadata, got %+v", loaded)
	}
}

func TestStore_SaveAndLoadIterations(t *testing.T) {
	base := t.TempDir()
	store, err := Open(base, "meeting-2")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	sessions := map[string]*toolloop.Session{
		"openai": newTestSession(t, "openai"),
		"gemini": newTestSession(t, "gemini"),
	}
	if err := store.SaveIteration(IterationMetadata{Iteration: 0, Question: "agenda", ParticipantCount: 2}, sessions); err != nil {
		t.Fatalf("SaveIteration: %v", err)
	}
	if err := store.SaveIteration(IterationMetadata{Iteration: 1, Question: "follow up", ParticipantCount: 2}, sessions); err != nil {
		t.Fatalf("SaveIteration: %v", err)
	}

	metas, records, err := store.LoadIterations()
	if err != nil {
		t.Fatalf("LoadIterations: %v", err)
	}
	if len(metas) != 2 || metas[0].Iteration != 0 || metas[1].Iteration != 1 {
		t.Fatalf("unexpected iteration ordering: %+v", metas)
	}
	if records[0]["openai"].FinalContent != "ok" {
		t.Errorf("expected persisted participant record, got %+v", records[0])
	}
	if _, ok := records[0]["claude"]; ok {
		t.Errorf("unexpected claude record present when only openai/gemini were saved")
	}
}

func TestStore_ChairRoundTrip(t *testing.T) {
	base := t.TempDir()
	store, err := Open(base, "meeting-3")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec := ChairRecord{Provider: "anthropic", Model: "claude-test", Content: "summary", Success: true}
	if err := store.SaveChair(rec); err != nil {
		t.Fatalf("SaveChair: %v", err)
	}
	loaded, err := store.LoadChair()
	if err != nil {
		t.Fatalf("LoadChair: %v", err)
	}
	if loaded.Content != "summary" {
		t.Errorf("unexpected chair record: %+v", loaded)
	}
}

func TestStore_AppendDebugIsLineDelimited(t *testing.T) {
	base := t.TempDir()
	store, err := Open(base, "meeting-4")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := store.AppendDebug(DebugRecord{TimestampMs: int64(i), Level: "info", Event: "tick", Message: "x"}); err != nil {
			t.Fatalf("AppendDebug: %v", err)
		}
	}
	// Append more from a separate goroutine through the same Store, so the
	// writes go through the per-Store mutex from another goroutine.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			store.AppendDebug(DebugRecord{TimestampMs: int64(100 + i), Level: "warn", Event: "tick2", Message: "y"})
		}
	}()
	<-done

	b, err := os.ReadFile(filepath.Join(base, "meeting-4", "debug.jsonl"))
	if err != nil {
		t.Fatalf("reading debug.jsonl: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	if len(lines) != 10 {
		t.Fatalf("expected 10 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var rec DebugRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Errorf("line %d is not one JSON record: %v", i+1, err)
		}
	}
}

func TestListSessions_SortedDescendingByCreated(t *testing.T) {
	base := t.TempDir()
	older, _ := Open(base, "m-older")
	newer, _ := Open(base, "m-newer")
	older.SaveMeta(MeetingMeta{MeetingID: "m-older", CreatedMs: 100, Status: StatusCompleted})
	newer.SaveMeta(MeetingMeta{MeetingID: "m-newer", CreatedMs: 200, Status: StatusRunning})

	metas, err := ListSessions(base)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(metas) != 2 || metas[0].MeetingID != "m-newer" || metas[1].MeetingID != "m-older" {
		t.Fatalf("unexpected order: %+v", metas)
	}
}

func TestListSessions_MissingBaseDirReturnsNilNoError(t *testing.T) {
	base := t.TempDir() + "/does-not-exist"
	metas, err := ListSessions(base)
	if err != nil {
		t.Fatalf("expected no error for missing base dir, got %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("expected empty result, got %+v", metas)
	}
}
