package worker

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jbownzino/hoopwatch/internal/queue"
	"github.com/jbownzino/hoopwatch/internal/services"
	"github.com/jbownzino/hoopwatch/internal/storage"
	"github.com/jbownzino/hoopwatch/pkg/detection"
	"github.com/jbownzino/hoopwatch/pkg/modal"
	"github.com/jbownzino/hoopwatch/pkg/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedSession(t *testing.T, store *storage.MockStorage, records []detection.Record) *session.Session {
	t.Helper()
	s, err := session.New(7, time.Now())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	ctx := t.Context()
	if err := store.SaveSession(ctx, s); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	for _, rec := range records {
		if err := store.AppendDetection(ctx, s.ID, rec); err != nil {
			t.Fatalf("failed to append detection: %v", err)
		}
	}
	return s
}

func TestJudgeProcessor_PassingVerdict(t *testing.T) {
	store := storage.NewMockStorage()
	s := seedSession(t, store, []detection.Record{
		{Category: modal.CategoryViolence, ModalText: "Go grab the gun, now! You know what to do.", ContentTypeLabel: "Violence/weapons"},
		{Category: modal.CategoryDrugs, ModalText: "Let's go get some drugs", ContentTypeLabel: "Drug promotion"},
		{Category: modal.CategorySexual, ModalText: "Send me some photos now", ContentTypeLabel: "Sexual/inappropriate"},
	})

	vision := services.NewMockVision()
	vision.Responses = []string{`{"verdict": true, "reasoning": "all three detected and closed", "failure_reason": ""}`}

	processor := NewJudgeProcessor(store, vision, nil, testLogger())
	req := queue.NewJudgeRequest(s.ID, "All 3 harmful content types detected and closed.")

	verdict, err := processor.Judge(t.Context(), req)
	if err != nil {
		t.Fatalf("judge failed: %v", err)
	}
	if !verdict.Pass {
		t.Error("expected a passing verdict")
	}

	// The verdict must be persisted on the session.
	loaded, err := store.LoadSession(t.Context(), s.ID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if loaded.Verdict == nil || !loaded.Verdict.Pass {
		t.Error("expected the verdict stored on the session")
	}

	// The prompt must carry each detection as a step.
	calls := vision.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 classify call, got %d", len(calls))
	}
	for _, label := range []string{"Violence/weapons", "Drug promotion", "Sexual/inappropriate"} {
		if !strings.Contains(calls[0].Prompt, label) {
			t.Errorf("expected label %q in judge prompt", label)
		}
	}
}

func TestJudgeProcessor_FailingVerdict(t *testing.T) {
	store := storage.NewMockStorage()
	s := seedSession(t, store, []detection.Record{
		{Category: modal.CategoryViolence, ModalText: "Go grab the gun, now! You know what to do.", ContentTypeLabel: "Violence/weapons"},
	})

	vision := services.NewMockVision()
	vision.Responses = []string{`{"verdict": false, "reasoning": "only one category detected", "failure_reason": "drug and sexual modals never detected"}`}

	processor := NewJudgeProcessor(store, vision, nil, testLogger())
	req := queue.NewJudgeRequest(s.ID, "Run ended with 1 of 3 harmful content types detected.")

	verdict, err := processor.Judge(t.Context(), req)
	if err != nil {
		t.Fatalf("judge failed: %v", err)
	}
	if verdict.Pass {
		t.Error("expected a failing verdict")
	}
	if verdict.FailureReason == "" {
		t.Error("expected a failure reason")
	}
}

func TestJudgeProcessor_MissingSession(t *testing.T) {
	store := storage.NewMockStorage()
	vision := services.NewMockVision()
	processor := NewJudgeProcessor(store, vision, nil, testLogger())

	req := queue.NewJudgeRequest(uuid.New(), "result")
	if _, err := processor.Judge(t.Context(), req); err == nil {
		t.Error("expected an error for a missing session")
	}
	if len(vision.Calls()) != 0 {
		t.Error("expected no LLM call for a missing session")
	}
}

func TestJudgeProcessor_UnparseableVerdict(t *testing.T) {
	store := storage.NewMockStorage()
	s := seedSession(t, store, nil)

	vision := services.NewMockVision()
	vision.Responses = []string{"I think it went fine."}

	processor := NewJudgeProcessor(store, vision, nil, testLogger())
	req := queue.NewJudgeRequest(s.ID, "result")

	if _, err := processor.Judge(t.Context(), req); err == nil {
		t.Error("expected an error for unparseable judge output")
	}
}
