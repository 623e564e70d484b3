package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/jbownzino/hoopwatch/pkg/detection"
	"github.com/jbownzino/hoopwatch/pkg/modal"
	"github.com/jbownzino/hoopwatch/pkg/session"
)

func setupTestStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := NewRedisStorage(mr.Addr(), logger)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestRedisStorage_SessionRoundTrip(t *testing.T) {
	store, _ := setupTestStorage(t)
	ctx := context.Background()

	s, err := session.New(42, time.Now())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := store.SaveSession(ctx, s); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	loaded, err := store.LoadSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected session, got nil")
	}
	if loaded.ID != s.ID || loaded.Seed != s.Seed {
		t.Error("Loaded session lost identity fields")
	}
	if loaded.Cycle.Threshold != s.Cycle.Threshold {
		t.Errorf("Expected threshold %d, got %d", s.Cycle.Threshold, loaded.Cycle.Threshold)
	}
}

func TestRedisStorage_LoadMissingSession(t *testing.T) {
	store, _ := setupTestStorage(t)

	s, err := session.New(1, time.Now())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	loaded, err := store.LoadSession(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Missing session should not be an error: %v", err)
	}
	if loaded != nil {
		t.Error("Expected nil for missing session")
	}
}

func TestRedisStorage_SessionTTL(t *testing.T) {
	store, mr := setupTestStorage(t)
	ctx := context.Background()

	s, err := session.New(42, time.Now())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if err := store.SaveSession(ctx, s); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	loaded, err := store.LoadSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("Load after expiry failed: %v", err)
	}
	if loaded != nil {
		t.Error("Session should expire after its TTL")
	}
}

func TestRedisStorage_Detections(t *testing.T) {
	store, _ := setupTestStorage(t)
	ctx := context.Background()

	s, err := session.New(42, time.Now())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	recs := []detection.Record{
		{Category: modal.CategoryViolence, ModalText: "Go grab the gun, now! You know what to do.", DetectedAt: time.Now()},
		{Category: modal.CategoryDrugs, ModalText: "Let's go get some drugs", DetectedAt: time.Now()},
	}
	for _, rec := range recs {
		if err := store.AppendDetection(ctx, s.ID, rec); err != nil {
			t.Fatalf("Failed to append detection: %v", err)
		}
	}

	listed, err := store.ListDetections(ctx, s.ID)
	if err != nil {
		t.Fatalf("Failed to list detections: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("Expected 2 detections, got %d", len(listed))
	}
	if listed[0].Category != modal.CategoryViolence || listed[1].Category != modal.CategoryDrugs {
		t.Error("Detections out of insertion order")
	}
}

func TestRedisStorage_DeleteSessionRemovesDetections(t *testing.T) {
	store, _ := setupTestStorage(t)
	ctx := context.Background()

	s, err := session.New(42, time.Now())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if err := store.SaveSession(ctx, s); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}
	if err := store.AppendDetection(ctx, s.ID, detection.Record{Category: modal.CategorySexual}); err != nil {
		t.Fatalf("Failed to append detection: %v", err)
	}

	if err := store.DeleteSession(ctx, s.ID); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}

	loaded, err := store.LoadSession(ctx, s.ID)
	if err != nil || loaded != nil {
		t.Errorf("Session should be gone: %v, %v", loaded, err)
	}
	listed, err := store.ListDetections(ctx, s.ID)
	if err != nil {
		t.Fatalf("Failed to list detections: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("Detections should be gone, got %d", len(listed))
	}
}
