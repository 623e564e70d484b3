package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func TestAnthropicService_Classify(t *testing.T) {
	var gotReq anthropicChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Missing api key header, got %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("Missing anthropic-version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		resp := anthropicChatResponse{
			Content: []anthropicContentBlock{{Type: "text", Text: `{"has_modal": false}`}},
			Model:   "claude-3-5-haiku-latest",
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc := NewAnthropicService("test-key", "", testLogger())
	svc.baseURL = server.URL

	text, err := svc.Classify(context.Background(), "classify this", Frame{PNG: []byte{0x89, 0x50}})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if text != `{"has_modal": false}` {
		t.Errorf("Unexpected completion: %q", text)
	}

	if len(gotReq.Messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(gotReq.Messages))
	}
	parts := gotReq.Messages[0].Content
	if len(parts) != 2 {
		t.Fatalf("Expected text + image parts, got %d", len(parts))
	}
	if parts[0].Type != "text" || parts[0].Text != "classify this" {
		t.Errorf("First part should be the prompt, got %+v", parts[0])
	}
	if parts[1].Type != "image" || parts[1].Source == nil || parts[1].Source.MediaType != "image/png" {
		t.Errorf("Second part should be a base64 PNG, got %+v", parts[1])
	}
}

func TestAnthropicService_TextFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		parts := req.Messages[0].Content
		if len(parts) != 2 || parts[1].Type != "text" {
			t.Errorf("Expected prompt + frame text parts, got %+v", parts)
		}
		_ = json.NewEncoder(w).Encode(anthropicChatResponse{
			Content: []anthropicContentBlock{{Type: "text", Text: "ok"}},
		})
	}))
	defer server.Close()

	svc := NewAnthropicService("test-key", "", testLogger())
	svc.baseURL = server.URL

	if _, err := svc.Classify(context.Background(), "p", Frame{Text: "Modal text: hi"}); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
}

func TestAnthropicService_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "bad"}}`))
	}))
	defer server.Close()

	svc := NewAnthropicService("test-key", "", testLogger())
	svc.baseURL = server.URL

	if _, err := svc.Classify(context.Background(), "p", Frame{}); err == nil {
		t.Error("Expected error for 400 response")
	}
}

func TestAnthropicService_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(anthropicChatResponse{
			Content: []anthropicContentBlock{{Type: "text", Text: "recovered"}},
		})
	}))
	defer server.Close()

	svc := NewAnthropicService("test-key", "", testLogger())
	svc.baseURL = server.URL

	text, err := svc.Classify(context.Background(), "p", Frame{})
	if err != nil {
		t.Fatalf("Classify should recover from a transient 503: %v", err)
	}
	if text != "recovered" {
		t.Errorf("Unexpected completion: %q", text)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 calls (1 retry), got %d", calls.Load())
	}
}
