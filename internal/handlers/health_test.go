package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jbownzino/hoopwatch/internal/storage"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantHealth string
	}{
		{
			name:       "healthy storage",
			pingErr:    nil,
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
		},
		{
			name:       "unhealthy storage",
			pingErr:    errors.New("connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMockStorage()
			store.PingFunc = func(ctx context.Context) error {
				return tt.pingErr
			}

			handler := NewHealthHandler(store, testLogger())
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantHealth {
				t.Errorf("expected status %q, got %q", tt.wantHealth, resp.Status)
			}
			if resp.Service != "hoopwatch" {
				t.Errorf("unexpected service name %q", resp.Service)
			}
		})
	}
}
