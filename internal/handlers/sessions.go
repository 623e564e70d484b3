package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jbownzino/hoopwatch/internal/events"
	"github.com/jbownzino/hoopwatch/internal/metrics"
	"github.com/jbownzino/hoopwatch/internal/storage"
	"github.com/jbownzino/hoopwatch/pkg/detection"
	"github.com/jbownzino/hoopwatch/pkg/modal"
	"github.com/jbownzino/hoopwatch/pkg/session"
)

// ErrorResponse is the JSON body returned for all handler errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ShotResponse reports the outcome of a shot-completed signal.
type ShotResponse struct {
	Session *session.Session `json:"session"`
	Opened  bool             `json:"opened"`
	Message *modal.Message   `json:"message,omitempty"`
}

// DismissResponse reports the outcome of a dismissal signal.
type DismissResponse struct {
	Session *session.Session `json:"session"`
	Closed  bool             `json:"closed"`
}

// FrameResponse is the textual frame render used by the API-mode detector.
type FrameResponse struct {
	Frame string `json:"frame"`
}

// SessionsHandler owns the /v1/sessions routes: the whole observable
// surface of the game.
type SessionsHandler struct {
	storage     storage.Storage
	broadcaster *events.Broadcaster
	metrics     *metrics.Metrics
	logger      *slog.Logger
	seeds       *rand.Rand
}

// NewSessionsHandler creates the sessions handler. The broadcaster and
// metrics may be nil in tests.
func NewSessionsHandler(store storage.Storage, broadcaster *events.Broadcaster, m *metrics.Metrics, logger *slog.Logger) *SessionsHandler {
	return &SessionsHandler{
		storage:     store,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger,
		seeds:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Expected: /v1/sessions[/{id}[/{action}]]
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "v1" || parts[1] != "sessions" {
		h.writeError(w, http.StatusNotFound, "Not found")
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
			return
		}
		h.createSession(w, r)
		return
	}

	id, err := uuid.Parse(parts[2])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid session ID format.")
		return
	}

	switch {
	case len(parts) == 3 && r.Method == http.MethodGet:
		h.getSession(w, r, id)
	case len(parts) == 3 && r.Method == http.MethodDelete:
		h.deleteSession(w, r, id)
	case len(parts) == 4 && parts[3] == "shots" && r.Method == http.MethodPost:
		h.shot(w, r, id)
	case len(parts) == 4 && parts[3] == "dismiss" && r.Method == http.MethodPost:
		h.dismiss(w, r, id)
	case len(parts) == 4 && parts[3] == "frame" && r.Method == http.MethodGet:
		h.frame(w, r, id)
	case len(parts) == 4 && parts[3] == "detections" && r.Method == http.MethodGet:
		h.listDetections(w, r, id)
	case len(parts) == 4 && parts[3] == "detections" && r.Method == http.MethodPost:
		h.recordDetection(w, r, id)
	default:
		h.writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SessionsHandler) createSession(w http.ResponseWriter, r *http.Request) {
	s, err := session.New(h.seeds.Int63(), time.Now())
	if err != nil {
		h.logger.Error("Failed to create session", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	if err := h.storage.SaveSession(r.Context(), s); err != nil {
		h.logger.Error("Failed to save session", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	h.logger.Info("Session created", "session_id", s.ID, "threshold", s.Cycle.Threshold)
	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, s)
}

func (h *SessionsHandler) getSession(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, ok := h.loadSession(w, r.Context(), id)
	if !ok {
		return
	}
	h.writeJSON(w, s)
}

func (h *SessionsHandler) deleteSession(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteSession(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete session", "session_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) shot(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, ok := h.loadSession(w, r.Context(), id)
	if !ok {
		return
	}

	wasActive := s.Cycle.ModalActive
	msg, err := s.ApplyShot(time.Now())
	if err != nil {
		h.logger.Error("Failed to apply shot", "session_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to apply shot")
		return
	}

	if err := h.storage.SaveSession(r.Context(), s); err != nil {
		h.logger.Error("Failed to save session", "session_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	if h.metrics != nil {
		h.metrics.ShotsTotal.Inc()
		if msg != nil {
			h.metrics.ModalsOpened.WithLabelValues(string(msg.Category)).Inc()
		}
	}
	if h.broadcaster != nil {
		if err := h.broadcaster.PublishShotFired(r.Context(), id, s.ShotCount, !wasActive); err != nil {
			h.logger.Error("Failed to publish shot event", "error", err)
		}
		if msg != nil {
			if err := h.broadcaster.PublishModalOpened(r.Context(), id, *msg); err != nil {
				h.logger.Error("Failed to publish modal event", "error", err)
			}
		}
	}

	if msg != nil {
		h.logger.Info("Modal opened",
			"session_id", id,
			"category", msg.Category,
			"shot_count", s.ShotCount)
	}

	h.writeJSON(w, ShotResponse{Session: s, Opened: msg != nil, Message: msg})
}

func (h *SessionsHandler) dismiss(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, ok := h.loadSession(w, r.Context(), id)
	if !ok {
		return
	}

	closed, err := s.ApplyDismiss(time.Now())
	if err != nil {
		h.logger.Error("Failed to apply dismissal", "session_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to apply dismissal")
		return
	}

	if err := h.storage.SaveSession(r.Context(), s); err != nil {
		h.logger.Error("Failed to save session", "session_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	if closed {
		if h.metrics != nil {
			h.metrics.Dismissals.Inc()
		}
		if h.broadcaster != nil {
			if err := h.broadcaster.PublishModalDismissed(r.Context(), id); err != nil {
				h.logger.Error("Failed to publish dismissal event", "error", err)
			}
		}
		h.logger.Info("Modal dismissed, cycle rearmed",
			"session_id", id,
			"next_threshold", s.Cycle.Threshold)
	}

	h.writeJSON(w, DismissResponse{Session: s, Closed: closed})
}

func (h *SessionsHandler) frame(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, ok := h.loadSession(w, r.Context(), id)
	if !ok {
		return
	}
	h.writeJSON(w, FrameResponse{Frame: s.Frame()})
}

func (h *SessionsHandler) listDetections(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	records, err := h.storage.ListDetections(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list detections", "session_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list detections")
		return
	}
	h.writeJSON(w, records)
}

func (h *SessionsHandler) recordDetection(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var rec detection.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid detection record")
		return
	}
	if rec.Category == "" {
		h.writeError(w, http.StatusBadRequest, "Detection category is required")
		return
	}
	if rec.DetectedAt.IsZero() {
		rec.DetectedAt = time.Now()
	}

	if err := h.storage.AppendDetection(r.Context(), id, rec); err != nil {
		h.logger.Error("Failed to append detection", "session_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to record detection")
		return
	}

	if h.metrics != nil {
		h.metrics.Detections.WithLabelValues(string(rec.Category)).Inc()
	}
	if h.broadcaster != nil {
		if err := h.broadcaster.PublishDetectionRecorded(r.Context(), id, rec); err != nil {
			h.logger.Error("Failed to publish detection event", "error", err)
		}
	}

	h.logger.Info("Detection recorded",
		"session_id", id,
		"category", rec.Category,
		"label", rec.ContentTypeLabel)

	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, rec)
}

func (h *SessionsHandler) loadSession(w http.ResponseWriter, ctx context.Context, id uuid.UUID) (*session.Session, bool) {
	s, err := h.storage.LoadSession(ctx, id)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to load session")
		return nil, false
	}
	if s == nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return s, true
}

func (h *SessionsHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *SessionsHandler) writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}
