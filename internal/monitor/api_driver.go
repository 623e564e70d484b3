package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jbownzino/hoopwatch/internal/services"
	"github.com/jbownzino/hoopwatch/pkg/detection"
	"github.com/jbownzino/hoopwatch/pkg/session"
)

// APIDriver plays the game through the hoopwatch HTTP API. Frames are
// the server's textual renders rather than screenshots.
type APIDriver struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	sessionID  uuid.UUID
}

// NewAPIDriver creates a driver against the given server base URL.
func NewAPIDriver(baseURL string, logger *slog.Logger) *APIDriver {
	return &APIDriver{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// SessionID returns the server session this driver created. Zero until
// Start succeeds.
func (d *APIDriver) SessionID() uuid.UUID {
	return d.sessionID
}

func (d *APIDriver) Start(ctx context.Context) error {
	var s session.Session
	if err := d.do(ctx, http.MethodPost, "/v1/sessions", nil, &s); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	d.sessionID = s.ID
	d.logger.Info("Session created", "session_id", d.sessionID)
	return nil
}

func (d *APIDriver) FireShot(ctx context.Context) error {
	path := fmt.Sprintf("/v1/sessions/%s/shots", d.sessionID)
	return d.do(ctx, http.MethodPost, path, nil, nil)
}

func (d *APIDriver) Capture(ctx context.Context) (services.Frame, error) {
	var resp struct {
		Frame string `json:"frame"`
	}
	path := fmt.Sprintf("/v1/sessions/%s/frame", d.sessionID)
	if err := d.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return services.Frame{}, err
	}
	return services.Frame{Text: resp.Frame}, nil
}

func (d *APIDriver) DismissModal(ctx context.Context) error {
	path := fmt.Sprintf("/v1/sessions/%s/dismiss", d.sessionID)
	return d.do(ctx, http.MethodPost, path, nil, nil)
}

// RecordDetection persists a confirmed detection on the server session.
func (d *APIDriver) RecordDetection(ctx context.Context, rec detection.Record) error {
	path := fmt.Sprintf("/v1/sessions/%s/detections", d.sessionID)
	return d.do(ctx, http.MethodPost, path, rec, nil)
}

func (d *APIDriver) Close() error {
	return nil
}

func (d *APIDriver) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
