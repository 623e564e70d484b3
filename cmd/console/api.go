package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jbownzino/hoopwatch/internal/handlers"
	"github.com/jbownzino/hoopwatch/pkg/detection"
	"github.com/jbownzino/hoopwatch/pkg/session"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func createSession(client *http.Client, baseURL string) (*session.Session, error) {
	resp, err := client.Post(baseURL+"/v1/sessions", "application/json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, apiError("create session", resp.StatusCode, body)
	}

	var s session.Session
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}
	return &s, nil
}

func fireShot(client *http.Client, baseURL string, sessionID uuid.UUID) (*handlers.ShotResponse, error) {
	resp, err := client.Post(fmt.Sprintf("%s/v1/sessions/%s/shots", baseURL, sessionID), "application/json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("fire shot", resp.StatusCode, body)
	}

	var shotResp handlers.ShotResponse
	if err := json.Unmarshal(body, &shotResp); err != nil {
		return nil, fmt.Errorf("failed to parse shot response: %w", err)
	}
	return &shotResp, nil
}

func dismissModal(client *http.Client, baseURL string, sessionID uuid.UUID) (*handlers.DismissResponse, error) {
	resp, err := client.Post(fmt.Sprintf("%s/v1/sessions/%s/dismiss", baseURL, sessionID), "application/json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("dismiss modal", resp.StatusCode, body)
	}

	var dismissResp handlers.DismissResponse
	if err := json.Unmarshal(body, &dismissResp); err != nil {
		return nil, fmt.Errorf("failed to parse dismiss response: %w", err)
	}
	return &dismissResp, nil
}

func listDetections(client *http.Client, baseURL string, sessionID uuid.UUID) ([]detection.Record, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/sessions/%s/detections", baseURL, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("list detections", resp.StatusCode, body)
	}

	var records []detection.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to parse detections response: %w", err)
	}
	return records, nil
}

func apiError(action string, status int, body []byte) error {
	var errorResp handlers.ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
		return fmt.Errorf("API returned status %d: %s", status, string(body))
	}
	return fmt.Errorf("failed to %s: %s", action, errorResp.Error)
}

// sseEvent is one event received from the server's event stream.
type sseEvent struct {
	Type string
	Data map[string]interface{}
}

// subscribeEvents opens the session's SSE stream and forwards events to
// the returned channel until the context is cancelled.
func subscribeEvents(ctx context.Context, baseURL string, sessionID uuid.UUID) (<-chan sseEvent, error) {
	url := fmt.Sprintf("%s/v1/events/sessions/%s", baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout here: the stream stays open for the whole run.
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}

	events := make(chan sseEvent, 16)
	go func() {
		defer close(events)
		defer func() {
			_ = resp.Body.Close() // Ignore error in defer
		}()

		scanner := bufio.NewScanner(resp.Body)
		var eventType string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				eventType = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				var data map[string]interface{}
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &data); err != nil {
					continue
				}
				select {
				case events <- sseEvent{Type: eventType, Data: data}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}
