package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jbownzino/hoopwatch/pkg/detection"
	"github.com/jbownzino/hoopwatch/pkg/modal"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeShotFired         EventType = "shot.fired"
	EventTypeModalOpened       EventType = "modal.opened"
	EventTypeModalDismissed    EventType = "modal.dismissed"
	EventTypeDetectionRecorded EventType = "detection.recorded"
	EventTypeJudgeVerdict      EventType = "judge.verdict"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Channel returns the pub/sub channel for a session's events.
func Channel(sessionID uuid.UUID) string {
	return fmt.Sprintf("session-events:%s", sessionID.String())
}

// Broadcaster publishes session events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishShotFired publishes a shot.fired event
func (b *Broadcaster) PublishShotFired(ctx context.Context, sessionID uuid.UUID, shotCount int, counted bool) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeShotFired,
		SessionID: sessionID.String(),
		Data: map[string]interface{}{
			"shot_count": shotCount,
			"counted":    counted,
		},
	})
}

// PublishModalOpened publishes a modal.opened event carrying the message
func (b *Broadcaster) PublishModalOpened(ctx context.Context, sessionID uuid.UUID, msg modal.Message) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeModalOpened,
		SessionID: sessionID.String(),
		Data: map[string]interface{}{
			"text":     msg.Text,
			"category": string(msg.Category),
		},
	})
}

// PublishModalDismissed publishes a modal.dismissed event
func (b *Broadcaster) PublishModalDismissed(ctx context.Context, sessionID uuid.UUID) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeModalDismissed,
		SessionID: sessionID.String(),
		Data: map[string]interface{}{
			"status": "rearmed",
		},
	})
}

// PublishDetectionRecorded publishes a detection.recorded event
func (b *Broadcaster) PublishDetectionRecorded(ctx context.Context, sessionID uuid.UUID, rec detection.Record) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeDetectionRecorded,
		SessionID: sessionID.String(),
		Data: map[string]interface{}{
			"category":   string(rec.Category),
			"label":      rec.ContentTypeLabel,
			"modal_text": rec.ModalText,
		},
	})
}

// PublishJudgeVerdict publishes a judge.verdict event
func (b *Broadcaster) PublishJudgeVerdict(ctx context.Context, sessionID uuid.UUID, verdict detection.Verdict) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeJudgeVerdict,
		SessionID: sessionID.String(),
		Data: map[string]interface{}{
			"pass":           verdict.Pass,
			"reasoning":      verdict.Reasoning,
			"failure_reason": verdict.FailureReason,
		},
	})
}

func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	channel := Channel(sessionID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)
	return nil
}
