package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/jbownzino/hoopwatch/pkg/detection"
	"github.com/jbownzino/hoopwatch/pkg/session"
)

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the service connection
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities
type Closer interface {
	// Close closes the service connection
	Close() error
}

// Storage defines the interface for session and detection persistence
type Storage interface {
	HealthChecker
	Closer

	// SaveSession persists a session under its ID
	SaveSession(ctx context.Context, s *session.Session) error

	// LoadSession retrieves a session by ID
	// Returns nil if the session doesn't exist
	LoadSession(ctx context.Context, id uuid.UUID) (*session.Session, error)

	// DeleteSession removes a session and its detections
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// AppendDetection records a confirmed detection for a session
	AppendDetection(ctx context.Context, id uuid.UUID, rec detection.Record) error

	// ListDetections returns a session's detections in insertion order
	ListDetections(ctx context.Context, id uuid.UUID) ([]detection.Record, error)
}
