package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jbownzino/hoopwatch/pkg/detection"
	"github.com/jbownzino/hoopwatch/pkg/session"
)

// MockStorage is an in-memory implementation of Storage for testing
type MockStorage struct {
	PingFunc        func(ctx context.Context) error
	SaveSessionFunc func(ctx context.Context, s *session.Session) error
	LoadSessionFunc func(ctx context.Context, id uuid.UUID) (*session.Session, error)

	sessions   map[uuid.UUID]*session.Session
	detections map[uuid.UUID][]detection.Record

	mu sync.Mutex
}

var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new in-memory mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions:   make(map[uuid.UUID]*session.Session),
		detections: make(map[uuid.UUID][]detection.Record),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveSession(ctx context.Context, s *session.Session) error {
	if m.SaveSessionFunc != nil {
		return m.SaveSessionFunc(ctx, s)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *s
	m.sessions[s.ID] = &copied
	return nil
}

func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	if m.LoadSessionFunc != nil {
		return m.LoadSessionFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.detections, id)
	return nil
}

func (m *MockStorage) AppendDetection(ctx context.Context, id uuid.UUID, rec detection.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections[id] = append(m.detections[id], rec)
	return nil
}

func (m *MockStorage) ListDetections(ctx context.Context, id uuid.UUID) ([]detection.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]detection.Record, len(m.detections[id]))
	copy(records, m.detections[id])
	return records, nil
}
