package services

import (
	"context"
	"sync"
)

// MockVision is a scripted implementation of VisionService for testing
type MockVision struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	ClassifyFunc  func(ctx context.Context, prompt string, frame Frame) (string, error)

	// Responses are returned in order by the default Classify; the last
	// one repeats once exhausted.
	Responses []string

	// Track calls for testing
	InitModelCalls []string
	ClassifyCalls  []ClassifyCall

	mu sync.Mutex // protects all fields above
}

type ClassifyCall struct {
	Prompt string
	Frame  Frame
}

var _ VisionService = (*MockVision)(nil)

// NewMockVision creates a new mock vision service
func NewMockVision() *MockVision {
	return &MockVision{
		InitModelCalls: make([]string, 0),
		ClassifyCalls:  make([]ClassifyCall, 0),
	}
}

func (m *MockVision) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)
	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

func (m *MockVision) Classify(ctx context.Context, prompt string, frame Frame) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ClassifyCalls = append(m.ClassifyCalls, ClassifyCall{Prompt: prompt, Frame: frame})

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, prompt, frame)
	}

	if len(m.Responses) > 0 {
		idx := len(m.ClassifyCalls) - 1
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}
		return m.Responses[idx], nil
	}

	return `{"has_modal": false}`, nil
}

// SetClassifyError sets up the mock to return an error on Classify
func (m *MockVision) SetClassifyError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClassifyFunc = func(ctx context.Context, prompt string, frame Frame) (string, error) {
		return "", err
	}
}

// Calls returns a copy of the Classify call log in a thread-safe way
func (m *MockVision) Calls() []ClassifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]ClassifyCall, len(m.ClassifyCalls))
	copy(calls, m.ClassifyCalls)
	return calls
}

// Reset clears all call tracking
func (m *MockVision) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = make([]string, 0)
	m.ClassifyCalls = make([]ClassifyCall, 0)
}
