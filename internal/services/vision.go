package services

import (
	"context"
)

// Frame is one captured view of the game handed to the classifier.
// CDP-driven runs carry a PNG screenshot; API-driven runs carry the
// textual frame render. At least one of the two is set.
type Frame struct {
	PNG  []byte
	Text string
}

// Empty reports whether the frame carries no content at all.
func (f Frame) Empty() bool {
	return len(f.PNG) == 0 && f.Text == ""
}

// VisionService defines the interface for vision-capable LLM backends
// used by the detector and the judge.
type VisionService interface {
	// InitModel prepares the backend model on startup.
	InitModel(ctx context.Context, modelName string) error

	// Classify sends the prompt plus an optional frame and returns the
	// model's raw text completion.
	Classify(ctx context.Context, prompt string, frame Frame) (string, error)
}
