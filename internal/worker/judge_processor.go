package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jbownzino/hoopwatch/internal/metrics"
	"github.com/jbownzino/hoopwatch/internal/queue"
	"github.com/jbownzino/hoopwatch/internal/services"
	"github.com/jbownzino/hoopwatch/internal/storage"
	"github.com/jbownzino/hoopwatch/pkg/detection"
)

const judgeCallTimeout = 30 * time.Second

// JudgeProcessor evaluates finished monitoring runs. It rebuilds the
// run's step log from the session's recorded detections, asks the LLM
// for a verdict, and stores the verdict on the session.
type JudgeProcessor struct {
	storage storage.Storage
	vision  services.VisionService
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewJudgeProcessor creates a judge processor. Metrics may be nil.
func NewJudgeProcessor(store storage.Storage, vision services.VisionService, m *metrics.Metrics, logger *slog.Logger) *JudgeProcessor {
	return &JudgeProcessor{
		storage: store,
		vision:  vision,
		metrics: m,
		logger:  logger,
	}
}

// Judge evaluates one request and persists the verdict.
func (p *JudgeProcessor) Judge(ctx context.Context, req *queue.JudgeRequest) (*detection.Verdict, error) {
	s, err := p.storage.LoadSession(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("session %s not found", req.SessionID)
	}

	records, err := p.storage.ListDetections(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load detections: %w", err)
	}

	steps := make([]string, 0, len(records))
	for _, rec := range records {
		steps = append(steps, fmt.Sprintf(
			"Detected %s modal (%q), reported it and clicked Close",
			rec.ContentTypeLabel, rec.ModalText))
	}

	callCtx, cancel := context.WithTimeout(ctx, judgeCallTimeout)
	defer cancel()

	start := time.Now()
	raw, err := p.vision.Classify(callCtx, detection.JudgePrompt(req.FinalResult, steps), services.Frame{})
	if p.metrics != nil {
		p.metrics.LLMCallDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("judge call failed: %w", err)
	}

	verdict, err := detection.ParseVerdict(raw)
	if err != nil {
		return nil, err
	}

	s.Verdict = verdict
	s.UpdatedAt = time.Now()
	if err := p.storage.SaveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save verdict: %w", err)
	}

	p.logger.Debug("Verdict stored",
		"session_id", req.SessionID,
		"verdict", verdict.Pass,
		"detections", len(records))
	return verdict, nil
}
