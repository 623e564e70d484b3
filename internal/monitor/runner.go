package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jbownzino/hoopwatch/internal/services"
	"github.com/jbownzino/hoopwatch/pkg/detection"
	"github.com/jbownzino/hoopwatch/pkg/modal"
)

const defaultClassifyTimeout = 15 * time.Second

// Options control the timing of a monitoring run.
type Options struct {
	ShotInterval    time.Duration // player clicks Shoot this often
	DetectInterval  time.Duration // detector samples a frame this often
	Timeout         time.Duration // overall run deadline
	ClassifyTimeout time.Duration // per LLM call deadline
	ScreenshotDir   string        // where PNG frames of detections are saved, empty to skip
}

// Report is the outcome of a run.
type Report struct {
	Success     bool
	Shots       int
	Records     []detection.Record
	Steps       []string
	FinalResult string
	Elapsed     time.Duration
}

// Runner drives one monitoring run: a player loop that keeps shooting
// and a detector loop that classifies frames, reports harmful modals
// and closes them. The run ends when every category has been detected
// or the timeout expires.
type Runner struct {
	driver Driver
	vision services.VisionService
	logger *slog.Logger
	opts   Options

	// onDetection, when set, is called with each newly confirmed
	// detection before the modal is closed.
	onDetection func(ctx context.Context, rec detection.Record) error
}

// NewRunner creates a runner. Zero option values fall back to the
// defaults the game was tuned for.
func NewRunner(driver Driver, vision services.VisionService, logger *slog.Logger, opts Options) *Runner {
	if opts.ShotInterval <= 0 {
		opts.ShotInterval = 3 * time.Second
	}
	if opts.DetectInterval <= 0 {
		opts.DetectInterval = 2 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.ClassifyTimeout <= 0 {
		opts.ClassifyTimeout = defaultClassifyTimeout
	}
	return &Runner{
		driver: driver,
		vision: vision,
		logger: logger,
		opts:   opts,
	}
}

// OnDetection registers a callback for each confirmed detection.
func (r *Runner) OnDetection(fn func(ctx context.Context, rec detection.Record) error) {
	r.onDetection = fn
}

// Run executes the monitoring run. The returned report is non-nil even
// when the run fails partway, so partial detections are preserved.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := &Report{}

	runCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	if err := r.driver.Start(runCtx); err != nil {
		return report, fmt.Errorf("failed to start driver: %w", err)
	}

	detected := make(map[modal.Category]bool)

	var shotMu sync.Mutex
	shots := 0

	// Player loop. Keeps firing shots until the run ends; shots taken
	// while a modal is open are absorbed by the game.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(r.opts.ShotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := r.driver.FireShot(runCtx); err != nil {
					if runCtx.Err() == nil {
						r.logger.Warn("Shot failed", "error", err)
					}
					continue
				}
				shotMu.Lock()
				shots++
				n := shots
				shotMu.Unlock()
				r.logger.Debug("Shot fired", "count", n)
			}
		}
	}()

	// Detector loop.
	ticker := time.NewTicker(r.opts.DetectInterval)
	defer ticker.Stop()

detect:
	for {
		select {
		case <-runCtx.Done():
			break detect
		case <-ticker.C:
			rec, err := r.inspectFrame(runCtx, detected, len(report.Records))
			if err != nil {
				if runCtx.Err() != nil {
					break detect
				}
				r.logger.Warn("Frame inspection failed", "error", err)
				continue
			}
			if rec == nil {
				continue
			}

			detected[rec.Category] = true
			report.Records = append(report.Records, *rec)
			report.Steps = append(report.Steps, fmt.Sprintf(
				"Detected %s modal (%q), reported it and clicked Close",
				rec.ContentTypeLabel, rec.ModalText))

			r.logger.Info("Harmful content detected",
				"category", rec.Category,
				"label", rec.ContentTypeLabel,
				"modal_text", rec.ModalText,
				"progress", fmt.Sprintf("%d/%d", len(detected), len(modal.Categories())))

			if len(detected) == len(modal.Categories()) {
				break detect
			}
		}
	}

	cancel()
	wg.Wait()

	shotMu.Lock()
	report.Shots = shots
	shotMu.Unlock()

	report.Elapsed = time.Since(started)
	report.Success = len(detected) == len(modal.Categories())
	report.FinalResult = r.summarize(report, detected)

	r.logger.Info("Run finished",
		"success", report.Success,
		"detections", len(report.Records),
		"shots", report.Shots,
		"elapsed", report.Elapsed.Round(time.Second))

	if !report.Success && errors.Is(ctx.Err(), context.Canceled) {
		return report, ctx.Err()
	}
	return report, nil
}

// inspectFrame captures one frame, classifies it, and handles any modal
// it finds: new categories are reported, and the modal is closed either
// way. Returns the new record, or nil when the frame needed no action.
func (r *Runner) inspectFrame(ctx context.Context, detected map[modal.Category]bool, recorded int) (*detection.Record, error) {
	frame, err := r.driver.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture frame: %w", err)
	}
	if frame.Empty() {
		return nil, nil
	}

	classifyCtx, cancel := context.WithTimeout(ctx, r.opts.ClassifyTimeout)
	raw, err := r.vision.Classify(classifyCtx, detection.PromptWithProgress(detected), frame)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	result, err := detection.ParseResult(raw)
	if err != nil {
		return nil, err
	}
	if !result.HasModal {
		return nil, nil
	}

	cat, err := detection.NormalizeCategory(result.Type)
	if err != nil {
		// Unknown category: leave the modal for the next pass rather
		// than guessing.
		return nil, err
	}

	if detected[cat] {
		// Repeat of a category we already reported. Still close it so
		// the game can move on.
		r.logger.Debug("Repeat modal, closing without reporting", "category", cat)
		if err := r.driver.DismissModal(ctx); err != nil {
			return nil, fmt.Errorf("failed to dismiss repeat modal: %w", err)
		}
		return nil, nil
	}

	rec := detection.NewRecord(result, cat, time.Now())
	if len(frame.PNG) > 0 && r.opts.ScreenshotDir != "" {
		path, err := r.saveScreenshot(frame.PNG, recorded+1)
		if err != nil {
			r.logger.Warn("Failed to save screenshot", "error", err)
		} else {
			rec.ScreenshotPath = path
		}
	}

	if r.onDetection != nil {
		if err := r.onDetection(ctx, rec); err != nil {
			r.logger.Error("Detection callback failed", "error", err)
		}
	}

	if err := r.driver.DismissModal(ctx); err != nil {
		return nil, fmt.Errorf("failed to dismiss modal: %w", err)
	}
	return &rec, nil
}

func (r *Runner) saveScreenshot(png []byte, n int) (string, error) {
	if err := os.MkdirAll(r.opts.ScreenshotDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	name := fmt.Sprintf("harmful_content_%s_%d.png", time.Now().Format("20060102_150405"), n)
	path := filepath.Join(r.opts.ScreenshotDir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}

// summarize builds the final result text the judge evaluates.
func (r *Runner) summarize(report *Report, detected map[modal.Category]bool) string {
	var b strings.Builder
	if report.Success {
		fmt.Fprintf(&b, "All %d harmful content types detected and closed.\n\n", len(modal.Categories()))
	} else {
		var missing []string
		for _, cat := range modal.Categories() {
			if !detected[cat] {
				missing = append(missing, detection.Label(cat))
			}
		}
		fmt.Fprintf(&b, "Run ended with %d of %d harmful content types detected. Missing: %s.\n\n",
			len(report.Records), len(modal.Categories()), strings.Join(missing, ", "))
	}
	for _, rec := range report.Records {
		b.WriteString(detection.ReportBlock(rec))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Shots fired: %d. Elapsed: %s.", report.Shots, report.Elapsed.Round(time.Second))
	return b.String()
}

// Judge asks the vision service to score a finished run against the
// task's ground truth.
func Judge(ctx context.Context, vision services.VisionService, report *Report) (*detection.Verdict, error) {
	raw, err := vision.Classify(ctx, detection.JudgePrompt(report.FinalResult, report.Steps), services.Frame{})
	if err != nil {
		return nil, fmt.Errorf("judge call failed: %w", err)
	}
	return detection.ParseVerdict(raw)
}
