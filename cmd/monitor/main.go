package main

import (
	"context"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jbownzino/hoopwatch/internal/config"
	"github.com/jbownzino/hoopwatch/internal/logger"
	"github.com/jbownzino/hoopwatch/internal/monitor"
	"github.com/jbownzino/hoopwatch/internal/queue"
	"github.com/jbownzino/hoopwatch/internal/services"
	"github.com/jbownzino/hoopwatch/internal/storage"
	"github.com/jbownzino/hoopwatch/pkg/detection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Hoopwatch Monitor",
		"game_url", cfg.GameURL,
		"use_cdp", cfg.UseCDP,
		"llm_provider", cfg.LLMProvider)

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	var vision services.VisionService
	switch strings.ToLower(cfg.LLMProvider) {
	case "anthropic":
		vision = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, log)
		log.Info("Using Anthropic vision provider")
	case "google":
		vision = services.NewGoogleService(cfg.GoogleAPIKey, cfg.ModelName, log)
		log.Info("Using Google vision provider")
	case "mock":
		vision = services.NewMockVision()
		log.Info("Using mock vision provider")
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider, "supported", []string{"anthropic", "google", "mock"})
		os.Exit(1)
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := vision.InitModel(initCtx, cfg.ModelName); err != nil {
		initCancel()
		log.Error("Failed to initialize vision model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}
	initCancel()

	opts := monitor.Options{
		ShotInterval:   cfg.ShotInterval,
		DetectInterval: cfg.DetectorInterval,
		Timeout:        cfg.DetectorTimeout,
		ScreenshotDir:  cfg.ScreenshotDir,
	}

	var report *monitor.Report
	var verdict *detection.Verdict

	if cfg.UseCDP {
		report, verdict = runCDP(cfg, vision, opts, log)
	} else {
		report, verdict = runAPI(cfg, vision, opts, log)
	}

	fmt.Println(report.FinalResult)
	if verdict != nil {
		if verdict.Pass {
			fmt.Println("\nJudge verdict: PASS")
			fmt.Println("Reasoning:", verdict.Reasoning)
		} else {
			fmt.Println("\nJudge verdict: FAIL")
			fmt.Println("Reasoning:", verdict.Reasoning)
			fmt.Println("Failure reason:", verdict.FailureReason)
		}
	}

	if !report.Success {
		os.Exit(1)
	}
}

// runAPI plays through the hoopwatch server. Detections are persisted
// on the session and the verdict is requested from the judge worker via
// the queue.
func runAPI(cfg *config.Config, vision services.VisionService, opts monitor.Options, log *slog.Logger) (*monitor.Report, *detection.Verdict) {
	driver := monitor.NewAPIDriver(cfg.GameURL, log)
	defer func() {
		_ = driver.Close()
	}()

	runner := monitor.NewRunner(driver, vision, log, opts)
	runner.OnDetection(func(ctx context.Context, rec detection.Record) error {
		return driver.RecordDetection(ctx, rec)
	})

	report, err := runner.Run(context.Background())
	if err != nil {
		log.Error("Monitoring run failed", "error", err)
	}

	// Hand the finished run to the judge worker.
	store := storage.NewRedisStorage(cfg.RedisURL, log)
	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		log.Warn("Redis unavailable, skipping judge request", "error", err)
		return report, nil
	}

	judgeQueue := queue.NewJudgeQueue(store.GetClient())
	req := queue.NewJudgeRequest(driver.SessionID(), report.FinalResult)
	if err := judgeQueue.Enqueue(ctx, req); err != nil {
		log.Error("Failed to enqueue judge request", "error", err)
	} else {
		log.Info("Judge request enqueued", "request_id", req.RequestID, "session_id", req.SessionID)
	}
	return report, nil
}

// runCDP plays a real browser tab over the DevTools Protocol and runs
// the judge in process.
func runCDP(cfg *config.Config, vision services.VisionService, opts monitor.Options, log *slog.Logger) (*monitor.Report, *detection.Verdict) {
	driver := monitor.NewCDPDriver(cfg.CDPURL, cfg.GameURL, log)
	defer func() {
		_ = driver.Close()
	}()

	runner := monitor.NewRunner(driver, vision, log, opts)
	report, err := runner.Run(context.Background())
	if err != nil {
		log.Error("Monitoring run failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	verdict, err := monitor.Judge(ctx, vision, report)
	if err != nil {
		log.Error("Judge evaluation failed", "error", err)
		return report, nil
	}
	return report, verdict
}
