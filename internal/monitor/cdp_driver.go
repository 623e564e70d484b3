package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"

	"github.com/jbownzino/hoopwatch/internal/services"
)

const (
	shootButtonSelector = "#shoot-btn"
	closeButtonXPath    = `//button[contains(text(), "Close")]`
)

// CDPDriver steers a Chrome tab over the DevTools Protocol. Frames are
// PNG screenshots of the page.
type CDPDriver struct {
	gameURL string
	logger  *slog.Logger

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// NewCDPDriver connects to a running Chrome at cdpURL and opens a tab
// for the game at gameURL.
func NewCDPDriver(cdpURL, gameURL string, logger *slog.Logger) *CDPDriver {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), cdpURL)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	return &CDPDriver{
		gameURL:     gameURL,
		logger:      logger,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}
}

func (d *CDPDriver) Start(ctx context.Context) error {
	d.logger.Info("Navigating to game", "url", d.gameURL)
	if err := d.run(ctx,
		chromedp.Navigate(d.gameURL),
		chromedp.WaitVisible(shootButtonSelector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to open game page: %w", err)
	}
	return nil
}

func (d *CDPDriver) FireShot(ctx context.Context) error {
	if err := d.run(ctx, chromedp.Click(shootButtonSelector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click shoot button: %w", err)
	}
	return nil
}

func (d *CDPDriver) Capture(ctx context.Context) (services.Frame, error) {
	var png []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&png)); err != nil {
		return services.Frame{}, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return services.Frame{PNG: png}, nil
}

func (d *CDPDriver) DismissModal(ctx context.Context) error {
	// The Close button only exists while a modal is open. A failed click
	// on a missing button is treated as the idle no-op.
	if err := d.run(ctx, chromedp.Click(closeButtonXPath, chromedp.BySearch)); err != nil {
		d.logger.Debug("Close click failed, likely no modal on screen", "error", err)
	}
	return nil
}

func (d *CDPDriver) Close() error {
	d.tabCancel()
	d.allocCancel()
	return nil
}

// run executes actions on the tab while honoring the caller's deadline.
func (d *CDPDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := d.tabCtx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(d.tabCtx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}
