package monitor

import (
	"context"

	"github.com/jbownzino/hoopwatch/internal/services"
)

// Driver abstracts the game surface the monitor plays against. The API
// driver talks to the hoopwatch server directly; the CDP driver steers a
// real browser tab.
type Driver interface {
	// Start prepares the game for a run: creating a session or
	// navigating the browser to the game page.
	Start(ctx context.Context) error

	// FireShot takes one basketball shot.
	FireShot(ctx context.Context) error

	// Capture returns the current view of the game for classification.
	Capture(ctx context.Context) (services.Frame, error)

	// DismissModal clicks the Close button on the open modal. Calling it
	// with no modal open is a no-op.
	DismissModal(ctx context.Context) error

	// Close releases the driver's resources.
	Close() error
}
