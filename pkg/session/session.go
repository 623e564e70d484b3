package session

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/jbownzino/hoopwatch/pkg/detection"
	"github.com/jbownzino/hoopwatch/pkg/modal"
)

// Session is the server-side state of one game run. The cycle controller
// itself is rebuilt from the persisted snapshot on every event, so the
// API stays stateless between requests.
type Session struct {
	ID        uuid.UUID   `json:"id"`
	Seed      int64       `json:"seed"`
	ShotCount int         `json:"shot_count"` // shots fired, including those dropped while a modal was open
	Score     int         `json:"score"`      // two points per shot that landed while no modal was open
	Events    int64       `json:"events"`     // applied events, drives per-event RNG derivation
	Cycle     modal.State `json:"cycle"`

	Verdict *detection.Verdict `json:"verdict,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a session with a freshly drawn trigger threshold. The seed
// makes the session's draws reproducible: the same seed and event
// sequence yields the same thresholds and messages.
func New(seed int64, now time.Time) (*Session, error) {
	s := &Session{
		ID:        uuid.New(),
		Seed:      seed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	c, err := modal.NewCycle(s.rng(), modal.DefaultCatalog())
	if err != nil {
		return nil, fmt.Errorf("failed to create cycle: %w", err)
	}
	s.Events++
	s.Cycle = c.Snapshot()
	return s, nil
}

// rng derives a random source from the session seed and the number of
// events applied so far. Restored cycles get fresh draws per event while
// replays of the same session stay deterministic.
func (s *Session) rng() *rand.Rand {
	return rand.New(rand.NewSource(s.Seed ^ (s.Events+1)*0x9E3779B9))
}

func (s *Session) restore() (*modal.Cycle, error) {
	return modal.Restore(s.rng(), modal.DefaultCatalog(), s.Cycle)
}

// ApplyShot records one completed shot against the cycle. Returns the
// message of the modal this shot opened, or nil.
func (s *Session) ApplyShot(now time.Time) (*modal.Message, error) {
	c, err := s.restore()
	if err != nil {
		return nil, fmt.Errorf("failed to restore cycle: %w", err)
	}

	paused := s.Cycle.ModalActive
	opened := c.ShotCompleted()
	s.ShotCount++
	if !paused {
		s.Score += 2
	}
	s.Events++
	s.Cycle = c.Snapshot()
	s.UpdatedAt = now

	if !opened {
		return nil, nil
	}
	return c.CurrentMessage(), nil
}

// ApplyDismiss delivers a dismissal signal. Returns false for the
// idempotent no-op while no modal is open.
func (s *Session) ApplyDismiss(now time.Time) (bool, error) {
	c, err := s.restore()
	if err != nil {
		return false, fmt.Errorf("failed to restore cycle: %w", err)
	}

	closed := c.ModalDismissed()
	s.Events++
	s.Cycle = c.Snapshot()
	s.UpdatedAt = now
	return closed, nil
}

// Frame renders the session as the plain-text frame the API-mode
// detector classifies in place of a screenshot.
func (s *Session) Frame() string {
	if !s.Cycle.ModalActive || s.Cycle.Message == nil {
		return fmt.Sprintf("Basketball game in progress. Score: %d. Shots fired: %d. No modal on screen.", s.Score, s.ShotCount)
	}
	return fmt.Sprintf(
		"Basketball game paused by a modal overlay: white box, red border, warning icon, Close button.\nModal text: %s",
		s.Cycle.Message.Text)
}
