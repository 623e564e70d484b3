package modal

import (
	"fmt"
	"math/rand"
)

const (
	// ThresholdMin and ThresholdMax bound the number of completed shots
	// required before the next modal opens. The threshold is redrawn
	// uniformly from this inclusive range every time the cycle rearms.
	ThresholdMin = 1
	ThresholdMax = 3
)

// Cycle gates when a harmful-content modal appears, picks its message,
// and rearms itself on dismissal.
//
// It is a two-state machine: idle (counting shots toward the current
// threshold) and modal-open (ignoring shots until dismissed). All
// transitions are synchronous and driven by the host's event dispatch;
// Cycle is not safe for concurrent use.
type Cycle struct {
	rng     *rand.Rand
	catalog []Message

	shotsSinceReset int
	threshold       int
	active          bool
	current         *Message

	onShow  func(Message)
	onRearm func()
}

// NewCycle creates a cycle in the idle state with a freshly drawn
// threshold. The random source is injected so callers can make draws
// deterministic in tests.
func NewCycle(rng *rand.Rand, catalog []Message) (*Cycle, error) {
	if rng == nil {
		return nil, fmt.Errorf("rng is required")
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("catalog cannot be empty")
	}

	c := &Cycle{
		rng:     rng,
		catalog: catalog,
	}
	c.threshold = c.drawThreshold()
	return c, nil
}

// OnShow registers the callback invoked when a modal opens. The callback
// receives the selected message.
func (c *Cycle) OnShow(fn func(Message)) {
	c.onShow = fn
}

// OnRearm registers the callback invoked after a modal is dismissed and
// the cycle has reset.
func (c *Cycle) OnRearm(fn func()) {
	c.onRearm = fn
}

// ShotCompleted records one completed shot. While a modal is open the
// shot is dropped without advancing the counter. Returns true if this
// shot opened a modal.
func (c *Cycle) ShotCompleted() bool {
	if c.active {
		return false
	}

	c.shotsSinceReset++
	if c.shotsSinceReset < c.threshold {
		return false
	}

	msg := c.catalog[c.rng.Intn(len(c.catalog))]
	c.active = true
	c.current = &msg
	if c.onShow != nil {
		c.onShow(msg)
	}
	return true
}

// ModalDismissed closes the open modal, resets the shot counter and
// redraws the threshold. A dismissal while idle is a silent no-op;
// upstream UI double-delivery is expected and harmless. Returns true if
// a modal was actually closed.
func (c *Cycle) ModalDismissed() bool {
	if !c.active {
		return false
	}

	c.active = false
	c.current = nil
	c.shotsSinceReset = 0
	c.threshold = c.drawThreshold()
	if c.onRearm != nil {
		c.onRearm()
	}
	return true
}

// ShotsSinceReset returns the number of shots counted since the last
// dismissal (or session start).
func (c *Cycle) ShotsSinceReset() int {
	return c.shotsSinceReset
}

// Threshold returns the shot count at which the next modal opens.
func (c *Cycle) Threshold() int {
	return c.threshold
}

// ModalActive reports whether a modal is currently displayed.
func (c *Cycle) ModalActive() bool {
	return c.active
}

// CurrentMessage returns a copy of the message in the open modal, or nil
// while idle.
func (c *Cycle) CurrentMessage() *Message {
	if c.current == nil {
		return nil
	}
	msg := *c.current
	return &msg
}

func (c *Cycle) drawThreshold() int {
	return ThresholdMin + c.rng.Intn(ThresholdMax-ThresholdMin+1)
}

// State is a serializable snapshot of a cycle, used to persist the
// controller between stateless API requests.
type State struct {
	ShotsSinceReset int      `json:"shots_since_reset"`
	Threshold       int      `json:"threshold"`
	ModalActive     bool     `json:"modal_active"`
	Message         *Message `json:"message,omitempty"`
}

// Snapshot captures the cycle's current state.
func (c *Cycle) Snapshot() State {
	s := State{
		ShotsSinceReset: c.shotsSinceReset,
		Threshold:       c.threshold,
		ModalActive:     c.active,
	}
	if c.current != nil {
		msg := *c.current
		s.Message = &msg
	}
	return s
}

// Restore builds a cycle from a snapshot. The snapshot's threshold is
// kept as-is; the injected source is only consulted for future draws.
func Restore(rng *rand.Rand, catalog []Message, s State) (*Cycle, error) {
	c, err := NewCycle(rng, catalog)
	if err != nil {
		return nil, err
	}
	if s.Threshold < ThresholdMin || s.Threshold > ThresholdMax {
		return nil, fmt.Errorf("invalid threshold %d in snapshot", s.Threshold)
	}
	if s.ShotsSinceReset < 0 {
		return nil, fmt.Errorf("invalid shot count %d in snapshot", s.ShotsSinceReset)
	}

	c.shotsSinceReset = s.ShotsSinceReset
	c.threshold = s.Threshold
	c.active = s.ModalActive
	if s.Message != nil {
		msg := *s.Message
		c.current = &msg
	}
	return c, nil
}
