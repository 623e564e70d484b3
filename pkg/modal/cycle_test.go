package modal

import (
	"math/rand"
	"testing"
)

func newTestCycle(t *testing.T, seed int64) *Cycle {
	t.Helper()
	c, err := NewCycle(rand.New(rand.NewSource(seed)), DefaultCatalog())
	if err != nil {
		t.Fatalf("Failed to create cycle: %v", err)
	}
	return c
}

func TestNewCycle_Validation(t *testing.T) {
	if _, err := NewCycle(nil, DefaultCatalog()); err == nil {
		t.Error("Expected error for nil rng")
	}
	if _, err := NewCycle(rand.New(rand.NewSource(1)), nil); err == nil {
		t.Error("Expected error for empty catalog")
	}
}

func TestCycle_InitialState(t *testing.T) {
	c := newTestCycle(t, 42)

	if c.ModalActive() {
		t.Error("New cycle should start idle")
	}
	if c.ShotsSinceReset() != 0 {
		t.Errorf("Expected 0 shots, got %d", c.ShotsSinceReset())
	}
	if c.Threshold() < ThresholdMin || c.Threshold() > ThresholdMax {
		t.Errorf("Threshold %d outside [%d,%d]", c.Threshold(), ThresholdMin, ThresholdMax)
	}
	if c.CurrentMessage() != nil {
		t.Error("Idle cycle should have no current message")
	}
}

func TestCycle_TriggersExactlyAtThreshold(t *testing.T) {
	c := newTestCycle(t, 7)
	threshold := c.Threshold()

	var shown []Message
	c.OnShow(func(m Message) { shown = append(shown, m) })

	for i := 1; i < threshold; i++ {
		if opened := c.ShotCompleted(); opened {
			t.Fatalf("Modal opened at shot %d, threshold is %d", i, threshold)
		}
		if c.ShotsSinceReset() != i {
			t.Fatalf("Expected %d shots counted, got %d", i, c.ShotsSinceReset())
		}
	}

	if opened := c.ShotCompleted(); !opened {
		t.Fatalf("Modal did not open at threshold %d", threshold)
	}
	if !c.ModalActive() {
		t.Error("Cycle should be in modal-open state")
	}
	if len(shown) != 1 {
		t.Fatalf("Expected 1 show callback, got %d", len(shown))
	}
	if c.CurrentMessage() == nil || c.CurrentMessage().Text != shown[0].Text {
		t.Error("CurrentMessage should match the shown message")
	}
}

func TestCycle_ShotsDroppedWhileModalOpen(t *testing.T) {
	c := newTestCycle(t, 7)
	for !c.ShotCompleted() {
	}

	shots := c.ShotsSinceReset()
	for i := 0; i < 10; i++ {
		if opened := c.ShotCompleted(); opened {
			t.Fatal("Shot while modal open must not open another modal")
		}
	}
	if c.ShotsSinceReset() != shots {
		t.Errorf("Shot counter moved from %d to %d while modal open", shots, c.ShotsSinceReset())
	}
	if !c.ModalActive() {
		t.Error("Modal should still be open")
	}
}

func TestCycle_DismissResetsAndRedraws(t *testing.T) {
	c := newTestCycle(t, 99)
	for !c.ShotCompleted() {
	}

	rearmed := 0
	c.OnRearm(func() { rearmed++ })

	if closed := c.ModalDismissed(); !closed {
		t.Fatal("Dismissal of open modal should report a transition")
	}
	if c.ModalActive() {
		t.Error("Cycle should be idle after dismissal")
	}
	if c.ShotsSinceReset() != 0 {
		t.Errorf("Expected shot counter reset to 0, got %d", c.ShotsSinceReset())
	}
	if c.Threshold() < ThresholdMin || c.Threshold() > ThresholdMax {
		t.Errorf("Redrawn threshold %d outside [%d,%d]", c.Threshold(), ThresholdMin, ThresholdMax)
	}
	if c.CurrentMessage() != nil {
		t.Error("Dismissed cycle should have no current message")
	}
	if rearmed != 1 {
		t.Errorf("Expected 1 rearm callback, got %d", rearmed)
	}
}

func TestCycle_DismissWhileIdleIsNoOp(t *testing.T) {
	c := newTestCycle(t, 3)
	c.ShotCompleted() // may or may not open depending on draw
	if c.ModalActive() {
		c.ModalDismissed()
	}

	shots := c.ShotsSinceReset()
	threshold := c.Threshold()

	rearmed := 0
	c.OnRearm(func() { rearmed++ })

	if closed := c.ModalDismissed(); closed {
		t.Error("Dismissal while idle should be a no-op")
	}
	if c.ShotsSinceReset() != shots || c.Threshold() != threshold {
		t.Error("Idle dismissal must leave state unchanged")
	}
	if rearmed != 0 {
		t.Error("Idle dismissal must not fire the rearm callback")
	}
}

func TestCycle_ThresholdDistribution(t *testing.T) {
	c := newTestCycle(t, 1)

	counts := make(map[int]int)
	cycles := 3000
	for i := 0; i < cycles; i++ {
		counts[c.Threshold()]++
		for !c.ShotCompleted() {
		}
		c.ModalDismissed()
	}

	for v := ThresholdMin; v <= ThresholdMax; v++ {
		got := counts[v]
		want := cycles / (ThresholdMax - ThresholdMin + 1)
		// Loose bound; uniform draws should land well within 20%.
		if got < want*8/10 || got > want*12/10 {
			t.Errorf("Threshold %d drawn %d times, expected roughly %d", v, got, want)
		}
	}
	for v := range counts {
		if v < ThresholdMin || v > ThresholdMax {
			t.Errorf("Threshold %d outside [%d,%d]", v, ThresholdMin, ThresholdMax)
		}
	}
}

func TestCycle_CatalogCoverage(t *testing.T) {
	c := newTestCycle(t, 5)

	seen := make(map[Category]bool)
	c.OnShow(func(m Message) { seen[m.Category] = true })

	for i := 0; i < 1000; i++ {
		for !c.ShotCompleted() {
		}
		c.ModalDismissed()
	}

	for _, cat := range Categories() {
		if !seen[cat] {
			t.Errorf("Category %s never selected over 1000 cycles", cat)
		}
	}
}

func TestCycle_EndToEndScenario(t *testing.T) {
	// Find a seed whose first draw is 2 so the scenario matches the
	// documented walk-through exactly.
	var c *Cycle
	for seed := int64(0); seed < 100; seed++ {
		candidate := newTestCycle(t, seed)
		if candidate.Threshold() == 2 {
			c = candidate
			break
		}
	}
	if c == nil {
		t.Fatal("No seed produced an initial threshold of 2")
	}

	var shown *Message
	c.OnShow(func(m Message) { shown = &m })

	if c.ShotCompleted() {
		t.Fatal("First shot should not trigger with threshold 2")
	}
	if c.ShotsSinceReset() != 1 {
		t.Fatalf("Expected 1 shot counted, got %d", c.ShotsSinceReset())
	}

	if !c.ShotCompleted() {
		t.Fatal("Second shot should trigger the modal")
	}
	if shown == nil {
		t.Fatal("Show callback did not fire")
	}

	found := false
	for _, m := range DefaultCatalog() {
		if m.Text == shown.Text && m.Category == shown.Category {
			found = true
		}
	}
	if !found {
		t.Errorf("Shown message %+v not in catalog", *shown)
	}

	c.ModalDismissed()
	if c.ModalActive() || c.ShotsSinceReset() != 0 {
		t.Error("Cycle did not rearm cleanly after dismissal")
	}
}

func TestCycle_SnapshotRoundTrip(t *testing.T) {
	c := newTestCycle(t, 11)
	for !c.ShotCompleted() {
	}

	snap := c.Snapshot()
	if !snap.ModalActive || snap.Message == nil {
		t.Fatal("Snapshot should capture the open modal")
	}

	restored, err := Restore(rand.New(rand.NewSource(12)), DefaultCatalog(), snap)
	if err != nil {
		t.Fatalf("Failed to restore cycle: %v", err)
	}
	if restored.Threshold() != c.Threshold() {
		t.Errorf("Expected threshold %d, got %d", c.Threshold(), restored.Threshold())
	}
	if !restored.ModalActive() {
		t.Error("Restored cycle should have the modal open")
	}
	if restored.CurrentMessage() == nil || restored.CurrentMessage().Text != snap.Message.Text {
		t.Error("Restored cycle lost the modal message")
	}

	// The restored cycle behaves like the original: dismissal rearms it.
	if !restored.ModalDismissed() {
		t.Error("Restored cycle should accept dismissal")
	}
	if restored.ShotsSinceReset() != 0 {
		t.Error("Restored cycle did not reset on dismissal")
	}
}

func TestRestore_RejectsCorruptSnapshot(t *testing.T) {
	tests := []struct {
		name string
		s    State
	}{
		{name: "threshold too low", s: State{Threshold: 0}},
		{name: "threshold too high", s: State{Threshold: ThresholdMax + 1}},
		{name: "negative shots", s: State{Threshold: 1, ShotsSinceReset: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Restore(rand.New(rand.NewSource(1)), DefaultCatalog(), tt.s); err == nil {
				t.Error("Expected error for corrupt snapshot")
			}
		})
	}
}
