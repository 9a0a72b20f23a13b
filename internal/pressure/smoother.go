package pressure

import (
	"time"

	"tabwarden/internal/budget"
)

// Smoother de-flickers a pressure signal with rank-based hysteresis:
// escalations pass through immediately (safety first), de-escalations are
// held back until the current level has stood for at least the monotonic
// window. Equal-rank samples refresh the window.
type Smoother struct {
	last       budget.MemoryPressure
	lastChange time.Time
	window     time.Duration
}

// NewSmoother creates a smoother starting at PressureLow.
func NewSmoother(window time.Duration, now time.Time) *Smoother {
	return &Smoother{
		last:       budget.PressureLow,
		lastChange: now,
		window:     window,
	}
}

// Filter folds one sample into the smoothed signal and returns the level the
// consumer should see at time now.
func (s *Smoother) Filter(next budget.MemoryPressure, now time.Time) budget.MemoryPressure {
	if next > s.last {
		s.last = next
		s.lastChange = now
		return next
	}

	if next < s.last && now.Sub(s.lastChange) < s.window {
		return s.last
	}

	s.last = next
	s.lastChange = now
	return next
}
