// Package budget defines the execution policy vocabulary for tab scheduling:
// budget tiers, memory pressure levels, the advisory hints derived from them,
// and the pure functions that map between them.
//
// Everything in this package is stateless and allocation-free. Budgets are
// policy signals used to gate effective tab states; they do not measure real
// JS CPU time.
package budget

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Budget Tiers
// -----------------------------------------------------------------------------

// BudgetTier is an execution privilege level, ordered from most to least
// privileged. The zero value is Foreground.
type BudgetTier int

const (
	// Foreground - active tab with immediate user intent
	Foreground BudgetTier = iota
	// VisibleBackground - background tab allowed to run at reduced priority
	VisibleBackground
	// IdleBackground - background tab allowed to run only in short idle bursts
	IdleBackground
)

func (t BudgetTier) String() string {
	switch t {
	case Foreground:
		return "foreground"
	case VisibleBackground:
		return "visible_background"
	case IdleBackground:
		return "idle_background"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// -----------------------------------------------------------------------------
// Memory Pressure
// -----------------------------------------------------------------------------

// MemoryPressure is a coarse system memory pressure signal. The numeric value
// is the rank: higher means more pressure. The zero value is PressureLow.
type MemoryPressure int

const (
	PressureLow MemoryPressure = iota
	PressureModerate
	PressureSevere
)

func (p MemoryPressure) String() string {
	switch p {
	case PressureLow:
		return "low"
	case PressureModerate:
		return "moderate"
	case PressureSevere:
		return "severe"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// -----------------------------------------------------------------------------
// Budgets and Hints
// -----------------------------------------------------------------------------

// ExecutionBudget is the authoritative policy signal applied to the engine
// for one tab.
type ExecutionBudget struct {
	Tier BudgetTier
}

// ExecutionBudgetHints are advisory signals derived from a budget and the
// current memory pressure. They do not enforce behavior and must not change
// JS semantics on their own; the engine layer may apply or ignore them based
// on capability. The struct is comparable so callers can diff with ==.
type ExecutionBudgetHints struct {
	// MaxTimerFrequency is the requested minimum interval between timer
	// firings. Zero means no clamp requested.
	MaxTimerFrequency time.Duration

	// AllowBackgroundJS reports whether background JavaScript is generally
	// allowed to run.
	AllowBackgroundJS bool

	// AllowWasm reports whether WebAssembly should be allowed under current
	// policy.
	AllowWasm bool

	// AllowWorkers reports whether workers should be allowed under current
	// policy.
	AllowWorkers bool

	// PreferSuspend hints that the engine may prefer to suspend if safe.
	PreferSuspend bool
}

// Timer clamp intervals used by the hint table, named by the frequency they
// correspond to.
const (
	timer20Hz   = 50 * time.Millisecond
	timer10Hz   = 100 * time.Millisecond
	timer4Hz    = 250 * time.Millisecond
	timer2Hz    = 500 * time.Millisecond
	timer1Hz    = 1000 * time.Millisecond
	timerHalfHz = 2000 * time.Millisecond
)

func hints(clamp time.Duration, js, wasm, workers, suspend bool) ExecutionBudgetHints {
	return ExecutionBudgetHints{
		MaxTimerFrequency: clamp,
		AllowBackgroundJS: js,
		AllowWasm:         wasm,
		AllowWorkers:      workers,
		PreferSuspend:     suspend,
	}
}

// MapExecutionHints maps a budget + pressure signal into advisory hints.
//
// The mapping is monotonic: at a fixed tier, the permissions granted under
// Severe are a subset of those under Moderate, which are a subset of those
// under Low.
func MapExecutionHints(b ExecutionBudget, pressure MemoryPressure) ExecutionBudgetHints {
	switch b.Tier {
	case Foreground:
		switch pressure {
		case PressureLow, PressureModerate:
			return hints(0, true, true, true, false)
		default: // Severe
			return hints(timer20Hz, true, false, false, false)
		}
	case VisibleBackground:
		switch pressure {
		case PressureLow:
			return hints(timer10Hz, true, true, true, false)
		case PressureModerate:
			return hints(timer4Hz, true, false, false, false)
		default: // Severe
			return hints(timer2Hz, false, false, false, true)
		}
	default: // IdleBackground
		switch pressure {
		case PressureLow:
			return hints(timer2Hz, false, false, false, true)
		case PressureModerate:
			return hints(timer1Hz, false, false, false, true)
		default: // Severe
			return hints(timerHalfHz, false, false, false, true)
		}
	}
}

// DemoteTier applies memory pressure to a tier. Pressure only ever demotes;
// it never promotes.
//
//	Low:      unchanged
//	Moderate: VisibleBackground -> IdleBackground
//	Severe:   Foreground -> VisibleBackground, VisibleBackground -> IdleBackground
func DemoteTier(tier BudgetTier, pressure MemoryPressure) BudgetTier {
	switch pressure {
	case PressureModerate:
		if tier == VisibleBackground {
			return IdleBackground
		}
	case PressureSevere:
		switch tier {
		case Foreground:
			return VisibleBackground
		case VisibleBackground:
			return IdleBackground
		}
	}
	return tier
}
