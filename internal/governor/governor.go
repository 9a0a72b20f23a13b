// Package governor implements the execution policy engine for tabs. It owns
// per-tab lifecycle bookkeeping, user intent timestamps, and the derived
// budgets, hints, and effective states, and drives an engine adapter with
// diffed, fire-and-forget apply calls.
package governor

import (
	"time"

	"go.uber.org/zap"

	"tabwarden/internal/budget"
	"tabwarden/internal/tabs"
)

// =============================================================================
// EXECUTION GOVERNOR - RECONCILED TAB SCHEDULING POLICY
// =============================================================================
//
// The governor is the sole stateful policy component. Every mutation runs a
// full reconciliation pass over all tracked tabs and emits engine calls only
// for signals whose value actually changed.
//
// Key concepts:
// - Base state: the externally-assigned tab lifecycle (registry-owned)
// - Effective state: what the engine is told, derived from base state,
//   intent, and pressure; never set directly
// - Intent: recent user input, global and per tab, gating background work
// - Idle burst: once the user is idle, background execution is allowed in
//   short windows at a fixed interval

// Config holds the intent and burst timing constants.
type Config struct {
	// ActiveInputWindow is how recently the user must have interacted for
	// the session to count as active.
	ActiveInputWindow time.Duration

	// IdleThreshold is how long without input before the session counts as
	// idle. Between the active window and this threshold lies the default
	// steady state.
	IdleThreshold time.Duration

	// IdleBurstInterval is how often an execution burst opens once idle.
	IdleBurstInterval time.Duration

	// IdleBurstDuration is how long each burst window stays open.
	IdleBurstDuration time.Duration

	// TabInputGrace protects a tab that was itself just interacted with,
	// regardless of tier.
	TabInputGrace time.Duration
}

// DefaultConfig returns the stock timing constants.
func DefaultConfig() Config {
	return Config{
		ActiveInputWindow: 1200 * time.Millisecond,
		IdleThreshold:     4 * time.Second,
		IdleBurstInterval: 5 * time.Second,
		IdleBurstDuration: 500 * time.Millisecond,
		TabInputGrace:     800 * time.Millisecond,
	}
}

// EngineScheduler is the engine-facing contract the governor drives. All
// calls are fire-and-forget, assumed idempotent and cheap; the adapter may
// silently ignore hints it cannot support.
type EngineScheduler interface {
	// ApplyTabState applies a tab state transition at the engine level.
	ApplyTabState(tab tabs.TabID, state tabs.TabState)

	// ApplyExecutionBudget applies a budget for the given tab.
	ApplyExecutionBudget(tab tabs.TabID, b budget.ExecutionBudget)

	// ApplyExecutionHints applies advisory execution hints for the given
	// tab. These are intent signals only.
	ApplyExecutionHints(tab tabs.TabID, hints budget.ExecutionBudgetHints)
}

// Governor derives execution policy for every tracked tab and applies it
// through an EngineScheduler.
//
// The governor is single-owner state: every method must be called from the
// one goroutine that owns it (typically the UI or control loop). There is no
// internal locking, and no method ever blocks.
type Governor struct {
	cfg    Config
	engine EngineScheduler
	logger *zap.Logger

	states       map[tabs.TabID]tabs.TabState
	budgets      map[tabs.TabID]budget.ExecutionBudget
	hints        map[tabs.TabID]budget.ExecutionBudgetHints
	effective    map[tabs.TabID]tabs.TabState
	lastTabInput map[tabs.TabID]time.Time

	lastGlobalInput time.Time
	lastIdleBurst   time.Time
	pressure        budget.MemoryPressure

	diag diagState

	// now is the clock; tests substitute it to drive timing deterministically.
	now func() time.Time
}

// New creates a governor driving the given engine adapter. A nil logger
// disables logging.
func New(cfg Config, engine EngineScheduler, logger *zap.Logger) *Governor {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now()
	return &Governor{
		cfg:             cfg,
		engine:          engine,
		logger:          logger,
		states:          make(map[tabs.TabID]tabs.TabState),
		budgets:         make(map[tabs.TabID]budget.ExecutionBudget),
		hints:           make(map[tabs.TabID]budget.ExecutionBudgetHints),
		effective:       make(map[tabs.TabID]tabs.TabState),
		lastTabInput:    make(map[tabs.TabID]time.Time),
		lastGlobalInput: now,
		lastIdleBurst:   now,
		diag:            newDiagState(),
		now:             time.Now,
	}
}

// State returns the last recorded base state for a tab, if tracked.
func (g *Governor) State(tab tabs.TabID) (tabs.TabState, bool) {
	s, ok := g.states[tab]
	return s, ok
}

// MemoryPressure returns the pressure signal currently in effect.
func (g *Governor) MemoryPressure() budget.MemoryPressure {
	return g.pressure
}

// SinceInput reports how long ago the last user input was recorded,
// session-wide.
func (g *Governor) SinceInput() time.Duration {
	return g.now().Sub(g.lastGlobalInput)
}

// TabSnapshot is a read-only view of the last applied signals for one tab.
type TabSnapshot struct {
	Base      tabs.TabState
	Effective tabs.TabState
	Budget    budget.ExecutionBudget
	Hints     budget.ExecutionBudgetHints
}

// Snapshot returns the applied signals for a tracked tab.
func (g *Governor) Snapshot(tab tabs.TabID) (TabSnapshot, bool) {
	base, ok := g.states[tab]
	if !ok {
		return TabSnapshot{}, false
	}
	return TabSnapshot{
		Base:      base,
		Effective: g.effective[tab],
		Budget:    g.budgets[tab],
		Hints:     g.hints[tab],
	}, true
}

// RecordUserInput records a user interaction with a tab. Unknown tabs are
// ignored.
func (g *Governor) RecordUserInput(tab tabs.TabID) {
	if _, ok := g.states[tab]; !ok {
		return
	}
	now := g.now()
	g.markRecentInput(tab, now)
	g.reconcile(now)
}

// OnTabStateChanged stores the externally-assigned base state for a tab,
// creating the record for a new tab. Activation counts as an intent signal.
func (g *Governor) OnTabStateChanged(tab tabs.TabID, state tabs.TabState) {
	g.states[tab] = state
	now := g.now()
	if state == tabs.Active {
		// Treat focus changes as intent signals.
		g.markRecentInput(tab, now)
	}
	g.reconcile(now)
}

// SetMemoryPressure updates the stored pressure signal. Pressure only ever
// demotes subsequent budgets, never promotes them.
func (g *Governor) SetMemoryPressure(pressure budget.MemoryPressure) {
	g.pressure = pressure
	g.reconcile(g.now())
}

// SetBudget applies a budget and the corresponding hints immediately,
// bypassing state derivation. Used when a budget is asserted externally
// rather than derived. Unknown tabs are ignored.
func (g *Governor) SetBudget(tab tabs.TabID, b budget.ExecutionBudget) {
	if _, ok := g.states[tab]; !ok {
		return
	}
	budgetChanged := g.applyBudget(tab, b)
	g.applyHints(tab, budget.MapExecutionHints(b, g.pressure))
	g.maybePollFeedback(tab, false, budgetChanged)
}

// Poll re-runs reconciliation with no new input. Call it on a fixed tick
// (around 250ms) so idle and burst timing stay accurate without events.
func (g *Governor) Poll() {
	g.reconcile(g.now())
}

// Forget drops every record for a closed tab. No engine calls are emitted;
// tearing the tab down is the engine's own business.
func (g *Governor) Forget(tab tabs.TabID) {
	delete(g.states, tab)
	delete(g.budgets, tab)
	delete(g.hints, tab)
	delete(g.effective, tab)
	delete(g.lastTabInput, tab)
	g.diagForget(tab)
}

// markRecentInput stamps intent timestamps. Input also resets the idle burst
// anchor so a fresh idle period starts its burst schedule from scratch.
func (g *Governor) markRecentInput(tab tabs.TabID, now time.Time) {
	g.lastGlobalInput = now
	g.lastIdleBurst = now
	g.lastTabInput[tab] = now
}

func (g *Governor) applyBudget(tab tabs.TabID, b budget.ExecutionBudget) bool {
	if prev, ok := g.budgets[tab]; ok && prev == b {
		return false
	}
	g.budgets[tab] = b
	g.engine.ApplyExecutionBudget(tab, b)
	g.logger.Debug("budget applied",
		zap.Stringer("tab", tab), zap.Stringer("tier", b.Tier))
	return true
}

func (g *Governor) applyHints(tab tabs.TabID, hints budget.ExecutionBudgetHints) bool {
	if prev, ok := g.hints[tab]; ok && prev == hints {
		return false
	}
	g.hints[tab] = hints
	g.engine.ApplyExecutionHints(tab, hints)
	g.logger.Debug("hints applied",
		zap.Stringer("tab", tab),
		zap.Duration("max_timer_frequency", hints.MaxTimerFrequency),
		zap.Bool("allow_background_js", hints.AllowBackgroundJS),
		zap.Bool("prefer_suspend", hints.PreferSuspend))
	return true
}

func (g *Governor) applyState(tab tabs.TabID, state tabs.TabState) bool {
	if prev, ok := g.effective[tab]; ok && prev == state {
		return false
	}
	g.effective[tab] = state
	g.engine.ApplyTabState(tab, state)
	g.logger.Debug("tab state applied",
		zap.Stringer("tab", tab), zap.Stringer("state", state))
	return true
}
