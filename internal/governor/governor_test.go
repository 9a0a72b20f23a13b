package governor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabwarden/internal/budget"
	"tabwarden/internal/tabs"
)

type engineCall struct {
	kind   string
	tab    tabs.TabID
	state  tabs.TabState
	budget budget.ExecutionBudget
	hints  budget.ExecutionBudgetHints
}

type recordingScheduler struct {
	calls []engineCall
}

func (r *recordingScheduler) ApplyTabState(tab tabs.TabID, state tabs.TabState) {
	r.calls = append(r.calls, engineCall{kind: "state", tab: tab, state: state})
}

func (r *recordingScheduler) ApplyExecutionBudget(tab tabs.TabID, b budget.ExecutionBudget) {
	r.calls = append(r.calls, engineCall{kind: "budget", tab: tab, budget: b})
}

func (r *recordingScheduler) ApplyExecutionHints(tab tabs.TabID, hints budget.ExecutionBudgetHints) {
	r.calls = append(r.calls, engineCall{kind: "hints", tab: tab, hints: hints})
}

func (r *recordingScheduler) reset() {
	r.calls = nil
}

func (r *recordingScheduler) kindsFor(tab tabs.TabID) []string {
	var kinds []string
	for _, c := range r.calls {
		if c.tab == tab {
			kinds = append(kinds, c.kind)
		}
	}
	return kinds
}

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// newTestGovernor pins the governor to a fake clock so idle and burst timing
// can be driven deterministically.
func newTestGovernor(t *testing.T) (*Governor, *recordingScheduler, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	rec := &recordingScheduler{}
	g := New(DefaultConfig(), rec, nil)
	g.now = clock.Now
	g.lastGlobalInput = clock.now
	g.lastIdleBurst = clock.now
	return g, rec, clock
}

func mustSnapshot(t *testing.T, g *Governor, tab tabs.TabID) TabSnapshot {
	t.Helper()
	snap, ok := g.Snapshot(tab)
	require.True(t, ok, "tab %s should be tracked", tab)
	return snap
}

func TestGovernor_ActiveTabGetsForeground(t *testing.T) {
	g, rec, _ := newTestGovernor(t)

	g.OnTabStateChanged(1, tabs.Active)

	snap := mustSnapshot(t, g, 1)
	assert.Equal(t, tabs.Active, snap.Effective)
	assert.Equal(t, budget.Foreground, snap.Budget.Tier)
	assert.Equal(t, budget.ExecutionBudgetHints{
		MaxTimerFrequency: 0,
		AllowBackgroundJS: true,
		AllowWasm:         true,
		AllowWorkers:      true,
		PreferSuspend:     false,
	}, snap.Hints)

	// First sight of a tab applies budget, then hints, then state.
	require.Equal(t, []string{"budget", "hints", "state"}, rec.kindsFor(1))
}

func TestGovernor_ReconcileIsIdempotent(t *testing.T) {
	g, rec, clock := newTestGovernor(t)

	g.OnTabStateChanged(1, tabs.Active)
	g.OnTabStateChanged(2, tabs.Background)
	clock.advance(2 * time.Second)
	g.Poll()

	rec.reset()
	g.Poll()
	assert.Empty(t, rec.calls, "unchanged inputs must produce zero engine calls")
}

func TestGovernor_BackgroundSteadyState(t *testing.T) {
	g, _, clock := newTestGovernor(t)

	// Construction counts as input, so the session starts active and the
	// background tab is parked.
	g.OnTabStateChanged(1, tabs.Background)
	snap := mustSnapshot(t, g, 1)
	assert.Equal(t, tabs.Suspended, snap.Effective)
	assert.Equal(t, budget.VisibleBackground, snap.Budget.Tier)

	// Between the active window and the idle threshold the tab runs.
	clock.advance(2 * time.Second)
	g.Poll()
	snap = mustSnapshot(t, g, 1)
	assert.Equal(t, tabs.Background, snap.Effective)
	assert.Equal(t, budget.VisibleBackground, snap.Budget.Tier)
}

func TestGovernor_ActiveWindowBoundaryInclusive(t *testing.T) {
	g, _, clock := newTestGovernor(t)
	g.OnTabStateChanged(1, tabs.Background)

	clock.advance(DefaultConfig().ActiveInputWindow)
	g.Poll()
	assert.Equal(t, tabs.Suspended, mustSnapshot(t, g, 1).Effective,
		"exactly at the window boundary still counts as active")

	clock.advance(time.Millisecond)
	g.Poll()
	assert.Equal(t, tabs.Background, mustSnapshot(t, g, 1).Effective)
}

func TestGovernor_RecentTabInputOverridesSuspension(t *testing.T) {
	g, _, clock := newTestGovernor(t)

	g.OnTabStateChanged(1, tabs.Active)
	g.OnTabStateChanged(2, tabs.Background)

	// Global activity alone parks the background tab.
	g.RecordUserInput(1)
	assert.Equal(t, tabs.Suspended, mustSnapshot(t, g, 2).Effective)

	// Input on the background tab itself keeps it running through the
	// grace period even though the session is active.
	g.RecordUserInput(2)
	assert.Equal(t, tabs.Background, mustSnapshot(t, g, 2).Effective)

	clock.advance(DefaultConfig().TabInputGrace + time.Millisecond)
	g.Poll()
	assert.Equal(t, tabs.Suspended, mustSnapshot(t, g, 2).Effective,
		"grace expired while the session is still active")
}

func TestGovernor_ActivationSuspendsOtherBackgroundTabs(t *testing.T) {
	g, _, clock := newTestGovernor(t)

	g.OnTabStateChanged(1, tabs.Background)
	g.OnTabStateChanged(2, tabs.Background)
	clock.advance(2 * time.Second)
	g.Poll()
	require.Equal(t, tabs.Background, mustSnapshot(t, g, 1).Effective)

	// Focus counts as intent, so the remaining background tab parks.
	clock.advance(time.Second)
	g.OnTabStateChanged(2, tabs.Active)
	assert.Equal(t, tabs.Active, mustSnapshot(t, g, 2).Effective)
	assert.Equal(t, tabs.Suspended, mustSnapshot(t, g, 1).Effective)
}

func TestGovernor_IdleBurstPeriodicity(t *testing.T) {
	g, _, clock := newTestGovernor(t)
	g.OnTabStateChanged(1, tabs.Background)

	// Poll on a 250ms cadence for ten seconds and record every transition
	// into a running state after the session has gone idle.
	var bursts []time.Duration
	wasRunning := false
	for elapsed := 250 * time.Millisecond; elapsed <= 10*time.Second; elapsed += 250 * time.Millisecond {
		clock.advance(250 * time.Millisecond)
		g.Poll()
		if elapsed < DefaultConfig().IdleThreshold {
			continue
		}
		running := mustSnapshot(t, g, 1).Effective == tabs.Background
		if running && !wasRunning {
			bursts = append(bursts, elapsed)
		}
		wasRunning = running
	}

	require.Len(t, bursts, 2, "ten idle seconds hold exactly two burst windows")
	assert.Equal(t, 5*time.Second, bursts[0])
	assert.Equal(t, 10*time.Second, bursts[1])
}

func TestGovernor_BurstWindowDuration(t *testing.T) {
	g, _, clock := newTestGovernor(t)
	g.OnTabStateChanged(1, tabs.Background)

	clock.advance(5 * time.Second)
	g.Poll()
	require.Equal(t, tabs.Background, mustSnapshot(t, g, 1).Effective)

	clock.advance(500 * time.Millisecond)
	g.Poll()
	assert.Equal(t, tabs.Background, mustSnapshot(t, g, 1).Effective,
		"window boundary is inclusive")

	clock.advance(time.Millisecond)
	g.Poll()
	assert.Equal(t, tabs.Suspended, mustSnapshot(t, g, 1).Effective)
}

func TestGovernor_InputResetsBurstSchedule(t *testing.T) {
	g, _, clock := newTestGovernor(t)
	g.OnTabStateChanged(1, tabs.Active)
	g.OnTabStateChanged(2, tabs.Background)

	clock.advance(6 * time.Second)
	g.RecordUserInput(1)

	// Idle resumes four seconds later, but the burst anchor was reset by
	// the input, so the next window opens a full interval after it.
	clock.advance(4 * time.Second)
	g.Poll()
	assert.Equal(t, tabs.Suspended, mustSnapshot(t, g, 2).Effective)

	clock.advance(time.Second)
	g.Poll()
	assert.Equal(t, tabs.Background, mustSnapshot(t, g, 2).Effective)
}

func TestGovernor_SeverePressureDemotesForeground(t *testing.T) {
	g, _, _ := newTestGovernor(t)
	g.OnTabStateChanged(1, tabs.Active)

	g.SetMemoryPressure(budget.PressureSevere)

	snap := mustSnapshot(t, g, 1)
	assert.Equal(t, tabs.Active, snap.Effective, "pressure never changes the effective state of the active tab")
	assert.Equal(t, budget.VisibleBackground, snap.Budget.Tier)
	assert.False(t, snap.Hints.AllowWasm)
	assert.Equal(t, 500*time.Millisecond, snap.Hints.MaxTimerFrequency)
}

func TestGovernor_SeverePressureSuspendsBackgroundTabs(t *testing.T) {
	g, _, clock := newTestGovernor(t)
	g.OnTabStateChanged(1, tabs.Background)
	clock.advance(2 * time.Second)
	g.Poll()
	require.Equal(t, tabs.Background, mustSnapshot(t, g, 1).Effective)

	g.SetMemoryPressure(budget.PressureSevere)

	snap := mustSnapshot(t, g, 1)
	assert.Equal(t, tabs.Suspended, snap.Effective)
	assert.Equal(t, budget.IdleBackground, snap.Budget.Tier)
	assert.True(t, snap.Hints.PreferSuspend)
}

func TestGovernor_SuspendedTabBudget(t *testing.T) {
	g, _, _ := newTestGovernor(t)
	g.OnTabStateChanged(1, tabs.Suspended)

	snap := mustSnapshot(t, g, 1)
	assert.Equal(t, tabs.Suspended, snap.Effective)
	assert.Equal(t, budget.IdleBackground, snap.Budget.Tier)
	assert.Equal(t, 500*time.Millisecond, snap.Hints.MaxTimerFrequency)
	assert.False(t, snap.Hints.AllowBackgroundJS)
}

func TestGovernor_UnknownTabOpsAreNoOps(t *testing.T) {
	g, rec, _ := newTestGovernor(t)
	g.OnTabStateChanged(1, tabs.Background)
	rec.reset()

	g.RecordUserInput(99)
	g.SetBudget(99, budget.ExecutionBudget{Tier: budget.Foreground})
	g.Forget(99)

	assert.Empty(t, rec.calls)
	_, ok := g.State(99)
	assert.False(t, ok)
	_, ok = g.Snapshot(99)
	assert.False(t, ok)
}

func TestGovernor_SetBudgetBypassesDerivation(t *testing.T) {
	g, rec, clock := newTestGovernor(t)
	g.OnTabStateChanged(1, tabs.Background)
	clock.advance(2 * time.Second)
	g.Poll()
	rec.reset()

	g.SetBudget(1, budget.ExecutionBudget{Tier: budget.Foreground})
	snap := mustSnapshot(t, g, 1)
	assert.Equal(t, budget.Foreground, snap.Budget.Tier)
	assert.True(t, snap.Hints.AllowWasm)
	require.Equal(t, []string{"budget", "hints"}, rec.kindsFor(1),
		"an asserted budget must not touch the effective state")

	// The next reconciliation derives the budget again and wins.
	g.Poll()
	assert.Equal(t, budget.VisibleBackground, mustSnapshot(t, g, 1).Budget.Tier)
}

func TestGovernor_ForgetDropsAllRecords(t *testing.T) {
	g, rec, clock := newTestGovernor(t)
	g.OnTabStateChanged(1, tabs.Background)
	g.OnTabStateChanged(2, tabs.Active)

	g.Forget(1)
	rec.reset()
	clock.advance(2 * time.Second)
	g.Poll()

	for _, c := range rec.calls {
		assert.NotEqual(t, tabs.TabID(1), c.tab, "forgotten tab must not receive engine calls")
	}
	_, ok := g.State(1)
	assert.False(t, ok)
}

func TestGovernor_PressureReportsCurrentLevel(t *testing.T) {
	g, _, _ := newTestGovernor(t)
	assert.Equal(t, budget.PressureLow, g.MemoryPressure())
	g.SetMemoryPressure(budget.PressureModerate)
	assert.Equal(t, budget.PressureModerate, g.MemoryPressure())
}
