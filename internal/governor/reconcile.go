package governor

import (
	"time"

	"tabwarden/internal/budget"
	"tabwarden/internal/tabs"
)

// reconcile derives and applies budget, hints, and effective state for every
// tracked tab. It is idempotent: with unchanged inputs a second pass emits no
// engine calls.
func (g *Governor) reconcile(now time.Time) {
	sinceInput := now.Sub(g.lastGlobalInput)
	userActive := sinceInput <= g.cfg.ActiveInputWindow
	userIdle := sinceInput >= g.cfg.IdleThreshold

	// The burst gate is evaluated once per pass. Opening a new window
	// advances the anchor immediately, so a window that nothing consumes
	// still counts as spent.
	allowIdleBurst := false
	if userIdle {
		sinceBurst := now.Sub(g.lastIdleBurst)
		if sinceBurst >= g.cfg.IdleBurstInterval {
			g.lastIdleBurst = now
			allowIdleBurst = true
		} else {
			allowIdleBurst = sinceBurst <= g.cfg.IdleBurstDuration
		}
	}

	for tab, base := range g.states {
		tabRecent := false
		if ts, ok := g.lastTabInput[tab]; ok {
			tabRecent = now.Sub(ts) <= g.cfg.TabInputGrace
		}

		var effective tabs.TabState
		var tier budget.BudgetTier
		switch base {
		case tabs.Active:
			effective = tabs.Active
			tier = budget.Foreground

		case tabs.Suspended:
			effective = tabs.Suspended
			tier = budget.IdleBackground

		default: // tabs.Background
			tier = budget.VisibleBackground
			if userIdle {
				tier = budget.IdleBackground
			}

			allowBackground := true
			switch {
			case userActive:
				allowBackground = false
			case userIdle:
				allowBackground = allowIdleBurst
			}

			if allowBackground || tabRecent {
				effective = tabs.Background
			} else {
				effective = tabs.Suspended
			}
		}

		b := budget.ExecutionBudget{Tier: budget.DemoteTier(tier, g.pressure)}

		// A background tab demoted to the idle tier by pressure is
		// suspended outright unless a burst window or its own recent
		// input keeps it alive.
		if base == tabs.Background && b.Tier == budget.IdleBackground &&
			!(userIdle && allowIdleBurst) && !tabRecent {
			effective = tabs.Suspended
		}

		budgetChanged := g.applyBudget(tab, b)
		g.applyHints(tab, budget.MapExecutionHints(b, g.pressure))
		stateChanged := g.applyState(tab, effective)

		g.maybePollFeedback(tab, stateChanged, budgetChanged)
	}
}
