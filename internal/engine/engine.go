// Package engine adapts governor decisions onto concrete browser engines.
// Adapters are fire-and-forget: apply calls never block the control loop on
// errors, they log and move on.
package engine

import (
	"github.com/go-rod/rod/lib/proto"

	"tabwarden/internal/budget"
	"tabwarden/internal/tabs"
)

// cpuThrottleRate maps a budget tier to a DevTools CPU throttling factor.
// The factor is a slowdown multiplier, 1 means no throttling.
func cpuThrottleRate(tier budget.BudgetTier) float64 {
	switch tier {
	case budget.Foreground:
		return 1
	case budget.VisibleBackground:
		return 4
	default:
		return 16
	}
}

// lifecycleFor maps an effective tab state to a page lifecycle state. Only
// suspension is expressed through the lifecycle; background tabs stay active
// at the lifecycle level and are constrained through throttling instead.
func lifecycleFor(state tabs.TabState) proto.PageSetWebLifecycleStateState {
	if state == tabs.Suspended {
		return proto.PageSetWebLifecycleStateStateFrozen
	}
	return proto.PageSetWebLifecycleStateStateActive
}
