//go:build !diagnostics

package governor

import (
	"tabwarden/internal/tabs"
)

// Feedback bookkeeping compiles out entirely in default builds. The hooks
// below keep the reconcile path identical across both build modes.

type diagState struct{}

func newDiagState() diagState { return diagState{} }

func (g *Governor) maybePollFeedback(tab tabs.TabID, stateChanged, budgetChanged bool) {}

func (g *Governor) diagForget(tab tabs.TabID) {}
