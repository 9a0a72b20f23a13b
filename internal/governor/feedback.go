package governor

import (
	"tabwarden/internal/tabs"
)

// EngineExecutionFeedback reports coarse execution signals observed by the
// engine for one tab. All fields are best-effort; a zero value means the
// engine observed nothing noteworthy.
type EngineExecutionFeedback struct {
	// HasLongTasks is set when the tab ran tasks long enough to block the
	// event loop.
	HasLongTasks bool

	// WorkerCount is the number of live dedicated workers.
	WorkerCount uint16

	// WasmActive is set when WebAssembly executed since the last sample.
	WasmActive bool

	// JSBlockingRender is set when script execution is blocking rendering.
	JSBlockingRender bool
}

// FeedbackProvider is implemented by engine adapters that can report
// execution feedback. Implementations must be cheap and non-blocking; the
// governor calls this inline from its reconcile path.
//
// Adapters without feedback simply don't implement it. The governor detects
// support with a type assertion on its EngineScheduler.
type FeedbackProvider interface {
	PollExecutionFeedback(tab tabs.TabID) EngineExecutionFeedback
}
