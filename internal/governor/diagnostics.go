//go:build diagnostics

package governor

import (
	"fmt"
	"math"
	"strings"
	"time"

	"tabwarden/internal/tabs"
)

// Execution feedback bookkeeping. Everything in this file is observational:
// feedback may be stale or incomplete, and absence of a signal does not imply
// absence of activity. None of it feeds back into scheduling decisions.

// StalenessTag is a conservative, heuristic freshness tag derived only from
// governor-side sampling opportunities.
type StalenessTag int

const (
	// FeedbackFresh - feedback changed during the most recent sample.
	FeedbackFresh StalenessTag = iota
	// FeedbackStale - feedback was sampled recently but did not change.
	FeedbackStale
	// FeedbackUnknown - feedback has never been sampled for this tab.
	FeedbackUnknown
)

func (s StalenessTag) String() string {
	switch s {
	case FeedbackFresh:
		return "fresh"
	case FeedbackStale:
		return "stale"
	case FeedbackUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// AgeClass is a coarse age bucket for feedback observations.
type AgeClass int

const (
	AgeRecent AgeClass = iota
	AgeAging
	AgeExpired
)

func (c AgeClass) String() string {
	switch c {
	case AgeRecent:
		return "recent"
	case AgeAging:
		return "aging"
	case AgeExpired:
		return "expired"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// AgingWindows configures the age bucket boundaries.
type AgingWindows struct {
	Recent  time.Duration
	Expired time.Duration
}

// Classify buckets a feedback age.
func (w AgingWindows) Classify(age time.Duration) AgeClass {
	switch {
	case age <= w.Recent:
		return AgeRecent
	case age <= w.Expired:
		return AgeAging
	default:
		return AgeExpired
	}
}

// AgeDistribution counts sampled tabs per age bucket.
type AgeDistribution struct {
	Recent  int
	Aging   int
	Expired int
}

type feedbackRecord struct {
	feedback            EngineExecutionFeedback
	updatedInLastSample bool
	lastSampledAt       time.Time
	sampleCount         uint32
}

func (r *feedbackRecord) update(fb EngineExecutionFeedback, sampledAt time.Time) bool {
	changed := r.feedback != fb
	if changed {
		r.feedback = fb
	}
	r.updatedInLastSample = changed
	r.lastSampledAt = sampledAt
	if r.sampleCount != math.MaxUint32 {
		r.sampleCount++
	}
	return changed
}

func (r *feedbackRecord) staleness() StalenessTag {
	if r.updatedInLastSample {
		return FeedbackFresh
	}
	return FeedbackStale
}

// samplingTrigger decides which reconcile outcomes trigger a feedback sample.
// Sampling is intentionally low-frequency and piggybacks on events the
// governor already emits.
type samplingTrigger struct {
	onStateChange  bool
	onBudgetChange bool
}

type diagState struct {
	perTab  map[tabs.TabID]*feedbackRecord
	trigger samplingTrigger
}

func newDiagState() diagState {
	return diagState{
		perTab:  make(map[tabs.TabID]*feedbackRecord),
		trigger: samplingTrigger{onStateChange: true, onBudgetChange: true},
	}
}

func (g *Governor) maybePollFeedback(tab tabs.TabID, stateChanged, budgetChanged bool) {
	if (stateChanged && g.diag.trigger.onStateChange) ||
		(budgetChanged && g.diag.trigger.onBudgetChange) {
		g.PollExecutionFeedback(tab)
	}
}

func (g *Governor) diagForget(tab tabs.TabID) {
	delete(g.diag.perTab, tab)
}

// PollExecutionFeedback samples execution feedback for a tab right now. It
// is a no-op when the engine adapter does not implement FeedbackProvider.
func (g *Governor) PollExecutionFeedback(tab tabs.TabID) {
	provider, ok := g.engine.(FeedbackProvider)
	if !ok {
		return
	}
	fb := provider.PollExecutionFeedback(tab)
	now := g.now()
	if rec, ok := g.diag.perTab[tab]; ok {
		rec.update(fb, now)
		return
	}
	g.diag.perTab[tab] = &feedbackRecord{
		feedback:            fb,
		updatedInLastSample: true,
		lastSampledAt:       now,
		sampleCount:         1,
	}
}

// FeedbackSnapshot is a read-only view of one tab's sampled feedback. The
// data may be stale and is suitable for logging and metrics only.
type FeedbackSnapshot struct {
	Tab         tabs.TabID
	Feedback    EngineExecutionFeedback
	Staleness   StalenessTag
	SampleCount uint32
	Age         time.Duration
}

// ExecutionFeedback returns the sampled feedback for a tab, if any.
func (g *Governor) ExecutionFeedback(tab tabs.TabID) (FeedbackSnapshot, bool) {
	rec, ok := g.diag.perTab[tab]
	if !ok {
		return FeedbackSnapshot{}, false
	}
	return FeedbackSnapshot{
		Tab:         tab,
		Feedback:    rec.feedback,
		Staleness:   rec.staleness(),
		SampleCount: rec.sampleCount,
		Age:         g.now().Sub(rec.lastSampledAt),
	}, true
}

// AgeClass buckets the snapshot's age with the given windows.
func (s FeedbackSnapshot) AgeClass(windows AgingWindows) AgeClass {
	return windows.Classify(s.Age)
}

// String renders a compact, log-friendly line for the snapshot.
func (s FeedbackSnapshot) String() string {
	return fmt.Sprintf("tab=%s long_tasks=%t workers=%d wasm=%t js_blocking_render=%t staleness=%s",
		s.Tab, s.Feedback.HasLongTasks, s.Feedback.WorkerCount,
		s.Feedback.WasmActive, s.Feedback.JSBlockingRender, s.Staleness)
}

// DebugLine renders the snapshot line with an age class appended.
func (s FeedbackSnapshot) DebugLine(windows AgingWindows) string {
	return fmt.Sprintf("%s age_class=%s", s, s.AgeClass(windows))
}

// FeedbackAggregate is a point-in-time rollup of all sampled feedback.
type FeedbackAggregate struct {
	SampledTabs      int
	LongTasks        int
	WasmActive       int
	JSBlockingRender int
	Fresh            int
	Stale            int
	Unknown          int
	Ages             AgeDistribution
	MaxAge           time.Duration
	AvgAge           time.Duration
}

// FeedbackAggregate computes a rollup over every sampled tab using the given
// aging windows.
func (g *Governor) FeedbackAggregate(windows AgingWindows) FeedbackAggregate {
	now := g.now()
	var agg FeedbackAggregate
	var totalAge time.Duration
	for _, rec := range g.diag.perTab {
		agg.SampledTabs++
		if rec.feedback.HasLongTasks {
			agg.LongTasks++
		}
		if rec.feedback.WasmActive {
			agg.WasmActive++
		}
		if rec.feedback.JSBlockingRender {
			agg.JSBlockingRender++
		}
		switch rec.staleness() {
		case FeedbackFresh:
			agg.Fresh++
		case FeedbackStale:
			agg.Stale++
		default:
			agg.Unknown++
		}

		age := now.Sub(rec.lastSampledAt)
		totalAge += age
		if age > agg.MaxAge {
			agg.MaxAge = age
		}
		switch windows.Classify(age) {
		case AgeRecent:
			agg.Ages.Recent++
		case AgeAging:
			agg.Ages.Aging++
		default:
			agg.Ages.Expired++
		}
	}
	if agg.SampledTabs > 0 {
		agg.AvgAge = totalAge / time.Duration(agg.SampledTabs)
	}
	return agg
}

// String renders the rollup as a single diagnostic report line.
func (a FeedbackAggregate) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sampled_tabs=%d long_tasks=%d wasm_active=%d js_blocking_render=%d ",
		a.SampledTabs, a.LongTasks, a.WasmActive, a.JSBlockingRender)
	fmt.Fprintf(&b, "staleness{fresh=%d stale=%d unknown=%d} ", a.Fresh, a.Stale, a.Unknown)
	fmt.Fprintf(&b, "age{recent=%d aging=%d expired=%d} ", a.Ages.Recent, a.Ages.Aging, a.Ages.Expired)
	if a.SampledTabs == 0 {
		b.WriteString("max_age_ms=NA avg_age_ms=NA")
	} else {
		fmt.Fprintf(&b, "max_age_ms=%d avg_age_ms=%d", a.MaxAge.Milliseconds(), a.AvgAge.Milliseconds())
	}
	return b.String()
}
