package engine

import (
	"go.uber.org/zap"

	"tabwarden/internal/budget"
	"tabwarden/internal/governor"
	"tabwarden/internal/tabs"
)

// LogScheduler writes every apply call to the log and drives no engine. It
// is the default adapter for dry runs and for development without a browser.
type LogScheduler struct {
	logger *zap.Logger
}

var (
	_ governor.EngineScheduler  = (*LogScheduler)(nil)
	_ governor.FeedbackProvider = (*LogScheduler)(nil)
)

// NewLogScheduler creates a log-only adapter. A nil logger disables output.
func NewLogScheduler(logger *zap.Logger) *LogScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogScheduler{logger: logger}
}

func (s *LogScheduler) ApplyTabState(tab tabs.TabID, state tabs.TabState) {
	s.logger.Info("apply tab state",
		zap.Stringer("tab", tab),
		zap.Stringer("state", state))
}

func (s *LogScheduler) ApplyExecutionBudget(tab tabs.TabID, b budget.ExecutionBudget) {
	s.logger.Info("apply execution budget",
		zap.Stringer("tab", tab),
		zap.Stringer("tier", b.Tier))
}

func (s *LogScheduler) ApplyExecutionHints(tab tabs.TabID, hints budget.ExecutionBudgetHints) {
	s.logger.Info("apply execution hints",
		zap.Stringer("tab", tab),
		zap.Duration("max_timer_frequency", hints.MaxTimerFrequency),
		zap.Bool("allow_background_js", hints.AllowBackgroundJS),
		zap.Bool("allow_wasm", hints.AllowWasm),
		zap.Bool("allow_workers", hints.AllowWorkers),
		zap.Bool("prefer_suspend", hints.PreferSuspend))
}

// PollExecutionFeedback reports nothing: there is no engine behind this
// adapter to observe.
func (s *LogScheduler) PollExecutionFeedback(tabs.TabID) governor.EngineExecutionFeedback {
	return governor.EngineExecutionFeedback{}
}
