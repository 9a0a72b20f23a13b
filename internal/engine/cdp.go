package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tabwarden/internal/budget"
	"tabwarden/internal/governor"
	"tabwarden/internal/tabs"
)

// CDPScheduler drives a real Chromium instance over the DevTools protocol.
// Tab states become page lifecycle transitions, budgets become CPU throttling
// factors, and hints gate script execution for unfocused pages.
type CDPScheduler struct {
	logger *zap.Logger

	mu       sync.RWMutex
	browser  *rod.Browser
	sessions map[tabs.TabID]*cdpSession
}

type cdpSession struct {
	id        string
	page      *rod.Page
	lastState tabs.TabState
}

var _ governor.EngineScheduler = (*CDPScheduler)(nil)

// NewCDPScheduler connects to a Chromium instance. An empty controlURL
// launches a headless one through the stock launcher.
func NewCDPScheduler(ctx context.Context, controlURL string, logger *zap.Logger) (*CDPScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if controlURL == "" {
		url, err := launcher.New().Headless(true).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	return &CDPScheduler{
		logger:   logger,
		browser:  browser,
		sessions: make(map[tabs.TabID]*cdpSession),
	}, nil
}

// Attach opens a page for the given tab and binds it to the scheduler.
func (s *CDPScheduler) Attach(tab tabs.TabID, url string) error {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}

	sess := &cdpSession{
		id:        uuid.NewString(),
		page:      page,
		lastState: tabs.Active,
	}

	s.mu.Lock()
	s.sessions[tab] = sess
	s.mu.Unlock()

	s.logger.Info("page attached",
		zap.Stringer("tab", tab),
		zap.String("session", sess.id),
		zap.String("url", url))
	return nil
}

// Detach closes the page bound to a tab and forgets it.
func (s *CDPScheduler) Detach(tab tabs.TabID) {
	s.mu.Lock()
	sess, ok := s.sessions[tab]
	delete(s.sessions, tab)
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := sess.page.Close(); err != nil {
		s.logger.Warn("close page failed",
			zap.Stringer("tab", tab), zap.Error(err))
	}
}

// Close tears down every tracked page and the browser connection.
func (s *CDPScheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tab, sess := range s.sessions {
		_ = sess.page.Close()
		delete(s.sessions, tab)
	}
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	return err
}

func (s *CDPScheduler) session(tab tabs.TabID) (*cdpSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[tab]
	return sess, ok
}

func (s *CDPScheduler) ApplyTabState(tab tabs.TabID, state tabs.TabState) {
	sess, ok := s.session(tab)
	if !ok {
		return
	}
	if err := (proto.PageSetWebLifecycleState{State: lifecycleFor(state)}).Call(sess.page); err != nil {
		s.logger.Warn("set lifecycle state failed",
			zap.Stringer("tab", tab),
			zap.Stringer("state", state),
			zap.Error(err))
		return
	}
	sess.lastState = state
}

func (s *CDPScheduler) ApplyExecutionBudget(tab tabs.TabID, b budget.ExecutionBudget) {
	sess, ok := s.session(tab)
	if !ok {
		return
	}
	if err := (proto.EmulationSetCPUThrottlingRate{Rate: cpuThrottleRate(b.Tier)}).Call(sess.page); err != nil {
		s.logger.Warn("set cpu throttling failed",
			zap.Stringer("tab", tab),
			zap.Stringer("tier", b.Tier),
			zap.Error(err))
	}
}

func (s *CDPScheduler) ApplyExecutionHints(tab tabs.TabID, hints budget.ExecutionBudgetHints) {
	sess, ok := s.session(tab)
	if !ok {
		return
	}
	// Never touch script execution on the focused page. Everything else in
	// the hint set has no protocol-level equivalent and stays advisory.
	if sess.lastState == tabs.Active {
		return
	}
	if err := (proto.EmulationSetScriptExecutionDisabled{Value: !hints.AllowBackgroundJS}).Call(sess.page); err != nil {
		s.logger.Warn("set script execution failed",
			zap.Stringer("tab", tab),
			zap.Error(err))
	}
}
