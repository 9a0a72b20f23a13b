package pressure

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"tabwarden/internal/budget"
)

// MonitorConfig holds the polling and smoothing settings for a Monitor.
type MonitorConfig struct {
	// SampleInterval is the polling cadence of the worker goroutine.
	SampleInterval time.Duration

	// MonotonicWindow is the minimum time a pressure level must persist
	// before the smoother lets it drop.
	MonotonicWindow time.Duration

	Thresholds Thresholds

	// WatchCgroupEvents additionally samples immediately whenever the
	// cgroup's memory.events file changes, instead of waiting for the next
	// tick. Best effort: if the watch cannot be established the monitor
	// degrades to pure polling.
	WatchCgroupEvents bool
}

// DefaultMonitorConfig returns the stock monitor settings: 1s sampling, 3s
// de-escalation window, default thresholds.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		SampleInterval:  time.Second,
		MonotonicWindow: 3 * time.Second,
		Thresholds:      DefaultThresholds(),
	}
}

// Monitor samples the source chain on a background goroutine and publishes
// smoothed pressure levels through a single-slot mailbox. Consumers call
// Drain on their own cadence; only the newest level is ever retained, so a
// slow consumer observes the freshest state rather than a backlog.
//
// The worker never stops because of sampling failures; a cycle with no
// available source simply emits nothing. It exits only when the context
// passed to Start is cancelled.
type Monitor struct {
	cfg     MonitorConfig
	sources []Source
	logger  *zap.Logger

	mailbox chan budget.MemoryPressure

	mu      sync.Mutex
	started bool
	last    Reading
	hasLast bool
}

// NewMonitor creates a monitor over the given source chain. A nil logger
// disables logging.
func NewMonitor(cfg MonitorConfig, sources []Source, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		cfg:     cfg,
		sources: sources,
		logger:  logger,
		mailbox: make(chan budget.MemoryPressure, 1),
	}
}

// Start launches the sampling goroutine. It returns an error if the monitor
// is already running. The goroutine exits when ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return errors.New("pressure monitor already started")
	}
	m.started = true

	var watcher *fsnotify.Watcher
	if m.cfg.WatchCgroupEvents {
		watcher = m.newEventsWatcher()
	}

	go m.run(ctx, watcher)
	return nil
}

// newEventsWatcher sets up the optional memory.events watch. Any failure is
// logged and tolerated.
func (m *Monitor) newEventsWatcher() *fsnotify.Watcher {
	path, ok := CgroupEventsPath()
	if !ok {
		m.logger.Debug("cgroup events watch unavailable: no cgroup v2 path")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Warn("cgroup events watch unavailable", zap.Error(err))
		return nil
	}
	if err := watcher.Add(path); err != nil {
		m.logger.Warn("cgroup events watch unavailable",
			zap.String("path", path), zap.Error(err))
		watcher.Close()
		return nil
	}
	m.logger.Debug("watching cgroup events", zap.String("path", path))
	return watcher
}

func (m *Monitor) run(ctx context.Context, watcher *fsnotify.Watcher) {
	var events chan fsnotify.Event
	var watchErrs chan error
	if watcher != nil {
		defer watcher.Close()
		events = watcher.Events
		watchErrs = watcher.Errors
	}

	smoother := NewSmoother(m.cfg.MonotonicWindow, time.Now())
	ticker := time.NewTicker(m.cfg.SampleInterval)
	defer ticker.Stop()

	m.sampleOnce(smoother)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sampleOnce(smoother)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Write) {
				m.sampleOnce(smoother)
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			m.logger.Debug("cgroup events watch error", zap.Error(err))
		}
	}
}

func (m *Monitor) sampleOnce(smoother *Smoother) {
	reading, ok := SampleChain(m.sources, m.cfg.Thresholds)
	if !ok {
		m.logger.Debug("no pressure source available this cycle")
		return
	}
	m.mu.Lock()
	m.last = reading
	m.hasLast = true
	m.mu.Unlock()

	level := smoother.Filter(reading.Pressure, time.Now())
	m.publish(level)
	m.logger.Debug("pressure sample",
		zap.Stringer("source", reading.Source),
		zap.Int("headroom_per_mille", reading.HeadroomPerMille),
		zap.Stringer("raw", reading.Pressure),
		zap.Stringer("smoothed", level))
}

// publish overwrites the mailbox with the newest level. Older undelivered
// levels are discarded; only the freshest state is ever meaningful.
func (m *Monitor) publish(level budget.MemoryPressure) {
	for {
		select {
		case m.mailbox <- level:
			return
		default:
		}
		select {
		case <-m.mailbox:
		default:
		}
	}
}

// Drain returns the latest published pressure level, if any, without
// blocking.
func (m *Monitor) Drain() (budget.MemoryPressure, bool) {
	select {
	case p := <-m.mailbox:
		return p, true
	default:
		return budget.PressureLow, false
	}
}

// LastReading returns the most recent raw sample, before smoothing. It is
// observational, for display and diagnostics; policy consumes Drain.
func (m *Monitor) LastReading() (Reading, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.hasLast
}
