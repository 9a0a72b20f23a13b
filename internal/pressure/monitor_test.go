package pressure

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tabwarden/internal/budget"
)

// fakeSource is a scriptable pressure source safe for cross-goroutine use.
type fakeSource struct {
	mu        sync.Mutex
	available bool
	pressure  budget.MemoryPressure
	samples   int
}

func (f *fakeSource) Sample(Thresholds) (Reading, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples++
	if !f.available {
		return Reading{}, false
	}
	return Reading{Pressure: f.pressure, HeadroomPerMille: 500, Source: SourceMeminfo}, true
}

func (f *fakeSource) set(available bool, p budget.MemoryPressure) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available = available
	f.pressure = p
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.samples
}

func testMonitorConfig() MonitorConfig {
	return MonitorConfig{
		SampleInterval:  5 * time.Millisecond,
		MonotonicWindow: 0, // no hysteresis; smoothing has its own tests
		Thresholds:      DefaultThresholds(),
	}
}

func TestMonitor_PublishesSmoothedLevels(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{available: true, pressure: budget.PressureLow}
	m := NewMonitor(testMonitorConfig(), []Source{src}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Start(ctx))

	require.Eventually(t, func() bool {
		p, ok := m.Drain()
		return ok && p == budget.PressureLow
	}, 2*time.Second, time.Millisecond)

	src.set(true, budget.PressureSevere)
	require.Eventually(t, func() bool {
		p, ok := m.Drain()
		return ok && p == budget.PressureSevere
	}, 2*time.Second, time.Millisecond)

	reading, ok := m.LastReading()
	require.True(t, ok)
	assert.Equal(t, budget.PressureSevere, reading.Pressure)
	assert.Equal(t, 500, reading.HeadroomPerMille)
	assert.Equal(t, SourceMeminfo, reading.Source)
}

func TestMonitor_KeepsSamplingThroughUnavailableCycles(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{available: false}
	m := NewMonitor(testMonitorConfig(), []Source{src}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Start(ctx))

	// Several failed cycles must not kill the worker or publish anything.
	require.Eventually(t, func() bool { return src.count() >= 3 },
		2*time.Second, time.Millisecond)
	_, ok := m.Drain()
	assert.False(t, ok)

	// Once the source recovers, levels flow again.
	src.set(true, budget.PressureModerate)
	require.Eventually(t, func() bool {
		p, ok := m.Drain()
		return ok && p == budget.PressureModerate
	}, 2*time.Second, time.Millisecond)
}

func TestMonitor_StartTwice(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewMonitor(testMonitorConfig(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, m.Start(ctx))
	assert.Error(t, m.Start(ctx))
}

func TestMonitor_MailboxKeepsNewestOnly(t *testing.T) {
	m := NewMonitor(testMonitorConfig(), nil, nil)

	m.publish(budget.PressureLow)
	m.publish(budget.PressureModerate)
	m.publish(budget.PressureSevere)

	p, ok := m.Drain()
	require.True(t, ok)
	assert.Equal(t, budget.PressureSevere, p, "older values are overwritten")

	_, ok = m.Drain()
	assert.False(t, ok, "mailbox drained")
}

func TestMonitor_DrainWithoutStart(t *testing.T) {
	m := NewMonitor(testMonitorConfig(), nil, nil)
	p, ok := m.Drain()
	assert.False(t, ok)
	assert.Equal(t, budget.PressureLow, p)

	_, ok = m.LastReading()
	assert.False(t, ok)
}
