package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"tabwarden/internal/config"
	"tabwarden/internal/engine"
	"tabwarden/internal/governor"
	"tabwarden/internal/pressure"
	"tabwarden/internal/tabs"
)

// tickMsg drives timer-based reconciliation.
type tickMsg time.Time

// keyMap defines the dashboard keybindings.
type keyMap struct {
	New        key.Binding
	Cycle      key.Binding
	Suspend    key.Binding
	Background key.Binding
	Close      key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.New, k.Cycle, k.Suspend, k.Background, k.Close, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.New, k.Cycle, k.Suspend},
		{k.Background, k.Close, k.Quit},
	}
}

var defaultKeys = keyMap{
	New:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new tab")),
	Cycle:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
	Suspend:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "suspend")),
	Background: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "background")),
	Close:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close tab")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// model is the bubbletea model for the governor dashboard. It owns no
// scheduling state of its own; every cell in the table is read back from the
// registry and the governor on render.
type model struct {
	registry *tabs.Registry
	gov      *governor.Governor
	monitor  *pressure.Monitor
	cdp      *engine.CDPScheduler // nil for the log engine
	logger   *zap.Logger

	govCfg       governor.Config
	pollInterval time.Duration

	keys    keyMap
	help    help.Model
	styles  Styles
	width   int
	created int
}

func newModel(registry *tabs.Registry, gov *governor.Governor, monitor *pressure.Monitor, cdp *engine.CDPScheduler, cfg *config.Config, logger *zap.Logger) model {
	return model{
		registry:     registry,
		gov:          gov,
		monitor:      monitor,
		cdp:          cdp,
		logger:       logger,
		govCfg:       cfg.GetGovernorConfig(),
		pollInterval: cfg.GetPollInterval(),
		keys:         defaultKeys,
		help:         help.New(),
		styles:       DefaultStyles(),
		created:      registry.Len(),
	}
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		// At most one queued pressure update per tick; otherwise a plain
		// timer reconciliation.
		if level, ok := m.monitor.Drain(); ok {
			m.gov.SetMemoryPressure(level)
		} else {
			m.gov.Poll()
		}
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.New):
		m.created++
		site := demoSites[(m.created-1)%len(demoSites)]
		id := m.registry.Create(fmt.Sprintf("%s #%d", site.title, m.created), site.url)
		if m.cdp != nil {
			if err := m.cdp.Attach(id, site.url); err != nil {
				m.logger.Warn("failed to attach tab",
					zap.Stringer("tab", id),
					zap.Error(err))
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Cycle):
		if next, ok := m.registry.Next(); ok {
			m.registry.SetActive(next)
		} else if entries := m.registry.List(); len(entries) > 0 {
			// No active tab to cycle from; pick up at the front.
			m.registry.SetActive(entries[0].ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Suspend):
		if id, ok := m.registry.Active(); ok {
			m.registry.SetState(id, tabs.Suspended)
		}
		return m, nil

	case key.Matches(msg, m.keys.Background):
		if id, ok := m.registry.Active(); ok {
			m.registry.SetState(id, tabs.Background)
		}
		return m, nil

	case key.Matches(msg, m.keys.Close):
		if id, ok := m.registry.Active(); ok {
			m.registry.Close(id)
			m.gov.Forget(id)
			if m.cdp != nil {
				m.cdp.Detach(id)
			}
			if entries := m.registry.List(); len(entries) > 0 {
				m.registry.SetActive(entries[0].ID)
			}
		}
		return m, nil

	default:
		// Anything else is user input on the active tab.
		if id, ok := m.registry.Active(); ok {
			m.gov.RecordUserInput(id)
		}
		return m, nil
	}
}

func (m model) View() string {
	var sb strings.Builder
	sb.WriteString(m.headerView())
	sb.WriteString("\n\n")
	sb.WriteString(m.tableView())
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	sb.WriteString("\n")
	return sb.String()
}

func (m model) headerView() string {
	title := m.styles.Header.Render(" tabwarden ")

	level := m.gov.MemoryPressure()
	pressureTag := "pressure " + m.styles.PressureStyle(level).Render(level.String())

	sample := m.styles.Muted.Render("no sample yet")
	if r, ok := m.monitor.LastReading(); ok {
		sample = m.styles.Muted.Render(fmt.Sprintf("headroom %d/1000 via %s", r.HeadroomPerMille, r.Source))
	}

	since := m.gov.SinceInput().Truncate(100 * time.Millisecond)
	phase := "settling"
	switch {
	case since <= m.govCfg.ActiveInputWindow:
		phase = "active"
	case since >= m.govCfg.IdleThreshold:
		phase = "idle"
	}
	input := m.styles.Bold.Render(fmt.Sprintf("input %s (%s ago)", phase, since))

	return lipgloss.JoinHorizontal(lipgloss.Center,
		title, "  ", pressureTag, "  ", sample, "  ", input)
}

func (m model) tableView() string {
	tbl := newTabTable("ID", "TITLE", "BASE", "EFFECTIVE", "TIER", "TIMER", "JS", "WASM", "WORKERS", "SUSPEND")
	for _, e := range m.registry.List() {
		snap, ok := m.gov.Snapshot(e.ID)
		if !ok {
			continue
		}

		style := m.styles.Row
		switch snap.Effective {
		case tabs.Active:
			style = m.styles.ActiveRow
		case tabs.Suspended:
			style = m.styles.SuspendedRow
		}

		tbl.addRow(style,
			e.ID.String(),
			e.Title,
			snap.Base.String(),
			snap.Effective.String(),
			snap.Budget.Tier.String(),
			timerLabel(snap.Hints.MaxTimerFrequency),
			yesNo(snap.Hints.AllowBackgroundJS),
			yesNo(snap.Hints.AllowWasm),
			yesNo(snap.Hints.AllowWorkers),
			yesNo(snap.Hints.PreferSuspend),
		)
	}
	return tbl.render(m.styles.TableHeader, m.styles.Muted)
}

func timerLabel(d time.Duration) string {
	if d == 0 {
		return "none"
	}
	return d.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
