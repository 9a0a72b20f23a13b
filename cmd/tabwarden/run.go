package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tabwarden/internal/engine"
	"tabwarden/internal/governor"
	"tabwarden/internal/pressure"
	"tabwarden/internal/tabs"
)

var (
	engineOverride string
	seedTabs       int
)

// runCmd launches the interactive governor dashboard
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive tab governor",
	Long: `Starts the governor with a set of demo tabs and a full-screen dashboard.

Every keypress counts as user input on the active tab. Stop typing and
watch the budgets decay: background tabs drop to the idle tier after a
few seconds, then suspend between idle burst windows.

With --engine cdp the governor drives a real Chromium instance over the
DevTools protocol; pages are frozen, throttled, and thawed as budgets
change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGovernor()
	},
}

func init() {
	runCmd.Flags().StringVar(&engineOverride, "engine", "", "Engine adapter: log or cdp (overrides config)")
	runCmd.Flags().IntVar(&seedTabs, "tabs", 4, "Number of demo tabs to open at startup")
}

type demoSite struct {
	title string
	url   string
}

var demoSites = []demoSite{
	{"Example", "https://example.com"},
	{"Wikipedia", "https://en.wikipedia.org"},
	{"Hacker News", "https://news.ycombinator.com"},
	{"Go Packages", "https://pkg.go.dev"},
	{"MDN", "https://developer.mozilla.org"},
}

// runGovernor wires config -> engine -> governor -> registry -> monitor and
// hands the terminal to bubbletea.
func runGovernor() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if engineOverride != "" {
		cfg.Engine = engineOverride
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	var (
		sched governor.EngineScheduler
		cdp   *engine.CDPScheduler
	)
	if cfg.IsCDPEngine() {
		var err error
		cdp, err = engine.NewCDPScheduler(ctx, cfg.CDP.ControlURL, logger)
		if err != nil {
			return fmt.Errorf("failed to start cdp engine: %w", err)
		}
		defer func() { _ = cdp.Close() }()
		sched = cdp
	} else {
		sched = engine.NewLogScheduler(logger)
	}

	gov := governor.New(cfg.GetGovernorConfig(), sched, logger)

	registry := tabs.NewRegistry()
	registry.SetListener(gov.OnTabStateChanged)

	monitor := pressure.NewMonitor(cfg.GetMonitorConfig(), pressure.DefaultChain(), logger)
	if err := monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start pressure monitor: %w", err)
	}

	for i := 0; i < seedTabs; i++ {
		site := demoSites[i%len(demoSites)]
		id := registry.Create(site.title, site.url)
		if cdp != nil {
			if err := cdp.Attach(id, site.url); err != nil {
				logger.Warn("failed to attach tab",
					zap.Stringer("tab", id),
					zap.Error(err))
			}
		}
	}

	logger.Info("governor started",
		zap.String("engine", cfg.Engine),
		zap.Int("tabs", registry.Len()))

	prog := tea.NewProgram(newModel(registry, gov, monitor, cdp, cfg, logger), tea.WithAltScreen())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		_, err := prog.Run()
		return err
	})
	g.Go(func() error {
		// Quit the UI when the signal context is cancelled.
		<-gctx.Done()
		prog.Quit()
		return nil
	})
	return g.Wait()
}
