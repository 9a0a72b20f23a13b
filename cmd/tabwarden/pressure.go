package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tabwarden/internal/pressure"
)

var watchPressure bool

// pressureCmd samples the memory pressure chain directly
var pressureCmd = &cobra.Command{
	Use:   "pressure",
	Short: "Sample memory pressure and print the reading",
	Long: `Walks the platform source chain (cgroup v2 limits, system meminfo,
process RSS) and prints the first reading along with the pressure level
it maps to under the configured thresholds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPressure()
	},
}

func init() {
	pressureCmd.Flags().BoolVar(&watchPressure, "watch", false, "Keep sampling at the configured interval")
}

func runPressure() error {
	mcfg := cfg.GetMonitorConfig()
	sources := pressure.DefaultChain()

	printSample := func() error {
		reading, ok := pressure.SampleChain(sources, mcfg.Thresholds)
		if !ok {
			return fmt.Errorf("no memory pressure source available on this platform")
		}
		fmt.Printf("%-10s headroom=%d/1000 source=%s\n",
			reading.Pressure, reading.HeadroomPerMille, reading.Source)
		return nil
	}

	if !watchPressure {
		return printSample()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(mcfg.SampleInterval)
	defer ticker.Stop()

	if err := printSample(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printSample(); err != nil {
				return err
			}
		}
	}
}
