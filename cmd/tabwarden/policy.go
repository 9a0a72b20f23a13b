package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"tabwarden/internal/budget"
)

// policyCmd renders the budget policy matrix
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show the execution budget policy matrix",
	Long: `Renders the full tier x pressure matrix: the advisory hints derived
for each combination, and how pressure demotes tiers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPolicy()
	},
}

func runPolicy() error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(110),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	out, err := renderer.Render(policyMarkdown())
	if err != nil {
		return fmt.Errorf("failed to render policy: %w", err)
	}
	fmt.Print(out)
	return nil
}

// policyMarkdown builds the policy tables from the live mapping functions.
func policyMarkdown() string {
	tiers := []budget.BudgetTier{
		budget.Foreground,
		budget.VisibleBackground,
		budget.IdleBackground,
	}
	pressures := []budget.MemoryPressure{
		budget.PressureLow,
		budget.PressureModerate,
		budget.PressureSevere,
	}

	var sb strings.Builder
	sb.WriteString("# Budget Policy\n\n")

	sb.WriteString("## Execution hints\n\n")
	sb.WriteString("| Tier | Pressure | Timer clamp | Background JS | Wasm | Workers | Prefer suspend |\n")
	sb.WriteString("|------|----------|-------------|---------------|------|---------|----------------|\n")
	for _, tier := range tiers {
		for _, p := range pressures {
			h := budget.MapExecutionHints(budget.ExecutionBudget{Tier: tier}, p)
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s | %s |\n",
				tier, p,
				timerLabel(h.MaxTimerFrequency),
				yesNo(h.AllowBackgroundJS),
				yesNo(h.AllowWasm),
				yesNo(h.AllowWorkers),
				yesNo(h.PreferSuspend))
		}
	}

	sb.WriteString("\n## Pressure demotion\n\n")
	sb.WriteString("| Tier | Pressure | Demoted tier |\n")
	sb.WriteString("|------|----------|--------------|\n")
	for _, tier := range tiers {
		for _, p := range pressures {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", tier, p, budget.DemoteTier(tier, p))
		}
	}

	return sb.String()
}
