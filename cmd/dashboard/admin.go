package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mir00r/lb-dashboard/internal/config"
	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/mir00r/lb-dashboard/internal/feed"
	"github.com/mir00r/lb-dashboard/internal/service"
	"github.com/mir00r/lb-dashboard/pkg/logger"
)

// runConfigValidation prints the effective configuration with secrets masked
func runConfigValidation(cfg *config.Config) error {
	fmt.Println("Configuration validation passed ✓")
	algo := domain.ParseAlgorithm(cfg.Simulation.Algorithm)
	fmt.Printf("Algorithm: %s (effective %s)\n", algo, algo.Effective())
	if suggestion := algo.Suggest(); suggestion != "" {
		fmt.Printf("  unknown token, did you mean %q?\n", suggestion)
	}
	fmt.Println(cfg.String())
	return nil
}

// runProbe fetches both feeds once and prints what the dashboard would show
func runProbe(cfg *config.Config) error {
	client := feed.NewClient(cfg.Feeds, logger.NewDiscard())

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Feeds.Timeout)
	defer cancel()

	var failed bool

	metrics, err := client.FetchMetrics(ctx)
	if err != nil {
		failed = true
		fmt.Printf("✗ metrics %s: %v\n", client.MetricsURL(), err)
	} else {
		fmt.Printf("✓ metrics %s: %d backends\n", client.MetricsURL(), len(metrics))
		for _, m := range metrics {
			state := "DOWN"
			if m.Alive {
				state = "UP"
			}
			fmt.Printf("  %-24s %-4s latency=%v errors=%d\n", m.Address, state, m.Latency, m.ErrorCount)
		}
	}

	report, err := client.FetchStatus(ctx)
	if err != nil {
		failed = true
		fmt.Printf("✗ status %s: %v\n", client.StatusURL(), err)
	} else {
		fmt.Printf("✓ status %s: algo=%s reason=%s selected=%s decisions=%d\n",
			client.StatusURL(), report.CurrentAlgo, report.AdaptiveReason, report.SelectedBackend, len(report.DecisionLog))
		if n := len(report.DecisionLog); n > 0 {
			fmt.Printf("  last: %s\n", service.FormatEntry(report.DecisionLog[n-1]))
		}
	}

	if failed {
		return fmt.Errorf("probe failed at %s", time.Now().Format(time.RFC3339))
	}
	return nil
}

// runAdminProcess handles admin process execution
func runAdminProcess(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: lb-dashboard -admin <command>")
		fmt.Println("Commands:")
		fmt.Println("  validate-config - Print the effective configuration")
		fmt.Println("  probe           - Fetch both feeds once")
		return fmt.Errorf("missing admin command")
	}

	switch args[0] {
	case "validate-config", "validate":
		return runConfigValidation(cfg)
	case "probe":
		return runProbe(cfg)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}
