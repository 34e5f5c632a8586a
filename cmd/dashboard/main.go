package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mir00r/lb-dashboard/internal/config"
	"github.com/mir00r/lb-dashboard/internal/feed"
	"github.com/mir00r/lb-dashboard/internal/tui"
	"github.com/mir00r/lb-dashboard/pkg/logger"
)

const version = "1.0.0"

func main() {
	configFile := flag.String("config", "", "Configuration file (defaults to $CONFIG_FILE or dashboard.yaml)")
	algo := flag.String("algo", "", "Initial routing algorithm token; unknown tokens behave as random")
	admin := flag.Bool("admin", false, "Run a one-off admin command instead of the dashboard")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *algo != "" {
		cfg.Simulation.Algorithm = *algo
	}

	if *admin {
		if err := runAdminProcess(cfg, flag.Args()); err != nil {
			fmt.Printf("Command failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"version":     version,
		"algorithm":   cfg.Simulation.Algorithm,
		"metrics_url": cfg.Feeds.MetricsURL,
		"status_url":  cfg.Feeds.StatusURL,
		"interval":    cfg.Feeds.Interval.String(),
		"signed":      cfg.Feeds.JWTSecret != "",
	}).Info("Starting dashboard")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := tui.New(ctx, cfg, feed.NewClient(cfg.Feeds, log), log)
	if _, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		log.WithError(err).Error("Dashboard exited with error")
		fmt.Printf("Dashboard failed: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(app.Stats()).Info("Dashboard stopped")
}

func loadConfig(file string) (*config.Config, error) {
	if file != "" {
		return config.LoadConfigFrom(file)
	}
	return config.LoadConfig()
}
