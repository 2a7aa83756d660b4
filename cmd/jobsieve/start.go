package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkalra/jobsieve/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pipeline daemon",
	Long:  "Run the full pipeline on the configured interval; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("config loaded",
		"interval", cfg.RunInterval.String(),
		"feeds", len(cfg.Feeds),
		"tier1", cfg.Agents.Tier1.Provider,
		"tier2_enabled", cfg.Agents.Tier2.Enabled,
		"delivery", deliveryLabel(cfg),
	)

	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	orch, err := buildOrchestrator(cfg, st, logger)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(orch, cfg.RunInterval, logger)
	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	logger.Info("goodbye")
	return nil
}
