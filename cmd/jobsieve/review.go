package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkalra/jobsieve/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Open the interactive review board",
	Long:  "Work the needs_review queue and track delivered jobs through the application states.",
	RunE:  runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	return review.Run(ctx, st)
}
