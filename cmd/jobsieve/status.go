package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkalra/jobsieve/internal/model"
	"github.com/dkalra/jobsieve/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show job counts per state and today's run stats",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	counts, err := st.CountsByStatus(ctx)
	if err != nil {
		return fmt.Errorf("counting jobs: %w", err)
	}

	var total int64
	fmt.Println("jobs by status:")
	for _, s := range status.All() {
		n := counts[s]
		total += n
		if n == 0 {
			continue
		}
		fmt.Printf("  %-13s %d\n", s, n)
	}
	fmt.Printf("  %-13s %d\n", "total", total)

	today := time.Now().Format("2006-01-02")
	stats, err := st.RunStatsFor(ctx, today)
	if errors.Is(err, model.ErrNotFound) {
		fmt.Printf("\nno runs recorded today (%s)\n", today)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading run stats: %w", err)
	}

	fmt.Printf("\ntoday (%s):\n", today)
	fmt.Printf("  processed: %d\n", stats.JobsProcessed)
	fmt.Printf("  approved:  %d\n", stats.JobsApproved)
	fmt.Printf("  filtered:  %d\n", stats.JobsFiltered)
	fmt.Printf("  emailed:   %d\n", stats.JobsEmailed)
	fmt.Printf("  errors:    %d\n", stats.Errors)
	fmt.Printf("  elapsed:   %s\n", stats.Elapsed.Round(time.Millisecond))
	return nil
}
