package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one full pipeline cycle",
	Long:  "Ingest every enabled feed, classify the new jobs, deliver the approved ones, then exit.",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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

	orch, err := buildOrchestrator(cfg, st, logger)
	if err != nil {
		return err
	}

	res := orch.Run(ctx)

	fmt.Printf("run complete in %s\n", res.Elapsed.Round(10*time.Millisecond))
	fmt.Printf("  ingested:  %d admitted, %d duplicates, %d feed errors\n",
		res.Ingest.Admitted, res.Ingest.Duplicates, res.Ingest.FeedErrors)
	fmt.Printf("  classified: %d processed (%d approved, %d filtered, %d needs review)\n",
		res.Classify.Processed, res.Classify.Approved, res.Classify.Filtered, res.Classify.NeedsReview)
	fmt.Printf("  delivered: %d\n", res.Deliver.Delivered)
	if len(res.Errors) > 0 {
		fmt.Printf("  errors: %d (first: %v)\n", len(res.Errors), res.Errors[0])
	}
	return nil
}
