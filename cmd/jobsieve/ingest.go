package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch feeds and admit new jobs",
	Long:  "Fetch every enabled feed, deduplicate, and store new jobs in state new without classifying them.",
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	res, err := orch.Ingest(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("ingest complete: %d feeds, %d candidates, %d admitted, %d duplicates\n",
		res.FeedsFetched, res.Candidates, res.Admitted, res.Duplicates)
	for _, e := range res.Errors {
		fmt.Printf("  error: %v\n", e)
	}
	return nil
}
