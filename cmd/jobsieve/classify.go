package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify the jobs waiting in state new",
	Long:  "Run the two-tier filter over every stored job in state new and route each by its verdict.",
	RunE:  runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
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

	res, err := orch.Classify(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("classification complete: %d processed (%d approved, %d filtered, %d needs review)\n",
		res.Processed, res.Approved, res.Filtered, res.NeedsReview)
	for _, e := range res.Errors {
		fmt.Printf("  error: %v\n", e)
	}
	return nil
}
