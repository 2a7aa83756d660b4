package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deliverCmd = &cobra.Command{
	Use:   "deliver",
	Short: "Deliver approved jobs that have not gone out yet",
	RunE:  runDeliver,
}

func init() {
	rootCmd.AddCommand(deliverCmd)
}

func runDeliver(cmd *cobra.Command, args []string) error {
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

	res, err := orch.Deliver(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("delivery complete: %d jobs sent\n", res.Delivered)
	for _, e := range res.Errors {
		fmt.Printf("  error: %v\n", e)
	}
	return nil
}
