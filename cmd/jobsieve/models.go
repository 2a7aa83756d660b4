package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/dkalra/jobsieve/internal/config"
	"github.com/dkalra/jobsieve/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models available on the local ollama endpoint",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signalContext()
	defer stop()

	// Collect the distinct ollama endpoints from the configured agents.
	endpoints := make(map[string]bool)
	for _, a := range []config.AgentConfig{cfg.Agents.Tier1, cfg.Agents.Tier2} {
		if a.Enabled && a.Provider == "ollama" {
			endpoints[a.Endpoint] = true
		}
	}
	if len(endpoints) == 0 {
		return fmt.Errorf("no enabled ollama agent in config")
	}

	for endpoint := range endpoints {
		client := &http.Client{Timeout: cfg.Agents.Tier1.Timeout}
		provider := llm.NewOllamaProvider(endpoint, "", client)

		names, err := provider.ListModels(ctx)
		if err != nil {
			return fmt.Errorf("listing models at %s: %w", endpoint, err)
		}

		fmt.Printf("models at %s:\n", endpoint)
		if len(names) == 0 {
			fmt.Println("  (none installed)")
		}
		for _, n := range names {
			fmt.Printf("  %s\n", n)
		}
	}
	return nil
}
