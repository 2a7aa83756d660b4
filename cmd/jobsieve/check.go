package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkalra/jobsieve/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and test the agent connections",
	Long:  "Parse and validate the config file, then verify each enabled agent's backend is reachable and authorized.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	fmt.Println("config OK")
	fmt.Printf("  feeds: %d (%d enabled)\n", len(cfg.Feeds), countEnabledFeeds(cfg))
	fmt.Printf("  delivery: %s\n", deliveryLabel(cfg))

	ctx, stop := signalContext()
	defer stop()

	for _, agent := range []struct {
		name string
		cfg  config.AgentConfig
	}{{"tier1", cfg.Agents.Tier1}, {"tier2", cfg.Agents.Tier2}} {
		if !agent.cfg.Enabled {
			fmt.Printf("  %s: disabled\n", agent.name)
			continue
		}

		provider, err := buildAgent(agent.cfg)
		if err != nil {
			return fmt.Errorf("%s agent: %w", agent.name, err)
		}
		if err := provider.TestConnection(ctx); err != nil {
			return fmt.Errorf("%s agent (%s/%s): %w", agent.name, agent.cfg.Provider, agent.cfg.Model, err)
		}
		fmt.Printf("  %s: %s/%s reachable\n", agent.name, agent.cfg.Provider, agent.cfg.Model)
	}

	return nil
}

func countEnabledFeeds(cfg *config.Config) int {
	n := 0
	for _, f := range cfg.Feeds {
		if f.Enabled {
			n++
		}
	}
	return n
}

func deliveryLabel(cfg *config.Config) string {
	if cfg.Delivery.Type == "webhook" {
		return "webhook"
	}
	return "log"
}
