// Package main provides the eligibility CLI for offline matching and catalog maintenance.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"plan-eligibility-engine/internal/config"
	"plan-eligibility-engine/internal/utils"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "eligibility",
	Short: "Plan Eligibility Engine CLI",
	Long:  "Matches client profiles against insurance plan catalogs and maintains the plan catalog database.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return utils.InitLogger(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func main() {
	defer utils.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from the environment and .env.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
