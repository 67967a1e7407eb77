package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"plan-eligibility-engine/internal/models"
	"plan-eligibility-engine/internal/services/matcher"
	"plan-eligibility-engine/internal/utils"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a client profile against a plan catalog file",
	Long:  "Evaluates a client profile JSON file against a catalog CSV or JSON file without touching the database, and prints the eligible plans.",
	RunE:  runMatch,
}

var (
	matchClient          string
	matchCatalog         string
	matchOutput          string
	matchFuzzyMedication bool
)

func init() {
	matchCmd.Flags().StringVarP(&matchClient, "client", "c", "", "Path to client profile JSON file (required)")
	matchCmd.Flags().StringVarP(&matchCatalog, "catalog", "p", "", "Path to plan catalog CSV or JSON file (required)")
	matchCmd.Flags().StringVarP(&matchOutput, "out", "o", "", "Path to output JSON file (default stdout)")
	matchCmd.Flags().BoolVar(&matchFuzzyMedication, "fuzzy-medications", false, "Fuzzy match the client's own medications")

	if err := matchCmd.MarkFlagRequired("client"); err != nil {
		panic(fmt.Sprintf("failed to mark client flag as required: %v", err))
	}
	if err := matchCmd.MarkFlagRequired("catalog"); err != nil {
		panic(fmt.Sprintf("failed to mark catalog flag as required: %v", err))
	}

	rootCmd.AddCommand(matchCmd)
}

// MatchOutput is the JSON written by the match command.
type MatchOutput struct {
	Eligible   []models.EligibilityResult `json:"eligible_plans"`
	TotalPlans int                        `json:"total_plans"`
	Rejections map[matcher.Check]int      `json:"rejections"`
}

func runMatch(cmd *cobra.Command, _ []string) error {
	content, err := os.ReadFile(matchClient)
	if err != nil {
		return fmt.Errorf("failed to read client file %s: %w", matchClient, err)
	}

	var client models.ClientProfile
	if err := json.Unmarshal(content, &client); err != nil {
		return fmt.Errorf("failed to unmarshal client JSON: %w", err)
	}
	client.Normalize(time.Now())
	if err := models.ValidateClientProfile(&client); err != nil {
		return err
	}

	plans, err := loadCatalog(matchCatalog)
	if err != nil {
		return err
	}

	engine := matcher.NewEngine(matcher.Options{FuzzyPrimaryMedications: matchFuzzyMedication}, utils.Component("cli"))
	eligible, rejections := engine.Filter(&client, plans)

	output, err := json.MarshalIndent(MatchOutput{
		Eligible:   eligible,
		TotalPlans: len(plans),
		Rejections: rejections,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal match result: %w", err)
	}

	if matchOutput == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
		return err
	}
	if err := os.WriteFile(matchOutput, output, 0644); err != nil {
		return fmt.Errorf("failed to write match result to %s: %w", matchOutput, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d plans eligible, written to %s\n", len(eligible), len(plans), matchOutput)
	return nil
}

// loadCatalog reads plans from a catalog CSV or a JSON array of plans.
func loadCatalog(path string) ([]*models.InsurancePlan, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var plans []*models.InsurancePlan
		if err := json.Unmarshal(content, &plans); err != nil {
			return nil, fmt.Errorf("failed to unmarshal catalog JSON: %w", err)
		}
		for i, plan := range plans {
			plan.Normalize()
			if err := models.ValidatePlan(plan); err != nil {
				return nil, fmt.Errorf("plan %d: %w", i, err)
			}
		}
		return plans, nil
	}

	plans, parseErrors := utils.NewCSVParser().ParsePlans(string(content))
	if len(plans) == 0 {
		return nil, fmt.Errorf("failed to parse catalog: %w", errors.Join(parseErrors...))
	}
	for _, e := range parseErrors {
		fmt.Fprintf(os.Stderr, "skipped: %v\n", e)
	}
	return plans, nil
}
