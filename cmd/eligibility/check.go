package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"plan-eligibility-engine/internal/config"
	"plan-eligibility-engine/internal/services/database"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report configuration and test the database connection",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration:")
	printSetting(out, "AWS_REGION", cfg.AWSRegion)
	printSetting(out, "S3_BUCKET", cfg.S3Bucket)
	printSetting(out, "SES_SENDER_EMAIL", cfg.SESSenderEmail)
	printSetting(out, "N8N_WEBHOOK_URL", cfg.N8NWebhookURL)
	printSetting(out, "DB_PASSWORD", mask(cfg.DBPassword))
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Database %s:%d/%s: ", cfg.DBHost, cfg.DBPort, cfg.DBName)
	tables, err := checkDatabase(cmd.Context(), cfg)
	if err != nil {
		fmt.Fprintln(out, "FAILED")
		return err
	}
	fmt.Fprintf(out, "connected, %d/%d tables present\n", tables, len(database.Tables))
	return nil
}

func checkDatabase(ctx context.Context, cfg *config.Config) (int, error) {
	db, err := database.New(cfg)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var count int
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = ANY($1)
	`, database.Tables).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to list tables: %w", err)
	}
	return count, nil
}

func printSetting(out io.Writer, name, value string) {
	if value == "" {
		fmt.Fprintf(out, "  %-18s NOT SET\n", name)
		return
	}
	fmt.Fprintf(out, "  %-18s %s\n", name, value)
}

// mask hides all but the edges of a secret.
func mask(value string) string {
	if len(value) <= 8 {
		if value == "" {
			return ""
		}
		return "****"
	}
	return value[:2] + "..." + value[len(value)-2:]
}
