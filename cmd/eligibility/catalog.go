package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"plan-eligibility-engine/internal/handlers"
	"plan-eligibility-engine/internal/services/database"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a plan catalog CSV into the database",
	RunE:  runImport,
}

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the database schema and seed reference data",
	RunE:  runInitDB,
}

var importFile string

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "Path to plan catalog CSV file (required)")
	if err := importCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(initDBCmd)
}

func connect() (*database.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	content, err := os.ReadFile(importFile)
	if err != nil {
		return fmt.Errorf("failed to read catalog file %s: %w", importFile, err)
	}

	db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	importer := handlers.NewCatalogImportHandler(database.NewPlanRepository(db), nil, nil)
	result, err := importer.ImportCatalog(ctx, content, importFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: parsed %d, upserted %d, failed %d\n", result.Message, result.Parsed, result.Upserted, result.Failed)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  %s\n", e)
	}
	return nil
}

func runInitDB(cmd *cobra.Command, _ []string) error {
	db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.InitSchema(cmd.Context()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Schema initialized")
	return nil
}
