// Catalog Import Lambda entry point, triggered by S3 uploads under the catalog prefix
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"plan-eligibility-engine/internal/config"
	"plan-eligibility-engine/internal/handlers"
	"plan-eligibility-engine/internal/services/database"
	"plan-eligibility-engine/internal/services/n8n"
	s3service "plan-eligibility-engine/internal/services/s3"
	"plan-eligibility-engine/internal/utils"
)

func main() {
	cfg, _ := config.Load()

	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	db, err := database.New(cfg)
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}
	defer db.Close()

	storage, err := s3service.NewService(context.Background(), cfg)
	if err != nil {
		panic("Failed to create S3 service: " + err.Error())
	}

	handler := handlers.NewCatalogImportHandler(
		database.NewPlanRepository(db),
		storage,
		n8n.NewClient(cfg),
	)

	lambda.Start(handler.Handle)
}
