// Match Lambda entry point
package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"plan-eligibility-engine/internal/config"
	"plan-eligibility-engine/internal/handlers"
	"plan-eligibility-engine/internal/services/database"
	"plan-eligibility-engine/internal/services/matcher"
	"plan-eligibility-engine/internal/services/n8n"
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

	handler := handlers.NewMatchHandler(
		matcher.NewMatcherService(db, cfg),
		n8n.NewClient(cfg),
	)

	lambda.Start(handler.Handle)
}
