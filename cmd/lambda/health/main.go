// Health Check Lambda entry point
package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"plan-eligibility-engine/internal/config"
	"plan-eligibility-engine/internal/handlers"
	"plan-eligibility-engine/internal/services/database"
	"plan-eligibility-engine/internal/utils"
)

func main() {
	cfg, _ := config.Load()

	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	// Health stays up without a database so the check can report it
	var handler *handlers.HealthHandler
	db, err := database.New(cfg)
	if err != nil {
		utils.GetLogger().Warn("Database unavailable", zap.Error(err))
		handler = handlers.NewHealthHandler(cfg, nil)
	} else {
		defer db.Close()
		handler = handlers.NewHealthHandler(cfg, db)
	}

	lambda.Start(handler.Handle)
}
