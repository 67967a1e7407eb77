// Webhook Trigger Lambda entry point
package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"plan-eligibility-engine/internal/config"
	"plan-eligibility-engine/internal/handlers"
	"plan-eligibility-engine/internal/services/n8n"
	"plan-eligibility-engine/internal/utils"
)

func main() {
	cfg, _ := config.Load()

	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	handler := handlers.NewWebhookTriggerHandler(n8n.NewClient(cfg))

	lambda.Start(handler.Handle)
}
