// Presigned URL Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"plan-eligibility-engine/internal/config"
	"plan-eligibility-engine/internal/handlers"
	s3service "plan-eligibility-engine/internal/services/s3"
	"plan-eligibility-engine/internal/utils"
)

func main() {
	cfg, _ := config.Load()

	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	storage, err := s3service.NewService(context.Background(), cfg)
	if err != nil {
		panic("Failed to create S3 service: " + err.Error())
	}

	handler := handlers.NewPresignedURLHandler(storage)

	lambda.Start(handler.Handle)
}
