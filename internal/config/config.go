// Package config provides configuration management for the application.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application.
type Config struct {
	// AWS
	AWSRegion     string
	S3Bucket      string
	CatalogPrefix string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// n8n
	N8NWebhookURL             string
	N8NIntakeWebhookURL       string
	N8NNotificationWebhookURL string
	N8NCatalogWebhookURL      string

	// SES
	SESSenderEmail string
	DashboardURL   string

	// Matching
	FuzzyPrimaryMedications bool
	MatchConcurrency        int

	// Application
	Stage    string
	LogLevel string
	Port     string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	cfg := &Config{
		// AWS
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:      getEnv("S3_BUCKET", "plan-eligibility-catalog-dev"),
		CatalogPrefix: getEnv("CATALOG_PREFIX", "catalog/"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBName:     getEnv("DB_NAME", "plan_eligibility"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),

		// n8n
		N8NWebhookURL:             getEnv("N8N_WEBHOOK_URL", ""),
		N8NIntakeWebhookURL:       getEnv("N8N_INTAKE_WEBHOOK_URL", ""),
		N8NNotificationWebhookURL: getEnv("N8N_NOTIFICATION_WEBHOOK_URL", ""),
		N8NCatalogWebhookURL:      getEnv("N8N_CATALOG_WEBHOOK_URL", ""),

		// SES
		SESSenderEmail: getEnv("SES_SENDER_EMAIL", ""),
		DashboardURL:   getEnv("DASHBOARD_URL", ""),

		// Matching
		FuzzyPrimaryMedications: getEnvBool("MATCH_FUZZY_PRIMARY_MEDICATIONS", false),
		MatchConcurrency:        getEnvInt("MATCH_CONCURRENCY", 8),

		// Application
		Stage:    getEnv("STAGE", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnv("PORT", "8080"),
	}

	if cfg.MatchConcurrency < 1 {
		cfg.MatchConcurrency = 1
	}
	if !strings.HasSuffix(cfg.CatalogPrefix, "/") {
		cfg.CatalogPrefix += "/"
	}

	return cfg, nil
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	sslMode := "require" // Use SSL for RDS
	if c.DBHost == "localhost" || c.DBHost == "127.0.0.1" {
		sslMode = "disable" // Disable SSL for local development
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + strconv.Itoa(c.DBPort) + "/" + c.DBName + "?sslmode=" + sslMode
}

// WebhookURL returns the n8n URL for a workflow type, falling back to the generic webhook.
func (c *Config) WebhookURL(workflowType string) string {
	var url string
	switch workflowType {
	case "intake":
		url = c.N8NIntakeWebhookURL
	case "notification":
		url = c.N8NNotificationWebhookURL
	case "catalog":
		url = c.N8NCatalogWebhookURL
	}
	if url == "" {
		url = c.N8NWebhookURL
	}
	return url
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as int or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as bool or returns a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
