package handlers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"plan-eligibility-engine/internal/models"
	"plan-eligibility-engine/internal/services/n8n"
	"plan-eligibility-engine/internal/utils"
)

// maxReportedErrors caps the row errors returned to callers.
const maxReportedErrors = 10

// PlanUpserter writes parsed plans to the catalog.
type PlanUpserter interface {
	BulkUpsert(ctx context.Context, plans []*models.InsurancePlan) (*models.BulkUpsertResult, error)
}

// CatalogStorage reads and archives uploaded catalog files.
type CatalogStorage interface {
	IsCatalogKey(key string) bool
	DownloadFile(ctx context.Context, key string) ([]byte, error)
	ArchiveCatalog(ctx context.Context, key string) (string, error)
}

// CatalogImportHandler imports plan catalog CSV files.
type CatalogImportHandler struct {
	plans   PlanUpserter
	storage CatalogStorage
	trigger WorkflowTrigger
}

// NewCatalogImportHandler creates a catalog import handler. storage and
// trigger may be nil when imports only arrive directly.
func NewCatalogImportHandler(plans PlanUpserter, storage CatalogStorage, trigger WorkflowTrigger) *CatalogImportHandler {
	return &CatalogImportHandler{
		plans:   plans,
		storage: storage,
		trigger: trigger,
	}
}

// CatalogImportResult is the result of importing one catalog file.
type CatalogImportResult struct {
	Message  string   `json:"message"`
	Source   string   `json:"source"`
	Parsed   int      `json:"parsed"`
	Upserted int      `json:"upserted"`
	Failed   int      `json:"failed"`
	Archived string   `json:"archived,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportCatalog parses CSV content and upserts the valid plans. Invalid rows
// are reported and skipped; a database failure aborts the import.
func (h *CatalogImportHandler) ImportCatalog(ctx context.Context, content []byte, source string) (*CatalogImportResult, error) {
	logger := utils.GetLogger()

	parser := utils.NewCSVParser()
	plans, parseErrors := parser.ParsePlans(string(content))

	result := &CatalogImportResult{
		Source: source,
		Parsed: len(plans),
		Failed: len(parseErrors),
	}
	for _, e := range parseErrors {
		result.Errors = append(result.Errors, e.Error())
	}

	if len(plans) == 0 {
		result.Message = "No valid plans found in CSV"
		result.Errors = limitErrors(result.Errors)
		return result, nil
	}

	logger.Info("Parsed catalog",
		zap.String("source", source),
		zap.Int("valid_plans", len(plans)),
		zap.Int("parse_errors", len(parseErrors)),
	)

	upsert, err := h.plans.BulkUpsert(ctx, plans)
	if err != nil {
		logger.Error("Failed to upsert plans", zap.Error(err))
		return nil, fmt.Errorf("failed to upsert plans: %w", err)
	}

	result.Upserted = upsert.UpsertedCount
	result.Failed += upsert.FailedCount
	result.Errors = limitErrors(append(result.Errors, upsert.Errors...))
	result.Message = "Catalog imported successfully"

	logger.Info("Imported catalog",
		zap.String("source", source),
		zap.Int("upserted", result.Upserted),
		zap.Int("failed", result.Failed),
	)

	if result.Upserted > 0 && h.trigger != nil {
		_, err := h.trigger.Trigger(ctx, n8n.WorkflowCatalog, "catalog_import", map[string]any{
			"source":   source,
			"upserted": result.Upserted,
			"failed":   result.Failed,
		})
		if err != nil {
			logger.Warn("Failed to trigger n8n webhook", zap.Error(err))
		}
	}

	return result, nil
}

// Handle processes S3 events for uploaded catalog files. Each record is
// imported independently and archived once imported.
func (h *CatalogImportHandler) Handle(ctx context.Context, s3Event events.S3Event) ([]*CatalogImportResult, error) {
	logger := utils.GetLogger()

	if h.storage == nil {
		return nil, fmt.Errorf("catalog storage is not configured")
	}

	results := make([]*CatalogImportResult, 0, len(s3Event.Records))
	for _, record := range s3Event.Records {
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			return results, fmt.Errorf("failed to decode S3 key: %w", err)
		}

		if !h.storage.IsCatalogKey(key) {
			logger.Info("Skipping non-catalog object", zap.String("key", key))
			continue
		}

		logger.Info("Processing catalog file",
			zap.String("bucket", record.S3.Bucket.Name),
			zap.String("key", key),
		)

		content, err := h.storage.DownloadFile(ctx, key)
		if err != nil {
			return results, fmt.Errorf("failed to download catalog: %w", err)
		}

		result, err := h.ImportCatalog(ctx, content, key)
		if err != nil {
			return results, err
		}

		if result.Upserted > 0 {
			archived, err := h.storage.ArchiveCatalog(ctx, key)
			if err != nil {
				logger.Warn("Failed to archive file", zap.String("key", key), zap.Error(err))
			}
			result.Archived = archived
		}

		results = append(results, result)
	}

	return results, nil
}

func limitErrors(errs []string) []string {
	if len(errs) > maxReportedErrors {
		return errs[:maxReportedErrors]
	}
	return errs
}
