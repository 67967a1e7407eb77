package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan-eligibility-engine/internal/config"
	"plan-eligibility-engine/internal/models"
	"plan-eligibility-engine/internal/services/matcher"
	"plan-eligibility-engine/internal/services/n8n"
	s3service "plan-eligibility-engine/internal/services/s3"
)

type fakePinger struct{ err error }

func (f fakePinger) HealthCheck(ctx context.Context) error { return f.err }

type triggerCall struct {
	workflowType string
	source       string
	payload      map[string]any
}

type fakeTrigger struct {
	calls []triggerCall
	err   error
}

func (f *fakeTrigger) Trigger(ctx context.Context, workflowType, source string, payload map[string]any) (any, error) {
	f.calls = append(f.calls, triggerCall{workflowType, source, payload})
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"ok": true}, nil
}

func decodeBody(t *testing.T, resp events.APIGatewayProxyResponse) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	return body
}

func TestHealthHandler(t *testing.T) {
	cfg := &config.Config{Stage: "test"}

	resp, err := NewHealthHandler(cfg, nil).Handle(context.Background(), events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "not configured", body["database"])
	assert.Equal(t, "test", body["stage"])

	resp, err = NewHealthHandler(cfg, fakePinger{}).Handle(context.Background(), events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	assert.Equal(t, "connected", decodeBody(t, resp)["database"])

	resp, err = NewHealthHandler(cfg, fakePinger{err: errors.New("down")}).Handle(context.Background(), events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", decodeBody(t, resp)["status"])
}

type fakeUploader struct {
	keys []string
	err  error
}

func (f *fakeUploader) CatalogKey(fileName string) string {
	key := "catalog/20260101_" + fileName
	f.keys = append(f.keys, key)
	return key
}

func (f *fakeUploader) GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, expiryMinutes int) (*s3service.PresignedURLResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &s3service.PresignedURLResult{URL: "https://s3/" + key, Key: key, ExpiresAt: time.Now()}, nil
}

func TestPresignedURLHandler(t *testing.T) {
	uploader := &fakeUploader{}
	handler := NewPresignedURLHandler(uploader)

	resp, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"filename": "my plans (v2).csv"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "catalog/20260101_myplansv2.csv", body["s3Key"])
	assert.Equal(t, float64(3600), body["expiresIn"])

	resp, err = handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"filename": "plans.xlsx"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = handler.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)

	uploader.err = errors.New("no credentials")
	resp, err = handler.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "..myplans.csv", sanitizeFilename("../my/pl ans.csv"))
	long := strings.Repeat("a", 150) + ".csv"
	assert.Len(t, sanitizeFilename(long), 100)
	assert.True(t, strings.HasSuffix(sanitizeFilename(long), ".csv"))
}

func TestWebhookTriggerHandler(t *testing.T) {
	trigger := &fakeTrigger{}
	handler := NewWebhookTriggerHandler(trigger)

	resp, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Body:       `{"workflow_type":"notification","batch_id":"b-1","extra_params":{"dry_run":true}}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, trigger.calls, 1)
	assert.Equal(t, n8n.WorkflowNotification, trigger.calls[0].workflowType)
	assert.Equal(t, "b-1", trigger.calls[0].payload["batch_id"])
	assert.Equal(t, true, trigger.calls[0].payload["dry_run"])

	resp, err = handler.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Body: `{}`})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, n8n.WorkflowIntake, trigger.calls[1].workflowType, "intake is the default workflow")
}

func TestWebhookTriggerHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		triggerErr error
		wantStatus int
	}{
		{"invalid json", `{`, nil, http.StatusBadRequest},
		{"unknown workflow", `{"workflow_type":"crawler"}`, nil, http.StatusBadRequest},
		{"not configured", `{"workflow_type":"catalog"}`, fmt.Errorf("%w: catalog", n8n.ErrWebhookNotConfigured), http.StatusServiceUnavailable},
		{"upstream failure", `{"workflow_type":"catalog"}`, errors.New("webhook returned status 500"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewWebhookTriggerHandler(&fakeTrigger{err: tt.triggerErr})
			resp, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Body: tt.body})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

type fakeMatchService struct {
	profiles []*models.ClientProfile
	saved    []*models.ClientProfile
	batches  [][]string
	err      error
}

func (f *fakeMatchService) MatchProfile(ctx context.Context, client *models.ClientProfile) (*matcher.MatchingResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.profiles = append(f.profiles, client)
	return &matcher.MatchingResult{TotalPlans: 2, Eligible: []models.EligibilityResult{{InsurancePlan: models.InsurancePlan{ID: "p-1"}}}}, nil
}

func (f *fakeMatchService) MatchAndSave(ctx context.Context, client *models.ClientProfile) (*matcher.MatchingResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.saved = append(f.saved, client)
	return &matcher.MatchingResult{ClientID: "c-1", BatchID: "b-1", SavedMatches: 1}, nil
}

func (f *fakeMatchService) ProcessClients(ctx context.Context, clientIDs []string) (*matcher.BatchResult, error) {
	f.batches = append(f.batches, clientIDs)
	return &matcher.BatchResult{BatchID: "b-2", TotalClients: len(clientIDs)}, nil
}

const intakeBody = `{"full_name":"Ana Ruiz","state":"CA","zip_code":"94105","age":32,"gender":"female","height":{"height_feet":5,"height_inches":5},"weight":140}`

func TestMatchHandler_Profile(t *testing.T) {
	svc := &fakeMatchService{}
	trigger := &fakeTrigger{}
	handler := NewMatchHandler(svc, trigger)

	resp, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/match",
		Body:       intakeBody,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, svc.profiles, 1)
	assert.Equal(t, "Ana Ruiz", svc.profiles[0].FullName)
	require.NotNil(t, svc.profiles[0].Weight)
	assert.Equal(t, float64(140), *svc.profiles[0].Weight)
	assert.Equal(t, 5, svc.profiles[0].Height.Feet)
	assert.Empty(t, trigger.calls, "unsaved matches do not start the intake workflow")
}

func TestMatchHandler_SaveTriggersIntake(t *testing.T) {
	svc := &fakeMatchService{}
	trigger := &fakeTrigger{err: errors.New("n8n unavailable")}
	handler := NewMatchHandler(svc, trigger)

	resp, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		Path:                  "/match",
		QueryStringParameters: map[string]string{"save": "true"},
		Body:                  intakeBody,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "a failed webhook does not fail the request")
	require.Len(t, svc.saved, 1)
	require.Len(t, trigger.calls, 1)
	assert.Equal(t, n8n.WorkflowIntake, trigger.calls[0].workflowType)
	assert.Equal(t, "c-1", trigger.calls[0].payload["client_id"])
}

func TestMatchHandler_ValidationErrors(t *testing.T) {
	handler := NewMatchHandler(&fakeMatchService{err: fmt.Errorf("%w: state (required)", models.ErrInvalidClientProfile)}, nil)

	resp, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Path: "/match", Body: `{"full_name":"x"}`})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = handler.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Path: "/match", Body: `not json`})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = handler.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/match"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMatchHandler_InternalError(t *testing.T) {
	handler := NewMatchHandler(&fakeMatchService{err: errors.New("connection reset")}, nil)

	resp, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Path: "/match", Body: intakeBody})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, resp.Body, "connection reset")
}

func TestMatchHandler_Batch(t *testing.T) {
	svc := &fakeMatchService{}
	handler := NewMatchHandler(svc, nil)

	resp, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/match/clients/",
		Body:       `{"client_ids":["c-1","c-2"]}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, [][]string{{"c-1", "c-2"}}, svc.batches)
	assert.Equal(t, "b-2", decodeBody(t, resp)["batch_id"])

	resp, err = handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/match/clients",
		Body:       `{"client_ids":[]}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type fakeUpserter struct {
	plans  []*models.InsurancePlan
	result *models.BulkUpsertResult
	err    error
}

func (f *fakeUpserter) BulkUpsert(ctx context.Context, plans []*models.InsurancePlan) (*models.BulkUpsertResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.plans = append(f.plans, plans...)
	if f.result != nil {
		return f.result, nil
	}
	return &models.BulkUpsertResult{UpsertedCount: len(plans)}, nil
}

type fakeStorage struct {
	files    map[string]string
	archived []string
}

func (f *fakeStorage) IsCatalogKey(key string) bool {
	return strings.HasPrefix(key, "catalog/") && strings.HasSuffix(key, ".csv")
}

func (f *fakeStorage) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	content, ok := f.files[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return []byte(content), nil
}

func (f *fakeStorage) ArchiveCatalog(ctx context.Context, key string) (string, error) {
	f.archived = append(f.archived, key)
	return s3service.ProcessedKey(key), nil
}

const catalogCSV = `company_name,product_name,product_price_monthly,available_states
Acme Health,Silver,100,CA;NY
Acme Health,,100,CA
Acme Health,Gold,abc,CA
Blue Shield,Bronze,80,TX`

func TestCatalogImportHandler_ImportCatalog(t *testing.T) {
	upserter := &fakeUpserter{}
	trigger := &fakeTrigger{}
	handler := NewCatalogImportHandler(upserter, nil, trigger)

	result, err := handler.ImportCatalog(context.Background(), []byte(catalogCSV), "upload.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Parsed)
	assert.Equal(t, 2, result.Upserted)
	assert.Equal(t, 2, result.Failed)
	assert.Len(t, result.Errors, 2)
	require.Len(t, upserter.plans, 2)
	assert.Equal(t, []string{"CA", "NY"}, upserter.plans[0].AvailableStates)

	require.Len(t, trigger.calls, 1)
	assert.Equal(t, n8n.WorkflowCatalog, trigger.calls[0].workflowType)
	assert.Equal(t, 2, trigger.calls[0].payload["upserted"])
}

func TestCatalogImportHandler_NoValidPlans(t *testing.T) {
	upserter := &fakeUpserter{}
	trigger := &fakeTrigger{}
	handler := NewCatalogImportHandler(upserter, nil, trigger)

	result, err := handler.ImportCatalog(context.Background(), []byte("company_name,product_name\n"), "empty.csv")
	require.NoError(t, err)
	assert.Equal(t, "No valid plans found in CSV", result.Message)
	assert.Empty(t, upserter.plans)
	assert.Empty(t, trigger.calls)
}

func TestCatalogImportHandler_UpsertError(t *testing.T) {
	handler := NewCatalogImportHandler(&fakeUpserter{err: errors.New("deadlock")}, nil, nil)

	_, err := handler.ImportCatalog(context.Background(), []byte(catalogCSV), "upload.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert plans")
}

func TestCatalogImportHandler_HandleS3Event(t *testing.T) {
	storage := &fakeStorage{files: map[string]string{"catalog/2026 plans.csv": catalogCSV}}
	upserter := &fakeUpserter{}
	handler := NewCatalogImportHandler(upserter, storage, nil)

	event := events.S3Event{Records: []events.S3EventRecord{
		{S3: events.S3Entity{Bucket: events.S3Bucket{Name: "catalog-bucket"}, Object: events.S3Object{Key: "catalog/2026+plans.csv"}}},
		{S3: events.S3Entity{Bucket: events.S3Bucket{Name: "catalog-bucket"}, Object: events.S3Object{Key: "processed/old.csv"}}},
	}}

	results, err := handler.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Len(t, results, 1, "non-catalog keys are skipped")
	assert.Equal(t, "catalog/2026 plans.csv", results[0].Source)
	assert.Equal(t, "processed/2026 plans.csv", results[0].Archived)
	assert.Equal(t, []string{"catalog/2026 plans.csv"}, storage.archived)
}

func TestCatalogImportHandler_HandleDownloadError(t *testing.T) {
	handler := NewCatalogImportHandler(&fakeUpserter{}, &fakeStorage{files: map[string]string{}}, nil)

	event := events.S3Event{Records: []events.S3EventRecord{
		{S3: events.S3Entity{Object: events.S3Object{Key: "catalog/missing.csv"}}},
	}}

	_, err := handler.Handle(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to download catalog")
}
