package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	s3service "plan-eligibility-engine/internal/services/s3"
	"plan-eligibility-engine/internal/utils"
)

// uploadURLExpiryMinutes is how long a catalog upload URL stays valid.
const uploadURLExpiryMinutes = 60

// CatalogUploader issues presigned catalog upload URLs.
type CatalogUploader interface {
	CatalogKey(fileName string) string
	GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, expiryMinutes int) (*s3service.PresignedURLResult, error)
}

// PresignedURLHandler handles requests for presigned catalog upload URLs.
type PresignedURLHandler struct {
	uploader CatalogUploader
}

// NewPresignedURLHandler creates a new presigned URL handler.
func NewPresignedURLHandler(uploader CatalogUploader) *PresignedURLHandler {
	return &PresignedURLHandler{uploader: uploader}
}

// PresignedURLResponse is the response structure for presigned URL requests.
type PresignedURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	S3Key     string `json:"s3Key"`
	ExpiresIn int    `json:"expiresIn"`
}

// Handle processes the API Gateway request for generating presigned URLs.
func (h *PresignedURLHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := utils.GetLogger()
	headers := corsHeaders(http.MethodGet)

	if isPreflight(request) {
		return preflightResponse(headers)
	}

	filename := request.QueryStringParameters["filename"]
	if filename == "" {
		filename = "catalog.csv"
	}

	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return errorResponse(headers, http.StatusBadRequest, "Only CSV files are allowed")
	}

	key := h.uploader.CatalogKey(sanitizeFilename(filename))

	result, err := h.uploader.GeneratePresignedUploadURL(ctx, key, "text/csv", uploadURLExpiryMinutes)
	if err != nil {
		logger.Error("Failed to generate presigned URL", zap.Error(err))
		return errorResponse(headers, http.StatusInternalServerError, "Failed to generate upload URL")
	}

	return jsonResponse(headers, http.StatusOK, PresignedURLResponse{
		UploadURL: result.URL,
		S3Key:     result.Key,
		ExpiresIn: uploadURLExpiryMinutes * 60,
	})
}

// sanitizeFilename removes unsafe characters from filename.
func sanitizeFilename(filename string) string {
	var safe strings.Builder
	for _, r := range filename {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			safe.WriteRune(r)
		}
	}
	s := safe.String()
	if len(s) > 100 {
		s = s[len(s)-100:]
	}
	return s
}
