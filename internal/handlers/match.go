package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"plan-eligibility-engine/internal/models"
	"plan-eligibility-engine/internal/services/matcher"
	"plan-eligibility-engine/internal/services/n8n"
	"plan-eligibility-engine/internal/utils"
)

// maxBatchClients caps the client IDs accepted by one batch request.
const maxBatchClients = 1000

// MatchService matches client profiles against the plan catalog.
type MatchService interface {
	MatchProfile(ctx context.Context, client *models.ClientProfile) (*matcher.MatchingResult, error)
	MatchAndSave(ctx context.Context, client *models.ClientProfile) (*matcher.MatchingResult, error)
	ProcessClients(ctx context.Context, clientIDs []string) (*matcher.BatchResult, error)
}

// MatchHandler handles intake submissions and batch re-matching.
type MatchHandler struct {
	matcher MatchService
	trigger WorkflowTrigger
}

// NewMatchHandler creates a match handler. trigger may be nil.
func NewMatchHandler(svc MatchService, trigger WorkflowTrigger) *MatchHandler {
	return &MatchHandler{matcher: svc, trigger: trigger}
}

// BatchMatchRequest is the request body for re-matching stored clients.
type BatchMatchRequest struct {
	ClientIDs []string `json:"client_ids"`
}

// Handle routes POST /match and POST /match/clients.
func (h *MatchHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders(http.MethodPost)

	if isPreflight(request) {
		return preflightResponse(headers)
	}
	if request.HTTPMethod != http.MethodPost {
		return errorResponse(headers, http.StatusMethodNotAllowed, "Only POST is supported")
	}

	if strings.HasSuffix(strings.TrimSuffix(request.Path, "/"), "/clients") {
		return h.handleBatch(ctx, headers, request.Body)
	}

	save, _ := strconv.ParseBool(request.QueryStringParameters["save"])
	return h.handleProfile(ctx, headers, request.Body, save)
}

// MatchProfile decodes an intake body and matches it, persisting when save is set.
// The returned error is a validation error when the body was unusable.
func (h *MatchHandler) MatchProfile(ctx context.Context, body []byte, save bool) (*matcher.MatchingResult, error) {
	var client models.ClientProfile
	if err := json.Unmarshal(body, &client); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidClientProfile, err)
	}

	if !save {
		return h.matcher.MatchProfile(ctx, &client)
	}

	result, err := h.matcher.MatchAndSave(ctx, &client)
	if err != nil {
		return nil, err
	}

	if h.trigger != nil {
		_, err := h.trigger.Trigger(ctx, n8n.WorkflowIntake, "intake_form", map[string]any{
			"client_id":      result.ClientID,
			"batch_id":       result.BatchID,
			"eligible_plans": len(result.Eligible),
		})
		if err != nil && !errors.Is(err, n8n.ErrWebhookNotConfigured) {
			utils.GetLogger().Warn("Failed to trigger intake workflow", zap.Error(err))
		}
	}

	return result, nil
}

func (h *MatchHandler) handleProfile(ctx context.Context, headers map[string]string, body string, save bool) (events.APIGatewayProxyResponse, error) {
	result, err := h.MatchProfile(ctx, []byte(body), save)
	if err != nil {
		if models.IsValidationError(err) {
			return errorResponse(headers, http.StatusBadRequest, err.Error())
		}
		utils.GetLogger().Error("Failed to match profile", zap.Error(err))
		return errorResponse(headers, http.StatusInternalServerError, "Failed to match profile")
	}

	return jsonResponse(headers, http.StatusOK, result)
}

func (h *MatchHandler) handleBatch(ctx context.Context, headers map[string]string, body string) (events.APIGatewayProxyResponse, error) {
	var req BatchMatchRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errorResponse(headers, http.StatusBadRequest, "Invalid JSON in request body")
	}
	if len(req.ClientIDs) == 0 {
		return errorResponse(headers, http.StatusBadRequest, "Missing required field: client_ids")
	}
	if len(req.ClientIDs) > maxBatchClients {
		return errorResponse(headers, http.StatusBadRequest, "Too many client_ids")
	}

	result, err := h.matcher.ProcessClients(ctx, req.ClientIDs)
	if err != nil {
		utils.GetLogger().Error("Failed to process clients", zap.Error(err))
		return errorResponse(headers, http.StatusInternalServerError, "Failed to process clients")
	}

	return jsonResponse(headers, http.StatusOK, result)
}
