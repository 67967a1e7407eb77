package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"plan-eligibility-engine/internal/services/n8n"
	"plan-eligibility-engine/internal/utils"
)

// WorkflowTrigger starts an n8n workflow.
type WorkflowTrigger interface {
	Trigger(ctx context.Context, workflowType, source string, payload map[string]any) (any, error)
}

// WebhookTriggerHandler handles requests to trigger n8n webhooks.
type WebhookTriggerHandler struct {
	trigger WorkflowTrigger
}

// NewWebhookTriggerHandler creates a new webhook trigger handler.
func NewWebhookTriggerHandler(trigger WorkflowTrigger) *WebhookTriggerHandler {
	return &WebhookTriggerHandler{trigger: trigger}
}

// TriggerRequest is the request body for triggering a webhook.
type TriggerRequest struct {
	WorkflowType string         `json:"workflow_type"`
	BatchID      string         `json:"batch_id,omitempty"`
	ClientID     string         `json:"client_id,omitempty"`
	ExtraParams  map[string]any `json:"extra_params,omitempty"`
}

// TriggerResponse is the response for a webhook trigger request.
type TriggerResponse struct {
	Message         string `json:"message"`
	WorkflowType    string `json:"workflow_type"`
	BatchID         string `json:"batch_id,omitempty"`
	WebhookResponse any    `json:"webhook_response,omitempty"`
}

// validWorkflowTypes lists the workflow types a caller may trigger.
var validWorkflowTypes = map[string]bool{
	n8n.WorkflowIntake:       true,
	n8n.WorkflowNotification: true,
	n8n.WorkflowCatalog:      true,
}

// Handle processes API Gateway requests to trigger webhooks.
func (h *WebhookTriggerHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := utils.GetLogger()
	headers := corsHeaders(http.MethodPost)

	if isPreflight(request) {
		return preflightResponse(headers)
	}

	var req TriggerRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(headers, http.StatusBadRequest, "Invalid JSON in request body")
	}

	if req.WorkflowType == "" {
		req.WorkflowType = n8n.WorkflowIntake
	}
	if !validWorkflowTypes[req.WorkflowType] {
		return errorResponse(headers, http.StatusBadRequest, fmt.Sprintf("Unknown workflow type: %s", req.WorkflowType))
	}

	payload := make(map[string]any, len(req.ExtraParams)+2)
	for k, v := range req.ExtraParams {
		payload[k] = v
	}
	if req.BatchID != "" {
		payload["batch_id"] = req.BatchID
	}
	if req.ClientID != "" {
		payload["client_id"] = req.ClientID
	}

	webhookResp, err := h.trigger.Trigger(ctx, req.WorkflowType, "lambda_trigger", payload)
	if err != nil {
		logger.Error("Failed to trigger webhook",
			zap.String("workflow_type", req.WorkflowType),
			zap.Error(err),
		)
		if errors.Is(err, n8n.ErrWebhookNotConfigured) {
			return errorResponse(headers, http.StatusServiceUnavailable, err.Error())
		}
		return errorResponse(headers, http.StatusBadGateway, fmt.Sprintf("Failed to trigger workflow: %v", err))
	}

	logger.Info("Successfully triggered webhook",
		zap.String("workflow_type", req.WorkflowType),
		zap.String("batch_id", req.BatchID),
	)

	return jsonResponse(headers, http.StatusOK, TriggerResponse{
		Message:         fmt.Sprintf("Successfully triggered %s workflow", req.WorkflowType),
		WorkflowType:    req.WorkflowType,
		BatchID:         req.BatchID,
		WebhookResponse: webhookResp,
	})
}
