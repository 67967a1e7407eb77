// Package n8n triggers n8n workflows over their webhook URLs.
package n8n

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"plan-eligibility-engine/internal/config"
	"plan-eligibility-engine/internal/utils"
)

// Workflow types with a configurable webhook URL.
const (
	WorkflowIntake       = "intake"
	WorkflowNotification = "notification"
	WorkflowCatalog      = "catalog"
)

// ErrWebhookNotConfigured is returned when no URL is set for a workflow type.
var ErrWebhookNotConfigured = errors.New("webhook not configured")

// Client posts JSON payloads to n8n webhooks.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a webhook client with the default timeout.
func NewClient(cfg *config.Config) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: 30 * time.Second})
}

// NewClientWithHTTP creates a webhook client over an explicit HTTP client.
func NewClientWithHTTP(cfg *config.Config, httpClient *http.Client) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     utils.Component("n8n"),
	}
}

// Configured reports whether a workflow type resolves to a webhook URL.
func (c *Client) Configured(workflowType string) bool {
	return c.cfg.WebhookURL(workflowType) != ""
}

// Trigger posts payload to the webhook for workflowType. The workflow type,
// source and timestamp are added to the payload unless already present.
// The decoded JSON response is returned, or nil when the body is not JSON.
func (c *Client) Trigger(ctx context.Context, workflowType, source string, payload map[string]any) (any, error) {
	webhookURL := c.cfg.WebhookURL(workflowType)
	if webhookURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrWebhookNotConfigured, workflowType)
	}

	body := map[string]any{
		"workflow_type": workflowType,
		"source":        source,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range payload {
		body[k] = v
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	c.logger.Info("Triggered workflow",
		zap.String("workflow_type", workflowType),
		zap.String("source", source),
		zap.Int("status", resp.StatusCode),
	)

	var result any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, nil
	}
	return result, nil
}
