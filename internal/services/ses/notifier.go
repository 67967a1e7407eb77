package ses

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"plan-eligibility-engine/internal/models"
	"plan-eligibility-engine/internal/utils"
)

// PendingMatchStore reads unsent matches and records delivery.
type PendingMatchStore interface {
	GetPendingNotifications(ctx context.Context, batchID string) ([]*models.PlanMatchWithDetails, error)
	MarkAsNotified(ctx context.Context, matchID string) error
}

// MatchSender sends one client's match notification.
type MatchSender interface {
	SendMatchNotification(ctx context.Context, params MatchNotificationParams) (*SendEmailResult, error)
}

// NotifyResult summarizes a notification run.
type NotifyResult struct {
	ClientsNotified int      `json:"clients_notified"`
	MatchesNotified int      `json:"matches_notified"`
	Skipped         int      `json:"skipped"`
	Errors          []string `json:"errors,omitempty"`
}

// Notifier emails clients their pending matches, one email per client.
type Notifier struct {
	matches      PendingMatchStore
	sender       MatchSender
	dashboardURL string
	logger       *zap.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(matches PendingMatchStore, sender MatchSender, dashboardURL string) *Notifier {
	return &Notifier{
		matches:      matches,
		sender:       sender,
		dashboardURL: dashboardURL,
		logger:       utils.Component("notifier"),
	}
}

// NotifyPending sends every pending match, optionally limited to one batch.
// A failed send is recorded and the remaining clients are still processed.
func (n *Notifier) NotifyPending(ctx context.Context, batchID string) (*NotifyResult, error) {
	pending, err := n.matches.GetPendingNotifications(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending notifications: %w", err)
	}

	result := &NotifyResult{}
	for _, group := range groupByClient(pending) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		params := BuildMatchNotificationParams(group, n.dashboardURL)
		if params.ClientEmail == "" {
			result.Skipped++
			continue
		}

		if _, err := n.sender.SendMatchNotification(ctx, params); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to send to %s: %v", params.ClientEmail, err))
			continue
		}

		for _, match := range group {
			if err := n.matches.MarkAsNotified(ctx, match.ID); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("failed to mark match %s: %v", match.ID, err))
				continue
			}
			result.MatchesNotified++
		}
		result.ClientsNotified++
	}

	n.logger.Info("Batch notifications sent",
		zap.Int("pending", len(pending)),
		zap.Int("clients_notified", result.ClientsNotified),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Errors)),
	)

	return result, nil
}

// groupByClient groups matches by client, keeping first-seen client order.
func groupByClient(matches []*models.PlanMatchWithDetails) [][]*models.PlanMatchWithDetails {
	index := make(map[string]int)
	var groups [][]*models.PlanMatchWithDetails
	for _, match := range matches {
		i, ok := index[match.ClientID]
		if !ok {
			i = len(groups)
			index[match.ClientID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], match)
	}
	return groups
}
