// Package ses provides email notification services via AWS SES
package ses

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	appConfig "plan-eligibility-engine/internal/config"
	"plan-eligibility-engine/internal/models"
	"plan-eligibility-engine/internal/utils"
)

// EmailAPI is the subset of the SES client the service uses.
type EmailAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	VerifyEmailAddress(ctx context.Context, params *ses.VerifyEmailAddressInput, optFns ...func(*ses.Options)) (*ses.VerifyEmailAddressOutput, error)
	GetSendQuota(ctx context.Context, params *ses.GetSendQuotaInput, optFns ...func(*ses.Options)) (*ses.GetSendQuotaOutput, error)
}

// Service handles SES email operations
type Service struct {
	client    EmailAPI
	fromEmail string
	logger    *zap.Logger
}

// EmailParams represents parameters for sending an email
type EmailParams struct {
	To        string
	Subject   string
	HTMLBody  string
	TextBody  string
	ReplyTo   string
	CC        []string
	BCC       []string
	ConfigSet string
}

// MatchNotificationParams contains data for match notification email
type MatchNotificationParams struct {
	ClientName   string
	ClientEmail  string
	MatchCount   int
	Plans        []PlanInfo
	DashboardURL string
}

// PlanInfo contains info about a single eligible plan for email
type PlanInfo struct {
	CompanyName  string
	ProductName  string
	Category     string
	MonthlyPrice float64
}

// SendEmailResult contains the result of sending an email
type SendEmailResult struct {
	MessageID string
	SentAt    time.Time
}

// NewService creates a new SES service
func NewService(ctx context.Context, appCfg *appConfig.Config) (*Service, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(appCfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(ses.NewFromConfig(cfg), appCfg.SESSenderEmail), nil
}

// NewWithClient creates a service over an explicit SES client.
func NewWithClient(client EmailAPI, fromEmail string) *Service {
	return &Service{
		client:    client,
		fromEmail: fromEmail,
		logger:    utils.Component("ses"),
	}
}

// SendEmail sends a basic email
func (s *Service) SendEmail(ctx context.Context, params EmailParams) (*SendEmailResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{params.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(params.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}

	if params.HTMLBody != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(params.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.TextBody != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(params.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if len(params.CC) > 0 {
		input.Destination.CcAddresses = params.CC
	}

	if len(params.BCC) > 0 {
		input.Destination.BccAddresses = params.BCC
	}

	if params.ReplyTo != "" {
		input.ReplyToAddresses = []string{params.ReplyTo}
	}

	if params.ConfigSet != "" {
		input.ConfigurationSetName = aws.String(params.ConfigSet)
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("Failed to send email",
			zap.String("to", params.To),
			zap.String("subject", params.Subject),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	s.logger.Info("Email sent successfully",
		zap.String("to", params.To),
		zap.String("subject", params.Subject),
		zap.String("messageId", messageID),
	)

	return &SendEmailResult{
		MessageID: messageID,
		SentAt:    time.Now(),
	}, nil
}

// SendMatchNotification emails a client the plans they are eligible for.
func (s *Service) SendMatchNotification(ctx context.Context, params MatchNotificationParams) (*SendEmailResult, error) {
	htmlBody, err := RenderMatchNotificationHTML(params)
	if err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	return s.SendEmail(ctx, EmailParams{
		To:       params.ClientEmail,
		Subject:  MatchNotificationSubject(params),
		HTMLBody: htmlBody,
		TextBody: RenderMatchNotificationText(params),
	})
}

// MatchNotificationSubject returns the subject line for a match notification.
func MatchNotificationSubject(params MatchNotificationParams) string {
	if params.MatchCount == 1 {
		return fmt.Sprintf("%s, you are eligible for 1 insurance plan", params.ClientName)
	}
	return fmt.Sprintf("%s, you are eligible for %d insurance plans", params.ClientName, params.MatchCount)
}

// BuildMatchNotificationParams creates notification params from one client's pending matches.
func BuildMatchNotificationParams(matches []*models.PlanMatchWithDetails, dashboardURL string) MatchNotificationParams {
	params := MatchNotificationParams{
		MatchCount:   len(matches),
		Plans:        make([]PlanInfo, 0, len(matches)),
		DashboardURL: dashboardURL,
	}

	for _, match := range matches {
		if params.ClientEmail == "" {
			params.ClientName = match.ClientName
			params.ClientEmail = match.ClientEmail
		}
		params.Plans = append(params.Plans, PlanInfo{
			CompanyName:  match.CompanyName,
			ProductName:  match.ProductName,
			Category:     match.ProductCategory,
			MonthlyPrice: match.ProductPriceMonthly,
		})
	}

	return params
}

var matchNotificationTemplate = template.Must(template.New("match_notification").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #1f6feb; color: white; padding: 30px; border-radius: 10px 10px 0 0; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
        .plan-card { background: white; border-radius: 8px; padding: 20px; margin: 15px 0; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .plan-card h3 { margin: 0 0 10px 0; color: #1f6feb; }
        .plan-card .company { color: #666; font-size: 14px; margin-bottom: 10px; }
        .plan-card .price { font-weight: bold; color: #333; }
        .cta-button { display: inline-block; background: #1f6feb; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px; font-weight: bold; margin-top: 20px; }
        .footer { text-align: center; margin-top: 30px; color: #999; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Your Eligible Insurance Plans</h1>
        <p>Hi {{.ClientName}}, you qualify for {{.MatchCount}} plan{{if ne .MatchCount 1}}s{{end}}</p>
    </div>
    <div class="content">
        <p>Based on the profile you submitted, these plans accept applicants like you:</p>
        {{range .Plans}}
        <div class="plan-card">
            <h3>{{.ProductName}}</h3>
            <p class="company">{{.CompanyName}}{{if .Category}} &middot; {{.Category}}{{end}}</p>
            <p class="price">${{printf "%.2f" .MonthlyPrice}} / month</p>
        </div>
        {{end}}
        {{if .DashboardURL}}
        <div style="text-align: center;">
            <a href="{{.DashboardURL}}" class="cta-button">Review Your Plans</a>
        </div>
        {{end}}
    </div>
    <div class="footer">
        <p>This email was sent by Plan Eligibility Engine</p>
        <p>You received this because you submitted an intake form for plan matching.</p>
    </div>
</body>
</html>`))

// RenderMatchNotificationHTML renders the HTML email body.
func RenderMatchNotificationHTML(params MatchNotificationParams) (string, error) {
	var buf bytes.Buffer
	if err := matchNotificationTemplate.Execute(&buf, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderMatchNotificationText renders the plain text email body.
func RenderMatchNotificationText(params MatchNotificationParams) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Hi %s,\n\n", params.ClientName)
	fmt.Fprintf(&buf, "You are eligible for %d insurance plan(s):\n\n", params.MatchCount)

	for i, plan := range params.Plans {
		fmt.Fprintf(&buf, "%d. %s by %s\n", i+1, plan.ProductName, plan.CompanyName)
		if plan.Category != "" {
			fmt.Fprintf(&buf, "   Category: %s\n", plan.Category)
		}
		fmt.Fprintf(&buf, "   Monthly Price: $%.2f\n\n", plan.MonthlyPrice)
	}

	if params.DashboardURL != "" {
		fmt.Fprintf(&buf, "Review your plans: %s\n\n", params.DashboardURL)
	}

	buf.WriteString("Best regards,\nPlan Eligibility Engine Team\n")

	return buf.String()
}

// VerifyEmailAddress verifies an email address for sending
func (s *Service) VerifyEmailAddress(ctx context.Context, email string) error {
	input := &ses.VerifyEmailAddressInput{
		EmailAddress: aws.String(email),
	}

	if _, err := s.client.VerifyEmailAddress(ctx, input); err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}

	s.logger.Info("Email verification initiated", zap.String("email", email))
	return nil
}

// GetSendQuota returns the current SES sending quota
func (s *Service) GetSendQuota(ctx context.Context) (*ses.GetSendQuotaOutput, error) {
	result, err := s.client.GetSendQuota(ctx, &ses.GetSendQuotaInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get send quota: %w", err)
	}
	return result, nil
}
