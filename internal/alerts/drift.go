// Package alerts publishes coverage drift notifications over SNS and SES.
package alerts

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"risk-analytics/internal/analytics/coverage"
	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/models"
)

// TopicPublisher is satisfied by aws.SNSClient.
type TopicPublisher interface {
	Publish(ctx context.Context, topicARN, subject, message string, attrs map[string]string) (string, error)
}

// EmailSender is satisfied by aws.SESClient.
type EmailSender interface {
	SendTextEmail(ctx context.Context, from string, to []string, subject, body string) (string, error)
}

// Config selects the delivery channels. A channel with a nil client or an
// empty destination is skipped.
type Config struct {
	TopicARN   string
	FromEmail  string
	Recipients []string
}

type Notifier struct {
	sns    TopicPublisher
	ses    EmailSender
	config Config
	logger logger.Logger
}

func NewNotifier(sns TopicPublisher, ses EmailSender, cfg Config, log logger.Logger) *Notifier {
	return &Notifier{
		sns:    sns,
		ses:    ses,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "drift-notifier"}),
	}
}

var severityRank = map[coverage.DriftSeverity]int{
	coverage.DriftLow:    1,
	coverage.DriftMedium: 2,
	coverage.DriftHigh:   3,
}

// ShouldAlert reports whether report warrants an alert at threshold.
func ShouldAlert(report coverage.DriftReport, threshold coverage.DriftSeverity) bool {
	if report.InsufficientData {
		return false
	}
	min, ok := severityRank[threshold]
	if !ok {
		min = severityRank[coverage.DriftHigh]
	}
	return severityRank[report.Severity] >= min
}

// NewDriftAlert builds the alert payload for report.
func NewDriftAlert(userID, modelType string, report coverage.DriftReport, now time.Time) models.DriftAlert {
	return models.DriftAlert{
		AlertID:          uuid.NewString(),
		UserID:           userID,
		ModelType:        modelType,
		Severity:         string(report.Severity),
		BaselineCoverage: report.Baseline.Coverage,
		CurrentCoverage:  report.Current.Coverage,
		CoverageDelta:    report.CoverageDelta,
		RiskScoreDelta:   report.RiskScoreDelta,
		CompanyCount:     report.Baseline.Size + report.Current.Size,
		DetectedAt:       now.UTC(),
	}
}

func subject(a models.DriftAlert) string {
	model := a.ModelType
	if model == "" {
		model = "all models"
	}
	return fmt.Sprintf("[%s] Coverage drift detected for %s", a.Severity, model)
}

func body(a models.DriftAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Alert ID: %s\n", a.AlertID)
	fmt.Fprintf(&b, "Detected at: %s\n", a.DetectedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Severity: %s\n", a.Severity)
	fmt.Fprintf(&b, "Companies analysed: %d\n", a.CompanyCount)
	fmt.Fprintf(&b, "Baseline coverage: %.2f%%\n", a.BaselineCoverage)
	fmt.Fprintf(&b, "Current coverage: %.2f%%\n", a.CurrentCoverage)
	fmt.Fprintf(&b, "Coverage delta: %+.2f points\n", a.CoverageDelta)
	if a.RiskScoreDelta != nil {
		fmt.Fprintf(&b, "Mean risk score delta: %+.2f\n", *a.RiskScoreDelta)
	}
	return b.String()
}

// NotifyDrift sends the alert over every configured channel. Delivery continues past
// a failed channel; the failures are returned together.
func (n *Notifier) NotifyDrift(ctx context.Context, a models.DriftAlert) error {
	subj, text := subject(a), body(a)
	var errs []error

	if n.sns != nil && n.config.TopicARN != "" {
		attrs := map[string]string{"severity": a.Severity, "alertId": a.AlertID}
		if a.ModelType != "" {
			attrs["modelType"] = a.ModelType
		}
		msgID, err := n.sns.Publish(ctx, n.config.TopicARN, subj, text, attrs)
		if err != nil {
			errs = append(errs, errors.NewNotificationSendFailedError("sns", err))
		} else {
			n.logger.Info("drift alert published", map[string]interface{}{
				"alertId": a.AlertID, "channel": "sns", "messageId": msgID,
			})
		}
	}

	if n.ses != nil && n.config.FromEmail != "" && len(n.config.Recipients) > 0 {
		msgID, err := n.ses.SendTextEmail(ctx, n.config.FromEmail, n.config.Recipients, subj, text)
		if err != nil {
			errs = append(errs, errors.NewNotificationSendFailedError("ses", err))
		} else {
			n.logger.Info("drift alert published", map[string]interface{}{
				"alertId": a.AlertID, "channel": "ses", "messageId": msgID,
			})
		}
	}

	if len(errs) == 1 {
		return errs[0]
	}
	return stderrors.Join(errs...)
}
