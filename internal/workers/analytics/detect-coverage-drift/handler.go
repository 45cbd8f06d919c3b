package detectcoveragedrift

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"risk-analytics/internal/alerts"
	"risk-analytics/internal/analytics/coverage"
	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/common/metrics"
	"risk-analytics/internal/common/observability"
	"risk-analytics/internal/models"
	"risk-analytics/internal/ports"
)

const (
	TaskType = "detect-coverage-drift"
)

type Handler struct {
	config       *Config
	repo         ports.PortfolioRepository
	notifier     ports.DriftNotifier
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
	now          func() time.Time
}

// NewHandler builds the drift worker. A nil notifier disables alerting.
func NewHandler(config *Config, repo ports.PortfolioRepository, notifier ports.DriftNotifier, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		repo:         repo,
		notifier:     notifier,
		errorHandler: errors.NewErrorHandler(log),
		obs:          obs,
		logger:       log,
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewParseFailure("variables", err.Error()), start)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start))
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewMissingData("input")
	}
	if strings.TrimSpace(input.UserID) == "" {
		return nil, errors.NewMissingData("userId")
	}

	filters := models.PortfolioFilters{Industries: input.Industries}
	if input.ModelType != "" {
		filters.ModelTypes = []string{input.ModelType}
	}
	overview, err := h.repo.GetPortfolioOverview(ctx, filters,
		models.SortOptions{Field: models.SortByCompletedAt, Descending: true},
		models.Pagination{Page: 1, Limit: h.config.SampleSize},
		input.UserID)
	if err != nil {
		return nil, err
	}
	if len(overview.Companies) == 0 {
		return nil, errors.NewNoMatchingCompaniesError("user " + input.UserID)
	}

	report := coverage.CoverageDrift(overview.Companies)
	out := &Output{
		Drift:            report,
		Severity:         string(report.Severity),
		InsufficientData: report.InsufficientData,
		CompanyCount:     len(overview.Companies),
	}
	h.obs.RecordCoverage(ctx, input.ModelType, report.Current.Coverage)

	threshold := h.config.Threshold
	if input.Threshold != "" {
		threshold = coverage.DriftSeverity(input.Threshold)
	}
	if h.notifier == nil || !alerts.ShouldAlert(report, threshold) {
		return out, nil
	}

	alert := alerts.NewDriftAlert(input.UserID, input.ModelType, report, h.now())
	if err := h.notifier.NotifyDrift(ctx, alert); err != nil {
		return nil, err
	}
	metrics.DriftAlerts.WithLabelValues(alert.Severity).Inc()
	h.logger.Warn("coverage drift alert raised", map[string]interface{}{
		"alertId":       alert.AlertID,
		"severity":      alert.Severity,
		"coverageDelta": report.CoverageDelta,
	})
	out.AlertRaised = true
	out.AlertID = alert.AlertID
	return out, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	stdErr := errors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start))
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
