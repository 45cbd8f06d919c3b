package extractriskmetrics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"risk-analytics/internal/analytics/extraction"
	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/common/metrics"
	"risk-analytics/internal/common/observability"
	"risk-analytics/internal/models"
	"risk-analytics/internal/ports"
	"risk-analytics/internal/services/analytics"
)

const (
	TaskType = "extract-risk-metrics"
)

// MetricsBuilder is implemented by analytics.Service.
type MetricsBuilder interface {
	CompanyMetrics(rec models.PortfolioRecord) *analytics.CompanyRiskMetrics
}

// CacheInvalidator drops a user's cached analytics once a new analysis lands.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) (int, error)
}

type Handler struct {
	config       *Config
	repo         ports.PortfolioRepository
	builder      MetricsBuilder
	invalidator  CacheInvalidator
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

// NewHandler builds the extraction worker. invalidator may be nil.
func NewHandler(config *Config, repo ports.PortfolioRepository, builder MetricsBuilder, invalidator CacheInvalidator,
	obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		repo:         repo,
		builder:      builder,
		invalidator:  invalidator,
		errorHandler: errors.NewErrorHandler(log),
		obs:          obs,
		logger:       log,
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

	var rec models.PortfolioRecord
	switch {
	case len(input.RiskAnalysis) > 0:
		rec = models.PortfolioRecord{ID: input.CompanyID, RequestID: input.RequestID}
		rec.RiskAnalysis = extraction.ParseRiskRecord([]byte(input.RiskAnalysis)).Value
	case input.RequestID != "":
		if input.UserID == "" {
			return nil, errors.NewMissingData("userId")
		}
		loaded, err := h.repo.GetCompanyByRequestID(ctx, input.RequestID, input.UserID)
		if err != nil {
			return nil, err
		}
		rec = *loaded
	default:
		return nil, errors.NewMissingData("riskAnalysis")
	}

	if rec.RiskAnalysis == nil {
		return nil, errors.NewNoRiskAnalysisDataError("risk analysis is empty or not a JSON object")
	}

	m := h.builder.CompanyMetrics(rec)
	out := &Output{
		RiskMetrics: m,
		HealthScore: m.Health.Score,
		IssueCount:  len(m.Issues),
		ExtractedAt: time.Now().UTC(),
	}

	if h.invalidator != nil && input.UserID != "" {
		n, err := h.invalidator.InvalidateUser(ctx, input.UserID)
		if err != nil {
			h.logger.Warn("cache invalidation failed", map[string]interface{}{
				"userId": input.UserID,
				"error":  err.Error(),
			})
		}
		out.CacheEntriesCleared = n
	}
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
