package calculateportfolioanalytics

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/common/metrics"
	"risk-analytics/internal/common/observability"
	"risk-analytics/internal/models"
	"risk-analytics/internal/services/analytics"
)

const (
	TaskType = "calculate-portfolio-analytics"
)

// PortfolioAnalyzer is implemented by analytics.Service.
type PortfolioAnalyzer interface {
	GetPortfolioAnalytics(ctx context.Context, userID string, req analytics.Request) (*analytics.Response, error)
}

type Handler struct {
	config       *Config
	analyzer     PortfolioAnalyzer
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(config *Config, analyzer PortfolioAnalyzer, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		analyzer:     analyzer,
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
	if strings.TrimSpace(input.UserID) == "" {
		return nil, errors.NewMissingData("userId")
	}

	resp, err := h.analyzer.GetPortfolioAnalytics(ctx, input.UserID, analytics.Request{
		Filters:                  input.Filters,
		Sort:                     models.SortOptions{Field: models.SortByCompletedAt, Descending: true},
		Pagination:               models.Pagination{Page: input.Page, Limit: input.Limit},
		IncludeValidation:        input.IncludeValidation,
		IncludeParameterAnalysis: input.IncludeParameterAnalysis,
		IncludeCoverageTrends:    input.IncludeCoverageTrends,
		CalculateDrift:           input.CalculateDrift,
		BenchmarkComparison:      input.BenchmarkComparison,
		BenchmarkMetric:          input.BenchmarkMetric,
	})
	if err != nil {
		return nil, err
	}

	out := &Output{
		TotalCompanies:     resp.Data.Summary.TotalCompanies,
		AverageCoverage:    resp.Data.Summary.AverageCoverage,
		ConcentrationLevel: string(resp.Data.ConcentrationRisk.ConcentrationLevel),
		Analytics:          resp.Data,
		Metadata:           resp.Metadata,
		CalculatedAt:       time.Now().UTC(),
	}
	if resp.Data.CoverageDrift != nil {
		out.DriftSeverity = string(resp.Data.CoverageDrift.Severity)
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
