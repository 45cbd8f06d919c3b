// Package analytics orchestrates portfolio analytics requests: cache lookup,
// repository load, core aggregation, peer benchmarks and drift alerts.
package analytics

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"risk-analytics/internal/alerts"
	"risk-analytics/internal/analytics/compliance"
	"risk-analytics/internal/analytics/coverage"
	"risk-analytics/internal/analytics/extraction"
	"risk-analytics/internal/analytics/health"
	"risk-analytics/internal/analytics/portfolio"
	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/common/metrics"
	"risk-analytics/internal/common/observability"
	"risk-analytics/internal/models"
	"risk-analytics/internal/ports"
	"risk-analytics/internal/repository/cache"
)

const (
	peerSourceSearch    = "search"
	peerSourcePortfolio = "portfolio"
	maxPeerLookups      = 4
)

// Options carries the analytics section of the configuration.
type Options struct {
	CacheTTL           time.Duration
	DefaultPageSize    int
	MaxPageSize        int
	Folds              int
	HoldoutRatio       float64
	HoldoutSeed        int64
	PeerLimit          int
	DriftAlertSeverity coverage.DriftSeverity
	// DriftAlertCooldown suppresses repeat alerts for the same user and
	// model type.
	DriftAlertCooldown time.Duration
}

func (o Options) withDefaults() Options {
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = 100
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = 1000
	}
	if o.Folds <= 0 {
		o.Folds = coverage.DefaultFolds
	}
	if o.HoldoutRatio <= 0 || o.HoldoutRatio >= 1 {
		o.HoldoutRatio = coverage.DefaultHoldoutRatio
	}
	if o.PeerLimit <= 0 {
		o.PeerLimit = 200
	}
	if o.DriftAlertSeverity == "" {
		o.DriftAlertSeverity = coverage.DriftHigh
	}
	if o.DriftAlertCooldown <= 0 {
		o.DriftAlertCooldown = time.Hour
	}
	return o
}

// Dependencies groups the collaborators. Cache, Peers, Notifier and
// Observability are optional.
type Dependencies struct {
	Repository    ports.PortfolioRepository
	Cache         ports.AnalyticsCache
	Peers         ports.PeerSearcher
	Notifier      ports.DriftNotifier
	Extractor     *extraction.Extractor
	Observability *observability.Observability
	Logger        logger.Logger
}

type Service struct {
	repo      ports.PortfolioRepository
	cache     ports.AnalyticsCache
	peers     ports.PeerSearcher
	notifier  ports.DriftNotifier
	extractor *extraction.Extractor
	obs       *observability.Observability
	logger    logger.Logger
	opts      Options
	now       func() time.Time

	alertMu    sync.Mutex
	alertUntil map[string]time.Time
}

func NewService(deps Dependencies, opts Options) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	ext := deps.Extractor
	if ext == nil {
		ext = extraction.NewExtractor(nil, log)
	}
	return &Service{
		repo:       deps.Repository,
		cache:      deps.Cache,
		peers:      deps.Peers,
		notifier:   deps.Notifier,
		extractor:  ext,
		obs:        deps.Observability,
		logger:     log.WithFields(map[string]interface{}{"component": "analytics-service"}),
		opts:       opts.withDefaults(),
		now:        time.Now,
		alertUntil: map[string]time.Time{},
	}
}

// Normalize clamps pagination and rejects an inverted date range.
func (s *Service) Normalize(req Request) (Request, error) {
	if req.Pagination.Page < 1 {
		req.Pagination.Page = 1
	}
	if req.Pagination.Limit <= 0 {
		req.Pagination.Limit = s.opts.DefaultPageSize
	}
	if req.Pagination.Limit > s.opts.MaxPageSize {
		req.Pagination.Limit = s.opts.MaxPageSize
	}
	f := req.Filters
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return req, errors.NewInvalidFilterFormatError("date_from must not be after date_to")
	}
	if f.DateFrom != nil && f.DateBefore != nil && !f.DateFrom.Before(*f.DateBefore) {
		return req, errors.NewInvalidFilterFormatError("date_from must not be after date_to")
	}
	if req.BenchmarkComparison && req.BenchmarkMetric == "" {
		req.BenchmarkMetric = portfolio.MetricRiskScore
	}
	return req, nil
}

// GetPortfolioAnalytics serves one analytics request for userID.
func (s *Service) GetPortfolioAnalytics(ctx context.Context, userID string, req Request) (*Response, error) {
	start := s.now()
	req, err := s.Normalize(req)
	if err != nil {
		return nil, err
	}

	key, keyErr := cache.Key("portfolio", userID, req)
	if keyErr == nil {
		var cached Response
		if s.cacheGet(ctx, key, &cached) {
			cached.Metadata.Cached = true
			cached.Metadata.RequestID = uuid.NewString()
			return &cached, nil
		}
	}

	overview, err := s.repo.GetPortfolioOverview(ctx, req.Filters, req.Sort, req.Pagination, userID)
	if err != nil {
		return nil, err
	}
	records := overview.Companies
	if len(records) == 0 {
		return nil, errors.NewNoMatchingCompaniesError("no companies match the given filters")
	}
	if !anyGraded(records) {
		return nil, errors.NewNoRiskAnalysisDataError("none of the matching companies has a completed risk analysis")
	}
	metrics.PortfolioSize.Observe(float64(len(records)))

	issueCount := s.recordExtractionIssues(records)

	data := Compute(s.extractor.Registry(), records, overview.TotalCount, ComputeOptions{
		IncludeValidation:        req.IncludeValidation,
		IncludeParameterAnalysis: req.IncludeParameterAnalysis,
		IncludeCoverageTrends:    req.IncludeCoverageTrends,
		CalculateDrift:           req.CalculateDrift,
		Folds:                    s.opts.Folds,
		HoldoutRatio:             s.opts.HoldoutRatio,
		HoldoutSeed:              s.opts.HoldoutSeed,
	})
	s.obs.RecordCoverage(ctx, modelLabel(req.Filters.ModelTypes), data.ModelPerformance.AverageCoverage)

	meta := Metadata{
		RequestID:        uuid.NewString(),
		Page:             req.Pagination.Page,
		Limit:            req.Pagination.Limit,
		TotalCount:       overview.TotalCount,
		ReturnedCount:    len(records),
		ExtractionIssues: issueCount,
	}

	if req.BenchmarkComparison {
		peers, source := s.collectPeers(ctx, records)
		data.Benchmarks = portfolio.CalculateBenchmarks(records, peers, req.BenchmarkMetric)
		meta.PeerSource = source
	}

	if data.CoverageDrift != nil {
		meta.DriftAlertID = s.maybeAlert(ctx, userID, modelLabel(req.Filters.ModelTypes), *data.CoverageDrift)
	}

	meta.GeneratedAt = s.now().UTC()
	meta.ProcessingTimeMs = s.now().Sub(start).Milliseconds()
	resp := &Response{Data: data, Metadata: meta}

	if keyErr == nil {
		s.cacheSet(ctx, key, resp)
	}
	return resp, nil
}

// GetCompanyRiskMetrics extracts region, financials, health and compliance
// for one completed analysis.
func (s *Service) GetCompanyRiskMetrics(ctx context.Context, userID, requestID string) (*CompanyRiskMetrics, error) {
	key, keyErr := cache.Key("company", userID, requestID)
	if keyErr == nil {
		var cached CompanyRiskMetrics
		if s.cacheGet(ctx, key, &cached) {
			return &cached, nil
		}
	}

	rec, err := s.repo.GetCompanyByRequestID(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}
	if rec.RiskAnalysis == nil {
		return nil, errors.NewNoRiskAnalysisDataError("request " + requestID + " has no risk analysis")
	}

	out := s.CompanyMetrics(*rec)
	if keyErr == nil {
		s.cacheSet(ctx, key, out)
	}
	return out, nil
}

// CompanyMetrics derives the drill-down for a loaded record.
func (s *Service) CompanyMetrics(rec models.PortfolioRecord) *CompanyRiskMetrics {
	ext := s.extractor.Extract(rec.ID, rec.RiskAnalysis)
	countIssues(ext.Issues)

	out := &CompanyRiskMetrics{
		CompanyID:   rec.ID,
		RequestID:   rec.RequestID,
		CompanyName: rec.CompanyName,
		Industry:    rec.Industry,
		ModelType:   rec.ModelType,
		RiskScore:   rec.RiskScore,
		RiskGrade:   rec.RiskGrade,
		Coverage:    coverage.Coverage([]models.PortfolioRecord{rec}),
		Region:      ext.Region,
		Financials:  ext.Financials,
		Health:      health.ComputeHealthScore(ext.Financials),
		Compliance:  compliance.Classify(s.extractor.Registry(), ext.Record),
		Exposure:    portfolio.ExposureOf(rec),
		Issues:      ext.Issues,
		CompletedAt: rec.CompletedAt,
	}
	if out.Issues == nil {
		out.Issues = []extraction.Issue{}
	}
	return out
}

func anyGraded(records []models.PortfolioRecord) bool {
	for _, r := range records {
		if r.RiskAnalysis != nil {
			return true
		}
	}
	return false
}

func modelLabel(modelTypes []string) string {
	if len(modelTypes) == 1 {
		return modelTypes[0]
	}
	return "all"
}

func countIssues(issues []extraction.Issue) {
	for _, is := range issues {
		metrics.ExtractionIssues.WithLabelValues(string(is.Code)).Inc()
	}
}

// recordExtractionIssues runs the extractor over every graded record so each
// issue is logged and counted once per request.
func (s *Service) recordExtractionIssues(records []models.PortfolioRecord) int {
	total := 0
	for _, r := range records {
		if r.RiskAnalysis == nil {
			continue
		}
		ext := s.extractor.Extract(r.ID, r.RiskAnalysis)
		countIssues(ext.Issues)
		total += len(ext.Issues)
	}
	return total
}

func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		s.logger.Warn("cache lookup failed", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	case hit:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return true
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.opts.CacheTTL); err != nil {
		s.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// collectPeers fetches industry peers outside the page. Any failed lookup
// falls back to benchmarking within the page only.
func (s *Service) collectPeers(ctx context.Context, records []models.PortfolioRecord) ([]models.PortfolioRecord, string) {
	if s.peers == nil {
		return nil, peerSourcePortfolio
	}

	industries := map[string]string{}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
		if ind := strings.TrimSpace(r.Industry); ind != "" {
			industries[strings.ToLower(ind)] = ind
		}
	}
	keys := make([]string, 0, len(industries))
	for k := range industries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		mu     sync.Mutex
		peers  []models.PortfolioRecord
		failed bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPeerLookups)
	for _, k := range keys {
		industry := industries[k]
		g.Go(func() error {
			found, err := s.peers.FindPeers(gctx, industry, ids, s.opts.PeerLimit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = true
				s.logger.Warn("peer search failed", map[string]interface{}{"industry": industry, "error": err.Error()})
				return nil
			}
			peers = append(peers, found...)
			return nil
		})
	}
	_ = g.Wait()

	if failed {
		return nil, peerSourcePortfolio
	}
	return peers, peerSourceSearch
}

func (s *Service) maybeAlert(ctx context.Context, userID, modelType string, drift coverage.DriftReport) string {
	if s.notifier == nil || !alerts.ShouldAlert(drift, s.opts.DriftAlertSeverity) {
		return ""
	}
	key := cache.AlertKey(userID, modelType)
	if !s.claimAlert(ctx, key) {
		s.logger.Debug("drift alert suppressed", map[string]interface{}{
			"userId":    userID,
			"modelType": modelType,
		})
		return ""
	}
	alert := alerts.NewDriftAlert(userID, modelType, drift, s.now())
	if err := s.notifier.NotifyDrift(ctx, alert); err != nil {
		s.logger.Error("drift alert delivery failed", map[string]interface{}{
			"alertId": alert.AlertID,
			"error":   err.Error(),
		})
		s.releaseAlert(ctx, key)
		return ""
	}
	metrics.DriftAlerts.WithLabelValues(alert.Severity).Inc()
	return alert.AlertID
}

// claimAlert takes the cooldown slot for key. A shared cache gate is used
// when available; otherwise, or when it fails, slots are tracked in memory.
func (s *Service) claimAlert(ctx context.Context, key string) bool {
	if gate, ok := s.cache.(ports.AlertGate); ok {
		claimed, err := gate.Claim(ctx, key, s.opts.DriftAlertCooldown)
		if err == nil {
			return claimed
		}
		s.logger.Warn("alert gate unavailable", map[string]interface{}{"error": err.Error()})
	}

	s.alertMu.Lock()
	defer s.alertMu.Unlock()
	now := s.now()
	if until, ok := s.alertUntil[key]; ok && now.Before(until) {
		return false
	}
	for k, until := range s.alertUntil {
		if !now.Before(until) {
			delete(s.alertUntil, k)
		}
	}
	s.alertUntil[key] = now.Add(s.opts.DriftAlertCooldown)
	return true
}

func (s *Service) releaseAlert(ctx context.Context, key string) {
	if gate, ok := s.cache.(ports.AlertGate); ok {
		if err := gate.Release(ctx, key); err == nil {
			return
		}
	}
	s.alertMu.Lock()
	delete(s.alertUntil, key)
	s.alertMu.Unlock()
}
