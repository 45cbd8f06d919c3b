// Package api exposes the analytics service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/ports"
	"risk-analytics/internal/services/analytics"
)

const maxBodyBytes = 1 << 20

// AnalyticsService is implemented by analytics.Service.
type AnalyticsService interface {
	GetPortfolioAnalytics(ctx context.Context, userID string, req analytics.Request) (*analytics.Response, error)
	GetCompanyRiskMetrics(ctx context.Context, userID, requestID string) (*analytics.CompanyRiskMetrics, error)
}

// ReadinessCheck is a named dependency check for /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Config struct {
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	Version        string
}

type Server struct {
	service   AnalyticsService
	validator ports.TokenValidator
	checks    []ReadinessCheck
	config    Config
	logger    logger.Logger
}

// NewServer builds the HTTP server. A nil validator switches authentication
// to the X-User-ID header.
func NewServer(service AnalyticsService, validator ports.TokenValidator, checks []ReadinessCheck, cfg Config, log logger.Logger) *Server {
	return &Server{
		service:   service,
		validator: validator,
		checks:    checks,
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "http"}),
	}
}

// Routes mounts every endpoint.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrument(s.logger))

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	var limiter *rate.Limiter
	if s.config.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.config.RateLimitRPS), s.config.RateLimitBurst)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(limiter))
		r.Use(timeout(s.config.RequestTimeout))
		r.Use(authenticate(s.validator))

		r.Get("/portfolio/analytics", s.getPortfolioAnalytics)
		r.Post("/portfolio/analytics", s.postPortfolioAnalytics)
		r.Get("/companies/{requestId}/risk-metrics", s.getCompanyRiskMetrics)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.config.Version})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	result := map[string]string{}
	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			result[c.Name] = err.Error()
			continue
		}
		result[c.Name] = "ok"
	}
	writeJSON(w, status, map[string]interface{}{"ready": status == http.StatusOK, "checks": result})
}

func (s *Server) getPortfolioAnalytics(w http.ResponseWriter, r *http.Request) {
	req, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	s.servePortfolio(w, r, req)
}

func (s *Server) postPortfolioAnalytics(w http.ResponseWriter, r *http.Request) {
	var body analyticsBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil && err != io.EOF {
		writeError(w, errors.NewInvalidFilterFormatError("invalid JSON body: "+err.Error()))
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeError(w, err)
		return
	}
	s.servePortfolio(w, r, req)
}

func (s *Server) servePortfolio(w http.ResponseWriter, r *http.Request, req analytics.Request) {
	resp, err := s.service.GetPortfolioAnalytics(r.Context(), userIDFrom(r.Context()), req)
	if err != nil {
		s.logFailure(r, err)
		writeError(w, err)
		return
	}
	writeSuccess(w, resp.Data, resp.Metadata)
}

func (s *Server) getCompanyRiskMetrics(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")
	out, err := s.service.GetCompanyRiskMetrics(r.Context(), userIDFrom(r.Context()), requestID)
	if err != nil {
		s.logFailure(r, err)
		writeError(w, err)
		return
	}
	writeSuccess(w, out, map[string]interface{}{
		"request_id":   requestID,
		"generated_at": time.Now().UTC(),
	})
}

func (s *Server) logFailure(r *http.Request, err error) {
	stdErr := errors.AsStandardError(err)
	fields := map[string]interface{}{
		"path":      r.URL.Path,
		"userId":    userIDFrom(r.Context()),
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	}
	if errors.HTTPStatus(stdErr.Code) >= http.StatusInternalServerError {
		s.logger.Error("analytics request failed", fields)
		return
	}
	s.logger.Warn("analytics request rejected", fields)
}
