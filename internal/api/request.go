// internal/api/request.go
package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"risk-analytics/internal/analytics/portfolio"
	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/models"
	"risk-analytics/internal/services/analytics"
)

var validate = validator.New()

func init() {
	_ = validate.RegisterValidation("benchmark_metric", func(fl validator.FieldLevel) bool {
		return portfolio.IsBenchmarkMetric(fl.Field().String())
	})
	_ = validate.RegisterValidation("sort_field", func(fl validator.FieldLevel) bool {
		_, ok := sortFields[fl.Field().String()]
		return ok
	})
}

var sortFields = map[string]models.SortField{
	"completed_at": models.SortByCompletedAt,
	"risk_score":   models.SortByRiskScore,
	"company_name": models.SortByCompanyName,
}

const dateOnly = "2006-01-02"

func parseDate(field, s string) (*time.Time, error) {
	t, _, err := parseDateLayout(field, s)
	return t, err
}

func parseDateLayout(field, s string) (*time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, false, nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return &t, true, nil
	}
	return nil, false, errors.NewInvalidFilterFormatError(fmt.Sprintf("%s must be YYYY-MM-DD or RFC3339, got %q", field, s))
}

// applyDateTo sets the upper bound of f. A bare date covers the whole day:
// it becomes an exclusive bound at the next midnight. A timestamp is inclusive.
func applyDateTo(f *models.PortfolioFilters, field, s string) error {
	t, day, err := parseDateLayout(field, s)
	if err != nil || t == nil {
		return err
	}
	if day {
		next := t.AddDate(0, 0, 1)
		f.DateBefore = &next
		return nil
	}
	f.DateTo = t
	return nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.NewInvalidFilterFormatError(fmt.Sprintf("%s must be a non-negative integer, got %q", key, raw))
	}
	return v, nil
}

func parseBool(q url.Values, key string) (bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.NewInvalidFilterFormatError(fmt.Sprintf("%s must be a boolean, got %q", key, raw))
	}
	return v, nil
}

func parseSort(field, order string) (models.SortOptions, error) {
	if field == "" {
		return models.SortOptions{Field: models.SortByCompletedAt, Descending: true}, nil
	}
	f, ok := sortFields[field]
	if !ok {
		return models.SortOptions{}, errors.NewInvalidFilterFormatError(fmt.Sprintf("unsupported sort_by %q", field))
	}
	switch strings.ToLower(order) {
	case "", "desc":
		return models.SortOptions{Field: f, Descending: true}, nil
	case "asc":
		return models.SortOptions{Field: f}, nil
	}
	return models.SortOptions{}, errors.NewInvalidFilterFormatError(fmt.Sprintf("sort_order must be asc or desc, got %q", order))
}

// parseQuery builds a request from the GET query string.
func parseQuery(q url.Values) (analytics.Request, error) {
	var req analytics.Request
	var err error

	if req.Pagination.Limit, err = parseInt(q, "limit"); err != nil {
		return req, err
	}
	if req.Pagination.Page, err = parseInt(q, "page"); err != nil {
		return req, err
	}
	if req.IncludeValidation, err = parseBool(q, "include_validation"); err != nil {
		return req, err
	}
	if req.IncludeParameterAnalysis, err = parseBool(q, "include_parameter_analysis"); err != nil {
		return req, err
	}
	if req.Sort, err = parseSort(q.Get("sort_by"), q.Get("sort_order")); err != nil {
		return req, err
	}

	req.Filters.ModelTypes = splitList(q.Get("model_type"))
	req.Filters.Industries = splitList(q.Get("industries"))
	req.Filters.RiskGrades = splitList(q.Get("risk_grades"))
	if req.Filters.DateFrom, err = parseDate("date_from", q.Get("date_from")); err != nil {
		return req, err
	}
	if err = applyDateTo(&req.Filters, "date_to", q.Get("date_to")); err != nil {
		return req, err
	}
	return req, nil
}

type bodyFilters struct {
	Industries []string `json:"industries" validate:"omitempty,max=100,dive,required"`
	RiskGrades []string `json:"risk_grades" validate:"omitempty,max=20,dive,required"`
	DateFrom   string   `json:"date_from"`
	DateTo     string   `json:"date_to"`
}

// analyticsBody is the POST payload.
type analyticsBody struct {
	Filters                    *bodyFilters `json:"filters"`
	CompanyIDs                 []string     `json:"company_ids" validate:"omitempty,max=1000,dive,required"`
	ModelTypes                 []string     `json:"model_types" validate:"omitempty,max=20,dive,required"`
	IncludeValidation          bool         `json:"include_validation"`
	IncludeParameterImportance bool         `json:"include_parameter_importance"`
	IncludeAccuracyTrends      bool         `json:"include_accuracy_trends"`
	CalculateModelDrift        bool         `json:"calculate_model_drift"`
	BenchmarkComparison        bool         `json:"benchmark_comparison"`
	BenchmarkMetric            string       `json:"benchmark_metric" validate:"omitempty,benchmark_metric"`
	Page                       int          `json:"page" validate:"gte=0"`
	Limit                      int          `json:"limit" validate:"gte=0"`
	SortBy                     string       `json:"sort_by" validate:"omitempty,sort_field"`
	SortOrder                  string       `json:"sort_order" validate:"omitempty,oneof=asc desc"`
}

func (b analyticsBody) toRequest() (analytics.Request, error) {
	if err := validate.Struct(b); err != nil {
		return analytics.Request{}, errors.NewInvalidFilterFormatError(validationMessage(err))
	}

	req := analytics.Request{
		Pagination:               models.Pagination{Page: b.Page, Limit: b.Limit},
		IncludeValidation:        b.IncludeValidation,
		IncludeParameterAnalysis: b.IncludeParameterImportance,
		IncludeCoverageTrends:    b.IncludeAccuracyTrends,
		CalculateDrift:           b.CalculateModelDrift,
		BenchmarkComparison:      b.BenchmarkComparison,
		BenchmarkMetric:          b.BenchmarkMetric,
	}
	req.Filters.CompanyIDs = b.CompanyIDs
	req.Filters.ModelTypes = b.ModelTypes

	var err error
	if req.Sort, err = parseSort(b.SortBy, b.SortOrder); err != nil {
		return req, err
	}
	if b.Filters != nil {
		req.Filters.Industries = b.Filters.Industries
		req.Filters.RiskGrades = b.Filters.RiskGrades
		if req.Filters.DateFrom, err = parseDate("filters.date_from", b.Filters.DateFrom); err != nil {
			return req, err
		}
		if err = applyDateTo(&req.Filters, "filters.date_to", b.Filters.DateTo); err != nil {
			return req, err
		}
	}
	return req, nil
}

func validationMessage(err error) string {
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
