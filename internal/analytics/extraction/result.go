// Package extraction turns raw risk analysis documents into typed records,
// regions and financial metrics. Nothing here returns an error or panics to
// the caller: problems are recorded as Issues next to a documented default.
package extraction

import (
	"fmt"

	"risk-analytics/internal/common/errors"
)

// Issue is one diagnostic recorded while extracting a value.
type Issue struct {
	Code    errors.ErrorCode `json:"code"`
	Field   string           `json:"field"`
	Message string           `json:"message"`
}

// Err converts the issue into the shared error type.
func (i Issue) Err() *errors.StandardError {
	switch i.Code {
	case errors.ErrCodeMissingData:
		return errors.NewMissingData(i.Field)
	case errors.ErrCodeRangeViolation:
		e := errors.NewParseFailure(i.Field, i.Message)
		e.Code = errors.ErrCodeRangeViolation
		e.Message = "Value outside documented range"
		return e
	default:
		return errors.NewParseFailure(i.Field, i.Message)
	}
}

// Result carries an extracted value and the issues met on the way.
type Result[T any] struct {
	Value  T
	Issues []Issue
}

// OK reports whether extraction finished without any issue.
func (r Result[T]) OK() bool {
	return len(r.Issues) == 0
}

// Add records an issue.
func (r *Result[T]) Add(code errors.ErrorCode, field, format string, args ...interface{}) {
	r.Issues = append(r.Issues, Issue{Code: code, Field: field, Message: fmt.Sprintf(format, args...)})
}

// Merge appends issues from another extraction step.
func (r *Result[T]) Merge(issues []Issue) {
	r.Issues = append(r.Issues, issues...)
}

// guard runs fn and converts a panic into the fallback value plus a
// PARSE_FAILURE issue.
func guard[T any](field string, fallback T, fn func() Result[T]) (res Result[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Result[T]{Value: fallback}
			res.Add(errors.ErrCodeParseFailure, field, "recovered from panic: %v", rec)
		}
	}()
	return fn()
}
