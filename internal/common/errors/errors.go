// Package errors provides the error taxonomy shared by the analytics core,
// the HTTP boundary and the Zeebe workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Core diagnostics. These are recorded as issues by the extraction layer and
// never returned to callers of the core.
const (
	ErrCodeParseFailure   ErrorCode = "PARSE_FAILURE"
	ErrCodeRangeViolation ErrorCode = "RANGE_VIOLATION"
	ErrCodeMissingData    ErrorCode = "MISSING_DATA"
)

// Boundary errors surfaced by the API layer.
const (
	ErrCodeUnauthenticated     ErrorCode = "UNAUTHENTICATED"
	ErrCodeNoMatchingCompanies ErrorCode = "NO_MATCHING_COMPANIES"
	ErrCodeNoRiskAnalysisData  ErrorCode = "NO_RISK_ANALYSIS_DATA"
	ErrCodeCompanyNotFound     ErrorCode = "COMPANY_NOT_FOUND"
	ErrCodeInvalidFilterFormat ErrorCode = "INVALID_FILTER_FORMAT"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// Adapter errors.
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeCacheOperationFailed     ErrorCode = "CACHE_OPERATION_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeAuthProviderFailed       ErrorCode = "AUTH_PROVIDER_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewParseFailure describes a malformed or unexpectedly shaped input field.
func NewParseFailure(field, details string) *StandardError {
	e := newError(ErrCodeParseFailure, "Malformed input field", details, false)
	e.Metadata = map[string]interface{}{"field": field}
	return e
}

// NewRangeViolation describes a numeric value outside its documented domain.
func NewRangeViolation(field string, value float64) *StandardError {
	e := newError(ErrCodeRangeViolation, "Value outside documented range",
		fmt.Sprintf("%s=%g", field, value), false)
	e.Metadata = map[string]interface{}{"field": field, "value": value}
	return e
}

// NewMissingData describes an absent field. It lowers confidence; it is not a failure.
func NewMissingData(field string) *StandardError {
	e := newError(ErrCodeMissingData, "Field not present", field, false)
	e.Metadata = map[string]interface{}{"field": field}
	return e
}

func NewUnauthenticatedError(details string) *StandardError {
	return newError(ErrCodeUnauthenticated, "Unauthorized", details, false)
}

func NewNoMatchingCompaniesError(details string) *StandardError {
	return newError(ErrCodeNoMatchingCompanies, "No companies found", details, false)
}

func NewNoRiskAnalysisDataError(details string) *StandardError {
	return newError(ErrCodeNoRiskAnalysisData, "No risk analysis data available", details, false)
}

func NewCompanyNotFoundError(requestID string) *StandardError {
	return newError(ErrCodeCompanyNotFound, "Company not found", fmt.Sprintf("requestId: %s", requestID), false)
}

func NewInvalidFilterFormatError(details string) *StandardError {
	return newError(ErrCodeInvalidFilterFormat, "Invalid filter format", details, false)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Internal server error", errDetails(err), false)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", errDetails(err), true)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryName string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("query: %s, error: %s", queryName, errDetails(err)), true)
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryName string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout", fmt.Sprintf("query: %s", queryName), true)
}

func NewCacheOperationFailedError(op string, err error) *StandardError {
	return newError(ErrCodeCacheOperationFailed, "Cache operation failed",
		fmt.Sprintf("op: %s, error: %s", op, errDetails(err)), true)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("index: %s, error: %s", index, errDetails(err)), true)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, errDetails(err)), true)
}

func NewAuthProviderFailedError(err error) *StandardError {
	return newError(ErrCodeAuthProviderFailed, "Authentication provider error", errDetails(err), true)
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Error Conversion
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes thrown by workers.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeNoMatchingCompanies:      "NO_MATCHING_COMPANIES",
	ErrCodeNoRiskAnalysisData:       "NO_RISK_ANALYSIS_DATA",
	ErrCodeCompanyNotFound:          "COMPANY_NOT_FOUND",
	ErrCodeInvalidFilterFormat:      "INVALID_FILTER_FORMAT",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:             "QUERY_TIMEOUT",
	ErrCodeCacheOperationFailed:     "CACHE_OPERATION_FAILED",
	ErrCodeSearchQueryFailed:        "SEARCH_QUERY_FAILED",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeAuthProviderFailed:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeCacheOperationFailed:
		return 2

	default:
		return 0 // business and data errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps a code onto the status the API layer responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeNoMatchingCompanies, ErrCodeNoRiskAnalysisData, ErrCodeCompanyNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidFilterFormat:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError normalizes any error into a StandardError.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeParseFailure || code == ErrCodeRangeViolation || code == ErrCodeMissingData:
		return "EXTRACTION"
	case strings.Contains(codeStr, "AUTH"):
		return "AUTH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY_"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "NO_") || strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
