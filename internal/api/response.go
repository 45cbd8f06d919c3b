// internal/api/response.go
package api

import (
	"encoding/json"
	"net/http"

	"risk-analytics/internal/common/errors"
)

type successEnvelope struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata"`
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, data, metadata interface{}) {
	writeJSON(w, http.StatusOK, successEnvelope{Success: true, Data: data, Metadata: metadata})
}

// writeError maps err onto the error envelope. Details of internal failures
// are never exposed.
func writeError(w http.ResponseWriter, err error) {
	stdErr := errors.AsStandardError(err)
	status := errors.HTTPStatus(stdErr.Code)

	env := errorEnvelope{Error: stdErr.Message}
	if status < http.StatusInternalServerError {
		env.Details = stdErr.Details
	}
	writeJSON(w, status, env)
}
