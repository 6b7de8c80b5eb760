// Package handlers provides HTTP request handlers for the meteoreg API.
// This file contains common utilities shared across all handlers to reduce
// code duplication and provide consistent patterns.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/windrose/meteoreg/internal/api/middleware"
	"github.com/windrose/meteoreg/internal/errors"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error      string                `json:"error"`
	Message    string                `json:"message"`
	Code       errors.ErrorCode      `json:"code,omitempty"`
	Violations []errors.RowViolation `json:"violations,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
	RequestID  string                `json:"request_id,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log error but don't try to write another response
		slog.Error("Failed to encode JSON response",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(r.Context()),
	}

	if code := errors.GetCode(err); code != errors.CodeUnknown {
		response.Code = code
	}
	if se, ok := err.(*errors.SchemaError); ok {
		response.Violations = se.Violations
	}

	writeJSON(w, r, statusCode, response)
}

// statusForError maps structured error codes to HTTP status codes.
func statusForError(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeMetricNotFound:
		return http.StatusNotFound
	case errors.CodeSchemaValidation, errors.CodeValidation:
		return http.StatusUnprocessableEntity
	case errors.CodePrefixCollision:
		return http.StatusConflict
	case errors.CodeDatabaseConnection, errors.CodeDatabaseTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes the response matching a structured error.
func handleError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err)
	}
	writeError(w, r, status, err)
}
