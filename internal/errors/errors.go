// Package errors provides structured error handling for meteoreg operations.
// It defines error codes, error types, and provides utilities for creating
// and handling errors with context and structured information.
package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"

	// Catalog errors.
	CodePrefixCollision ErrorCode = "PREFIX_COLLISION"
	CodeMetricNotFound  ErrorCode = "METRIC_NOT_FOUND"

	// Time-series errors.
	CodeSchemaValidation ErrorCode = "SCHEMA_VALIDATION"

	// Database errors.
	CodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	CodeDatabaseQuery      ErrorCode = "DATABASE_QUERY"
	CodeDatabaseTimeout    ErrorCode = "DATABASE_TIMEOUT"
)

// CatalogError represents an error raised by the metrics catalog.
type CatalogError struct {
	Code    ErrorCode
	Message string
	Prefix  string
	Metric  string
	Cause   error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	switch {
	case e.Metric != "":
		return fmt.Sprintf("[%s] %s (metric: %s)", e.Code, e.Message, e.Metric)
	case e.Code == CodePrefixCollision:
		return fmt.Sprintf("[%s] %s (prefix: %q)", e.Code, e.Message, e.Prefix)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying error for error unwrapping.
func (e *CatalogError) Unwrap() error {
	return e.Cause
}

// RowViolation describes a single schema violation in a tabular input.
type RowViolation struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (v RowViolation) String() string {
	return fmt.Sprintf("row %d, column %q: %s (got %q)", v.Row, v.Column, v.Reason, v.Value)
}

// SchemaError represents a schema validation failure over tabular input.
// It carries every violating row so callers see the full picture at once.
type SchemaError struct {
	Code       ErrorCode
	Message    string
	Violations []RowViolation
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, strings.Join(parts, "; "))
}

// DatabaseError represents database-related errors.
type DatabaseError struct {
	Code      ErrorCode
	Message   string
	Operation string
	Query     string
	Cause     error
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation: %s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// WithOperation adds the store operation that caused the error.
func (e *DatabaseError) WithOperation(op string) *DatabaseError {
	e.Operation = op
	return e
}

// WithQuery adds the SQL query that caused the error.
func (e *DatabaseError) WithQuery(query string) *DatabaseError {
	e.Query = query
	return e
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *CatalogError:
		return e.Code
	case *SchemaError:
		return e.Code
	case *DatabaseError:
		return e.Code
	case *ConfigError:
		return e.Code
	}
	return CodeUnknown
}

// IsNotFound reports whether an error indicates a missing metric.
func IsNotFound(err error) bool {
	return IsCode(err, CodeMetricNotFound)
}

// IsSchemaViolation reports whether an error is a schema validation failure.
func IsSchemaViolation(err error) bool {
	return IsCode(err, CodeSchemaValidation)
}

// Common error creation functions

// ErrPrefixCollision creates an error for a registry prefix that is already
// claimed. The message names every prefix currently in use so the caller can
// pick another.
func ErrPrefixCollision(prefix string, used []string) *CatalogError {
	return &CatalogError{
		Code:    CodePrefixCollision,
		Message: fmt.Sprintf("prefix is already used, please use a prefix different from [%s]", strings.Join(used, ", ")),
		Prefix:  prefix,
	}
}

// ErrMetricNotFound creates an error for a full name absent from a registry.
func ErrMetricNotFound(fullName string) *CatalogError {
	return &CatalogError{
		Code:    CodeMetricNotFound,
		Message: "metric not registered",
		Metric:  fullName,
	}
}

// ErrSchemaValidation creates a schema error carrying all row violations.
func ErrSchemaValidation(violations []RowViolation) *SchemaError {
	return &SchemaError{
		Code:       CodeSchemaValidation,
		Message:    fmt.Sprintf("time-series input failed schema validation (%d violations)", len(violations)),
		Violations: violations,
	}
}

// ErrDatabaseConnection creates an error for database connection failures.
func ErrDatabaseConnection(err error) *DatabaseError {
	return &DatabaseError{
		Code:    CodeDatabaseConnection,
		Message: "Failed to connect to database",
		Cause:   err,
	}
}

// ErrDatabaseQuery creates an error for database query failures.
func ErrDatabaseQuery(query string, err error) *DatabaseError {
	e := &DatabaseError{
		Code:    CodeDatabaseQuery,
		Message: "Database query failed",
		Cause:   err,
	}
	return e.WithQuery(query)
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    CodeValidation,
		Message: "Invalid configuration value",
		Field:   field,
		Value:   value,
	}
}

// ErrConfigMissing creates an error for missing required configuration.
func ErrConfigMissing(field string) *ConfigError {
	return &ConfigError{
		Code:    CodeConfiguration,
		Message: "Required configuration field missing",
		Field:   field,
	}
}
