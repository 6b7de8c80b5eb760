package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrPrefixCollision(t *testing.T) {
	err := ErrPrefixCollision("Aggregated", []string{"", "Aggregated"})

	assert.Equal(t, CodePrefixCollision, GetCode(err))
	assert.Contains(t, err.Error(), "prefix is already used")
	assert.Contains(t, err.Error(), "Aggregated")
}

func TestErrMetricNotFound(t *testing.T) {
	err := ErrMetricNotFound("HUMIDITY")

	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "HUMIDITY")
}

func TestErrSchemaValidation(t *testing.T) {
	err := ErrSchemaValidation([]RowViolation{
		{Row: 0, Column: "metrics", Value: "RAINFALL", Reason: "not a member of Metrics"},
		{Row: 2, Column: "value", Value: "NaN", Reason: "value must be a finite float"},
	})

	assert.True(t, IsSchemaViolation(err))
	assert.Contains(t, err.Error(), "2 violations")
	assert.Contains(t, err.Error(), `row 0, column "metrics"`)
	assert.Contains(t, err.Error(), `row 2, column "value"`)
}

func TestDatabaseErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := ErrDatabaseConnection(cause)

	assert.Equal(t, CodeDatabaseConnection, GetCode(err))
	assert.Equal(t, cause, err.Unwrap())
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "catalog error", err: ErrMetricNotFound("X"), want: CodeMetricNotFound},
		{name: "schema error", err: ErrSchemaValidation(nil), want: CodeSchemaValidation},
		{name: "config error", err: ErrConfigMissing("database.host"), want: CodeConfiguration},
		{name: "plain error", err: fmt.Errorf("boom"), want: CodeUnknown},
		{name: "nil", err: nil, want: CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
		})
	}
}

func TestConfigErrorFields(t *testing.T) {
	err := ErrConfigInvalid("api.port", 99999)

	require.Contains(t, err.Error(), "api.port")
	assert.Equal(t, CodeValidation, GetCode(err))
}
