// Package timeseries provides the tabular time-series model and the
// schema-gated filter over metric readings. Every filter call validates the
// whole input against a reference registry before any computation runs;
// validation is all-or-nothing and reports every violating row at once.
package timeseries

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/windrose/meteoreg/internal/catalog"
	"github.com/windrose/meteoreg/internal/errors"
)

// Row is a single tabular reading: a metric full name, a timestamp, and a
// floating-point value.
type Row struct {
	Metric    string    `json:"metrics" db:"metric" validate:"required"`
	Timestamp time.Time `json:"timestamp" db:"recorded_at" validate:"required"`
	Value     float64   `json:"value" db:"value"`
}

// Series is an ordered sequence of rows.
type Series []Row

// Schema validates tabular input against a reference registry: each row's
// metric must be one of the registry's full names, the timestamp must be
// set, and the value must be a finite float.
type Schema struct {
	names    catalog.NameSet
	validate *validator.Validate
}

// NewSchema builds a schema bound to the given reference registry.
func NewSchema(reg *catalog.Registry) *Schema {
	v := validator.New()
	// Report violations under the tabular column names rather than Go
	// struct field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Schema{
		names:    reg.NameSet(),
		validate: v,
	}
}

// Validate checks every row of the series against the schema. All violations
// are collected into a single SCHEMA_VALIDATION error; a nil return means the
// whole series is well-formed.
func (s *Schema) Validate(series Series) error {
	var violations []errors.RowViolation

	for i, row := range series {
		if err := s.validate.Struct(row); err != nil {
			if fieldErrs, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range fieldErrs {
					violations = append(violations, errors.RowViolation{
						Row:    i,
						Column: fe.Field(),
						Value:  fmt.Sprintf("%v", fe.Value()),
						Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
					})
				}
				continue
			}
			return err
		}

		if !s.names.Contains(row.Metric) {
			violations = append(violations, errors.RowViolation{
				Row:    i,
				Column: "metrics",
				Value:  row.Metric,
				Reason: fmt.Sprintf("not a member of %s", s.names.Name()),
			})
		}
		if math.IsNaN(row.Value) || math.IsInf(row.Value, 0) {
			violations = append(violations, errors.RowViolation{
				Row:    i,
				Column: "value",
				Value:  fmt.Sprintf("%v", row.Value),
				Reason: "value must be a finite float",
			})
		}
	}

	if len(violations) > 0 {
		return errors.ErrSchemaValidation(violations)
	}
	return nil
}

// Filter validates the series and then retains only the rows whose metric is
// in the caller's allow-list (matched case-insensitively), preserving the
// original row order. No partial result is ever returned: a schema violation
// anywhere in the input fails the whole call.
func (s *Schema) Filter(series Series, metrics []string) (Series, error) {
	if err := s.Validate(series); err != nil {
		return nil, err
	}

	allowed := make(map[string]struct{}, len(metrics))
	for _, name := range metrics {
		allowed[strings.ToUpper(name)] = struct{}{}
	}

	filtered := make(Series, 0, len(series))
	for _, row := range series {
		if _, ok := allowed[strings.ToUpper(row.Metric)]; ok {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}
