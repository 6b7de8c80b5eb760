// Package catalog models the taxonomy of meteorological metrics served by
// meteoreg. It provides the Metric value object, the closed Aggregation set,
// and prefix-namespaced registries that issue filterable, enumerable views
// over subsets of metrics.
package catalog

import (
	"fmt"
	"strings"
)

// Aggregation is the statistical reduction applied to a metric series.
// The zero value means the metric is instantaneous and carries no aggregation.
type Aggregation string

const (
	AggregationLast Aggregation = "LAST"
	AggregationMax  Aggregation = "MAX"
	AggregationMean Aggregation = "MEAN"
	AggregationMin  Aggregation = "MIN"
	AggregationSum  Aggregation = "SUM"
)

// Aggregations returns the closed set of supported aggregations.
func Aggregations() []Aggregation {
	return []Aggregation{
		AggregationLast,
		AggregationMax,
		AggregationMean,
		AggregationMin,
		AggregationSum,
	}
}

// Valid reports whether a is a member of the closed aggregation set.
func (a Aggregation) Valid() bool {
	switch a {
	case AggregationLast, AggregationMax, AggregationMean, AggregationMin, AggregationSum:
		return true
	}
	return false
}

// String returns the canonical uppercase form of the aggregation.
func (a Aggregation) String() string {
	return string(a)
}

// ParseAggregation converts a string into an Aggregation, accepting any
// casing. Empty input yields the zero value (no aggregation).
func ParseAggregation(s string) (Aggregation, error) {
	if s == "" {
		return "", nil
	}
	a := Aggregation(strings.ToUpper(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("unknown aggregation %q", s)
	}
	return a, nil
}
