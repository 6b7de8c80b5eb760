package catalog

import (
	"fmt"
	"strings"
)

// Metric is a single meteorological metric definition. It is immutable after
// construction; the full name and table column are always derived from the
// stored fields and never cached, so they cannot desynchronize.
type Metric struct {
	name        string
	unit        string
	cumulative  bool
	aggregation Aggregation
}

// New creates an instantaneous metric. The name is normalized to uppercase
// with internal whitespace runs replaced by single underscores.
func New(name, unit string, cumulative bool) Metric {
	return Metric{
		name:       NormalizeName(name),
		unit:       unit,
		cumulative: cumulative,
	}
}

// NewAggregated creates a metric carrying an aggregation. Two metrics sharing
// a name but differing in aggregation are distinct entities with distinct
// full names and may coexist in one registry.
func NewAggregated(name, unit string, cumulative bool, agg Aggregation) Metric {
	m := New(name, unit, cumulative)
	m.aggregation = agg
	return m
}

// NormalizeName uppercases a metric name and collapses whitespace runs to
// single underscores, e.g. "wind speed at 2m" -> "WIND_SPEED_AT_2M".
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(name)), "_")
}

// Name returns the normalized metric name.
func (m Metric) Name() string { return m.name }

// Unit returns the measurement unit.
func (m Metric) Unit() string { return m.unit }

// Cumulative reports whether the metric accumulates over time.
func (m Metric) Cumulative() bool { return m.cumulative }

// Aggregation returns the metric's aggregation and whether one is set.
func (m Metric) Aggregation() (Aggregation, bool) {
	return m.aggregation, m.aggregation != ""
}

// FullName combines the metric name and the aggregation if it exists,
// e.g. TEMPERATURE_MIN for TEMPERATURE and MIN. Falls back to the name when
// no aggregation is set. This is the identity key used for all lookups.
func (m Metric) FullName() string {
	if m.aggregation != "" {
		return m.name + "_" + string(m.aggregation)
	}
	return m.name
}

// TableColumn selects which tabular column the aggregation applies to:
// SUM for cumulative metrics, VALUE otherwise.
func (m Metric) TableColumn() string {
	if m.cumulative {
		return "SUM"
	}
	return "VALUE"
}

// WithAggregation derives a new metric from m with the aggregation replaced.
// The receiver is not modified.
func (m Metric) WithAggregation(agg Aggregation) Metric {
	m.aggregation = agg
	return m
}

// String implements fmt.Stringer.
func (m Metric) String() string {
	return fmt.Sprintf("Metric: %s, unit: %s, aggregation type: %s, full name: %s",
		m.name, m.unit, m.aggregation, m.FullName())
}

// Definition is the serializable representation of a Metric. The aggregation
// field is omitted entirely when unset rather than emitted as an empty
// marker, so a Definition can be fed back into construction (optionally with
// an aggregation override) to derive new metrics.
type Definition struct {
	Name        string      `json:"name" yaml:"name" validate:"required"`
	Unit        string      `json:"unit" yaml:"unit" validate:"required"`
	Cumulative  bool        `json:"is_cumulative" yaml:"is_cumulative"`
	Aggregation Aggregation `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
}

// Definition returns the serializable representation of the metric.
func (m Metric) Definition() Definition {
	return Definition{
		Name:        m.name,
		Unit:        m.unit,
		Cumulative:  m.cumulative,
		Aggregation: m.aggregation,
	}
}

// Metric builds a Metric from the definition, re-applying name normalization.
func (d Definition) Metric() Metric {
	if d.Aggregation != "" {
		return NewAggregated(d.Name, d.Unit, d.Cumulative, d.Aggregation)
	}
	return New(d.Name, d.Unit, d.Cumulative)
}
