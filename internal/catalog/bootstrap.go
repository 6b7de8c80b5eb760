package catalog

// Prefixes claimed by the canonical registries. The main registry takes the
// default empty prefix, so at most one of it can ever exist per namespace.
const (
	MainPrefix       = ""
	AggregatedPrefix = "Aggregated"
	PartialPrefix    = "Partial"
)

// Seed describes the inputs for building the canonical catalog: the base
// metric definitions, the aggregations to derive per base metric (keyed by
// the metric's normalized name), and the full names retained in the partial
// registry.
type Seed struct {
	Metrics      []Definition
	Aggregations map[string][]Aggregation
	Partial      []string
}

// Catalog bundles the namespace and the canonical registries built at
// process startup.
type Catalog struct {
	Namespace  *Namespace
	Main       *Registry
	Aggregated *Registry
	Partial    *Registry
}

// Build constructs the canonical catalog from a seed: the main registry
// holds the base metrics under the default prefix, the aggregated registry
// holds the derived per-aggregation variants, and the partial registry is
// produced by filtering the aggregated one. Aggregated variants are derived
// by round-tripping the base metric's definition with an aggregation
// override, so they inherit unit and cumulative flag verbatim.
func Build(seed Seed) (*Catalog, error) {
	ns := NewNamespace()

	base := make([]Metric, 0, len(seed.Metrics))
	for _, def := range seed.Metrics {
		base = append(base, def.Metric())
	}

	main, err := NewRegistry(ns, MainPrefix, base)
	if err != nil {
		return nil, err
	}

	var derived []Metric
	for _, m := range base {
		for _, agg := range seed.Aggregations[m.Name()] {
			def := m.Definition()
			def.Aggregation = agg
			derived = append(derived, def.Metric())
		}
	}

	aggregated, err := NewRegistry(ns, AggregatedPrefix, derived)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{
		Namespace:  ns,
		Main:       main,
		Aggregated: aggregated,
	}

	if len(seed.Partial) > 0 {
		partial, err := aggregated.Filter(seed.Partial, PartialPrefix)
		if err != nil {
			return nil, err
		}
		cat.Partial = partial
	}

	return cat, nil
}

// DefaultSeed returns the canonical meteorological metric set: temperature
// with its aggregated variants, cumulative rain fall, and wind speed at 2m.
func DefaultSeed() Seed {
	return Seed{
		Metrics: []Definition{
			{Name: "temperature", Unit: "C"},
			{Name: "rain fall", Unit: "C", Cumulative: true},
			{Name: "wind speed at 2m", Unit: "km/h"},
		},
		Aggregations: map[string][]Aggregation{
			"TEMPERATURE": {AggregationMin, AggregationMax, AggregationMean, AggregationLast},
		},
		Partial: []string{"TEMPERATURE_MIN", "TEMPERATURE_MAX"},
	}
}
