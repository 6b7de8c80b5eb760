package catalog

import (
	"strings"

	"github.com/windrose/meteoreg/internal/errors"
)

// Registry is an immutable-after-construction collection of metrics keyed by
// full name. Each registry claims a globally unique prefix from its
// Namespace; derived registries are created only through Filter, which
// consumes a fresh prefix of its own.
type Registry struct {
	ns      *Namespace
	prefix  string
	order   []string
	metrics map[string]Metric
}

// NewRegistry builds a registry from the given metrics under the given
// prefix. Metrics are keyed by full name with last-write-wins on duplicates;
// a duplicate keeps its original insertion position. Construction fails with
// a PREFIX_COLLISION error when the prefix (including the default empty
// prefix) has already been reserved in ns.
func NewRegistry(ns *Namespace, prefix string, metrics []Metric) (*Registry, error) {
	byName := make(map[string]Metric, len(metrics))
	order := make([]string, 0, len(metrics))
	for _, m := range metrics {
		fullName := m.FullName()
		if _, seen := byName[fullName]; !seen {
			order = append(order, fullName)
		}
		byName[fullName] = m
	}

	if err := ns.Reserve(prefix); err != nil {
		return nil, err
	}

	return &Registry{
		ns:      ns,
		prefix:  prefix,
		order:   order,
		metrics: byName,
	}, nil
}

// Prefix returns the registry's namespace prefix.
func (r *Registry) Prefix() string { return r.prefix }

// Len returns the number of registered metrics.
func (r *Registry) Len() int { return len(r.order) }

// Names returns every registered full name in insertion order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Metrics returns every registered metric in insertion order.
func (r *Registry) Metrics() []Metric {
	out := make([]Metric, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.metrics[name])
	}
	return out
}

// Definitions returns the serializable representation of every registered
// metric in insertion order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.metrics[name].Definition())
	}
	return out
}

// Get retrieves a metric by its full name. The lookup is case-insensitive;
// it fails with a METRIC_NOT_FOUND error when the name is absent.
func (r *Registry) Get(fullName string) (Metric, error) {
	m, ok := r.metrics[strings.ToUpper(fullName)]
	if !ok {
		return Metric{}, errors.ErrMetricNotFound(fullName)
	}
	return m, nil
}

// Filter creates a new registry containing only the metrics whose full name
// matches one of the requested names (case-insensitively), under the new
// prefix. Requested names absent from the registry are silently dropped.
// The new prefix goes through the same uniqueness check as any construction
// and fails identically on collision.
func (r *Registry) Filter(names []string, prefix string) (*Registry, error) {
	requested := make(map[string]struct{}, len(names))
	for _, name := range names {
		requested[strings.ToUpper(name)] = struct{}{}
	}

	filtered := make([]Metric, 0, len(names))
	for _, name := range r.order {
		if _, ok := requested[name]; ok {
			filtered = append(filtered, r.metrics[name])
		}
	}
	return NewRegistry(r.ns, prefix, filtered)
}

// NameSet returns the closed enumeration of this registry's valid full
// names, tagged with the registry's prefix so name sets from different
// registries are never silently confused.
func (r *Registry) NameSet() NameSet {
	members := make(map[string]struct{}, len(r.order))
	for _, name := range r.order {
		members[name] = struct{}{}
	}
	return NameSet{
		prefix:  r.prefix,
		names:   r.Names(),
		members: members,
	}
}
