package catalog

import (
	"strings"

	"github.com/windrose/meteoreg/internal/errors"
)

// nameSetSuffix is the fixed suffix appended to a registry prefix to build
// the enumeration name, mirroring how the registries name their views.
const nameSetSuffix = "Metrics"

// NameSet is the closed enumeration of valid full names issued by one
// registry. The originating registry's prefix is carried as a discriminant,
// so two sets with overlapping members but different origins never compare
// as the same enumeration.
type NameSet struct {
	prefix  string
	names   []string
	members map[string]struct{}
}

// Name returns the enumeration name, the registry prefix plus a fixed
// suffix, e.g. "AggregatedMetrics" (or just "Metrics" for the default
// empty prefix).
func (s NameSet) Name() string {
	return s.prefix + nameSetSuffix
}

// Prefix returns the originating registry's prefix.
func (s NameSet) Prefix() string { return s.prefix }

// Names returns the members in registry insertion order.
func (s NameSet) Names() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

// Contains reports whether name (case-insensitively) is a member.
func (s NameSet) Contains(name string) bool {
	_, ok := s.members[strings.ToUpper(name)]
	return ok
}

// Validate checks that every given name is a member, returning a
// METRIC_NOT_FOUND error for the first name outside the set. This is the
// gate the query layer uses to reject invalid metric names before any
// computation runs.
func (s NameSet) Validate(names []string) error {
	for _, name := range names {
		if !s.Contains(name) {
			return errors.ErrMetricNotFound(name)
		}
	}
	return nil
}
