package catalog

import (
	"sort"
	"sync"

	"github.com/windrose/meteoreg/internal/errors"
)

// Namespace tracks every registry prefix reserved during the life of the
// process. Prefixes are never released, so a prefix used by a registry that
// has since been dropped still blocks new registrations. Reservation is an
// atomic check-and-insert, safe under concurrent registry construction.
type Namespace struct {
	mu       sync.Mutex
	prefixes map[string]struct{}
}

// NewNamespace creates an empty prefix namespace.
func NewNamespace() *Namespace {
	return &Namespace{prefixes: make(map[string]struct{})}
}

// Reserve claims prefix for a registry. It fails with a PREFIX_COLLISION
// error naming all currently-used prefixes when the prefix is already taken,
// including the default empty prefix.
func (n *Namespace) Reserve(prefix string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, taken := n.prefixes[prefix]; taken {
		return errors.ErrPrefixCollision(prefix, n.usedLocked())
	}
	n.prefixes[prefix] = struct{}{}
	return nil
}

// Used returns every reserved prefix in sorted order.
func (n *Namespace) Used() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.usedLocked()
}

func (n *Namespace) usedLocked() []string {
	used := make([]string, 0, len(n.prefixes))
	for p := range n.prefixes {
		used = append(used, p)
	}
	sort.Strings(used)
	return used
}
