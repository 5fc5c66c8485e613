package exchange

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupported is returned when no connector is registered for an id.
var ErrUnsupported = errors.New("connector unsupported")

// Builder creates a connector from its settings record.
type Builder func(Settings) (Connector, error)

// Registry 是交易所 id 到 Builder 的静态分发表。
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func (r *Registry) Register(id string, b Builder) {
	key := normalizeID(id)
	if key == "" || b == nil {
		return
	}
	r.mu.Lock()
	r.builders[key] = b
	r.mu.Unlock()
}

func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	_, ok := r.builders[normalizeID(id)]
	r.mu.RUnlock()
	return ok
}

// Build creates a fresh connector; callers never share one across exchanges.
func (r *Registry) Build(id string, s Settings) (Connector, error) {
	r.mu.RLock()
	b, ok := r.builders[normalizeID(id)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, id)
	}
	conn, err := b(s)
	if err != nil {
		return nil, fmt.Errorf("build %s connector: %w", id, err)
	}
	return conn, nil
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.builders))
	for id := range r.builders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
