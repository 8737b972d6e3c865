package config

import (
	"github.com/tidwall/btree"

	"github.com/LanguageMachines/timblserver/internal/classifier"
)

// BaseMap is the immutable, process-wide set of loaded classifier bases.
// It is built once during startup and shared read-only by every session
// afterward -- no locking on the read path, the same discipline the
// teacher gives its fully-constructed engine.Books map before any Run
// goroutine starts. The ordered index exists purely for the "available
// bases:" greeting and the JSON greeting's sorted name array, which both
// need a stable enumeration order rather than Go's randomized map
// iteration.
type BaseMap struct {
	bases map[string]*classifier.Base
	names *btree.BTreeG[string]
}

// NewBaseMap returns an empty BaseMap ready for Insert calls during
// startup.
func NewBaseMap() *BaseMap {
	return &BaseMap{
		bases: make(map[string]*classifier.Base),
		names: btree.NewBTreeG(func(a, b string) bool { return a < b }),
	}
}

// Insert adds a base under name, overwriting any previous entry with the
// same name. Startup-only; never called once the server is accepting
// connections.
func (m *BaseMap) Insert(name string, b *classifier.Base) {
	if _, exists := m.bases[name]; !exists {
		m.names.Set(name)
	}
	m.bases[name] = b
}

// Get returns the base registered under name.
func (m *BaseMap) Get(name string) (*classifier.Base, bool) {
	b, ok := m.bases[name]
	return b, ok
}

// Len reports how many bases are loaded.
func (m *BaseMap) Len() int { return len(m.bases) }

// Names returns every loaded base name in ascending order.
func (m *BaseMap) Names() []string {
	out := make([]string, 0, m.names.Len())
	m.names.Scan(func(name string) bool {
		out = append(out, name)
		return true
	})
	return out
}

// SingleDefault reports whether the map holds exactly one base named
// "default" -- the §3 auto-bind case, where sessions skip the explicit
// BASE command.
func (m *BaseMap) SingleDefault() (*classifier.Base, bool) {
	if m.Len() != 1 {
		return nil, false
	}
	b, ok := m.bases["default"]
	return b, ok
}
