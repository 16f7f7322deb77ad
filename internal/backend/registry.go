package backend

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/tjfontaine/polyglot-chatbot/internal/config"
)

// Factory defines how to create a backend of a specific kind.
type Factory struct {
	// Kind is the identifier used in configuration (backend.kind)
	Kind string

	// Description provides a human-readable description of the backend
	Description string

	// Create instantiates a backend. httpClient may be nil, in which case the
	// backend uses its own default.
	Create func(cfg config.BackendConfig, httpClient *http.Client) (Backend, error)
}

var (
	factoryMu  sync.RWMutex
	factoryMap = make(map[string]Factory)
)

// RegisterFactory registers a backend factory.
// Panics if a factory with the same kind is already registered.
func RegisterFactory(f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	if f.Kind == "" {
		panic("backend factory kind cannot be empty")
	}
	if f.Create == nil {
		panic(fmt.Sprintf("backend factory %q must have a Create function", f.Kind))
	}
	if _, exists := factoryMap[f.Kind]; exists {
		panic(fmt.Sprintf("backend factory %q already registered", f.Kind))
	}

	factoryMap[f.Kind] = f
}

// GetFactory returns the factory for a kind, if registered.
func GetFactory(kind string) (Factory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factoryMap[kind]
	return f, ok
}

// IsRegistered returns true if a kind is registered.
func IsRegistered(kind string) bool {
	_, ok := GetFactory(kind)
	return ok
}

// ListKinds returns all registered kinds, sorted.
func ListKinds() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	kinds := make([]string, 0, len(factoryMap))
	for k := range factoryMap {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// New creates the backend configured by cfg.Kind.
func New(cfg config.BackendConfig, httpClient *http.Client) (Backend, error) {
	f, ok := GetFactory(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown backend kind: %s (registered kinds: %v)", cfg.Kind, ListKinds())
	}
	return f.Create(cfg, httpClient)
}

// ClearFactories removes all registered factories (for testing only).
func ClearFactories() {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	factoryMap = make(map[string]Factory)
}
