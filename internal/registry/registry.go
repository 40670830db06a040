package registry

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/specialistvlad/nodegrid/internal/node"
)

// ErrUnknownKind is returned when a kind name is not registered.
var ErrUnknownKind = errors.New("unknown node kind")

// Module is the interface that all node modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Kind describes one node kind.
type Kind struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`

	// New returns a fresh, unattached instance.
	New func() node.Node `json:"-"`
}

// Category is a palette group.
type Category struct {
	Name  string `json:"name"`
	Kinds []Kind `json:"kinds"`
}

// Registry holds all registered node kinds for a single application instance.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// RegisterKind adds a kind to the catalog. Registering a name twice, or a
// kind without a constructor, is a programmer error and panics.
func (r *Registry) RegisterKind(k Kind) {
	if k.Name == "" || k.New == nil {
		panic(fmt.Sprintf("node kind %q must have a name and a constructor", k.Name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[k.Name]; exists {
		panic(fmt.Sprintf("node kind with name '%s' already registered", k.Name))
	}
	if k.Category == "" {
		k.Category = "General"
	}
	slog.Debug("Registering node kind.", "name", k.Name, "category", k.Category)
	r.kinds[k.Name] = k
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// New creates an unattached instance of the named kind.
func (r *Registry) New(name string) (node.Node, error) {
	k, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return k.New(), nil
}

// Kinds returns every registered kind sorted by name.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b Kind) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// Categories returns the palette: categories sorted by name, each with its
// kinds sorted by name.
func (r *Registry) Categories() []Category {
	byCat := make(map[string][]Kind)
	for _, k := range r.Kinds() {
		byCat[k.Category] = append(byCat[k.Category], k)
	}

	out := make([]Category, 0, len(byCat))
	for name, kinds := range byCat {
		out = append(out, Category{Name: name, Kinds: kinds})
	}
	slices.SortFunc(out, func(a, b Category) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
