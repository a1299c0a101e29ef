package registry

import (
	"fmt"
	"iter"
	"slices"
	"sync"
)

// DuplicateToolError is returned when registering a name that already exists.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool already registered: %s", e.Name)
}

// UnknownToolError is returned when looking up a name that was never registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// Filter narrows List output. Zero values match everything.
type Filter struct {
	Category       string
	Classification Classification
}

func (f *Filter) match(d *ToolDescriptor) bool {
	if f == nil {
		return true
	}
	if f.Category != "" && d.Category != f.Category {
		return false
	}
	if f.Classification != "" && d.Classification != f.Classification {
		return false
	}
	return true
}

// Registry is the static tool catalog. All registration happens during
// startup; afterwards the registry is read-only and safely shared across
// request goroutines.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*ToolDescriptor
	names []string // kept sorted for deterministic iteration
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{tools: make(map[string]*ToolDescriptor)}
}

// Register adds a descriptor to the catalog. The descriptor's classification
// is normalized (unknown tiers default to critical) and its parameter schema
// is compiled once here. Returns DuplicateToolError on name collision.
func (r *Registry) Register(d *ToolDescriptor) error {
	if d.Name == "" {
		return fmt.Errorf("Register: descriptor has empty name")
	}

	d.Classification = d.Classification.Normalize()

	schema, err := compileParameterSchema(d.Parameters)
	if err != nil {
		return fmt.Errorf("Register %s: %w", d.Name, err)
	}
	d.argSchema = schema

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[d.Name]; exists {
		return &DuplicateToolError{Name: d.Name}
	}
	r.tools[d.Name] = d

	i, _ := slices.BinarySearch(r.names, d.Name)
	r.names = slices.Insert(r.names, i, d.Name)
	return nil
}

// Lookup returns the descriptor for name, or UnknownToolError.
func (r *Registry) Lookup(name string) (*ToolDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return d, nil
}

// List returns a restartable sequence of descriptors in name order,
// optionally narrowed by filter. Each range over the sequence re-reads
// the catalog, so iteration order is stable across calls.
func (r *Registry) List(filter *Filter) iter.Seq[*ToolDescriptor] {
	return func(yield func(*ToolDescriptor) bool) {
		r.mu.RLock()
		names := slices.Clone(r.names)
		r.mu.RUnlock()

		for _, name := range names {
			r.mu.RLock()
			d := r.tools[name]
			r.mu.RUnlock()
			if !filter.match(d) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// ByCategory returns the number of registered tools per category.
func (r *Registry) ByCategory() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, d := range r.tools {
		counts[d.Category]++
	}
	return counts
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
