package presets

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicatePath indicates Add received a path that is already
	// registered. Duplicate registration is always rejected; callers that
	// rebuild a registry must Clear first.
	ErrDuplicatePath = errors.New("presets: property path already registered")
	// ErrNoAccessor indicates Bind found a registered path without a typed
	// accessor pair.
	ErrNoAccessor = errors.New("presets: property path has no accessor")
)

// Accessor is a typed get/set closure pair bound to one configuration path.
// Building these once at registration time replaces runtime dotted-path
// probing against the live configuration object.
type Accessor struct {
	Get func() (Value, bool)
	Set func(Value) error
}

// PropertyEntry describes one registered configuration property.
type PropertyEntry struct {
	Path    string
	Label   string
	GroupID int
	Kind    Kind
}

// EntryOption configures optional registration metadata.
type EntryOption func(*entryConfig)

type entryConfig struct {
	kind     Kind
	accessor Accessor
}

// WithKind records the expected value kind for the path. The kind is used to
// coerce expression results and to annotate schema exports.
func WithKind(kind Kind) EntryOption {
	return func(cfg *entryConfig) {
		cfg.kind = kind
	}
}

// WithAccessor attaches typed get/set closures for the path, consumed by
// Bind to assemble an accessor-table backed Config.
func WithAccessor(get func() (Value, bool), set func(Value) error) EntryOption {
	return func(cfg *entryConfig) {
		cfg.accessor = Accessor{Get: get, Set: set}
	}
}

// Registry is the ordered mapping from dotted property paths to display
// metadata. Insertion order is preserved because it drives grouping and
// export order. Populated once at configuration initialisation and treated
// as immutable afterwards; Clear supports wholesale rebuilds.
type Registry struct {
	order   []string
	entries map[string]PropertyEntry
	access  map[string]Accessor
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]PropertyEntry),
		access:  make(map[string]Accessor),
	}
}

// Add registers one property path. Paths must be unique within the registry.
func (r *Registry) Add(path, label string, groupID int, opts ...EntryOption) error {
	if path == "" {
		return fmt.Errorf("presets: property path must not be empty")
	}
	if _, exists := r.entries[path]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, path)
	}

	cfg := entryConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	r.order = append(r.order, path)
	r.entries[path] = PropertyEntry{
		Path:    path,
		Label:   label,
		GroupID: groupID,
		Kind:    cfg.kind,
	}
	if cfg.accessor.Get != nil || cfg.accessor.Set != nil {
		r.access[path] = cfg.accessor
	}
	return nil
}

// Paths returns the registered paths in insertion order.
func (r *Registry) Paths() []string {
	if len(r.order) == 0 {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Entry returns the metadata registered for path.
func (r *Registry) Entry(path string) (PropertyEntry, bool) {
	entry, ok := r.entries[path]
	return entry, ok
}

// KindOf returns the registered kind for path, KindUnset when unknown.
func (r *Registry) KindOf(path string) Kind {
	return r.entries[path].Kind
}

// Len returns the number of registered paths.
func (r *Registry) Len() int {
	return len(r.order)
}

// Clear removes every entry. There is no per-path removal; registries are
// rebuilt wholesale when the owning configuration reinitialises.
func (r *Registry) Clear() {
	r.order = nil
	r.entries = make(map[string]PropertyEntry)
	r.access = make(map[string]Accessor)
}

// Bind assembles a Config backed by the registered accessor table. Every
// registered path must carry a complete accessor pair.
func (r *Registry) Bind() (Config, error) {
	access := make(map[string]Accessor, len(r.order))
	for _, path := range r.order {
		accessor, ok := r.access[path]
		if !ok || accessor.Get == nil || accessor.Set == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoAccessor, path)
		}
		access[path] = accessor
	}
	return &boundConfig{access: access}, nil
}

type boundConfig struct {
	access map[string]Accessor
}

func (c *boundConfig) Value(path string) (Value, bool) {
	accessor, ok := c.access[path]
	if !ok {
		return Unset(), false
	}
	return accessor.Get()
}

func (c *boundConfig) SetValue(path string, value Value) error {
	accessor, ok := c.access[path]
	if !ok {
		return fmt.Errorf("presets: path %q is not bound", path)
	}
	return accessor.Set(value)
}
