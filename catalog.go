package presets

import (
	"errors"
	"fmt"
	"sort"
)

// StageNone is the reserved identifier that unstages without staging a
// replacement.
const StageNone = "none"

var (
	// ErrPresetNotFound indicates a preset identifier did not resolve in the
	// catalog.
	ErrPresetNotFound = errors.New("presets: preset not found")
	// ErrDuplicatePreset indicates a catalog registration collided with an
	// existing identifier.
	ErrDuplicatePreset = errors.New("presets: preset already registered")
)

// PresetProperty is one override entry: a configuration path plus either a
// literal value or an expression evaluated against the live configuration at
// apply time. When both are present the expression wins.
type PresetProperty struct {
	Path  string `json:"path"`
	Value Value  `json:"value,omitempty"`
	Expr  string `json:"expr,omitempty"`
}

// Preset is a named, ordered list of property overrides, optionally
// referencing named side-resources by logical id.
type Preset struct {
	ID         string           `json:"id"`
	Label      string           `json:"label,omitempty"`
	Package    string           `json:"package,omitempty"`
	Properties []PresetProperty `json:"properties"`
	Resources  []string         `json:"resources,omitempty"`
}

// ResourceIDs returns every logical resource id the preset references: the
// declared Resources list plus any resource-valued property, deduplicated in
// first-reference order.
func (p Preset) ResourceIDs() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range p.Resources {
		add(id)
	}
	for _, prop := range p.Properties {
		if id, ok := prop.Value.AsResource(); ok {
			add(id)
		}
	}
	return out
}

func clonePreset(p Preset) Preset {
	out := p
	if len(p.Properties) > 0 {
		out.Properties = append([]PresetProperty(nil), p.Properties...)
	}
	if len(p.Resources) > 0 {
		out.Resources = append([]string(nil), p.Resources...)
	}
	return out
}

// Catalog resolves preset identifiers to definitions. The stack treats the
// catalog as read-only and never caches resolutions beyond one apply call.
type Catalog interface {
	Resolve(id string) (Preset, error)
}

// ResolutionError reports a preset identifier that failed to resolve.
type ResolutionError struct {
	ID  string
	Err error
}

func (e *ResolutionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("presets: resolve %q: %v", e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func resolvePreset(catalog Catalog, id string) (Preset, error) {
	preset, err := catalog.Resolve(id)
	if err != nil {
		var resErr *ResolutionError
		if errors.As(err, &resErr) {
			return Preset{}, err
		}
		return Preset{}, &ResolutionError{ID: id, Err: err}
	}
	return preset, nil
}

// MemoryCatalog is an in-memory Catalog keyed by preset identifier.
type MemoryCatalog struct {
	presets map[string]Preset
	order   []string
}

// NewMemoryCatalog constructs a catalog from the supplied presets.
// Registration failures surface through Register; the constructor panics on
// duplicates to keep fixture setup terse.
func NewMemoryCatalog(presets ...Preset) *MemoryCatalog {
	catalog := &MemoryCatalog{presets: make(map[string]Preset)}
	for _, preset := range presets {
		if err := catalog.Register(preset); err != nil {
			panic(err)
		}
	}
	return catalog
}

// Register stores one preset definition.
func (c *MemoryCatalog) Register(preset Preset) error {
	if preset.ID == "" {
		return fmt.Errorf("presets: preset id must not be empty")
	}
	if _, exists := c.presets[preset.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePreset, preset.ID)
	}
	c.presets[preset.ID] = clonePreset(preset)
	c.order = append(c.order, preset.ID)
	return nil
}

// Resolve implements Catalog.
func (c *MemoryCatalog) Resolve(id string) (Preset, error) {
	preset, ok := c.presets[id]
	if !ok {
		return Preset{}, &ResolutionError{ID: id, Err: ErrPresetNotFound}
	}
	return clonePreset(preset), nil
}

// Remove drops a preset definition, reporting whether it existed. Used by
// hosts when a preset package is uninstalled; committed stack entries that
// reference removed presets are reaped by Stack.Validate.
func (c *MemoryCatalog) Remove(id string) bool {
	if _, ok := c.presets[id]; !ok {
		return false
	}
	delete(c.presets, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// IDs returns registered preset identifiers in registration order.
func (c *MemoryCatalog) IDs() []string {
	if len(c.order) == 0 {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// PackageIDs returns identifiers belonging to the named package, sorted for
// deterministic bulk-removal batches.
func (c *MemoryCatalog) PackageIDs(pkg string) []string {
	var out []string
	for _, id := range c.order {
		if c.presets[id].Package == pkg {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Has reports whether id resolves. Useful as the validity probe handed to
// Stack.Validate.
func (c *MemoryCatalog) Has(id string) bool {
	_, ok := c.presets[id]
	return ok
}
