package presets

import "strings"

// Config is the live configuration boundary. The stack protocol is the only
// assumed writer; external writes to the same paths while a preset is applied
// will corrupt snapshot/restore baselines (documented hazard, not solved
// here).
//
// Value returning ok=false means "path not present" and is treated by the
// core as skip-silently, never as an error.
type Config interface {
	Value(path string) (Value, bool)
	SetValue(path string, value Value) error
}

// MapConfig is a map-backed Config for tests, examples, and hosts without a
// typed configuration object. Writing Unset removes the path, mirroring a
// None assignment.
type MapConfig struct {
	values map[string]Value
}

// NewMapConfig constructs an empty MapConfig.
func NewMapConfig() *MapConfig {
	return &MapConfig{values: make(map[string]Value)}
}

// Value implements Config.
func (c *MapConfig) Value(path string) (Value, bool) {
	value, ok := c.values[path]
	return value, ok
}

// SetValue implements Config.
func (c *MapConfig) SetValue(path string, value Value) error {
	if !value.IsSet() {
		delete(c.values, path)
		return nil
	}
	c.values[path] = value
	return nil
}

// Len returns the number of populated paths.
func (c *MapConfig) Len() int {
	return len(c.values)
}

// snapshotConfig materialises a nested view of the live configuration for
// evaluator environments: "render.sun.energy" becomes
// env["render"]["sun"]["energy"].
func snapshotConfig(cfg Config, paths []string) map[string]any {
	out := make(map[string]any)
	for _, path := range paths {
		value, ok := cfg.Value(path)
		if !ok || !value.IsSet() {
			continue
		}
		insertPath(out, path, value.Interface())
	}
	return out
}

func insertPath(root map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := root
	for i, segment := range segments {
		if i == len(segments)-1 {
			current[segment] = value
			return
		}
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}
}
