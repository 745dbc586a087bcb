package presets

import (
	"errors"
	"fmt"
)

// ErrResourceUnavailable indicates the materialization backend has no source
// data for a logical resource id.
var ErrResourceUnavailable = errors.New("presets: resource source not available")

// Materializer is the resource materialization backend boundary. Instances
// are shared across stack elements by logical id and must only ever be
// destroyed through the reference-counting path, never directly.
type Materializer interface {
	// Lookup reports the instance id already materialized for logicalID,
	// if any. This is the load-before-create probe that prevents duplicate
	// instances when multiple presets name the same resource.
	Lookup(logicalID string) (instanceID string, ok bool)
	// Materialize creates a new instance for logicalID.
	Materialize(logicalID string) (instanceID string, err error)
	// Destroy tears down a materialized instance.
	Destroy(instanceID string) error
}

// ResourceError reports a failed resource materialization or teardown.
type ResourceError struct {
	LogicalID string
	Err       error
}

func (e *ResourceError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("presets: resource %q: %v", e.LogicalID, e.Err)
}

func (e *ResourceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ResourceRecord maps the logical resource id named inside a preset
// definition to the instance actually materialized in the live environment.
type ResourceRecord struct {
	PresetResourceID string `json:"preset_resource_id"`
	InstanceID       string `json:"loaded_resource_id"`
	Keep             bool   `json:"keep,omitempty"`
}

// resourceTracker owns the reference counts for materialized resources. The
// count for a logical id equals the number of applied stack elements
// (including the staged one) currently holding a record for it, maintained
// incrementally at load/unload time instead of rescanned per mutation.
type resourceTracker struct {
	backend   Materializer
	refs      map[string]int
	instances map[string]string
	keep      map[string]struct{}
}

func newResourceTracker(backend Materializer) *resourceTracker {
	return &resourceTracker{
		backend:   backend,
		refs:      make(map[string]int),
		instances: make(map[string]string),
		keep:      make(map[string]struct{}),
	}
}

// load acquires one reference on logicalID, materializing it only when no
// instance exists anywhere in the environment. A failed materialization
// registers nothing.
func (t *resourceTracker) load(logicalID string) (ResourceRecord, error) {
	if logicalID == "" {
		return ResourceRecord{}, &ResourceError{LogicalID: logicalID, Err: fmt.Errorf("logical id must not be empty")}
	}

	instanceID, tracked := t.instances[logicalID]
	if !tracked {
		if existing, ok := t.backend.Lookup(logicalID); ok {
			instanceID = existing
		} else {
			created, err := t.backend.Materialize(logicalID)
			if err != nil {
				return ResourceRecord{}, &ResourceError{LogicalID: logicalID, Err: err}
			}
			instanceID = created
		}
		t.instances[logicalID] = instanceID
	}

	t.refs[logicalID]++
	return ResourceRecord{PresetResourceID: logicalID, InstanceID: instanceID}, nil
}

// unload releases one reference. The instance is destroyed only when the
// last reference goes away and no keep flag protects it.
func (t *resourceTracker) unload(rec ResourceRecord) error {
	logicalID := rec.PresetResourceID
	count, ok := t.refs[logicalID]
	if !ok || count <= 0 {
		return nil
	}

	count--
	if count > 0 {
		t.refs[logicalID] = count
		return nil
	}

	delete(t.refs, logicalID)
	instanceID := t.instances[logicalID]
	delete(t.instances, logicalID)

	if rec.Keep || t.kept(logicalID) {
		delete(t.keep, logicalID)
		return nil
	}
	if instanceID == "" {
		instanceID = rec.InstanceID
	}
	if err := t.backend.Destroy(instanceID); err != nil {
		return &ResourceError{LogicalID: logicalID, Err: err}
	}
	return nil
}

// release drops one reference without ever destroying the instance. Used
// when an element is removed but its resources are intentionally preserved.
func (t *resourceTracker) release(rec ResourceRecord) {
	logicalID := rec.PresetResourceID
	count := t.refs[logicalID]
	if count <= 1 {
		delete(t.refs, logicalID)
		delete(t.instances, logicalID)
		delete(t.keep, logicalID)
		return
	}
	t.keepInstance(logicalID)
	t.refs[logicalID] = count - 1
}

// adopt re-registers a reference for an already-applied record, used when
// restoring a persisted stack whose effects are assumed live.
func (t *resourceTracker) adopt(rec ResourceRecord) {
	if rec.PresetResourceID == "" {
		return
	}
	t.refs[rec.PresetResourceID]++
	if rec.InstanceID != "" {
		t.instances[rec.PresetResourceID] = rec.InstanceID
	}
	if rec.Keep {
		t.keepInstance(rec.PresetResourceID)
	}
}

// keepInstance marks logicalID as protected from teardown regardless of
// reference count, matching the "user still uses this outside the preset
// machinery" escape hatch.
func (t *resourceTracker) keepInstance(logicalID string) {
	if logicalID == "" {
		return
	}
	t.keep[logicalID] = struct{}{}
}

func (t *resourceTracker) kept(logicalID string) bool {
	_, ok := t.keep[logicalID]
	return ok
}

// refCount reports the live reference count for logicalID.
func (t *resourceTracker) refCount(logicalID string) int {
	return t.refs[logicalID]
}

// MemoryMaterializer is an in-memory Materializer for tests and examples.
// Instance ids follow the host suffix convention ("MAT_WOOD" becomes
// "MAT_WOOD.001").
type MemoryMaterializer struct {
	sources    map[string]struct{}
	instances  map[string]string
	byInstance map[string]string
	seq        map[string]int
}

// NewMemoryMaterializer constructs a backend that can materialize the given
// logical ids.
func NewMemoryMaterializer(sources ...string) *MemoryMaterializer {
	m := &MemoryMaterializer{
		sources:    make(map[string]struct{}, len(sources)),
		instances:  make(map[string]string),
		byInstance: make(map[string]string),
		seq:        make(map[string]int),
	}
	for _, id := range sources {
		m.sources[id] = struct{}{}
	}
	return m
}

// AddSource registers additional source data after construction.
func (m *MemoryMaterializer) AddSource(logicalID string) {
	m.sources[logicalID] = struct{}{}
}

// RemoveSource drops source data, making future materializations fail.
func (m *MemoryMaterializer) RemoveSource(logicalID string) {
	delete(m.sources, logicalID)
}

// Lookup implements Materializer.
func (m *MemoryMaterializer) Lookup(logicalID string) (string, bool) {
	instanceID, ok := m.instances[logicalID]
	return instanceID, ok
}

// Materialize implements Materializer.
func (m *MemoryMaterializer) Materialize(logicalID string) (string, error) {
	if _, ok := m.sources[logicalID]; !ok {
		return "", fmt.Errorf("%w: %s", ErrResourceUnavailable, logicalID)
	}
	if existing, ok := m.instances[logicalID]; ok {
		return existing, nil
	}
	m.seq[logicalID]++
	instanceID := fmt.Sprintf("%s.%03d", logicalID, m.seq[logicalID])
	m.instances[logicalID] = instanceID
	m.byInstance[instanceID] = logicalID
	return instanceID, nil
}

// Destroy implements Materializer.
func (m *MemoryMaterializer) Destroy(instanceID string) error {
	logicalID, ok := m.byInstance[instanceID]
	if !ok {
		return fmt.Errorf("presets: unknown instance %q", instanceID)
	}
	delete(m.byInstance, instanceID)
	delete(m.instances, logicalID)
	return nil
}

// InstanceCount reports how many instances are currently materialized.
func (m *MemoryMaterializer) InstanceCount() int {
	return len(m.byInstance)
}

// Materialized reports whether any instance exists for logicalID.
func (m *MemoryMaterializer) Materialized(logicalID string) bool {
	_, ok := m.instances[logicalID]
	return ok
}
