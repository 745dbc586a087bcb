package presets

import (
	"errors"
	"fmt"
)

const noUID = -1

// StackElement is the runtime record of one preset application: its
// identifier, the "before" snapshot of every path it touched, and its
// loaded-resource records.
type StackElement struct {
	identifier string
	uid        int
	enabled    bool
	active     bool
	applied    bool
	saved      []SavedProperty
	resources  []ResourceRecord
}

func newStackElement() *StackElement {
	return &StackElement{
		uid:     noUID,
		enabled: true,
		active:  true,
	}
}

// applyEnv bundles the collaborators an element needs during apply/unapply.
type applyEnv struct {
	config   Config
	tracker  *resourceTracker
	evaluate func(preset Preset, prop PresetProperty) (Value, error)
}

// apply snapshots the current live values for every path the preset touches,
// materializes referenced resources, then writes the preset values in the
// preset's own listed order. Calling apply on an already-applied element is a
// no-op.
//
// A fresh snapshot is taken on every apply. Under the bracket protocol all
// elements below this one are already applied when it applies, so the values
// read here are exactly the baseline this element must restore. Paths with no
// readable value are recorded as unset so unapply clears them.
func (e *StackElement) apply(preset Preset, env applyEnv) error {
	if e.applied {
		return nil
	}

	e.saved = nil
	for _, prop := range preset.Properties {
		current, ok := env.config.Value(prop.Path)
		if !ok {
			current = Unset()
		}
		e.saved = append(e.saved, SaveProperty(prop.Path, current))
	}

	loaded, err := e.loadResources(preset, env.tracker)
	if err != nil {
		e.saved = nil
		return err
	}

	if err := e.writeValues(preset, env); err != nil {
		for i := len(loaded) - 1; i >= 0; i-- {
			_ = env.tracker.unload(loaded[i])
		}
		e.resources = nil
		e.saved = nil
		return err
	}

	e.applied = true
	return nil
}

func (e *StackElement) loadResources(preset Preset, tracker *resourceTracker) ([]ResourceRecord, error) {
	ids := preset.ResourceIDs()
	if len(ids) == 0 {
		e.resources = nil
		return nil, nil
	}

	records := make([]ResourceRecord, 0, len(ids))
	for _, logicalID := range ids {
		rec, err := tracker.load(logicalID)
		if err != nil {
			for i := len(records) - 1; i >= 0; i-- {
				_ = tracker.unload(records[i])
			}
			return nil, err
		}
		records = append(records, rec)
	}
	e.resources = records
	return records, nil
}

func (e *StackElement) writeValues(preset Preset, env applyEnv) error {
	written := 0
	for _, prop := range preset.Properties {
		value := prop.Value
		if prop.Expr != "" {
			evaluated, err := env.evaluate(preset, prop)
			if err != nil {
				e.rollbackWrites(env.config, preset, written)
				return err
			}
			value = evaluated
		}
		if logicalID, ok := value.AsResource(); ok {
			rec, found := e.resource(logicalID)
			if !found {
				e.rollbackWrites(env.config, preset, written)
				return &ResourceError{LogicalID: logicalID, Err: fmt.Errorf("no loaded record")}
			}
			value = ResourceValue(rec.InstanceID)
		}
		if err := env.config.SetValue(prop.Path, value); err != nil {
			e.rollbackWrites(env.config, preset, written)
			return fmt.Errorf("presets: write %q: %w", prop.Path, err)
		}
		written++
	}
	return nil
}

// rollbackWrites restores the first n written paths from the snapshot so a
// failed apply never leaves partial overrides behind. Paths that had no
// readable value before the apply are cleared back to unset.
func (e *StackElement) rollbackWrites(cfg Config, preset Preset, n int) {
	for i := n - 1; i >= 0; i-- {
		path := preset.Properties[i].Path
		restored := Unset()
		for _, saved := range e.saved {
			if saved.Path != path {
				continue
			}
			if value, err := saved.Value(); err == nil {
				restored = value
			}
			break
		}
		_ = cfg.SetValue(path, restored)
	}
}

// unapply writes every snapshot entry back in stored order and releases the
// element's resource references. The snapshot stays populated until the next
// apply so a committed-but-unapplied element still persists its baseline.
func (e *StackElement) unapply(env applyEnv) error {
	if !e.applied {
		return nil
	}

	var errs []error
	for _, saved := range e.saved {
		value, err := saved.Value()
		if err != nil {
			errs = append(errs, fmt.Errorf("presets: restore %q: %w", saved.Path, err))
			continue
		}
		if err := env.config.SetValue(saved.Path, value); err != nil {
			errs = append(errs, fmt.Errorf("presets: restore %q: %w", saved.Path, err))
		}
	}
	for _, rec := range e.resources {
		if err := env.tracker.unload(rec); err != nil {
			errs = append(errs, err)
		}
	}

	e.applied = false
	return errors.Join(errs...)
}

// clear empties the element. The caller must have unapplied it first; clear
// force-unapplies as a safety net rather than leaking an applied override.
func (e *StackElement) clear(env applyEnv) error {
	var err error
	if e.applied {
		err = e.unapply(env)
	}
	e.identifier = ""
	e.saved = nil
	e.resources = nil
	return err
}

// reset empties the bookkeeping without touching the live configuration or
// resource counts. Used when promoting a staged element: its applied effect
// transfers to the committed copy.
func (e *StackElement) reset() {
	e.identifier = ""
	e.applied = false
	e.saved = nil
	e.resources = nil
}

// copyFrom deep-copies the applied flag, identifier, snapshot, and resource
// records. The uid and the enabled/active flags are deliberately left alone;
// the caller assigns those.
func (e *StackElement) copyFrom(other *StackElement) {
	e.identifier = other.identifier
	e.applied = other.applied
	e.saved = append([]SavedProperty(nil), other.saved...)
	e.resources = append([]ResourceRecord(nil), other.resources...)
}

func (e *StackElement) resource(logicalID string) (ResourceRecord, bool) {
	for _, rec := range e.resources {
		if rec.PresetResourceID == logicalID {
			return rec, true
		}
	}
	return ResourceRecord{}, false
}

// markKeep flags every loaded-resource record so teardown is skipped when
// the element is removed.
func (e *StackElement) markKeep() {
	for i := range e.resources {
		e.resources[i].Keep = true
	}
}

// ElementView is a read-only snapshot of one stack element handed to
// callers; mutating it never affects the stack.
type ElementView struct {
	Identifier string
	UID        int
	Enabled    bool
	Active     bool
	Applied    bool
	Saved      []SavedProperty
	Resources  []ResourceRecord
}

func (e *StackElement) view() ElementView {
	return ElementView{
		Identifier: e.identifier,
		UID:        e.uid,
		Enabled:    e.enabled,
		Active:     e.active,
		Applied:    e.applied,
		Saved:      append([]SavedProperty(nil), e.saved...),
		Resources:  append([]ResourceRecord(nil), e.resources...),
	}
}
