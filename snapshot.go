package presets

import (
	"fmt"
)

// ElementSnapshot is the persisted form of one stack element.
type ElementSnapshot struct {
	Identifier string           `json:"identifier"`
	StackUID   int              `json:"stack_uid"`
	IsEnabled  bool             `json:"is_enabled"`
	IsActive   bool             `json:"is_active"`
	IsApplied  bool             `json:"is_applied"`
	Saved      []SavedProperty  `json:"saved_properties,omitempty"`
	Resources  []ResourceRecord `json:"loaded_resources,omitempty"`
}

// Snapshot is the persisted form of a whole stack: the committed elements in
// apply order plus the staged element, if any.
type Snapshot struct {
	IsEnabled bool              `json:"is_enabled"`
	IsStaged  bool              `json:"is_staged"`
	Staged    *ElementSnapshot  `json:"staged,omitempty"`
	Elements  []ElementSnapshot `json:"elements"`
}

// Snapshot captures the stack's current shape for persistence. Live
// configuration values are not captured; the saved baselines inside each
// element are.
func (s *Stack) Snapshot() Snapshot {
	snap := Snapshot{
		IsEnabled: s.enabled,
		Elements:  make([]ElementSnapshot, 0, len(s.elements)),
	}
	for _, elem := range s.elements {
		snap.Elements = append(snap.Elements, snapshotElement(elem))
	}
	if s.staged != nil {
		staged := snapshotElement(s.staged)
		snap.IsStaged = true
		snap.Staged = &staged
	}
	return snap
}

func snapshotElement(elem *StackElement) ElementSnapshot {
	return ElementSnapshot{
		Identifier: elem.identifier,
		StackUID:   elem.uid,
		IsEnabled:  elem.enabled,
		IsActive:   elem.active,
		IsApplied:  elem.applied,
		Saved:      append([]SavedProperty(nil), elem.saved...),
		Resources:  append([]ResourceRecord(nil), elem.resources...),
	}
}

// Restore replaces the stack's contents with a previously captured snapshot.
// The snapshot is assumed to describe the live environment: elements marked
// applied re-register their resource references without re-materializing and
// their written values are assumed present in the configuration. Restoring
// into a non-empty stack is rejected.
func (s *Stack) Restore(snap Snapshot) error {
	if len(s.elements) > 0 || s.staged != nil {
		return fmt.Errorf("presets: restore requires an empty stack")
	}

	seen := make(map[int]struct{}, len(snap.Elements))
	for _, es := range snap.Elements {
		if es.Identifier == "" {
			return fmt.Errorf("presets: snapshot element missing identifier")
		}
		if es.StackUID < 0 || es.StackUID > maxStackUID {
			return fmt.Errorf("presets: snapshot element %q has invalid uid %d", es.Identifier, es.StackUID)
		}
		if _, dup := seen[es.StackUID]; dup {
			return fmt.Errorf("presets: snapshot reuses uid %d", es.StackUID)
		}
		seen[es.StackUID] = struct{}{}
	}

	s.enabled = snap.IsEnabled
	for _, es := range snap.Elements {
		elem := restoreElement(es)
		if elem.applied {
			for _, rec := range elem.resources {
				s.tracker.adopt(rec)
			}
		}
		s.elements = append(s.elements, elem)
	}
	if snap.IsStaged && snap.Staged != nil {
		elem := restoreElement(*snap.Staged)
		elem.uid = noUID
		if elem.applied {
			for _, rec := range elem.resources {
				s.tracker.adopt(rec)
			}
		}
		s.staged = elem
	}
	return nil
}

func restoreElement(es ElementSnapshot) *StackElement {
	return &StackElement{
		identifier: es.Identifier,
		uid:        es.StackUID,
		enabled:    es.IsEnabled,
		active:     es.IsActive,
		applied:    es.IsApplied,
		saved:      append([]SavedProperty(nil), es.Saved...),
		resources:  append([]ResourceRecord(nil), es.Resources...),
	}
}
