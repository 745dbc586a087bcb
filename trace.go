package presets

import (
	"encoding/json"
)

// Trace captures provenance information for one configuration path: every
// stack element that touched it, in apply order, plus the live value.
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
	Live   Value        `json:"live,omitempty"`
	Found  bool         `json:"found"`
}

// Provenance details how one stack element contributed to a traced path.
type Provenance struct {
	PresetID string `json:"preset_id"`
	StackUID int    `json:"stack_uid"`
	Applied  bool   `json:"applied"`
	Staged   bool   `json:"staged"`
	Value    Value  `json:"value,omitempty"`
	Found    bool   `json:"found"`
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// TracePath explains where the value at path comes from: each committed
// element (then the staged element) that declares the path contributes a
// layer carrying the value it wrote or would write. Layers appear in apply
// order, so the last found layer is the one whose value won.
func (s *Stack) TracePath(path string) Trace {
	trace := Trace{Path: path}

	for _, elem := range s.elements {
		trace.Layers = append(trace.Layers, s.provenanceFor(elem, path, false))
	}
	if s.staged != nil {
		trace.Layers = append(trace.Layers, s.provenanceFor(s.staged, path, true))
	}

	if live, ok := s.config.Value(path); ok {
		trace.Live = live
		trace.Found = true
	}
	return trace
}

func (s *Stack) provenanceFor(elem *StackElement, path string, staged bool) Provenance {
	prov := Provenance{
		PresetID: elem.identifier,
		StackUID: elem.uid,
		Applied:  elem.applied,
		Staged:   staged,
	}
	preset, err := resolvePreset(s.catalog, elem.identifier)
	if err != nil {
		return prov
	}
	for _, prop := range preset.Properties {
		if prop.Path != path {
			continue
		}
		prov.Found = true
		if prop.Expr != "" {
			if value, evalErr := s.evaluateProperty(preset, prop); evalErr == nil {
				prov.Value = value
			}
			break
		}
		prov.Value = prop.Value
		break
	}
	return prov
}
