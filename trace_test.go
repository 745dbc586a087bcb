package presets

import (
	"testing"
)

func TestTracePathOrdersLayers(t *testing.T) {
	stack, _, _ := newStackFixture(t, []Preset{
		pathXPreset("warm", 5),
		pathXPreset("cool", 9),
		{ID: "unrelated", Properties: []PresetProperty{
			{Path: "render.sun.energy", Value: FloatValue(2)},
		}},
	})
	mustCommit(t, stack, "warm")
	mustCommit(t, stack, "unrelated")
	if err := stack.Stage("cool"); err != nil {
		t.Fatalf("stage: %v", err)
	}

	trace := stack.TracePath("path.x")
	if len(trace.Layers) != 3 {
		t.Fatalf("expected 3 layers, got %d", len(trace.Layers))
	}

	if l := trace.Layers[0]; l.PresetID != "warm" || !l.Found || l.Staged {
		t.Fatalf("unexpected first layer %+v", l)
	}
	if v, _ := trace.Layers[0].Value.AsInt(); v != 5 {
		t.Fatalf("expected warm contribution 5, got %s", trace.Layers[0].Value)
	}
	// unrelated does not declare path.x.
	if l := trace.Layers[1]; l.PresetID != "unrelated" || l.Found {
		t.Fatalf("unexpected second layer %+v", l)
	}
	if l := trace.Layers[2]; l.PresetID != "cool" || !l.Staged || !l.Found {
		t.Fatalf("unexpected staged layer %+v", l)
	}

	// The last found layer matches the live value.
	if !trace.Found {
		t.Fatalf("expected live value found")
	}
	if v, _ := trace.Live.AsInt(); v != 9 {
		t.Fatalf("expected live 9, got %s", trace.Live)
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	trace := Trace{
		Path: "render.sun.energy",
		Layers: []Provenance{
			{PresetID: "warm", StackUID: 0, Applied: true, Value: FloatValue(3.5), Found: true},
			{PresetID: "cool", StackUID: -1, Staged: true},
		},
		Live:  FloatValue(3.5),
		Found: true,
	}

	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if decoded.Path != trace.Path || len(decoded.Layers) != 2 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
	if !decoded.Layers[0].Value.Equal(FloatValue(3.5)) {
		t.Fatalf("expected value to survive, got %s", decoded.Layers[0].Value)
	}
	if !decoded.Layers[1].Staged || decoded.Layers[1].Found {
		t.Fatalf("unexpected staged layer %+v", decoded.Layers[1])
	}
}
