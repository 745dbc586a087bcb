package presets

import (
	"errors"
	"testing"
)

func TestRegistryRejectsDuplicatePaths(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Add("render.sun.energy", "Sun Energy", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.Add("render.sun.energy", "Other Label", 2); !errors.Is(err, ErrDuplicatePath) {
		t.Fatalf("expected ErrDuplicatePath, got %v", err)
	}
	if registry.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", registry.Len())
	}
}

func TestRegistryPreservesInsertionOrder(t *testing.T) {
	registry := NewRegistry()
	paths := []string{"c.third", "a.first", "b.second"}
	for i, path := range paths {
		if err := registry.Add(path, path, i); err != nil {
			t.Fatalf("add %s: %v", path, err)
		}
	}
	got := registry.Paths()
	for i, want := range paths {
		if got[i] != want {
			t.Fatalf("expected %q at %d, got %q", want, i, got[i])
		}
	}

	registry.Clear()
	if registry.Len() != 0 || registry.Paths() != nil {
		t.Fatalf("expected empty registry after clear")
	}
}

func TestRegistryBindBuildsAccessorConfig(t *testing.T) {
	var energy float64 = 1
	registry := NewRegistry()
	err := registry.Add("render.sun.energy", "Sun Energy", 1,
		WithKind(KindFloat),
		WithAccessor(
			func() (Value, bool) { return FloatValue(energy), true },
			func(v Value) error {
				f, ok := v.AsFloat()
				if !ok {
					return errors.New("want float")
				}
				energy = f
				return nil
			},
		),
	)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	config, err := registry.Bind()
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := config.SetValue("render.sun.energy", FloatValue(4.5)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if energy != 4.5 {
		t.Fatalf("expected accessor write-through, got %v", energy)
	}
	value, ok := config.Value("render.sun.energy")
	if f, _ := value.AsFloat(); !ok || f != 4.5 {
		t.Fatalf("expected 4.5 via accessor, got %s ok=%v", value, ok)
	}
	if err := config.SetValue("unknown.path", FloatValue(1)); err == nil {
		t.Fatalf("expected unbound path to fail")
	}
}

func TestRegistryBindRequiresCompleteAccessors(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Add("render.sun.energy", "Sun Energy", 1, WithKind(KindFloat)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := registry.Bind(); !errors.Is(err, ErrNoAccessor) {
		t.Fatalf("expected ErrNoAccessor, got %v", err)
	}
}

func TestRegistrySchemaExport(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Add("render.sun.energy", "Sun Energy", 1, WithKind(KindFloat)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := registry.Add("render.floor.material", "Floor Material", 2, WithKind(KindResource)); err != nil {
		t.Fatalf("add: %v", err)
	}

	doc := registry.Schema()
	if doc.Format != SchemaFormatDescriptors {
		t.Fatalf("expected descriptors format, got %q", doc.Format)
	}
	descriptors, ok := doc.Document.([]FieldDescriptor)
	if !ok {
		t.Fatalf("expected descriptor slice, got %T", doc.Document)
	}
	if len(descriptors) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(descriptors))
	}
	if descriptors[0].Path != "render.sun.energy" || descriptors[0].Kind != "float" {
		t.Fatalf("unexpected first descriptor %+v", descriptors[0])
	}
	if descriptors[1].GroupID != 2 || descriptors[1].Label != "Floor Material" {
		t.Fatalf("unexpected second descriptor %+v", descriptors[1])
	}
}
