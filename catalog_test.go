package presets

import (
	"errors"
	"testing"
)

func TestMemoryCatalogResolveAndRemove(t *testing.T) {
	catalog := NewMemoryCatalog(
		pathXPreset("warm", 5),
		Preset{ID: "tiles", Package: "archviz"},
		Preset{ID: "bricks", Package: "archviz"},
	)

	preset, err := catalog.Resolve("warm")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// Resolutions are copies; mutating them never touches the catalog.
	preset.Properties[0].Value = IntValue(99)
	again, _ := catalog.Resolve("warm")
	if v, _ := again.Properties[0].Value.AsInt(); v != 5 {
		t.Fatalf("expected catalog definition untouched, got %d", v)
	}

	if _, err := catalog.Resolve("missing"); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("expected ErrPresetNotFound, got %v", err)
	}
	var resErr *ResolutionError
	if _, err := catalog.Resolve("missing"); !errors.As(err, &resErr) || resErr.ID != "missing" {
		t.Fatalf("expected ResolutionError carrying the id, got %v", err)
	}

	if got := catalog.PackageIDs("archviz"); len(got) != 2 || got[0] != "bricks" || got[1] != "tiles" {
		t.Fatalf("expected sorted package ids, got %v", got)
	}
	if !catalog.Remove("tiles") || catalog.Remove("tiles") {
		t.Fatalf("expected remove to report presence once")
	}
	if catalog.Has("tiles") {
		t.Fatalf("expected tiles gone")
	}
	if got := catalog.IDs(); len(got) != 2 {
		t.Fatalf("expected 2 remaining ids, got %v", got)
	}
}

func TestMemoryCatalogRejectsDuplicates(t *testing.T) {
	catalog := NewMemoryCatalog(pathXPreset("warm", 5))
	if err := catalog.Register(pathXPreset("warm", 9)); !errors.Is(err, ErrDuplicatePreset) {
		t.Fatalf("expected ErrDuplicatePreset, got %v", err)
	}
	if err := catalog.Register(Preset{}); err == nil {
		t.Fatalf("expected empty id rejection")
	}
}

func TestPresetResourceIDsDeduplicate(t *testing.T) {
	preset := Preset{
		ID:        "wood_room",
		Resources: []string{"MAT_WOOD", "MAT_TILE"},
		Properties: []PresetProperty{
			{Path: "render.floor.material", Value: ResourceValue("MAT_WOOD")},
			{Path: "render.wall.material", Value: ResourceValue("MAT_PLASTER")},
		},
	}
	got := preset.ResourceIDs()
	want := []string{"MAT_WOOD", "MAT_TILE", "MAT_PLASTER"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLoadPackageCatalogHydratesPayloads(t *testing.T) {
	payloads := []map[string]any{
		{
			"id":    "warm_sun",
			"label": "Warm Sun",
			"properties": []any{
				map[string]any{"path": "render.sun.energy", "value": "float:3.2"},
				map[string]any{"path": "render.sun.color", "value": "color:1,0.8,0.6,1"},
			},
		},
		{
			"id":      "wood_floor",
			"package": "override_pkg",
			"properties": []any{
				map[string]any{"path": "render.floor.material", "value": "resource:MAT_WOOD"},
			},
			"resources": []any{"MAT_WOOD"},
		},
	}

	catalog, err := LoadPackageCatalog("interior_pack", payloads)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	warm, err := catalog.Resolve("warm_sun")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if warm.Package != "interior_pack" {
		t.Fatalf("expected inherited package, got %q", warm.Package)
	}
	if f, _ := warm.Properties[0].Value.AsFloat(); f != 3.2 {
		t.Fatalf("expected hydrated float 3.2, got %s", warm.Properties[0].Value)
	}

	wood, _ := catalog.Resolve("wood_floor")
	if wood.Package != "override_pkg" {
		t.Fatalf("expected explicit package kept, got %q", wood.Package)
	}
	if ids := wood.ResourceIDs(); len(ids) != 1 || ids[0] != "MAT_WOOD" {
		t.Fatalf("expected MAT_WOOD resource, got %v", ids)
	}

	if _, err := LoadPackageCatalog("p", []map[string]any{{"label": "no id"}}); err == nil {
		t.Fatalf("expected missing id to fail")
	}
}
