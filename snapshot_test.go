package presets

import (
	"encoding/json"
	"testing"
)

func snapshotFixture(t *testing.T) (*Registry, *MemoryCatalog, *MapConfig, *MemoryMaterializer) {
	t.Helper()
	registry := NewRegistry()
	if err := registry.Add("path.x", "Path X", 1, WithKind(KindInt)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := registry.Add("render.floor.material", "Floor Material", 2, WithKind(KindResource)); err != nil {
		t.Fatalf("add: %v", err)
	}
	catalog := NewMemoryCatalog(
		pathXPreset("warm", 5),
		Preset{
			ID: "wood_floor",
			Properties: []PresetProperty{
				{Path: "render.floor.material", Value: ResourceValue("MAT_WOOD")},
			},
		},
	)
	config := NewMapConfig()
	if err := config.SetValue("path.x", IntValue(1)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return registry, catalog, config, NewMemoryMaterializer("MAT_WOOD")
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	registry, catalog, config, materializer := snapshotFixture(t)
	stack, err := NewStack(registry, catalog, config, materializer)
	if err != nil {
		t.Fatalf("new stack: %v", err)
	}
	mustCommit(t, stack, "warm")
	mustCommit(t, stack, "wood_floor")
	if err := stack.Stage("warm"); err != nil {
		t.Fatalf("stage: %v", err)
	}

	snap := stack.Snapshot()
	if !snap.IsEnabled || !snap.IsStaged || len(snap.Elements) != 2 {
		t.Fatalf("unexpected snapshot shape %+v", snap)
	}

	// Snapshots survive JSON persistence.
	payload, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// A fresh stack over the same live environment adopts the snapshot:
	// applied elements re-register their resource references without
	// re-materializing anything.
	restored, err := NewStack(registry, catalog, config, materializer)
	if err != nil {
		t.Fatalf("new stack: %v", err)
	}
	if err := restored.Restore(decoded); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Len() != 2 {
		t.Fatalf("expected 2 elements, got %d", restored.Len())
	}
	if staged, ok := restored.Staged(); !ok || staged.Identifier != "warm" {
		t.Fatalf("expected staged warm, got %+v ok=%v", staged, ok)
	}
	if restored.ResourceRefCount("MAT_WOOD") != 1 {
		t.Fatalf("expected adopted reference, got %d", restored.ResourceRefCount("MAT_WOOD"))
	}
	if materializer.InstanceCount() != 1 {
		t.Fatalf("restore must not re-materialize, got %d instances", materializer.InstanceCount())
	}

	views := restored.Elements()
	if views[0].UID != 0 || views[1].UID != 1 {
		t.Fatalf("expected uids preserved, got %d and %d", views[0].UID, views[1].UID)
	}

	// The restored stack can unwind the environment it adopted.
	if err := restored.Disable(); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if got := intAt(t, config, "path.x"); got != 1 {
		t.Fatalf("expected baseline 1, got %d", got)
	}
	if materializer.InstanceCount() != 0 {
		t.Fatalf("expected adopted instance destroyed on disable, got %d", materializer.InstanceCount())
	}
}

func TestRestoreRejectsNonEmptyStack(t *testing.T) {
	registry, catalog, config, materializer := snapshotFixture(t)
	stack, err := NewStack(registry, catalog, config, materializer)
	if err != nil {
		t.Fatalf("new stack: %v", err)
	}
	mustCommit(t, stack, "warm")

	if err := stack.Restore(Snapshot{IsEnabled: true}); err == nil {
		t.Fatalf("expected restore into non-empty stack to fail")
	}
}

func TestRestoreValidatesSnapshot(t *testing.T) {
	registry, catalog, config, materializer := snapshotFixture(t)

	cases := []struct {
		name string
		snap Snapshot
	}{
		{"missing identifier", Snapshot{Elements: []ElementSnapshot{{StackUID: 0}}}},
		{"negative uid", Snapshot{Elements: []ElementSnapshot{{Identifier: "warm", StackUID: -1}}}},
		{"duplicate uid", Snapshot{Elements: []ElementSnapshot{
			{Identifier: "warm", StackUID: 3},
			{Identifier: "wood_floor", StackUID: 3},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stack, err := NewStack(registry, catalog, config, materializer)
			if err != nil {
				t.Fatalf("new stack: %v", err)
			}
			if err := stack.Restore(tc.snap); err == nil {
				t.Fatalf("expected validation failure")
			}
		})
	}
}
