package presets

import (
	"errors"
	"testing"
)

func TestTrackerSharesInstancesByLogicalID(t *testing.T) {
	materializer := NewMemoryMaterializer("MAT_WOOD")
	tracker := newResourceTracker(materializer)

	first, err := tracker.load("MAT_WOOD")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second, err := tracker.load("MAT_WOOD")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if first.InstanceID != "MAT_WOOD.001" || second.InstanceID != first.InstanceID {
		t.Fatalf("expected shared instance, got %q and %q", first.InstanceID, second.InstanceID)
	}
	if materializer.InstanceCount() != 1 {
		t.Fatalf("expected a single instance, got %d", materializer.InstanceCount())
	}
	if tracker.refCount("MAT_WOOD") != 2 {
		t.Fatalf("expected refcount 2, got %d", tracker.refCount("MAT_WOOD"))
	}

	if err := tracker.unload(first); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if !materializer.Materialized("MAT_WOOD") {
		t.Fatalf("instance must survive while a reference remains")
	}
	if err := tracker.unload(second); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if materializer.Materialized("MAT_WOOD") {
		t.Fatalf("expected teardown at refcount zero")
	}
}

func TestTrackerAdoptsExistingInstances(t *testing.T) {
	materializer := NewMemoryMaterializer("MAT_WOOD")
	if _, err := materializer.Materialize("MAT_WOOD"); err != nil {
		t.Fatalf("materialize: %v", err)
	}

	tracker := newResourceTracker(materializer)
	rec, err := tracker.load("MAT_WOOD")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Lookup found the pre-existing instance instead of creating a duplicate.
	if rec.InstanceID != "MAT_WOOD.001" {
		t.Fatalf("expected adopted instance, got %q", rec.InstanceID)
	}
	if materializer.InstanceCount() != 1 {
		t.Fatalf("expected no duplicate, got %d instances", materializer.InstanceCount())
	}
}

func TestTrackerFailedMaterializationRegistersNothing(t *testing.T) {
	materializer := NewMemoryMaterializer()
	tracker := newResourceTracker(materializer)

	_, err := tracker.load("MAT_MISSING")
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Fatalf("expected ErrResourceUnavailable, got %v", err)
	}
	if tracker.refCount("MAT_MISSING") != 0 {
		t.Fatalf("failed load must not hold a reference")
	}

	// The source appearing later makes the same id loadable.
	materializer.AddSource("MAT_MISSING")
	if _, err := tracker.load("MAT_MISSING"); err != nil {
		t.Fatalf("load after source added: %v", err)
	}
}

func TestTrackerKeepFlagSkipsTeardown(t *testing.T) {
	materializer := NewMemoryMaterializer("MAT_WOOD")
	tracker := newResourceTracker(materializer)

	rec, err := tracker.load("MAT_WOOD")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rec.Keep = true
	if err := tracker.unload(rec); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if !materializer.Materialized("MAT_WOOD") {
		t.Fatalf("keep flag must prevent teardown")
	}
	if tracker.refCount("MAT_WOOD") != 0 {
		t.Fatalf("expected reference released")
	}
}

func TestTrackerReleasePreservesSharedInstance(t *testing.T) {
	materializer := NewMemoryMaterializer("MAT_WOOD")
	tracker := newResourceTracker(materializer)

	first, _ := tracker.load("MAT_WOOD")
	second, _ := tracker.load("MAT_WOOD")

	// release marks the instance protected, so the remaining holder's
	// eventual unload will not destroy it either.
	tracker.release(first)
	if err := tracker.unload(second); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if !materializer.Materialized("MAT_WOOD") {
		t.Fatalf("released instance must survive remaining unloads")
	}
}

func TestMemoryMaterializerInstanceNaming(t *testing.T) {
	materializer := NewMemoryMaterializer("MAT_WOOD")

	id, err := materializer.Materialize("MAT_WOOD")
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if id != "MAT_WOOD.001" {
		t.Fatalf("expected MAT_WOOD.001, got %q", id)
	}
	if err := materializer.Destroy(id); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	// A fresh materialization gets the next suffix.
	id, err = materializer.Materialize("MAT_WOOD")
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if id != "MAT_WOOD.002" {
		t.Fatalf("expected MAT_WOOD.002, got %q", id)
	}
	if err := materializer.Destroy("UNKNOWN.001"); err == nil {
		t.Fatalf("expected unknown instance error")
	}
}
