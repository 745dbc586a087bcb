package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	presets "github.com/goliatone/go-presets"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation intended for tests and
// examples. It uses Ref.Identifier() as its deterministic key.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	snapshot presets.Snapshot
	meta     Meta
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, ref Ref) (presets.Snapshot, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return presets.Snapshot{}, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return presets.Snapshot{}, Meta{}, false, nil
	}
	return record.snapshot, cloneMeta(record.meta), true, nil
}

// Save implements Store. A non-empty incoming ETag must match the stored
// record's ETag; every successful save mints a fresh SnapshotID and ETag.
func (s *MemoryStore) Save(_ context.Context, ref Ref, snapshot presets.Snapshot, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok {
		if meta.ETag != "" && existing.meta.ETag != "" && meta.ETag != existing.meta.ETag {
			return Meta{}, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, existing.meta.ETag, meta.ETag)
		}
	}

	saved := cloneMeta(meta)
	saved.SnapshotID = uuid.NewString()
	saved.ETag = uuid.NewString()
	saved.UpdatedAt = time.Now().UTC()
	s.records[key] = memoryRecord{snapshot: snapshot, meta: saved}
	return cloneMeta(saved), nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, ref Ref) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

// Len reports how many snapshots are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
