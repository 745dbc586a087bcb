package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	presets "github.com/goliatone/go-presets"
)

// ErrETagMismatch indicates a Save lost an optimistic-concurrency race.
var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies one persisted stack snapshot: the scene it belongs to and
// the stack's name within that scene.
type Ref struct {
	Scene string
	Stack string
}

// Identifier returns the canonical storage key for the reference.
func (r Ref) Identifier() (string, error) {
	if r.Scene == "" {
		return "", fmt.Errorf("state: scene is required")
	}
	stack := r.Stack
	if stack == "" {
		stack = "default"
	}
	return fmt.Sprintf("scene/%s/%s", r.Scene, stack), nil
}

// Meta is storage-owned metadata used for trace/audit and concurrency
// control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one stack snapshot for a single reference.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot presets.Snapshot, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot presets.Snapshot, meta Meta) (Meta, error)
	Delete(ctx context.Context, ref Ref) error
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
