package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	presets "github.com/goliatone/go-presets"
	"github.com/google/uuid"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS preset_stacks (
	identifier  TEXT PRIMARY KEY,
	payload     TEXT NOT NULL,
	snapshot_id TEXT NOT NULL,
	etag        TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	extra       TEXT
);
`

// SQLiteStore persists stack snapshots in a SQLite database. Snapshots are
// stored as JSON payloads in a single table keyed by Ref.Identifier().
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database at dsn and prepares the
// snapshot table. Use ":memory:" for an ephemeral store.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("state: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an existing database handle. The caller runs Init.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Init creates the snapshot table when missing.
func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("state: init schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, ref Ref) (presets.Snapshot, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return presets.Snapshot{}, Meta{}, false, err
	}

	var (
		payload   string
		meta      Meta
		updatedAt string
		extra     sql.NullString
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT payload, snapshot_id, etag, updated_at, extra FROM preset_stacks WHERE identifier = ?`, key)
	if err := row.Scan(&payload, &meta.SnapshotID, &meta.ETag, &updatedAt, &extra); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return presets.Snapshot{}, Meta{}, false, nil
		}
		return presets.Snapshot{}, Meta{}, false, fmt.Errorf("state: load %q: %w", key, err)
	}

	var snapshot presets.Snapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return presets.Snapshot{}, Meta{}, false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		meta.UpdatedAt = ts
	}
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &meta.Extra); err != nil {
			return presets.Snapshot{}, Meta{}, false, fmt.Errorf("state: decode extra %q: %w", key, err)
		}
	}
	return snapshot, meta, true, nil
}

// Save implements Store with the same ETag semantics as MemoryStore.
func (s *SQLiteStore) Save(ctx context.Context, ref Ref, snapshot presets.Snapshot, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode %q: %w", key, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %q: %w", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	var storedETag string
	row := tx.QueryRowContext(ctx, `SELECT etag FROM preset_stacks WHERE identifier = ?`, key)
	switch err := row.Scan(&storedETag); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Meta{}, fmt.Errorf("state: save %q: %w", key, err)
	default:
		if meta.ETag != "" && storedETag != "" && meta.ETag != storedETag {
			return Meta{}, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, storedETag, meta.ETag)
		}
	}

	saved := cloneMeta(meta)
	saved.SnapshotID = uuid.NewString()
	saved.ETag = uuid.NewString()
	saved.UpdatedAt = time.Now().UTC()

	extraJSON := ""
	if len(saved.Extra) > 0 {
		encoded, err := json.Marshal(saved.Extra)
		if err != nil {
			return Meta{}, fmt.Errorf("state: encode extra %q: %w", key, err)
		}
		extraJSON = string(encoded)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO preset_stacks (identifier, payload, snapshot_id, etag, updated_at, extra)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			payload = excluded.payload,
			snapshot_id = excluded.snapshot_id,
			etag = excluded.etag,
			updated_at = excluded.updated_at,
			extra = excluded.extra`,
		key, string(payload), saved.SnapshotID, saved.ETag,
		saved.UpdatedAt.Format(time.RFC3339Nano), extraJSON)
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return Meta{}, fmt.Errorf("state: save %q: %w", key, err)
	}
	return cloneMeta(saved), nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, ref Ref) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM preset_stacks WHERE identifier = ?`, key); err != nil {
		return fmt.Errorf("state: delete %q: %w", key, err)
	}
	return nil
}
