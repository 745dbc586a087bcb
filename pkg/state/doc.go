// Package state defines persistence-facing contracts for loading and saving
// preset stack snapshots, keyed by scene and stack name.
//
// Responsibilities:
//   - Store only loads/saves a single presets.Snapshot for a single Ref.
//   - The core presets package remains persistence-agnostic; all persistence
//     logic stays behind Store implementations supplied by consumers.
//
// Concurrency control:
//
//	Meta.ETag implements optimistic concurrency. A Save carrying a non-empty
//	ETag fails with ErrETagMismatch when the stored record's ETag differs.
//	Every successful Save mints a fresh SnapshotID and ETag.
//
// Deterministic keys:
//
//	Ref.Identifier() provides the canonical storage key format
//	("scene/<scene>/<stack>"). Adapters persisting under other key schemes
//	handle their own migration.
package state
