// Package runs defines the pipeline's persistent run model and the record
// types that flow between stages as JSONL artifacts.
//
// A run owns an immutable workspace directory under the configured output
// root. Each stage reads the artifact written by its predecessor and writes
// exactly one new artifact; nothing in a workspace is rewritten after the
// stage that produced it finishes. The Store persists run rows in SQLite so
// the daemon and CLI share a single view of run state.
//
// Treat this package as the single source of truth for run semantics; when
// you add new statuses or artifact types, update schema.sql and bump
// schemaVersion.
package runs
