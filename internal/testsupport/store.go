package testsupport

import (
	"context"
	"testing"
	"time"

	"loom/internal/config"
	"loom/internal/runs"
)

// MustOpenStore opens a runs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *runs.Store {
	t.Helper()

	store, err := runs.Open(cfg)
	if err != nil {
		t.Fatalf("runs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRun creates a run with a workspace for tests.
func NewRun(t testing.TB, cfg *config.Config, store *runs.Store, sourceURL string) *runs.Run {
	t.Helper()

	ws, err := runs.CreateWorkspace(cfg.Paths.OutputDir, time.Now())
	if err != nil {
		t.Fatalf("runs.CreateWorkspace: %v", err)
	}
	run := &runs.Run{
		ID:           ws.RunID,
		Status:       runs.StatusCreated,
		SourceURL:    sourceURL,
		WorkspaceDir: ws.Dir,
	}
	if store != nil {
		if err := store.Create(context.Background(), run); err != nil {
			t.Fatalf("store.Create: %v", err)
		}
	}
	return run
}

// SeedArtifact writes a JSONL artifact into the run's workspace.
func SeedArtifact[T any](t testing.TB, cfg *config.Config, run *runs.Run, name string, records []T) {
	t.Helper()

	ws, err := runs.OpenWorkspace(cfg.Paths.OutputDir, run.ID)
	if err != nil {
		t.Fatalf("runs.OpenWorkspace: %v", err)
	}
	if err := runs.WriteJSONL(ws.ArtifactPath(name), records); err != nil {
		t.Fatalf("runs.WriteJSONL(%s): %v", name, err)
	}
}

// ReadArtifact reads a JSONL artifact from the run's workspace.
func ReadArtifact[T any](t testing.TB, cfg *config.Config, run *runs.Run, name string) []T {
	t.Helper()

	ws, err := runs.OpenWorkspace(cfg.Paths.OutputDir, run.ID)
	if err != nil {
		t.Fatalf("runs.OpenWorkspace: %v", err)
	}
	records, _, err := runs.ReadJSONL[T](ws.ArtifactPath(name))
	if err != nil {
		t.Fatalf("runs.ReadJSONL(%s): %v", name, err)
	}
	return records
}
