package runs_test

import (
	"context"
	"testing"
	"time"

	"loom/internal/runs"
	"loom/internal/testsupport"
)

func TestStoreCreateAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run := &runs.Run{
		ID:           "run_2026-08-29_10-00-00_abc123",
		SourceURL:    "https://clinic.example",
		WorkspaceDir: "/tmp/run_2026-08-29_10-00-00_abc123",
	}
	if err := store.Create(ctx, run); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if run.Status != runs.StatusCreated {
		t.Errorf("status defaulted to %q, want %q", run.Status, runs.StatusCreated)
	}
	if run.CreatedAt.IsZero() || run.UpdatedAt.IsZero() {
		t.Error("timestamps not populated on create")
	}

	got, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("run not found after create")
	}
	if got.SourceURL != run.SourceURL || got.Status != runs.StatusCreated {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.FailedStage != "" || got.ErrorMessage != "" {
		t.Errorf("unset fields came back non-empty: %+v", got)
	}
}

func TestStoreRoundTripsSubmissionAndStageResults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run := &runs.Run{
		ID:             "run_2026-08-29_10-00-05_abc129",
		SourceURL:      "https://clinic.example",
		WorkspaceDir:   "/tmp/run_2026-08-29_10-00-05_abc129",
		SubmissionJSON: `{"source_url":"https://clinic.example","max_pages":5,"delay_millis":10}`,
	}
	if err := store.Create(ctx, run); err != nil {
		t.Fatalf("Create: %v", err)
	}

	run.AppendStageResult(runs.StageResult{
		Stage: "fetching", Success: true, Artifact: runs.ArtifactRaw, Elapsed: 120 * time.Millisecond,
	})
	run.AppendStageResult(runs.StageResult{
		Stage: "cleaning", Elapsed: 3 * time.Millisecond, Error: "raw artifact unreadable",
	})
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	sub, ok := got.Submission()
	if !ok {
		t.Fatal("submission snapshot not persisted")
	}
	if sub.MaxPages != 5 || sub.DelayMillis != 10 {
		t.Errorf("snapshot round trip mismatch: %+v", sub)
	}
	results := got.StageResults()
	if len(results) != 2 {
		t.Fatalf("expected 2 stage results, got %d", len(results))
	}
	if results[0].Stage != "fetching" || !results[0].Success || results[0].Artifact != runs.ArtifactRaw {
		t.Errorf("first stage result mismatch: %+v", results[0])
	}
	if results[1].Stage != "cleaning" || results[1].Success || results[1].Error == "" {
		t.Errorf("second stage result mismatch: %+v", results[1])
	}
	if results[0].Elapsed != 120*time.Millisecond {
		t.Errorf("elapsed round trip = %v", results[0].Elapsed)
	}
}

func TestStoreGetMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	got, err := store.GetByID(context.Background(), "run_2026-01-01_00-00-00_ffffff")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown run, got %+v", got)
	}
}

func TestStoreUpdatePersistsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run := &runs.Run{ID: "run_2026-08-29_10-00-01_abc124", SourceURL: "https://clinic.example"}
	if err := store.Create(ctx, run); err != nil {
		t.Fatalf("Create: %v", err)
	}

	run.SetFailed("slicing", "clean artifact missing")
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != runs.StatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.FailedStage != "slicing" || got.ErrorMessage != "clean artifact missing" {
		t.Errorf("failure fields not persisted: %+v", got)
	}
}

func TestStoreListFiltersAndOrders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	seed := []*runs.Run{
		{ID: "run_2026-08-29_10-00-00_aaaaaa", Status: runs.StatusComplete, SourceURL: "https://a.example", CreatedAt: base},
		{ID: "run_2026-08-29_10-00-01_bbbbbb", Status: runs.StatusCreated, SourceURL: "https://b.example", CreatedAt: base.Add(time.Second)},
		{ID: "run_2026-08-29_10-00-02_cccccc", Status: runs.StatusFailed, SourceURL: "https://c.example", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, run := range seed {
		if err := store.Create(ctx, run); err != nil {
			t.Fatalf("Create %s: %v", run.ID, err)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
	if all[0].ID != seed[2].ID || all[2].ID != seed[0].ID {
		t.Errorf("list not newest first: %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	failed, err := store.List(ctx, runs.StatusFailed)
	if err != nil {
		t.Fatalf("List(failed): %v", err)
	}
	if len(failed) != 1 || failed[0].ID != seed[2].ID {
		t.Errorf("failed filter returned %+v", failed)
	}
}

func TestStoreNextPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	got, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no pending run, got %+v", got)
	}

	base := time.Date(2026, 8, 29, 11, 0, 0, 0, time.UTC)
	older := &runs.Run{ID: "run_2026-08-29_11-00-00_aaaaaa", SourceURL: "https://a.example", CreatedAt: base}
	newer := &runs.Run{ID: "run_2026-08-29_11-00-05_bbbbbb", SourceURL: "https://b.example", CreatedAt: base.Add(5 * time.Second)}
	for _, run := range []*runs.Run{newer, older} {
		if err := store.Create(ctx, run); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if got == nil || got.ID != older.ID {
		t.Fatalf("expected oldest pending run, got %+v", got)
	}
}

func TestStoreCountByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i, status := range []runs.Status{runs.StatusCreated, runs.StatusCreated, runs.StatusComplete} {
		run := &runs.Run{
			ID:        runs.NewID(time.Date(2026, 8, 29, 12, 0, i, 0, time.UTC)),
			Status:    status,
			SourceURL: "https://clinic.example",
		}
		if err := store.Create(ctx, run); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[runs.StatusCreated] != 2 || counts[runs.StatusComplete] != 1 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestStoreResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stuck := &runs.Run{ID: "run_2026-08-29_13-00-00_aaaaaa", Status: runs.StatusSlicing, SourceURL: "https://a.example"}
	idle := &runs.Run{ID: "run_2026-08-29_13-00-01_bbbbbb", Status: runs.StatusCreated, SourceURL: "https://b.example"}
	done := &runs.Run{ID: "run_2026-08-29_13-00-02_cccccc", Status: runs.StatusComplete, SourceURL: "https://c.example"}
	for _, run := range []*runs.Run{stuck, idle, done} {
		if err := store.Create(ctx, run); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing: %v", err)
	}
	if reset != 1 {
		t.Errorf("reset count = %d, want 1", reset)
	}

	got, err := store.GetByID(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != runs.StatusFailed {
		t.Errorf("stuck run status = %q, want failed", got.Status)
	}
	if got.FailedStage != string(runs.StatusSlicing) {
		t.Errorf("failed stage = %q, want the interrupted stage", got.FailedStage)
	}
	if got.ErrorMessage != runs.DaemonStopReason {
		t.Errorf("error message = %q", got.ErrorMessage)
	}

	for _, id := range []string{idle.ID, done.ID} {
		got, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID(%s): %v", id, err)
		}
		if got.Status == runs.StatusFailed {
			t.Errorf("run %s was reset but should not have been", id)
		}
	}
}
