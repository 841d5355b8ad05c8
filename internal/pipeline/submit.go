package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"loom/internal/config"
	"loom/internal/runs"
	"loom/internal/services"
)

// Submit validates a submission, allocates a fresh workspace, and persists
// the run in created state with its parameter snapshot frozen onto the row.
// The returned run is ready for an Executor.
func Submit(ctx context.Context, cfg *config.Config, store *runs.Store, sub runs.Submission) (*runs.Run, error) {
	if err := sub.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "submit", "validate submission", "", err)
	}

	ws, err := runs.CreateWorkspace(cfg.Paths.OutputDir, time.Now())
	if err != nil {
		return nil, fmt.Errorf("allocate workspace: %w", err)
	}

	run := &runs.Run{
		ID:           ws.RunID,
		Status:       runs.StatusCreated,
		SourceURL:    strings.TrimSuffix(strings.TrimSpace(sub.SourceURL), "/"),
		WorkspaceDir: ws.Dir,
	}
	snapshot := snapshotSubmission(cfg, sub, run.SourceURL)
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	run.SubmissionJSON = string(encoded)
	run.SetProgress("Created", "Waiting to start")
	if err := store.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("persist run: %w", err)
	}
	return run, nil
}

// snapshotSubmission merges submission overrides over the file-config
// defaults. Stages read this snapshot for the run's whole lifetime, so a
// daemon restart or config edit cannot change an already-submitted run.
func snapshotSubmission(cfg *config.Config, sub runs.Submission, sourceURL string) runs.Submission {
	merged := runs.Submission{
		SourceURL:     sourceURL,
		MaxPages:      sub.MaxPages,
		DelayMillis:   sub.DelayMillis,
		MaxBlockChars: sub.MaxBlockChars,
		MinBlockChars: sub.MinBlockChars,
	}
	if merged.MaxPages <= 0 {
		merged.MaxPages = cfg.Crawl.MaxPages
	}
	if merged.DelayMillis <= 0 {
		merged.DelayMillis = cfg.Crawl.DelayMillis
	}
	if merged.MaxBlockChars <= 0 {
		merged.MaxBlockChars = cfg.Slice.MaxBlockChars
	}
	if merged.MinBlockChars <= 0 {
		merged.MinBlockChars = cfg.Slice.MinBlockChars
	}
	return merged
}

// RunConfig materializes the per-run config from a run's frozen submission
// snapshot. Runs predating the snapshot column fall back to cfg unchanged.
func RunConfig(cfg *config.Config, run *runs.Run) *config.Config {
	sub, ok := run.Submission()
	if !ok {
		return cfg
	}
	clone := *cfg
	if sub.MaxPages > 0 {
		clone.Crawl.MaxPages = sub.MaxPages
	}
	if sub.DelayMillis > 0 {
		clone.Crawl.DelayMillis = sub.DelayMillis
	}
	if sub.MaxBlockChars > 0 {
		clone.Slice.MaxBlockChars = sub.MaxBlockChars
	}
	if sub.MinBlockChars > 0 {
		clone.Slice.MinBlockChars = sub.MinBlockChars
	}
	return &clone
}
