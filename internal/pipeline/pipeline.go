// Package pipeline sequences the run stages: fetch, clean, slice, tag,
// generate. Each stage consumes the previous stage's persisted artifact and
// durably writes its own before the next stage starts; a stage failure
// marks the run failed and leaves earlier artifacts in place.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"loom/internal/cleaner"
	"loom/internal/config"
	"loom/internal/crawl"
	"loom/internal/generate"
	"loom/internal/logging"
	"loom/internal/notifications"
	"loom/internal/roles"
	"loom/internal/runs"
	"loom/internal/services"
	"loom/internal/slicer"
	"loom/internal/stage"
)

// StageSet bundles the five stage handlers. Tests substitute individual
// handlers to exercise failure paths.
type StageSet struct {
	Fetcher   stage.Handler
	Cleaner   stage.Handler
	Slicer    stage.Handler
	Tagger    stage.Handler
	Generator stage.Handler
}

// NewStageSet wires the production handlers from config.
func NewStageSet(cfg *config.Config, logger *slog.Logger) StageSet {
	return StageSet{
		Fetcher:   crawl.NewFetcher(cfg, logger),
		Cleaner:   cleaner.NewCleaner(cfg, logger),
		Slicer:    slicer.NewSlicer(cfg, logger),
		Tagger:    roles.NewTagger(cfg, logger),
		Generator: generate.NewGenerator(cfg, logger),
	}
}

// step pairs a processing status with its handler. The stage name is the
// status string; the run carries that status while the stage executes.
type step struct {
	status  runs.Status
	handler stage.Handler
}

// Executor drives one run through the stage sequence, persisting every
// status transition.
type Executor struct {
	cfg      *config.Config
	store    *runs.Store
	logger   *slog.Logger
	notifier notifications.Service
	steps    []step
}

// NewExecutor builds an executor over the given stage set.
func NewExecutor(cfg *config.Config, store *runs.Store, logger *slog.Logger, set StageSet) *Executor {
	return &Executor{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		notifier: notifications.NewService(cfg),
		steps: []step{
			{runs.StatusFetching, set.Fetcher},
			{runs.StatusCleaning, set.Cleaner},
			{runs.StatusSlicing, set.Slicer},
			{runs.StatusTagging, set.Tagger},
			{runs.StatusGenerating, set.Generator},
		},
	}
}

// Execute runs every stage in order. On stage failure the run is marked
// failed at that stage and the error is returned; artifacts from earlier
// stages are left untouched for inspection and the later stages never run.
func (e *Executor) Execute(ctx context.Context, run *runs.Run) error {
	runCtx := services.WithRunID(ctx, run.ID)
	logger := logging.WithContext(runCtx, e.logger)

	if err := e.notifier.NotifyRunStarted(runCtx, run.ID, run.SourceURL); err != nil {
		logging.WarnWithContext(logger, "notification delivery failed", "notify_failed",
			logging.Error(err),
		)
	}

	for _, s := range e.steps {
		stageName := string(s.status)
		stageCtx := services.WithStage(runCtx, stageName)

		run.Status = s.status
		if err := e.store.Update(ctx, run); err != nil {
			return fmt.Errorf("persist %s transition: %w", stageName, err)
		}

		start := time.Now()
		if err := s.handler.Prepare(stageCtx, run); err != nil {
			return e.failRun(ctx, run, stageName, time.Since(start), err)
		}
		if err := s.handler.Execute(stageCtx, run); err != nil {
			return e.failRun(ctx, run, stageName, time.Since(start), err)
		}
		run.AppendStageResult(runs.StageResult{
			Stage:    stageName,
			Success:  true,
			Artifact: stageArtifact(s.status),
			Elapsed:  time.Since(start),
		})
		if err := e.store.Update(ctx, run); err != nil {
			return fmt.Errorf("persist %s progress: %w", stageName, err)
		}
		logger.Info("stage finished",
			logging.String(logging.FieldStage, stageName),
			logging.Duration("elapsed", time.Since(start)),
		)
	}

	stats, err := ComputeStats(e.cfg, run)
	if err != nil {
		logging.WarnWithContext(logger, "statistics aggregation failed", "stats_failed",
			logging.Error(err),
		)
	} else {
		encoded, err := json.Marshal(stats)
		if err == nil {
			run.StatsJSON = string(encoded)
		}
	}

	run.Status = runs.StatusComplete
	run.SetProgress("Complete", fmt.Sprintf("Run finished with %d QA pairs", statsPairs(run.StatsJSON)))
	if err := e.store.Update(ctx, run); err != nil {
		return fmt.Errorf("persist completion: %w", err)
	}
	logger.Info("run complete",
		logging.String(logging.FieldEventType, "run_complete"),
	)
	if err := e.notifier.NotifyRunCompleted(runCtx, run.ID, run.SourceURL, statsPairs(run.StatsJSON)); err != nil {
		logging.WarnWithContext(logger, "notification delivery failed", "notify_failed",
			logging.Error(err),
		)
	}
	return nil
}

func (e *Executor) failRun(ctx context.Context, run *runs.Run, stageName string, elapsed time.Duration, cause error) error {
	run.AppendStageResult(runs.StageResult{
		Stage:   stageName,
		Elapsed: elapsed,
		Error:   cause.Error(),
	})
	run.SetFailed(stageName, cause.Error())
	if err := e.store.Update(ctx, run); err != nil {
		e.logger.Error("failed to persist run failure",
			logging.String(logging.FieldRunID, run.ID),
			logging.Error(err),
		)
	}
	e.logger.Error("stage failed",
		logging.String(logging.FieldRunID, run.ID),
		logging.String(logging.FieldStage, stageName),
		logging.String("error_kind", services.Kind(cause)),
		logging.Error(cause),
	)
	if err := e.notifier.NotifyRunFailed(ctx, run.ID, stageName, cause.Error()); err != nil {
		e.logger.Warn("notification delivery failed",
			logging.String(logging.FieldRunID, run.ID),
			logging.Error(err),
		)
	}
	return cause
}

// stageArtifact names the artifact a stage writes on success.
func stageArtifact(status runs.Status) string {
	switch status {
	case runs.StatusFetching:
		return runs.ArtifactRaw
	case runs.StatusCleaning:
		return runs.ArtifactClean
	case runs.StatusSlicing:
		return runs.ArtifactSliced
	case runs.StatusTagging:
		return runs.ArtifactTagged
	case runs.StatusGenerating:
		return runs.ArtifactQA
	}
	return ""
}

func statsPairs(statsJSON string) int {
	if statsJSON == "" {
		return 0
	}
	var stats runs.Stats
	if err := json.Unmarshal([]byte(statsJSON), &stats); err != nil {
		return 0
	}
	return stats.QAPairs
}
