package slicer

import (
	"context"
	"fmt"

	"log/slog"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/runs"
	"loom/internal/services"
	"loom/internal/stage"
)

// Slicer is the stage handler that turns clean.jsonl into sliced.jsonl.
type Slicer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewSlicer constructs the slicing stage handler.
func NewSlicer(cfg *config.Config, logger *slog.Logger) *Slicer {
	return &Slicer{cfg: cfg, logger: logging.NewComponentLogger(logger, "slicer")}
}

func (s *Slicer) limits() Limits {
	return Limits{
		Max: s.cfg.Slice.MaxBlockChars,
		Min: s.cfg.Slice.MinBlockChars,
	}
}

func (s *Slicer) Prepare(ctx context.Context, run *runs.Run) error {
	if s.cfg.Slice.MaxBlockChars <= s.cfg.Slice.MinBlockChars {
		return services.Wrap(
			services.ErrConfiguration,
			"slicing",
			"validate config",
			fmt.Sprintf("max_block_chars %d must exceed min_block_chars %d",
				s.cfg.Slice.MaxBlockChars, s.cfg.Slice.MinBlockChars),
			nil,
		)
	}
	ws, err := runs.OpenWorkspace(s.cfg.Paths.OutputDir, run.ID)
	if err != nil {
		return services.Wrap(services.ErrArtifactMissing, "slicing", "open workspace", "", err)
	}
	if !ws.HasArtifact(runs.ArtifactClean) {
		return services.Wrap(
			services.ErrArtifactMissing,
			"slicing",
			"check inputs",
			runs.ArtifactClean+" not present; cleaning must complete first",
			nil,
		)
	}
	run.SetProgress("Slicing", "Preparing block segmentation")
	return nil
}

func (s *Slicer) Execute(ctx context.Context, run *runs.Run) error {
	logger := logging.WithContext(ctx, s.logger)

	ws, err := runs.OpenWorkspace(s.cfg.Paths.OutputDir, run.ID)
	if err != nil {
		return services.Wrap(services.ErrArtifactMissing, "slicing", "open workspace", "", err)
	}

	docs, malformed, err := runs.ReadJSONL[runs.Document](ws.ArtifactPath(runs.ArtifactClean))
	if err != nil {
		return services.Wrap(services.ErrArtifactMissing, "slicing", "read clean artifact", "", err)
	}
	if malformed > 0 {
		logging.WarnWithContext(logger, "skipped malformed clean records", "malformed_records",
			logging.Int("count", malformed),
		)
	}

	limits := s.limits()
	var (
		blocks   []runs.Block
		hardCuts int
	)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, block := range Slice(doc, limits) {
			if block.HardCut {
				hardCuts++
			}
			blocks = append(blocks, block)
		}
	}

	if err := runs.WriteJSONL(ws.ArtifactPath(runs.ArtifactSliced), blocks); err != nil {
		return services.Wrap(services.ErrTransient, "slicing", "write sliced artifact", "", err)
	}

	if hardCuts > 0 {
		logging.WarnWithContext(logger, "blocks required hard character cuts", "hard_cuts",
			logging.Int("count", hardCuts),
			logging.String(logging.FieldImpact, "some blocks end mid-sentence"),
		)
	}
	logger.Info("slicing complete",
		logging.Int("documents", len(docs)),
		logging.Int("blocks", len(blocks)),
		logging.String(logging.FieldEventType, "stage_complete"),
	)
	run.SetProgress("Slicing", fmt.Sprintf("Wrote %d blocks", len(blocks)))
	return nil
}

func (s *Slicer) HealthCheck(ctx context.Context) stage.Health {
	if s.cfg.Slice.MaxBlockChars <= s.cfg.Slice.MinBlockChars {
		return stage.Unhealthy("slicer", "block size bounds misconfigured")
	}
	return stage.Healthy("slicer")
}
