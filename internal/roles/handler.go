package roles

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

// Tagger is the stage handler that turns sliced.jsonl into tagged.jsonl.
type Tagger struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewTagger constructs the tagging stage handler.
func NewTagger(cfg *config.Config, logger *slog.Logger) *Tagger {
	return &Tagger{cfg: cfg, logger: logging.NewComponentLogger(logger, "tagger")}
}

func (t *Tagger) Prepare(ctx context.Context, run *runs.Run) error {
	ws, err := runs.OpenWorkspace(t.cfg.Paths.OutputDir, run.ID)
	if err != nil {
		return services.Wrap(services.ErrArtifactMissing, "tagging", "open workspace", "", err)
	}
	if !ws.HasArtifact(runs.ArtifactSliced) {
		return services.Wrap(
			services.ErrArtifactMissing,
			"tagging",
			"check inputs",
			runs.ArtifactSliced+" not present; slicing must complete first",
			nil,
		)
	}
	run.SetProgress("Tagging", "Preparing role classification")
	return nil
}

func (t *Tagger) Execute(ctx context.Context, run *runs.Run) error {
	logger := logging.WithContext(ctx, t.logger)

	ws, err := runs.OpenWorkspace(t.cfg.Paths.OutputDir, run.ID)
	if err != nil {
		return services.Wrap(services.ErrArtifactMissing, "tagging", "open workspace", "", err)
	}

	blocks, malformed, err := runs.ReadJSONL[runs.Block](ws.ArtifactPath(runs.ArtifactSliced))
	if err != nil {
		return services.Wrap(services.ErrArtifactMissing, "tagging", "read sliced artifact", "", err)
	}
	if malformed > 0 {
		logging.WarnWithContext(logger, "skipped malformed sliced records", "malformed_records",
			logging.Int("count", malformed),
		)
	}

	tagged := make([]runs.TaggedBlock, 0, len(blocks))
	distribution := make(map[string]int)
	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		match := Classify(block.Text)
		tagged = append(tagged, runs.TaggedBlock{
			Block:       block,
			Role:        match.Role,
			MatchedRule: match.RuleID,
			Confidence:  match.Confidence,
		})
		distribution[match.Role]++
	}

	if err := runs.WriteJSONL(ws.ArtifactPath(runs.ArtifactTagged), tagged); err != nil {
		return services.Wrap(services.ErrTransient, "tagging", "write tagged artifact", "", err)
	}

	// Every block falling through to GENERAL usually means the vocabulary
	// does not fit the crawled site. The run continues; generation simply
	// has less to work with.
	if len(tagged) > 0 && distribution[RoleGeneral] == len(tagged) {
		degenerate := services.Wrap(services.ErrDegenerate, "tagging", "classify blocks",
			"every block defaulted to GENERAL", nil)
		logging.WarnWithContext(logger, "no rule matched any block", "degenerate_tagging",
			logging.Int("blocks", len(tagged)),
			logging.String("error_kind", services.Kind(degenerate)),
			logging.Error(degenerate),
		)
	}

	logger.Info("tagging complete",
		logging.Int("blocks", len(tagged)),
		logging.Any("role_distribution", distribution),
		logging.String(logging.FieldEventType, "stage_complete"),
	)
	run.SetProgress("Tagging", fmt.Sprintf("Tagged %d blocks", len(tagged)))
	return nil
}

func (t *Tagger) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("tagger")
}
