package pipeline

import (
	"fmt"

	"loom/internal/config"
	"loom/internal/runs"
)

// ComputeStats aggregates record counts, role distribution, and span-flag
// counts from the run's artifacts. It reads what the stages already wrote
// and never re-runs stage logic.
func ComputeStats(cfg *config.Config, run *runs.Run) (runs.Stats, error) {
	var stats runs.Stats

	ws, err := runs.OpenWorkspace(cfg.Paths.OutputDir, run.ID)
	if err != nil {
		return stats, fmt.Errorf("open workspace: %w", err)
	}

	if ws.HasArtifact(runs.ArtifactRaw) {
		pages, _, err := runs.ReadJSONL[runs.PageRecord](ws.ArtifactPath(runs.ArtifactRaw))
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", runs.ArtifactRaw, err)
		}
		stats.Pages = len(pages)
	}

	if ws.HasArtifact(runs.ArtifactClean) {
		docs, _, err := runs.ReadJSONL[runs.Document](ws.ArtifactPath(runs.ArtifactClean))
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", runs.ArtifactClean, err)
		}
		stats.Documents = len(docs)
	}

	if ws.HasArtifact(runs.ArtifactSliced) {
		blocks, _, err := runs.ReadJSONL[runs.Block](ws.ArtifactPath(runs.ArtifactSliced))
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", runs.ArtifactSliced, err)
		}
		stats.Blocks = len(blocks)
		for _, block := range blocks {
			if block.HardCut {
				stats.HardCuts++
			}
			if block.Flags.Price {
				stats.FlaggedPrice++
			}
			if block.Flags.Measurement {
				stats.FlaggedMeasurement++
			}
			if block.Flags.Temporal {
				stats.FlaggedTemporal++
			}
			if block.Flags.Warning {
				stats.FlaggedWarning++
			}
		}
	}

	if ws.HasArtifact(runs.ArtifactTagged) {
		tagged, _, err := runs.ReadJSONL[runs.TaggedBlock](ws.ArtifactPath(runs.ArtifactTagged))
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", runs.ArtifactTagged, err)
		}
		stats.TaggedBlocks = len(tagged)
		stats.RoleDistribution = make(map[string]int)
		for _, block := range tagged {
			stats.RoleDistribution[block.Role]++
		}
	}

	if ws.HasArtifact(runs.ArtifactQA) {
		pairs, _, err := runs.ReadJSONL[runs.QAPair](ws.ArtifactPath(runs.ArtifactQA))
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", runs.ArtifactQA, err)
		}
		stats.QAPairs = len(pairs)
	}

	return stats, nil
}
