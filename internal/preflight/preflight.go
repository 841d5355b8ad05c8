package preflight

import (
	"context"

	"loom/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects which checks run. The LLM check issues a real API
// request, so callers opt into it explicitly.
type Options struct {
	IncludeLLM bool
}

// RunAll executes the applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if opts.IncludeLLM {
		results = append(results, CheckLLM(ctx, "LLM API", cfg.LLM))
	}
	return results
}
