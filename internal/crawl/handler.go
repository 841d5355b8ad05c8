package crawl

import (
	"context"
	"fmt"
	"net/url"

	"log/slog"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/runs"
	"loom/internal/services"
	"loom/internal/stage"
)

// Fetcher is the stage handler that crawls the run's source site into
// raw.jsonl.
type Fetcher struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewFetcher constructs the fetch stage handler.
func NewFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	return &Fetcher{cfg: cfg, logger: logging.NewComponentLogger(logger, "fetcher")}
}

func (f *Fetcher) Prepare(ctx context.Context, run *runs.Run) error {
	parsed, err := url.Parse(run.SourceURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return services.Wrap(
			services.ErrValidation,
			"fetching",
			"validate source url",
			fmt.Sprintf("%q is not an absolute http(s) url", run.SourceURL),
			err,
		)
	}
	if f.cfg.Crawl.MaxPages <= 0 {
		return services.Wrap(
			services.ErrConfiguration,
			"fetching",
			"validate config",
			"max_pages must be positive",
			nil,
		)
	}
	if _, err := runs.OpenWorkspace(f.cfg.Paths.OutputDir, run.ID); err != nil {
		return services.Wrap(services.ErrArtifactMissing, "fetching", "open workspace", "", err)
	}
	run.SetProgress("Fetching", "Preparing crawl")
	return nil
}

func (f *Fetcher) Execute(ctx context.Context, run *runs.Run) error {
	logger := logging.WithContext(ctx, f.logger)

	ws, err := runs.OpenWorkspace(f.cfg.Paths.OutputDir, run.ID)
	if err != nil {
		return services.Wrap(services.ErrArtifactMissing, "fetching", "open workspace", "", err)
	}

	crawler, err := NewCrawler(f.cfg, run.SourceURL, f.logger)
	if err != nil {
		return services.Wrap(services.ErrValidation, "fetching", "build crawler", "", err)
	}

	records, err := crawler.Crawl(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return services.Wrap(
			services.ErrExternalService,
			"fetching",
			"crawl site",
			"no pages could be fetched from "+run.SourceURL,
			nil,
		)
	}

	if err := runs.WriteJSONL(ws.ArtifactPath(runs.ArtifactRaw), records); err != nil {
		return services.Wrap(services.ErrTransient, "fetching", "write raw artifact", "", err)
	}

	logger.Info("crawl complete",
		logging.String("source_url", run.SourceURL),
		logging.Int("pages", len(records)),
		logging.String(logging.FieldEventType, "stage_complete"),
	)
	run.SetProgress("Fetching", fmt.Sprintf("Fetched %d pages", len(records)))
	return nil
}

func (f *Fetcher) HealthCheck(ctx context.Context) stage.Health {
	if f.cfg.Crawl.MaxPages <= 0 {
		return stage.Unhealthy("fetcher", "max_pages must be positive")
	}
	return stage.Healthy("fetcher")
}
