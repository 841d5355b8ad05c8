// Package cleaner implements the clean stage: navigation filtering,
// whitespace normalization, language gating, and document deduplication
// over crawled page records.
package cleaner

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/abadojack/whatlanggo"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/runs"
	"loom/internal/services"
	"loom/internal/stage"
	"loom/internal/textutil"
)

// Navigation and boilerplate vocabulary. A segment containing any of these
// is chrome, not content.
var navKeywords = []string{
	"all services", "contact", "terms", "policy", "policies",
	"faq", "frequently asked", "shop", "academy", "medical",
	"login", "signup", "register", "copyright",
}

// languageConfidenceFloor gates how sure the detector must be before a
// document is dropped for being in the wrong language. Short documents
// detect unreliably and are kept.
const languageConfidenceFloor = 0.8

// Cleaner is the stage handler that turns raw.jsonl into clean.jsonl.
type Cleaner struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewCleaner constructs the clean stage handler.
func NewCleaner(cfg *config.Config, logger *slog.Logger) *Cleaner {
	return &Cleaner{cfg: cfg, logger: logging.NewComponentLogger(logger, "cleaner")}
}

func (c *Cleaner) Prepare(ctx context.Context, run *runs.Run) error {
	ws, err := runs.OpenWorkspace(c.cfg.Paths.OutputDir, run.ID)
	if err != nil {
		return services.Wrap(services.ErrArtifactMissing, "cleaning", "open workspace", "", err)
	}
	if !ws.HasArtifact(runs.ArtifactRaw) {
		return services.Wrap(
			services.ErrArtifactMissing,
			"cleaning",
			"check inputs",
			runs.ArtifactRaw+" not present; fetching must complete first",
			nil,
		)
	}
	run.SetProgress("Cleaning", "Preparing boilerplate removal")
	return nil
}

func (c *Cleaner) Execute(ctx context.Context, run *runs.Run) error {
	logger := logging.WithContext(ctx, c.logger)

	ws, err := runs.OpenWorkspace(c.cfg.Paths.OutputDir, run.ID)
	if err != nil {
		return services.Wrap(services.ErrArtifactMissing, "cleaning", "open workspace", "", err)
	}

	pages, malformed, err := runs.ReadJSONL[runs.PageRecord](ws.ArtifactPath(runs.ArtifactRaw))
	if err != nil {
		return services.Wrap(services.ErrArtifactMissing, "cleaning", "read raw artifact", "", err)
	}
	if malformed > 0 {
		logging.WarnWithContext(logger, "skipped malformed page records", "malformed_records",
			logging.Int("count", malformed),
		)
	}

	var (
		docs       []runs.Document
		seenHashes = make(map[string]struct{})
		dropped    struct{ boilerplate, language, duplicate int }
	)
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}

		segments := c.cleanSegments(page.Segments)
		if len(segments) == 0 {
			dropped.boilerplate++
			continue
		}

		doc := runs.Document{
			SourceURL: page.SourceURL,
			PageType:  page.PageType,
			Segments:  segments,
		}
		if c.wrongLanguage(doc.Text()) {
			dropped.language++
			continue
		}

		hash := textutil.ContentHash(doc.Text())
		if _, ok := seenHashes[hash]; ok {
			dropped.duplicate++
			continue
		}
		seenHashes[hash] = struct{}{}
		docs = append(docs, doc)
	}

	if err := runs.WriteJSONL(ws.ArtifactPath(runs.ArtifactClean), docs); err != nil {
		return services.Wrap(services.ErrTransient, "cleaning", "write clean artifact", "", err)
	}

	logger.Info("cleaning complete",
		logging.Int("pages_in", len(pages)),
		logging.Int("documents_out", len(docs)),
		logging.Int("dropped_boilerplate", dropped.boilerplate),
		logging.Int("dropped_language", dropped.language),
		logging.Int("dropped_duplicate", dropped.duplicate),
		logging.String(logging.FieldEventType, "stage_complete"),
	)
	run.SetProgress("Cleaning", fmt.Sprintf("Kept %d of %d pages", len(docs), len(pages)))
	return nil
}

func (c *Cleaner) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("cleaner")
}

// cleanSegments normalizes each segment and drops navigation or sub-minimum
// entries, preserving order.
func (c *Cleaner) cleanSegments(segments []string) []string {
	var kept []string
	for _, segment := range segments {
		segment = textutil.Normalize(segment)
		if len(segment) < c.cfg.Clean.MinSegmentChars {
			continue
		}
		if isNavigation(segment) {
			continue
		}
		kept = append(kept, segment)
	}
	return kept
}

func isNavigation(segment string) bool {
	lower := strings.ToLower(segment)
	for _, keyword := range navKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// wrongLanguage reports whether the document should be dropped for failing
// the configured language gate. An empty configured language disables the
// gate, and low-confidence detections never drop a document.
func (c *Cleaner) wrongLanguage(text string) bool {
	want := c.cfg.Clean.Language
	if want == "" {
		return false
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() || info.Confidence < languageConfidenceFloor {
		return false
	}
	return info.Lang.Iso6393() != want
}
