// Package generate implements the final stage: turning tagged blocks into
// question/answer training pairs via a hosted chat-completion model.
package generate

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"log/slog"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/runs"
	"loom/internal/services"
	"loom/internal/services/llm"
	"loom/internal/stage"
	"loom/internal/textutil"
)

// tokenMultiplier converts a word count into a rough token estimate for
// batch sizing.
const tokenMultiplier = 1.3

const systemPrompt = `You are generating high-quality training data from website content.
Generate question-answer pairs ONLY when the content explicitly supports them.
Do NOT infer, guess, or add outside knowledge.
Answers must be fully grounded in the provided text.
Respond with strict JSON: {"pairs": [{"question": "...", "answer": "..."}]}.
If no valid questions can be formed, respond with {"pairs": []}.`

// Low-signal cues: blocks that are widget residue rather than content.
var (
	priceRE    = regexp.MustCompile(`\$\s?\d+`)
	bookedRE   = regexp.MustCompile(`(?i)\bbooked\b`)
	dropdownRE = regexp.MustCompile(`(?i)please choose an option`)
)

const (
	minBlockWords  = 8
	minUniqueWords = 5
)

// Generator is the stage handler that turns tagged.jsonl into qa.jsonl.
type Generator struct {
	cfg    *config.Config
	logger *slog.Logger
	client *llm.Client
}

// NewGenerator constructs the generation stage handler. Client options are
// passed through to the underlying LLM client.
func NewGenerator(cfg *config.Config, logger *slog.Logger, clientOpts ...llm.Option) *Generator {
	return &Generator{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "generator"),
		client: llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}, clientOpts...),
	}
}

func (g *Generator) Prepare(ctx context.Context, run *runs.Run) error {
	if g.cfg.LLM.APIKey == "" {
		return services.Wrap(
			services.ErrConfiguration,
			"generating",
			"validate config",
			"llm api_key is not set; configure it or export GROQ_API_KEY",
			nil,
		)
	}
	ws, err := runs.OpenWorkspace(g.cfg.Paths.OutputDir, run.ID)
	if err != nil {
		return services.Wrap(services.ErrArtifactMissing, "generating", "open workspace", "", err)
	}
	if !ws.HasArtifact(runs.ArtifactTagged) {
		return services.Wrap(
			services.ErrArtifactMissing,
			"generating",
			"check inputs",
			runs.ArtifactTagged+" not present; tagging must complete first",
			nil,
		)
	}
	run.SetProgress("Generating", "Preparing question generation")
	return nil
}

func (g *Generator) Execute(ctx context.Context, run *runs.Run) error {
	logger := logging.WithContext(ctx, g.logger)

	ws, err := runs.OpenWorkspace(g.cfg.Paths.OutputDir, run.ID)
	if err != nil {
		return services.Wrap(services.ErrArtifactMissing, "generating", "open workspace", "", err)
	}

	tagged, malformed, err := runs.ReadJSONL[runs.TaggedBlock](ws.ArtifactPath(runs.ArtifactTagged))
	if err != nil {
		return services.Wrap(services.ErrArtifactMissing, "generating", "read tagged artifact", "", err)
	}
	if malformed > 0 {
		logging.WarnWithContext(logger, "skipped malformed tagged records", "malformed_records",
			logging.Int("count", malformed),
		)
	}

	eligible := g.filterBlocks(tagged)
	groups := groupBlocks(eligible)

	var (
		pairs         []runs.QAPair
		failedBatches int
		totalBatches  int
	)
	for _, group := range groups {
		for _, batch := range g.batchBlocks(group.blocks) {
			if err := ctx.Err(); err != nil {
				return err
			}
			totalBatches++
			generated, err := g.generateBatch(ctx, group.sourceURL, group.pageType, batch)
			if err != nil {
				// One bad batch degrades the output, it does not
				// fail the run.
				failedBatches++
				logging.WarnWithContext(logger, "batch generation failed", "batch_failed",
					logging.String("source_url", group.sourceURL),
					logging.Int("blocks", len(batch)),
					logging.Error(err),
				)
				continue
			}
			pairs = append(pairs, generated...)
		}
	}

	if err := runs.WriteJSONL(ws.ArtifactPath(runs.ArtifactQA), pairs); err != nil {
		return services.Wrap(services.ErrTransient, "generating", "write qa artifact", "", err)
	}

	logger.Info("generation complete",
		logging.Int("tagged_blocks", len(tagged)),
		logging.Int("eligible_blocks", len(eligible)),
		logging.Int("batches", totalBatches),
		logging.Int("failed_batches", failedBatches),
		logging.Int("qa_pairs", len(pairs)),
		logging.String(logging.FieldEventType, "stage_complete"),
	)
	run.SetProgress("Generating", fmt.Sprintf("Generated %d pairs", len(pairs)))
	return nil
}

func (g *Generator) HealthCheck(ctx context.Context) stage.Health {
	if g.cfg.LLM.APIKey == "" {
		return stage.Unhealthy("generator", "llm api_key is not set")
	}
	if err := g.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("generator", err.Error())
	}
	return stage.Healthy("generator")
}

// filterBlocks keeps blocks whose role is in the configured allow-list and
// which carry enough signal to generate from.
func (g *Generator) filterBlocks(tagged []runs.TaggedBlock) []runs.TaggedBlock {
	allowed := make(map[string]struct{}, len(g.cfg.Generate.Roles))
	for _, role := range g.cfg.Generate.Roles {
		allowed[role] = struct{}{}
	}

	var kept []runs.TaggedBlock
	for _, block := range tagged {
		if _, ok := allowed[block.Role]; !ok {
			continue
		}
		if isLowSignal(block.Text) {
			continue
		}
		kept = append(kept, block)
	}
	return kept
}

// isLowSignal mirrors the quality heuristics applied before spending LLM
// calls: too few words, widget text, or degenerate repetition.
func isLowSignal(text string) bool {
	text = strings.TrimSpace(text)
	if textutil.WordCount(text) < minBlockWords {
		return true
	}
	if priceRE.MatchString(text) && bookedRE.MatchString(text) {
		return true
	}
	if dropdownRE.MatchString(text) {
		return true
	}
	return textutil.UniqueWordCount(text) < minUniqueWords
}

type blockGroup struct {
	sourceURL string
	pageType  string
	blocks    []runs.TaggedBlock
}

// groupBlocks partitions blocks by page context and restores document
// order within each group. Group order is stable across invocations.
func groupBlocks(blocks []runs.TaggedBlock) []blockGroup {
	index := make(map[string]int)
	var groups []blockGroup
	for _, block := range blocks {
		key := block.SourceURL + "\x00" + block.PageType
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, blockGroup{
				sourceURL: block.SourceURL,
				pageType:  block.PageType,
			})
		}
		groups[i].blocks = append(groups[i].blocks, block)
	}
	for i := range groups {
		sort.SliceStable(groups[i].blocks, func(a, b int) bool {
			return groups[i].blocks[a].Ordinal < groups[i].blocks[b].Ordinal
		})
	}
	return groups
}

// batchBlocks splits a group into batches whose estimated token footprint
// stays under the configured cap. A single oversized block still forms a
// batch of one.
func (g *Generator) batchBlocks(blocks []runs.TaggedBlock) [][]runs.TaggedBlock {
	var (
		batches [][]runs.TaggedBlock
		current []runs.TaggedBlock
		tokens  int
	)
	for _, block := range blocks {
		cost := estimateTokens(block.Text)
		if len(current) > 0 && tokens+cost > g.cfg.Generate.MaxBatchTokens {
			batches = append(batches, current)
			current = nil
			tokens = 0
		}
		current = append(current, block)
		tokens += cost
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func estimateTokens(text string) int {
	return int(float64(textutil.WordCount(text)) * tokenMultiplier)
}

type qaResponse struct {
	Pairs []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	} `json:"pairs"`
}

// generateBatch makes one time-boxed model call for a batch of blocks and
// maps the response onto QA pair records.
func (g *Generator) generateBatch(ctx context.Context, sourceURL, pageType string, batch []runs.TaggedBlock) ([]runs.QAPair, error) {
	callCtx, cancel := context.WithTimeout(ctx, batchTimeout(g.cfg))
	defer cancel()

	content, err := g.client.CompleteJSON(callCtx, systemPrompt, g.userPrompt(sourceURL, pageType, batch))
	if err != nil {
		if callCtx.Err() != nil && ctx.Err() == nil {
			return nil, services.Wrap(services.ErrTimeout, "generating", "call llm", "batch timed out", err)
		}
		return nil, services.Wrap(services.ErrExternalService, "generating", "call llm", "", err)
	}

	var response qaResponse
	if err := llm.DecodeLLMJSON(content, &response); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "generating", "decode llm response", "", err)
	}

	pairs := make([]runs.QAPair, 0, len(response.Pairs))
	for _, pair := range response.Pairs {
		question := strings.TrimSpace(pair.Question)
		answer := strings.TrimSpace(pair.Answer)
		if question == "" || answer == "" {
			continue
		}
		pairs = append(pairs, runs.QAPair{
			SourceURL: sourceURL,
			PageType:  pageType,
			Question:  question,
			Answer:    answer,
		})
	}
	return pairs, nil
}

func (g *Generator) userPrompt(sourceURL, pageType string, batch []runs.TaggedBlock) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SOURCE URL: %s\nPAGE TYPE: %s\n\nCONTENT:\n", sourceURL, pageType)
	for i, block := range batch {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(block.Text)
	}
	fmt.Fprintf(&sb, "\n\nGenerate at most %d question-answer pairs grounded in the content above.",
		g.cfg.Generate.PairsPerBatch)
	return sb.String()
}

func batchTimeout(cfg *config.Config) time.Duration {
	if cfg.LLM.TimeoutSeconds > 0 {
		return time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	}
	return llm.DefaultHTTPTimeout()
}
