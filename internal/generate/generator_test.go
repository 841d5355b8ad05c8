package generate_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"loom/internal/generate"
	"loom/internal/logging"
	"loom/internal/roles"
	"loom/internal/runs"
	"loom/internal/services"
	"loom/internal/services/llm"
	"loom/internal/testsupport"
)

type chatRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}, "finish_reason": "stop"},
		},
	})
	if err != nil {
		t.Fatalf("marshal completion: %v", err)
	}
	return body
}

func TestGeneratorPrepareRequiresAPIKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.LLM.APIKey = ""
	run := testsupport.NewRun(t, cfg, nil, "https://clinic.example")
	handler := generate.NewGenerator(cfg, logging.NewNop())

	err := handler.Prepare(context.Background(), run)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestGeneratorPrepareRejectsMissingTaggedArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	run := testsupport.NewRun(t, cfg, nil, "https://clinic.example")
	handler := generate.NewGenerator(cfg, logging.NewNop())

	err := handler.Prepare(context.Background(), run)
	if !errors.Is(err, services.ErrArtifactMissing) {
		t.Fatalf("expected artifact-missing error, got %v", err)
	}
}

func TestGeneratorExecuteWritesPairs(t *testing.T) {
	var requests atomic.Int32
	var lastPrompt atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) > 0 {
			lastPrompt.Store(req.Messages[len(req.Messages)-1].Content)
		}
		w.Write(completionBody(t, `{"pairs": [
			{"question": "How much does Botox cost?", "answer": "Botox costs $300 per session."},
			{"question": "How long does Botox last?", "answer": "It lasts 3-4 months."}
		]}`))
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithLLMEndpoint(server.URL))
	run := testsupport.NewRun(t, cfg, nil, "https://clinic.example")
	handler := generate.NewGenerator(cfg, logging.NewNop())

	good := "Botox costs $300 per session and visible results typically last between three and four months."
	testsupport.SeedArtifact(t, cfg, run, runs.ArtifactTagged, []runs.TaggedBlock{
		{
			Block: runs.Block{SourceURL: "https://clinic.example/pricing", PageType: "product",
				Ordinal: 0, Text: good},
			Role: roles.RoleTransactional, Confidence: 0.62,
		},
		{
			Block: runs.Block{SourceURL: "https://clinic.example/pricing", PageType: "product",
				Ordinal: 1, Text: "Too short."},
			Role: roles.RoleDescriptive, Confidence: 0.7,
		},
		{
			Block: runs.Block{SourceURL: "https://clinic.example/misc", PageType: "general",
				Ordinal: 0, Text: "Unmatched filler text that nobody should ever send to the model."},
			Role: roles.RoleGeneral, Confidence: 0.3,
		},
	})

	if err := handler.Prepare(context.Background(), run); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	pairs := testsupport.ReadArtifact[runs.QAPair](t, cfg, run, runs.ArtifactQA)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d: %+v", len(pairs), pairs)
	}
	for _, pair := range pairs {
		if pair.SourceURL != "https://clinic.example/pricing" || pair.PageType != "product" {
			t.Errorf("pair carries wrong provenance: %+v", pair)
		}
	}

	if got := requests.Load(); got != 1 {
		t.Errorf("expected 1 llm call, got %d", got)
	}
	prompt, _ := lastPrompt.Load().(string)
	if !strings.Contains(prompt, good) {
		t.Errorf("prompt missing eligible block text:\n%s", prompt)
	}
	if strings.Contains(prompt, "Unmatched filler") || strings.Contains(prompt, "Too short") {
		t.Errorf("prompt contains filtered block text:\n%s", prompt)
	}
}

func TestGeneratorContinuesPastFailedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "boom"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithLLMEndpoint(server.URL))
	run := testsupport.NewRun(t, cfg, nil, "https://clinic.example")
	handler := generate.NewGenerator(cfg, logging.NewNop(), llm.WithRetryMaxAttempts(1))

	testsupport.SeedArtifact(t, cfg, run, runs.ArtifactTagged, []runs.TaggedBlock{
		{
			Block: runs.Block{SourceURL: "https://clinic.example/pricing", PageType: "product",
				Ordinal: 0, Text: "A perfectly reasonable block of content with plenty of distinct words."},
			Role: roles.RoleDescriptive, Confidence: 0.7,
		},
	})

	if err := handler.Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute should tolerate a failed batch, got %v", err)
	}
	pairs := testsupport.ReadArtifact[runs.QAPair](t, cfg, run, runs.ArtifactQA)
	if len(pairs) != 0 {
		t.Fatalf("expected no pairs, got %d", len(pairs))
	}
}

func TestGeneratorBatchesByTokenBudget(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write(completionBody(t, `{"pairs": []}`))
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithLLMEndpoint(server.URL))
	cfg.Generate.MaxBatchTokens = 20
	run := testsupport.NewRun(t, cfg, nil, "https://clinic.example")
	handler := generate.NewGenerator(cfg, logging.NewNop())

	// Each block is roughly 13 estimated tokens, so two blocks exceed the
	// 20-token cap and must be sent separately.
	text := "Ten distinct words fill this sentence for batching purposes today."
	testsupport.SeedArtifact(t, cfg, run, runs.ArtifactTagged, []runs.TaggedBlock{
		{Block: runs.Block{SourceURL: "https://clinic.example/a", PageType: "general", Ordinal: 0, Text: text},
			Role: roles.RoleDescriptive, Confidence: 0.7},
		{Block: runs.Block{SourceURL: "https://clinic.example/a", PageType: "general", Ordinal: 1, Text: text},
			Role: roles.RoleDescriptive, Confidence: 0.7},
	})

	if err := handler.Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("expected 2 llm calls, got %d", got)
	}
}
