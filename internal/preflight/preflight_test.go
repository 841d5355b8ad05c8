package preflight_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loom/internal/preflight"
	"loom/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	result := preflight.CheckDirectoryAccess("Output directory", dir)
	if !result.Passed {
		t.Errorf("expected pass for %s: %+v", dir, result)
	}

	missing := filepath.Join(dir, "absent")
	result = preflight.CheckDirectoryAccess("Output directory", missing)
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Errorf("expected missing-directory failure: %+v", result)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	result = preflight.CheckDirectoryAccess("Output directory", file)
	if result.Passed || !strings.Contains(result.Detail, "not a directory") {
		t.Errorf("expected not-a-directory failure: %+v", result)
	}
}

func TestCheckLLM(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"content": "{\"ok\":true}"}, "finish_reason": "stop"}]}`))
	}))
	defer healthy.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithLLMEndpoint(healthy.URL))
	result := preflight.CheckLLM(context.Background(), "LLM API", cfg.LLM)
	if !result.Passed {
		t.Errorf("expected healthy API to pass: %+v", result)
	}

	cfg.LLM.APIKey = ""
	result = preflight.CheckLLM(context.Background(), "LLM API", cfg.LLM)
	if result.Passed || result.Detail != "API key missing" {
		t.Errorf("expected missing-key failure: %+v", result)
	}
}

func TestRunAllSkipsLLMByDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := preflight.RunAll(context.Background(), cfg, preflight.Options{})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %v", results)
	}
	for _, result := range results {
		if !result.Passed {
			t.Errorf("check %s failed: %s", result.Name, result.Detail)
		}
	}
}
