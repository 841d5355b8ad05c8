package services_test

import (
	"errors"
	"strings"
	"testing"

	"loom/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "generating", "complete", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"generating", "complete", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "slicing", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestKind(t *testing.T) {
	cases := map[string]error{
		"configuration":    services.Wrap(services.ErrConfiguration, "fetching", "prepare", "no url", nil),
		"artifact_missing": services.Wrap(services.ErrArtifactMissing, "slicing", "prepare", "clean.jsonl absent", nil),
		"degenerate":       services.Wrap(services.ErrDegenerate, "tagging", "classify", "all blocks general", nil),
		"timeout":          services.Wrap(services.ErrTimeout, "generating", "batch", "deadline", nil),
		"transient":        errors.New("plain failure"),
	}
	for want, err := range cases {
		if got := services.Kind(err); got != want {
			t.Errorf("Kind(%v) = %q, want %q", err, got, want)
		}
	}
	if got := services.Kind(nil); got != "" {
		t.Errorf("Kind(nil) = %q", got)
	}
}
