package runs_test

import (
	"testing"
	"time"

	"loom/internal/runs"
)

func TestNewIDFormat(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	id := runs.NewID(now)
	if len(id) != len("run_2026-03-14_09-30-00_")+6 {
		t.Fatalf("unexpected id length: %q", id)
	}
	if id[:len("run_2026-03-14_09-30-00")] != "run_2026-03-14_09-30-00" {
		t.Fatalf("unexpected id prefix: %q", id)
	}
	if !runs.IsRunID(id) {
		t.Fatalf("IsRunID rejected %q", id)
	}
	if runs.IsRunID("run_not-a-timestamp_abc123") {
		t.Fatal("IsRunID accepted a malformed id")
	}

	other := runs.NewID(now)
	if other == id {
		t.Fatal("same-second ids should differ by suffix")
	}
}

func TestCreateWorkspace(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	ws, err := runs.CreateWorkspace(root, now)
	if err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	if !runs.IsRunID(ws.RunID) {
		t.Fatalf("workspace run id %q is malformed", ws.RunID)
	}

	reopened, err := runs.OpenWorkspace(root, ws.RunID)
	if err != nil {
		t.Fatalf("OpenWorkspace: %v", err)
	}
	if reopened.Dir != ws.Dir {
		t.Fatalf("reopened dir %q != %q", reopened.Dir, ws.Dir)
	}

	if ws.HasArtifact(runs.ArtifactRaw) {
		t.Fatal("fresh workspace should have no artifacts")
	}
	if err := runs.WriteJSONL(ws.ArtifactPath(runs.ArtifactRaw), []runs.PageRecord{{SourceURL: "https://example.com/"}}); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if !ws.HasArtifact(runs.ArtifactRaw) {
		t.Fatal("artifact should be present after write")
	}
}

func TestOpenWorkspaceMissing(t *testing.T) {
	if _, err := runs.OpenWorkspace(t.TempDir(), "run_2026-03-14_09-30-00_abc123"); err == nil {
		t.Fatal("expected error for missing workspace")
	}
}
