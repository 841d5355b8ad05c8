package ipc_test

import (
	"context"
	"strings"
	"testing"

	"loom/internal/daemon"
	"loom/internal/ipc"
	"loom/internal/logging"
	"loom/internal/runs"
	"loom/internal/testsupport"
)

func newServer(t *testing.T) (*daemon.Daemon, *ipc.Client) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	server, err := ipc.NewServer(context.Background(), cfg.SocketPath(), d, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return d, client
}

func TestSubmitStatusRoundTrip(t *testing.T) {
	_, client := newServer(t)

	submitted, err := client.Submit(ipc.SubmitRequest{SourceURL: "https://clinic.example", MaxPages: 5})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !runs.IsRunID(submitted.RunID) {
		t.Errorf("invalid run id %q", submitted.RunID)
	}
	if submitted.WorkspaceDir == "" {
		t.Error("workspace dir missing from response")
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Error("daemon reported running before Start")
	}
	if status.RunStats[string(runs.StatusCreated)] != 1 {
		t.Errorf("run stats = %v, want one created run", status.RunStats)
	}
	if status.DBPath == "" || status.LockPath == "" {
		t.Errorf("paths missing from status: %+v", status)
	}
}

func TestSubmitRejectsInvalidURL(t *testing.T) {
	_, client := newServer(t)

	_, err := client.Submit(ipc.SubmitRequest{SourceURL: "notaurl"})
	if err == nil {
		t.Fatal("expected error for invalid source url")
	}
}

func TestRunListAndDescribe(t *testing.T) {
	_, client := newServer(t)

	first, err := client.Submit(ipc.SubmitRequest{SourceURL: "https://a.example"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := client.Submit(ipc.SubmitRequest{SourceURL: "https://b.example"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	list, err := client.RunList(nil)
	if err != nil {
		t.Fatalf("RunList: %v", err)
	}
	if len(list.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(list.Runs))
	}

	filtered, err := client.RunList([]string{"created"})
	if err != nil {
		t.Fatalf("RunList(created): %v", err)
	}
	if len(filtered.Runs) != 2 {
		t.Errorf("expected 2 created runs, got %d", len(filtered.Runs))
	}

	if _, err := client.RunList([]string{"bogus"}); err == nil {
		t.Error("expected error for unknown status filter")
	}

	described, err := client.RunDescribe(first.RunID)
	if err != nil {
		t.Fatalf("RunDescribe: %v", err)
	}
	if described.Run.SourceURL != "https://a.example" {
		t.Errorf("described wrong run: %+v", described.Run)
	}
	if described.Run.SubmissionJSON == "" {
		t.Error("described run carries no submission snapshot")
	}
	if len(described.Run.StageResults) != 0 {
		t.Errorf("unexecuted run has stage results: %+v", described.Run.StageResults)
	}

	if _, err := client.RunDescribe("run_2099-01-01_00-00-00_ffffff"); err == nil ||
		!strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not-found error, got %v", err)
	}
	if _, err := client.RunDescribe("nonsense"); err == nil {
		t.Error("expected error for malformed run id")
	}
}
