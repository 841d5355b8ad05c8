package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loom/internal/config"
	"loom/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), "run_2026-01-02_03-04-05_abc123", "https://clinic.example", 12); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceSendsRunEvents(t *testing.T) {
	type captured struct {
		title    string
		tags     string
		priority string
		body     string
	}

	var got captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	if err := svc.NotifyRunCompleted(ctx, "run_2026-01-02_03-04-05_abc123", "https://clinic.example", 12); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	if got.title != "Loom - Run Complete" {
		t.Errorf("title = %q", got.title)
	}
	if got.tags != "loom,run,completed" {
		t.Errorf("tags = %q", got.tags)
	}
	if got.priority != "high" {
		t.Errorf("priority = %q", got.priority)
	}
	if !strings.Contains(got.body, "12 pairs") || !strings.Contains(got.body, "https://clinic.example") {
		t.Errorf("body = %q", got.body)
	}

	if err := svc.NotifyRunFailed(ctx, "run_2026-01-02_03-04-05_abc123", "slicing", "clean artifact missing"); err != nil {
		t.Fatalf("NotifyRunFailed: %v", err)
	}
	if got.title != "Loom - Run Failed" {
		t.Errorf("title = %q", got.title)
	}
	if !strings.Contains(got.body, "failed during slicing") {
		t.Errorf("body = %q", got.body)
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic rejected", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
