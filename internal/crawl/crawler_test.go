package crawl_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loom/internal/crawl"
	"loom/internal/logging"
	"loom/internal/runs"
	"loom/internal/services"
	"loom/internal/testsupport"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<html><head><title>Glow Clinic</title></head><body>
			<h1>Welcome to Glow Clinic</h1>
			<p>We offer a full range of skin treatments tailored to you.</p>
			<a href="/pricing">Pricing</a>
			<a href="/routine">Routine</a>
			<a href="/login">Login</a>
			<a href="/brochure.pdf">Brochure</a>
			<a href="https://other.example/away">Away</a>
		</body></html>`))
	})
	mux.HandleFunc("/pricing", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Pricing</title></head><body>
			<h2>Treatment prices</h2>
			<p>Botox costs $300 per session and lasts 3-4 months of benefits.</p>
			<ul><li>Consultation included with ingredient review</li></ul>
		</body></html>`))
	})
	mux.HandleFunc("/routine", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Routine</title></head><body>
			<h2>Evening routine</h2>
			<p>Step one: cleanse your face, then apply the serum generously.</p>
		</body></html>`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCrawlerWalksSameDomain(t *testing.T) {
	server := newSite(t)
	cfg := testsupport.NewConfig(t)

	crawler, err := crawl.NewCrawler(cfg, server.URL, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCrawler: %v", err)
	}
	records, err := crawler.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 pages, got %d: %+v", len(records), records)
	}

	byURL := make(map[string]runs.PageRecord, len(records))
	for _, record := range records {
		byURL[strings.TrimPrefix(record.SourceURL, server.URL)] = record
	}
	if _, ok := byURL["/login"]; ok {
		t.Error("login page should have been skipped")
	}

	pricing, ok := byURL["/pricing"]
	if !ok {
		t.Fatal("pricing page not crawled")
	}
	if pricing.PageType != "product" {
		t.Errorf("pricing page type = %q, want product", pricing.PageType)
	}
	joined := strings.Join(pricing.Segments, "\n")
	for _, want := range []string{"Pricing", "Treatment prices", "Botox costs $300", "Consultation included"} {
		if !strings.Contains(joined, want) {
			t.Errorf("pricing segments missing %q: %v", want, pricing.Segments)
		}
	}

	routine, ok := byURL["/routine"]
	if !ok {
		t.Fatal("routine page not crawled")
	}
	if routine.PageType != "routine" {
		t.Errorf("routine page type = %q, want routine", routine.PageType)
	}
	if routine.FetchedAt.IsZero() {
		t.Error("fetch timestamp not set")
	}
}

func TestCrawlerHonorsPageBudget(t *testing.T) {
	server := newSite(t)
	cfg := testsupport.NewConfig(t)
	cfg.Crawl.MaxPages = 1

	crawler, err := crawl.NewCrawler(cfg, server.URL, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCrawler: %v", err)
	}
	records, err := crawler.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 page, got %d", len(records))
	}
}

func TestCrawlerRejectsBadSourceURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := crawl.NewCrawler(cfg, "ftp://example.com", logging.NewNop()); err == nil {
		t.Error("expected error for non-http scheme")
	}
	if _, err := crawl.NewCrawler(cfg, "https://", logging.NewNop()); err == nil {
		t.Error("expected error for missing host")
	}
}

func TestFetcherWritesRawArtifact(t *testing.T) {
	server := newSite(t)
	cfg := testsupport.NewConfig(t)
	run := testsupport.NewRun(t, cfg, nil, server.URL)
	handler := crawl.NewFetcher(cfg, logging.NewNop())

	if err := handler.Prepare(context.Background(), run); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	records := testsupport.ReadArtifact[runs.PageRecord](t, cfg, run, runs.ArtifactRaw)
	if len(records) != 3 {
		t.Fatalf("expected 3 page records, got %d", len(records))
	}
}

func TestFetcherFailsWhenNothingFetched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	run := testsupport.NewRun(t, cfg, nil, server.URL)
	handler := crawl.NewFetcher(cfg, logging.NewNop())

	err := handler.Execute(context.Background(), run)
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external-service error, got %v", err)
	}
}

func TestFetcherPrepareRejectsBadURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	run := testsupport.NewRun(t, cfg, nil, "https://clinic.example")
	run.SourceURL = "not a url"
	handler := crawl.NewFetcher(cfg, logging.NewNop())

	err := handler.Prepare(context.Background(), run)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
