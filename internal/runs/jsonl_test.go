package runs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"loom/internal/runs"
)

func TestWriteReadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.jsonl")
	want := []runs.PageRecord{
		{
			SourceURL: "https://example.com/",
			PageType:  "general",
			Segments:  []string{"Welcome", "We open at nine."},
			FetchedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		{
			SourceURL: "https://example.com/faq",
			PageType:  "faq",
			Segments:  []string{"How long does it last?"},
			FetchedAt: time.Date(2026, 3, 14, 9, 31, 0, 0, time.UTC),
		},
	}

	if err := runs.WriteJSONL(path, want); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}

	got, malformed, err := runs.ReadJSONL[runs.PageRecord](path)
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if malformed != 0 {
		t.Fatalf("malformed = %d", malformed)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].SourceURL != want[i].SourceURL || got[i].PageType != want[i].PageType {
			t.Errorf("record %d mismatch: %+v", i, got[i])
		}
		if len(got[i].Segments) != len(want[i].Segments) {
			t.Errorf("record %d segment count mismatch", i)
		}
	}
}

func TestReadJSONLSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.jsonl")
	content := `{"source_url":"https://example.com/","page_type":"general","segments":["ok"]}
{not json at all
{"source_url":"https://example.com/faq","page_type":"faq","segments":["also ok"]}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	docs, malformed, err := runs.ReadJSONL[runs.Document](path)
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if malformed != 1 {
		t.Fatalf("malformed = %d, want 1", malformed)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
}

func TestReadJSONLMissingFile(t *testing.T) {
	_, _, err := runs.ReadJSONL[runs.Document](filepath.Join(t.TempDir(), "absent.jsonl"))
	if err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestWriteJSONLLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sliced.jsonl")
	if err := runs.WriteJSONL(path, []runs.Block{{SourceURL: "https://example.com/", Text: "hello"}}); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "sliced.jsonl" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}
