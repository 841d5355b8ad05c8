package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"loom/internal/logs"
)

func writeLog(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loom.log")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailReturnsLastLines(t *testing.T) {
	path := writeLog(t, "first\nsecond\nthird\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if want := []string{"second", "third"}; !reflect.DeepEqual(result.Lines, want) {
		t.Errorf("lines = %v, want %v", result.Lines, want)
	}
	if result.Offset == 0 {
		t.Error("offset should point past the read content")
	}
}

func TestTailResumesFromOffset(t *testing.T) {
	path := writeLog(t, "first\nsecond\n")

	initial, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString("third\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	next, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: initial.Offset})
	if err != nil {
		t.Fatalf("Tail from offset: %v", err)
	}
	if want := []string{"third"}; !reflect.DeepEqual(next.Lines, want) {
		t.Errorf("lines = %v, want %v", next.Lines, want)
	}
}

func TestTailMissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Errorf("unexpected result for missing file: %+v", result)
	}
}

func TestTailFollowPicksUpAppendedLines(t *testing.T) {
	path := writeLog(t, "first\n")

	initial, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	go func() {
		time.Sleep(300 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer f.Close()
		f.WriteString("later\n")
	}()

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: initial.Offset,
		Follow: true,
		Wait:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Tail follow: %v", err)
	}
	if want := []string{"later"}; !reflect.DeepEqual(result.Lines, want) {
		t.Errorf("lines = %v, want %v", result.Lines, want)
	}
}
