package textutil_test

import (
	"reflect"
	"testing"

	"loom/internal/textutil"
)

func TestSentenceBoundaries(t *testing.T) {
	text := "First sentence. Second one! Third?"
	got := textutil.SentenceBoundaries(text)
	want := []int{15, 27}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SentenceBoundaries = %v, want %v", got, want)
	}
	for _, off := range got {
		if text[off] != ' ' {
			t.Fatalf("boundary %d does not point at whitespace", off)
		}
	}
}

func TestSentenceBoundariesSkipsDecimals(t *testing.T) {
	text := "The dose is 2.5 ml daily. Apply after cleansing."
	got := textutil.SentenceBoundaries(text)
	if len(got) != 1 {
		t.Fatalf("expected one boundary, got %v", got)
	}
	if got[0] != 25 {
		t.Fatalf("boundary = %d, want 25", got[0])
	}
}

func TestSentenceBoundariesClosers(t *testing.T) {
	text := `He said "done." Then left.`
	got := textutil.SentenceBoundaries(text)
	if len(got) != 1 || got[0] != 15 {
		t.Fatalf("SentenceBoundaries = %v", got)
	}
}

func TestParagraphBreaks(t *testing.T) {
	text := "one\n\ntwo\nthree"
	got := textutil.ParagraphBreaks(text)
	want := []int{3, 4, 8}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParagraphBreaks = %v, want %v", got, want)
	}
}

func TestSentenceBoundariesNone(t *testing.T) {
	if got := textutil.SentenceBoundaries("no terminators here"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
