package spans_test

import (
	"strings"
	"testing"

	"loom/internal/spans"
)

func TestDetectPriceOffsets(t *testing.T) {
	text := "Botox costs $300 per session and lasts 3-4 months."
	detected := spans.Detect(text)

	var price, temporal *spans.Span
	for i := range detected {
		switch detected[i].Kind {
		case spans.KindPrice:
			price = &detected[i]
		case spans.KindTemporal:
			temporal = &detected[i]
		}
	}
	if price == nil {
		t.Fatal("expected a price span")
	}
	if price.Text != "$300" {
		t.Fatalf("price span = %q, want %q", price.Text, "$300")
	}
	if text[price.Start:price.End] != price.Text {
		t.Fatal("price offsets do not cover the reported text")
	}
	if temporal == nil {
		t.Fatal("expected a temporal span")
	}
	if temporal.Text != "3-4 months" {
		t.Fatalf("temporal span = %q, want %q", temporal.Text, "3-4 months")
	}
}

func TestDetectCurrencyCodes(t *testing.T) {
	detected := spans.Detect("The fee is 250 USD for new patients.")
	if len(detected) == 0 || detected[0].Kind != spans.KindPrice {
		t.Fatalf("expected price span, got %v", detected)
	}
	if detected[0].Text != "250 USD" {
		t.Fatalf("span text = %q", detected[0].Text)
	}
}

func TestDetectMeasurements(t *testing.T) {
	for _, tc := range []struct {
		text string
		want string
	}{
		{"Apply 2.5 ml each evening", "2.5 ml"},
		{"Contains 50mg of active ingredient", "50mg"},
		{"Improves hydration by 40% in trials", "40%"},
	} {
		detected := spans.Detect(tc.text)
		found := ""
		for _, s := range detected {
			if s.Kind == spans.KindMeasurement {
				found = s.Text
				break
			}
		}
		if found != tc.want {
			t.Errorf("Detect(%q) measurement = %q, want %q", tc.text, found, tc.want)
		}
	}
}

func TestDetectTemporalDates(t *testing.T) {
	for _, text := range []string{
		"Booked for 2026-03-14 at noon",
		"Reopens on 14/03/2026 after renovation",
		"Closed from december 24, 2026 onwards",
		"Results last 6 months",
	} {
		flags := spans.DetectFlags(text)
		if !flags.Temporal {
			t.Errorf("DetectFlags(%q) missing temporal flag", text)
		}
	}
}

func TestDetectWarnings(t *testing.T) {
	flags := spans.DetectFlags("Do not use if pregnant. Consult your doctor about side effects.")
	if !flags.Warning {
		t.Fatal("expected warning flag")
	}
	if flags.Price || flags.Measurement {
		t.Fatalf("unexpected flags: %+v", flags)
	}
}

func TestFlagsMultipleCategories(t *testing.T) {
	flags := spans.DetectFlags("A 50 ml bottle costs $25 and ships in 2 days. Avoid contact with eyes.")
	if !flags.Price || !flags.Measurement || !flags.Temporal || !flags.Warning {
		t.Fatalf("expected all flags set, got %+v", flags)
	}
	if !flags.Any() {
		t.Fatal("Any should be true")
	}
}

func TestDetectEmpty(t *testing.T) {
	if got := spans.Detect(""); got != nil {
		t.Fatalf("Detect(\"\") = %v", got)
	}
	if spans.DetectFlags("plain descriptive prose with no atoms").Any() {
		t.Fatal("expected no flags")
	}
}

func TestInside(t *testing.T) {
	text := "session costs $300 today"
	detected := spans.Detect(text)
	start := strings.Index(text, "$300")
	if start < 0 {
		t.Fatal("fixture broken")
	}
	if !spans.Inside(detected, start+2) {
		t.Fatal("offset inside $300 should be protected")
	}
	if spans.Inside(detected, start) {
		t.Fatal("a cut exactly at span start does not split it")
	}
	if spans.Inside(detected, start+4) {
		t.Fatal("a cut exactly at span end does not split it")
	}
	if _, ok := spans.Covering(detected, start+1); !ok {
		t.Fatal("Covering should locate the price span")
	}
}
