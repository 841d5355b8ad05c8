package spans

import (
	"regexp"
	"sort"
)

// Kind identifies the category of an atomic span.
type Kind string

const (
	KindPrice       Kind = "price"
	KindMeasurement Kind = "measurement"
	KindTemporal    Kind = "temporal"
	KindWarning     Kind = "warning"
)

// Span is one detected atomic span with byte offsets into the scanned text.
// The span covers text[Start:End].
type Span struct {
	Kind  Kind
	Start int
	End   int
	Text  string
}

// Flags records which atomic-span categories a block of text contains.
// Field names match the wire format of sliced blocks.
type Flags struct {
	Price       bool `json:"price"`
	Measurement bool `json:"measurement"`
	Temporal    bool `json:"temporal"`
	Warning     bool `json:"warning"`
}

// Any reports whether at least one category flag is set.
func (f Flags) Any() bool {
	return f.Price || f.Measurement || f.Temporal || f.Warning
}

var (
	// Numeric literal adjacent to a currency symbol or 3-letter currency code.
	priceRE = regexp.MustCompile(`(?i)[$£€]\s?\d+(?:[.,]\d+)*|\b\d+(?:[.,]\d+)*\s?(?:USD|EUR|GBP)\b`)

	// Numeric literal adjacent to a volume, mass, length, dosage, or
	// percentage unit token.
	measurementRE = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s?(?:ml|mg|kg|g|oz|lb|cc|mm|cm|iu|units?)\b|\d+(?:[.,]\d+)?\s?%`)

	// Numeric literal adjacent to a duration unit (optionally a range such
	// as "3-4 months"), or an explicit calendar-date pattern.
	temporalRE = regexp.MustCompile(`(?i)\b\d+(?:\s?[-–]\s?\d+)?\s?(?:minutes?|mins?|hours?|hrs?|days?|weeks?|months?|years?)\b` +
		`|\b\d{4}-\d{2}-\d{2}\b` +
		`|\b\d{1,2}[/.]\d{1,2}[/.]\d{2,4}\b` +
		`|\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\s\d{1,2}(?:,\s?\d{4})?\b`)

	// Fixed vocabulary of contraindication and warning cues.
	warningRE = regexp.MustCompile(`(?i)\b(?:do not|don't|avoid|contraindicated|contraindications?|not recommended|not suitable|consult (?:your |a )?(?:doctor|physician|gp)|side effects?|warnings?|caution|allergic reactions?|pregnan(?:t|cy)|seek medical)\b`)
)

var detectors = []struct {
	kind Kind
	re   *regexp.Regexp
}{
	{KindPrice, priceRE},
	{KindMeasurement, measurementRE},
	{KindTemporal, temporalRE},
	{KindWarning, warningRE},
}

// Detect returns every atomic span in text, ordered by start offset. Matches
// within a category are leftmost and non-overlapping; categories may overlap
// each other.
func Detect(text string) []Span {
	if text == "" {
		return nil
	}
	var out []Span
	for _, d := range detectors {
		for _, loc := range d.re.FindAllStringIndex(text, -1) {
			out = append(out, Span{
				Kind:  d.kind,
				Start: loc[0],
				End:   loc[1],
				Text:  text[loc[0]:loc[1]],
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// DetectFlags runs every detector and reports which categories matched.
func DetectFlags(text string) Flags {
	return FlagsFor(Detect(text))
}

// FlagsFor folds a span list into category flags.
func FlagsFor(detected []Span) Flags {
	var f Flags
	for _, s := range detected {
		switch s.Kind {
		case KindPrice:
			f.Price = true
		case KindMeasurement:
			f.Measurement = true
		case KindTemporal:
			f.Temporal = true
		case KindWarning:
			f.Warning = true
		}
	}
	return f
}

// Inside reports whether offset falls strictly inside any detected span.
// Cuts exactly at a span's start or end do not split it.
func Inside(detected []Span, offset int) bool {
	for _, s := range detected {
		if s.Start < offset && offset < s.End {
			return true
		}
		if s.Start >= offset {
			break
		}
	}
	return false
}

// Covering returns the first span that offset falls strictly inside, if any.
func Covering(detected []Span, offset int) (Span, bool) {
	for _, s := range detected {
		if s.Start < offset && offset < s.End {
			return s, true
		}
		if s.Start >= offset {
			break
		}
	}
	return Span{}, false
}
