package slicer

import (
	"sort"
	"strings"
	"unicode/utf8"

	"loom/internal/runs"
	"loom/internal/spans"
	"loom/internal/textutil"
)

// Limits bounds block sizes in bytes of normalized text.
type Limits struct {
	Max int
	Min int
}

// Slice splits a cleaned document into ordered blocks covering its full
// text. Every non-whitespace character of the document lands in exactly one
// block; no atomic span is split across two blocks. The final block of a
// document is the only one allowed below the minimum size.
func Slice(doc runs.Document, limits Limits) []runs.Block {
	text := textutil.Normalize(doc.Text())
	if text == "" {
		return nil
	}
	if limits.Max <= 0 {
		return []runs.Block{makeBlock(doc, 0, text, false)}
	}

	boundaries := cutCandidates(text)
	atoms := spans.Detect(text)

	var blocks []runs.Block
	cursor := 0
	for cursor < len(text) {
		for cursor < len(text) && isSpace(text[cursor]) {
			cursor++
		}
		if cursor >= len(text) {
			break
		}

		if len(text)-cursor <= limits.Max {
			blocks = append(blocks, makeBlock(doc, len(blocks), text[cursor:], false))
			break
		}

		cut, hard := findCut(text, boundaries, atoms, cursor, limits)
		blocks = append(blocks, makeBlock(doc, len(blocks), text[cursor:cut], hard))
		cursor = cut
	}
	return blocks
}

// findCut locates the end of the block starting at cursor. It prefers the
// latest boundary within the size limit, then extends through a straddling
// atomic span, then merges forward to the next boundary, then falls back to
// a hard cut at the limit.
func findCut(text string, boundaries []int, atoms []spans.Span, cursor int, limits Limits) (int, bool) {
	limit := cursor + limits.Max

	best := -1
	for _, b := range boundaries {
		if b <= cursor {
			continue
		}
		if b > limit {
			break
		}
		if spans.Inside(atoms, b) {
			continue
		}
		if b-cursor < limits.Min {
			continue
		}
		best = b
	}
	if best > 0 {
		return best, false
	}

	if spans.Inside(atoms, limit) {
		cut := limit
		for {
			atom, ok := spans.Covering(atoms, cut)
			if !ok {
				break
			}
			cut = atom.End
		}
		return alignRune(text, cursor, cut), false
	}

	for _, b := range boundaries {
		if b <= limit {
			continue
		}
		if spans.Inside(atoms, b) {
			continue
		}
		return b, false
	}

	cut := limit
	for spans.Inside(atoms, cut) {
		atom, _ := spans.Covering(atoms, cut)
		cut = atom.End
	}
	return alignRune(text, cursor, cut), true
}

// alignRune backs a byte-offset cut off to the nearest rune start so a
// multi-byte rune is never severed. A cut that would collapse onto the
// cursor advances past one whole rune instead.
func alignRune(text string, cursor, cut int) int {
	for cut > cursor && cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == cursor {
		_, size := utf8.DecodeRuneInString(text[cursor:])
		cut = cursor + size
	}
	return cut
}

func cutCandidates(text string) []int {
	offsets := textutil.SentenceBoundaries(text)
	offsets = append(offsets, textutil.ParagraphBreaks(text)...)
	sort.Ints(offsets)
	deduped := offsets[:0]
	prev := -1
	for _, off := range offsets {
		if off == prev {
			continue
		}
		deduped = append(deduped, off)
		prev = off
	}
	return deduped
}

func makeBlock(doc runs.Document, ordinal int, raw string, hard bool) runs.Block {
	blockText := strings.TrimSpace(raw)
	return runs.Block{
		SourceURL: doc.SourceURL,
		PageType:  doc.PageType,
		Ordinal:   ordinal,
		Text:      blockText,
		Flags:     spans.DetectFlags(blockText),
		HardCut:   hard,
	}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n':
		return true
	}
	return false
}
