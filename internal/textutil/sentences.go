package textutil

// SentenceBoundaries returns the byte offsets of sentence breaks in text.
// A break is reported at the whitespace that follows a terminator run
// ('.', '!', or '?' plus any trailing quotes or brackets). Abbrevation-free
// heuristics only: a period followed by a non-space character (decimals,
// URLs, version strings) is not a break.
func SentenceBoundaries(text string) []int {
	var offsets []int
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
		default:
			continue
		}
		j := i + 1
		for j < len(text) && isCloser(text[j]) {
			j++
		}
		if j < len(text) && isSpace(text[j]) {
			offsets = append(offsets, j)
			i = j
		}
	}
	return offsets
}

// ParagraphBreaks returns the byte offsets of newline characters in text.
// Segment joins insert "\n\n", so every join contributes cut candidates.
func ParagraphBreaks(text string) []int {
	var offsets []int
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offsets = append(offsets, i)
		}
	}
	return offsets
}

func isCloser(c byte) bool {
	switch c {
	case '"', '\'', ')', ']':
		return true
	}
	return false
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n':
		return true
	}
	return false
}
