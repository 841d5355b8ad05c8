package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	horizontalWS = regexp.MustCompile(`[ \t]+`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// Normalize canonicalizes a text segment: NFC form, Unix line endings,
// collapsed horizontal whitespace, and at most one blank line in a row.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalWS.ReplaceAllString(text, " ")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// WordCount returns the number of whitespace-delimited tokens in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// UniqueWordCount returns the number of distinct lowercase tokens in text.
func UniqueWordCount(text string) int {
	seen := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		seen[field] = struct{}{}
	}
	return len(seen)
}

// ContentHash returns a stable hex digest of text, used for document dedupe.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
