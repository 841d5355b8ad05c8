// Package spans recognizes atomic spans inside document text: prices,
// measurements, temporal expressions, and safety/warning phrases. An atomic
// span must never be split across two blocks, so every detection carries the
// exact byte offsets the slicer needs to forbid cuts inside it.
//
// Detection is purely lexical. Each category runs independently over the same
// text with leftmost, non-overlapping matching within the category; a span of
// text can carry several category flags at once.
package spans
