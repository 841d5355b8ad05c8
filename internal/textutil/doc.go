// Package textutil provides the text primitives shared by the cleaning and
// slicing stages: whitespace/Unicode normalization, sentence boundary
// detection, word counting, and content hashing for document dedupe.
//
// Offsets returned by SentenceBoundaries are byte offsets into the input and
// always point at whitespace, so cutting a string at a boundary never splits a
// UTF-8 sequence.
package textutil
