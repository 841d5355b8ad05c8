package runs

import (
	"strings"
	"time"

	"loom/internal/spans"
)

// PageRecord is one crawled page as written to raw.jsonl. Segments hold the
// extractable text units (headings, paragraphs, list items) in reading order.
type PageRecord struct {
	SourceURL string    `json:"source_url"`
	PageType  string    `json:"page_type"`
	Segments  []string  `json:"segments"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Document is one page after boilerplate removal and deduplication, written
// to clean.jsonl. Segment order matches document reading order.
type Document struct {
	SourceURL string   `json:"source_url"`
	PageType  string   `json:"page_type"`
	Segments  []string `json:"segments"`
}

// Text joins the document's segments into the contiguous text the slicer
// operates on. Segments are separated by a blank line so paragraph
// boundaries survive the join.
func (d Document) Text() string {
	return strings.Join(d.Segments, "\n\n")
}

// Block is a bounded contiguous slice of a Document, written to sliced.jsonl.
// Ordinal is the block's zero-based position within its document. HardCut
// marks a block that had to be severed at the character limit with no
// sentence boundary available.
type Block struct {
	SourceURL string      `json:"source_url"`
	PageType  string      `json:"page_type"`
	Ordinal   int         `json:"ordinal"`
	Text      string      `json:"text"`
	Flags     spans.Flags `json:"flags"`
	HardCut   bool        `json:"hard_cut,omitempty"`
}

// TaggedBlock is a Block plus the role assigned by the rule classifier,
// written to tagged.jsonl. MatchedRule identifies the rule that fired, or is
// empty when the block defaulted to GENERAL.
type TaggedBlock struct {
	Block
	Role        string  `json:"role"`
	MatchedRule string  `json:"matched_rule,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// QAPair is one generated question/answer record, written to qa.jsonl.
type QAPair struct {
	SourceURL string `json:"source_url"`
	PageType  string `json:"page_type"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}
