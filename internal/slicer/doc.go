// Package slicer splits cleaned documents into bounded-size blocks without
// severing atomic spans.
//
// The cut-point search prefers the latest sentence or paragraph boundary
// that fits under the maximum block size and does not fall inside a price,
// measurement, temporal, or warning span. When an atomic span straddles the
// size limit the block extends until the span closes. Blocks that would fall
// below the minimum size are merged forward instead of emitted standalone.
// Degenerate input (no boundaries at all) degrades to a hard character cut,
// recorded on the block, rather than an error.
package slicer
