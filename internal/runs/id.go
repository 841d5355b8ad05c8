package runs

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const idTimeLayout = "2006-01-02_15-04-05"

// NewID returns a run identifier of the form
// run_2026-03-14_09-30-00_a1b2c3. The timestamp keeps identifiers sortable
// by submission time; the random suffix keeps same-second submissions
// distinct.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return "run_" + now.UTC().Format(idTimeLayout) + "_" + suffix
}

// IsRunID reports whether value looks like an identifier minted by NewID.
func IsRunID(value string) bool {
	if !strings.HasPrefix(value, "run_") {
		return false
	}
	rest := strings.TrimPrefix(value, "run_")
	if len(rest) != len(idTimeLayout)+1+6 {
		return false
	}
	if rest[len(idTimeLayout)] != '_' {
		return false
	}
	if _, err := time.Parse(idTimeLayout, rest[:len(idTimeLayout)]); err != nil {
		return false
	}
	for _, r := range rest[len(idTimeLayout)+1:] {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
