package runs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline run.
type Status string

const (
	StatusCreated    Status = "created"
	StatusFetching   Status = "fetching"
	StatusCleaning   Status = "cleaning"
	StatusSlicing    Status = "slicing"
	StatusTagging    Status = "tagging"
	StatusGenerating Status = "generating"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// DaemonStopReason is the error message set when runs are failed due to
// daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusCreated,
	StatusFetching,
	StatusCleaning,
	StatusSlicing,
	StatusTagging,
	StatusGenerating,
	StatusComplete,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusFetching:   {},
	StatusCleaning:   {},
	StatusSlicing:    {},
	StatusTagging:    {},
	StatusGenerating: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status Status) bool {
	return status == StatusComplete || status == StatusFailed
}

// Run is a pipeline run persisted in SQLite.
type Run struct {
	ID               string
	Status           Status
	SourceURL        string
	WorkspaceDir     string
	FailedStage      string
	ErrorMessage     string
	ProgressStage    string
	ProgressMessage  string
	SubmissionJSON   string
	StageResultsJSON string
	StatsJSON        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsProcessing returns true when the run is mid-stage.
func (r Run) IsProcessing() bool {
	return IsProcessingStatus(r.Status)
}

// SetProgress updates the progress fields together.
func (r *Run) SetProgress(stage, message string) {
	r.ProgressStage = stage
	r.ProgressMessage = message
}

// SetFailed marks the run as failed at the named stage.
func (r *Run) SetFailed(stage, message string) {
	r.Status = StatusFailed
	r.FailedStage = stage
	r.ErrorMessage = message
	r.ProgressStage = "Failed"
	r.ProgressMessage = message
}

// Submission decodes the parameter snapshot frozen at submission time.
// The second return is false when no snapshot was recorded.
func (r Run) Submission() (Submission, bool) {
	if r.SubmissionJSON == "" {
		return Submission{}, false
	}
	var sub Submission
	if err := json.Unmarshal([]byte(r.SubmissionJSON), &sub); err != nil {
		return Submission{}, false
	}
	return sub, true
}

// StageResults decodes the ordered per-stage outcomes recorded so far.
func (r Run) StageResults() []StageResult {
	if r.StageResultsJSON == "" {
		return nil
	}
	var results []StageResult
	if err := json.Unmarshal([]byte(r.StageResultsJSON), &results); err != nil {
		return nil
	}
	return results
}

// AppendStageResult adds a stage outcome to the persisted list.
func (r *Run) AppendStageResult(result StageResult) {
	results := append(r.StageResults(), result)
	encoded, err := json.Marshal(results)
	if err != nil {
		return
	}
	r.StageResultsJSON = string(encoded)
}

// Submission carries the parameters of a requested run. Zero values mean
// the file-config default applies; the merged snapshot is frozen onto the
// run row at submission time and read back for execution.
type Submission struct {
	SourceURL     string `json:"source_url"`
	MaxPages      int    `json:"max_pages,omitempty"`
	DelayMillis   int    `json:"delay_millis,omitempty"`
	MaxBlockChars int    `json:"max_block_chars,omitempty"`
	MinBlockChars int    `json:"min_block_chars,omitempty"`
}

// Validate checks the submission before a run is created for it.
func (s Submission) Validate() error {
	raw := strings.TrimSpace(s.SourceURL)
	if raw == "" {
		return errors.New("source URL is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse source URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("source URL %q must use http or https", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("source URL %q has no host", raw)
	}
	if s.MaxPages < 0 {
		return fmt.Errorf("max pages %d must not be negative", s.MaxPages)
	}
	if s.DelayMillis < 0 {
		return fmt.Errorf("delay %dms must not be negative", s.DelayMillis)
	}
	if s.MaxBlockChars < 0 || s.MinBlockChars < 0 {
		return errors.New("block size bounds must not be negative")
	}
	if s.MaxBlockChars > 0 && s.MinBlockChars > 0 && s.MaxBlockChars <= s.MinBlockChars {
		return fmt.Errorf("max block chars %d must exceed min block chars %d",
			s.MaxBlockChars, s.MinBlockChars)
	}
	return nil
}

// StageResult records the outcome of one executed stage. The run carries
// the ordered list as JSON alongside its aggregate statistics.
type StageResult struct {
	Stage    string        `json:"stage"`
	Success  bool          `json:"success"`
	Artifact string        `json:"artifact,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
	Error    string        `json:"error,omitempty"`
}

// Stats aggregates artifact counts for a completed run.
type Stats struct {
	Pages              int            `json:"pages"`
	Documents          int            `json:"documents"`
	Blocks             int            `json:"blocks"`
	TaggedBlocks       int            `json:"tagged_blocks"`
	QAPairs            int            `json:"qa_pairs"`
	HardCuts           int            `json:"hard_cuts,omitempty"`
	FailedBatches      int            `json:"failed_batches,omitempty"`
	RoleDistribution   map[string]int `json:"role_distribution,omitempty"`
	FlaggedPrice       int            `json:"flagged_price,omitempty"`
	FlaggedMeasurement int            `json:"flagged_measurement,omitempty"`
	FlaggedTemporal    int            `json:"flagged_temporal,omitempty"`
	FlaggedWarning     int            `json:"flagged_warning,omitempty"`
}
