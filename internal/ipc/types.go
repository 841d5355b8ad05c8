package ipc

import "time"

// SubmitRequest asks the daemon to create a new run. Zero-valued
// parameters inherit the daemon's file-config defaults.
type SubmitRequest struct {
	SourceURL     string `json:"source_url"`
	MaxPages      int    `json:"max_pages,omitempty"`
	DelayMillis   int    `json:"delay_millis,omitempty"`
	MaxBlockChars int    `json:"max_block_chars,omitempty"`
	MinBlockChars int    `json:"min_block_chars,omitempty"`
}

// SubmitResponse returns the identity of the created run.
type SubmitResponse struct {
	RunID        string `json:"run_id"`
	WorkspaceDir string `json:"workspace_dir"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse summarizes daemon and run-store state.
type StatusResponse struct {
	Running   bool           `json:"running"`
	PID       int            `json:"pid"`
	RunStats  map[string]int `json:"run_stats"`
	LastError string         `json:"last_error,omitempty"`
	LockPath  string         `json:"lock_path"`
	DBPath    string         `json:"db_path"`
}

// StageOutcome reports one executed stage of a run.
type StageOutcome struct {
	Stage    string        `json:"stage"`
	Success  bool          `json:"success"`
	Artifact string        `json:"artifact,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
	Error    string        `json:"error,omitempty"`
}

// RunSummary mirrors a stored run for IPC callers.
type RunSummary struct {
	ID              string         `json:"id"`
	Status          string         `json:"status"`
	SourceURL       string         `json:"source_url"`
	WorkspaceDir    string         `json:"workspace_dir"`
	FailedStage     string         `json:"failed_stage,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	ProgressStage   string         `json:"progress_stage,omitempty"`
	ProgressMessage string         `json:"progress_message,omitempty"`
	SubmissionJSON  string         `json:"submission_json,omitempty"`
	StageResults    []StageOutcome `json:"stage_results,omitempty"`
	StatsJSON       string         `json:"stats_json,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// RunListRequest filters run listing by status.
type RunListRequest struct {
	Statuses []string `json:"statuses"`
}

// RunListResponse contains matching runs, newest first.
type RunListResponse struct {
	Runs []RunSummary `json:"runs"`
}

// RunDescribeRequest fetches a single run by id.
type RunDescribeRequest struct {
	ID string `json:"id"`
}

// RunDescribeResponse contains a single run.
type RunDescribeResponse struct {
	Run RunSummary `json:"run"`
}
