package runs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact filenames inside a run workspace, one per stage.
const (
	ArtifactRaw    = "raw.jsonl"
	ArtifactClean  = "clean.jsonl"
	ArtifactSliced = "sliced.jsonl"
	ArtifactTagged = "tagged.jsonl"
	ArtifactQA     = "qa.jsonl"
)

// Workspace is a run's private directory under the output root. All stage
// artifacts live directly inside it; once a stage has written its artifact
// the file is never rewritten.
type Workspace struct {
	RunID string
	Dir   string
}

// CreateWorkspace mints a run ID and creates its workspace directory under
// root. The directory is created exclusively; on the rare same-second suffix
// collision a fresh ID is minted and the create retried.
func CreateWorkspace(root string, now time.Time) (Workspace, error) {
	if root == "" {
		return Workspace{}, errors.New("workspace root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("ensure workspace root: %w", err)
	}
	for attempt := 0; attempt < 3; attempt++ {
		id := NewID(now)
		dir := filepath.Join(root, id)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return Workspace{RunID: id, Dir: dir}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return Workspace{}, fmt.Errorf("create workspace %s: %w", id, err)
		}
	}
	return Workspace{}, errors.New("create workspace: exhausted id retries")
}

// OpenWorkspace returns the workspace for an existing run directory.
func OpenWorkspace(root, runID string) (Workspace, error) {
	dir := filepath.Join(root, runID)
	info, err := os.Stat(dir)
	if err != nil {
		return Workspace{}, fmt.Errorf("open workspace %s: %w", runID, err)
	}
	if !info.IsDir() {
		return Workspace{}, fmt.Errorf("workspace path %s is not a directory", dir)
	}
	return Workspace{RunID: runID, Dir: dir}, nil
}

// ArtifactPath returns the absolute path of a named artifact in the
// workspace.
func (w Workspace) ArtifactPath(name string) string {
	return filepath.Join(w.Dir, name)
}

// HasArtifact reports whether the named artifact exists.
func (w Workspace) HasArtifact(name string) bool {
	info, err := os.Stat(w.ArtifactPath(name))
	return err == nil && !info.IsDir()
}
