package stage

import (
	"context"

	"loom/internal/runs"
)

// Handler describes the contract the pipeline executor needs from each stage.
// Prepare validates preconditions (configuration, upstream artifacts) without
// touching the workspace; Execute produces the stage's artifact.
type Handler interface {
	Prepare(context.Context, *runs.Run) error
	Execute(context.Context, *runs.Run) error
	HealthCheck(context.Context) Health
}
