package stage

import (
	"context"

	"chorus/internal/interview"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *interview.Interview) error
	Execute(context.Context, *interview.Interview) error
	HealthCheck(context.Context) Health
}
