package output

import (
	"context"

	"content-crew/internal/domain/entity"
)

// Agent is the capability behind a pipeline stage. Process returns the
// stage-specific output or an error; it must not mutate task.Status.
type Agent interface {
	Name() string
	Description() string
	Process(ctx context.Context, task *entity.Task) (any, error)
}

type AgentRegistry interface {
	Register(kind entity.TaskKind, agent Agent) error
	Resolve(kind entity.TaskKind) (Agent, error)
	All(kind entity.TaskKind) []Agent
	Kinds() []entity.TaskKind
}
