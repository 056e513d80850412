package input

import (
	"context"

	"content-crew/internal/domain/entity"
)

// TaskExecutor runs one task against its registered agent. Failures are
// returned as data in the TaskResult, never as a Go error.
type TaskExecutor interface {
	Execute(ctx context.Context, task *entity.Task) entity.TaskResult
}
