package input

import (
	"context"

	"content-crew/internal/domain/entity"
)

type PipelineRunner interface {
	Run(ctx context.Context, req entity.RunRequest, handlers ...entity.EventHandler) (*entity.PipelineRunResult, error)
}

type BatchRunner interface {
	RunAll(ctx context.Context, reqs []entity.RunRequest, handlers ...entity.EventHandler) ([]*entity.PipelineRunResult, error)
}
