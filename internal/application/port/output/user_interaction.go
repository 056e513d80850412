package output

import "content-crew/internal/domain/entity"

type ProgressReporter interface {
	HandleEvent(event entity.Event)
	ShowSummary(result *entity.PipelineRunResult)
}
