package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"content-crew/internal/application/port/input"
	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

var _ input.BatchRunner = (*UseCase)(nil)

const DefaultConcurrency = 5

// UseCase runs several pipeline requests with bounded concurrency. Requests
// start in priority order, highest first; results keep the input order.
type UseCase struct {
	runner      input.PipelineRunner
	logger      output.LoggerPort
	concurrency int
}

func New(runner input.PipelineRunner, logger output.LoggerPort, concurrency int) *UseCase {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &UseCase{
		runner:      runner,
		logger:      logger,
		concurrency: concurrency,
	}
}

// RunAll never stops early because one request is malformed. The returned
// error joins every rejected request; its slot in the results is nil.
// Handlers may be called from several runs at once.
func (uc *UseCase) RunAll(ctx context.Context, reqs []entity.RunRequest, handlers ...entity.EventHandler) ([]*entity.PipelineRunResult, error) {
	results := make([]*entity.PipelineRunResult, len(reqs))
	errs := make([]error, len(reqs))

	order := make([]int, len(reqs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return reqs[order[a]].Priority > reqs[order[b]].Priority
	})

	uc.logger.Info("Starting batch", "runs", len(reqs), "concurrency", uc.concurrency)

	var g errgroup.Group
	g.SetLimit(uc.concurrency)
	for _, i := range order {
		if ctx.Err() != nil {
			errs[i] = fmt.Errorf("request %d (%q): %w", i, reqs[i].Topic, entity.NewCancelledError(ctx.Err()))
			continue
		}
		g.Go(func() error {
			res, err := uc.runner.Run(ctx, reqs[i], handlers...)
			if err != nil {
				errs[i] = fmt.Errorf("request %d (%q): %w", i, reqs[i].Topic, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	approved := 0
	for _, r := range results {
		if r != nil && r.Approved {
			approved++
		}
	}
	uc.logger.Info("Batch finished", "runs", len(reqs), "approved", approved)

	return results, errors.Join(errs...)
}
