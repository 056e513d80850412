package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"content-crew/internal/application/port/input"
	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

var _ input.TaskExecutor = (*UseCase)(nil)

type Config struct {
	// StageTimeout bounds one agent invocation. Zero means no limit.
	StageTimeout time.Duration
	// MaxAttempts is how many times a transport failure is tried before the
	// task fails. Values below 1 are treated as 1.
	MaxAttempts int
	RetryDelay  time.Duration
}

func DefaultConfig() Config {
	return Config{MaxAttempts: 1, RetryDelay: time.Second}
}

// UseCase executes single tasks for one run. It owns no run state beyond the
// run id stamped on the events it publishes.
type UseCase struct {
	runID    string
	registry output.AgentRegistry
	events   output.EventPublisher
	logger   output.LoggerPort
	cfg      Config
}

func New(
	runID string,
	registry output.AgentRegistry,
	events output.EventPublisher,
	logger output.LoggerPort,
	cfg Config,
) *UseCase {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &UseCase{
		runID:    runID,
		registry: registry,
		events:   events,
		logger:   logger.WithField("run_id", runID),
		cfg:      cfg,
	}
}

func (uc *UseCase) Execute(ctx context.Context, task *entity.Task) entity.TaskResult {
	if err := task.Validate(); err != nil {
		id := ""
		if task != nil {
			id = task.ID
		}
		return entity.FailedResult(id, entity.AsTaskError(err), nil)
	}

	agent, err := uc.registry.Resolve(task.Kind)
	if err != nil {
		uc.logger.Warn("No agent for task", "task_id", task.ID, "kind", task.Kind)
		return entity.FailedResult(task.ID, entity.AsTaskError(err), nil)
	}

	if err := task.Advance(entity.TaskStatusRunning); err != nil {
		return entity.FailedResult(task.ID, entity.AsTaskError(err), nil)
	}

	stage := entity.StageForKind(task.Kind)
	log := uc.logger.WithFields(map[string]any{
		"task_id": task.ID,
		"stage":   stage,
		"agent":   agent.Name(),
	})

	started := entity.NewEvent(entity.EventStageStarted, uc.runID)
	started.Stage = stage
	started.TaskID = task.ID
	started.Data = map[string]any{"agent": agent.Name()}
	uc.events.Publish(started)
	log.Info("Stage started")

	start := time.Now()
	out, attempts, runErr := uc.invokeWithRetry(ctx, agent, task, log)
	elapsed := time.Since(start)

	meta := map[string]any{
		entity.ResultMetaDurationMs: elapsed.Milliseconds(),
		entity.ResultMetaAttempts:   attempts,
		entity.ResultMetaAgent:      agent.Name(),
	}

	if runErr != nil {
		taskErr := entity.NewAgentExecutionError(agent.Name(), runErr)
		_ = task.Advance(entity.TaskStatusFailed)

		failed := entity.NewEvent(entity.EventStageFailed, uc.runID)
		failed.Stage = stage
		failed.TaskID = task.ID
		failed.Error = taskErr
		failed.Data = meta
		uc.events.Publish(failed)

		log.Error("Stage failed", "error", runErr, "attempts", attempts, "duration_ms", elapsed.Milliseconds())
		return entity.FailedResult(task.ID, taskErr, meta)
	}

	_ = task.Advance(entity.TaskStatusSucceeded)

	completed := entity.NewEvent(entity.EventStageCompleted, uc.runID)
	completed.Stage = stage
	completed.TaskID = task.ID
	completed.Data = meta
	uc.events.Publish(completed)

	log.Info("Stage completed", "attempts", attempts, "duration_ms", elapsed.Milliseconds())
	return entity.SucceededResult(task.ID, out, meta)
}

func (uc *UseCase) invokeWithRetry(ctx context.Context, agent output.Agent, task *entity.Task, log output.LoggerPort) (any, int, error) {
	var lastErr error
	for attempt := 1; attempt <= uc.cfg.MaxAttempts; attempt++ {
		out, err := uc.invoke(ctx, agent, task)
		if err == nil {
			return out, attempt, nil
		}
		lastErr = err

		if !errors.Is(err, entity.ErrTransport) || attempt == uc.cfg.MaxAttempts {
			return nil, attempt, lastErr
		}

		log.Warn("Transport failure, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, attempt, lastErr
		case <-time.After(uc.cfg.RetryDelay):
		}
	}
	return nil, uc.cfg.MaxAttempts, lastErr
}

// invoke calls the agent once, converting a panic into an error.
func (uc *UseCase) invoke(ctx context.Context, agent output.Agent, task *entity.Task) (out any, err error) {
	if uc.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.cfg.StageTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("Agent panicked", "agent", agent.Name(), "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			out = nil
			err = fmt.Errorf("agent panic: %v", r)
		}
	}()

	return agent.Process(ctx, task)
}
