package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"content-crew/internal/application/port/input"
	"content-crew/internal/application/port/output"
	"content-crew/internal/application/service"
	"content-crew/internal/domain/entity"
	"content-crew/internal/usecase/orchestrator"
)

var _ input.PipelineRunner = (*UseCase)(nil)

type Config struct {
	MinQualityScore     float64
	MaxRevisionAttempts int
	// RevisionStages re-run on each quality retry. The first one receives
	// the reviewer feedback.
	RevisionStages      []entity.Stage
	DefaultTargetLength int
	Policy              Policy
	Orchestrator        orchestrator.Config
}

func DefaultConfig() Config {
	return Config{
		MinQualityScore:     75,
		MaxRevisionAttempts: 2,
		RevisionStages:      DefaultRevisionStages,
		DefaultTargetLength: 1500,
		Policy:              DefaultPolicy,
		Orchestrator:        orchestrator.DefaultConfig(),
	}
}

// UseCase runs the seven-stage content workflow. It holds only the shared,
// read-only registry; every Run builds its own bus, orchestrator and context.
type UseCase struct {
	registry output.AgentRegistry
	logger   output.LoggerPort
	cfg      Config
}

func New(registry output.AgentRegistry, logger output.LoggerPort, cfg Config) *UseCase {
	if cfg.Policy == nil {
		cfg.Policy = DefaultPolicy
	}
	if cfg.MaxRevisionAttempts < 0 {
		cfg.MaxRevisionAttempts = 0
	}
	cfg.RevisionStages = revisionScope(cfg.RevisionStages)
	return &UseCase{registry: registry, logger: logger, cfg: cfg}
}

// Run executes one pipeline run. The returned error is non-nil only for
// malformed requests; stage failures are reported in the result.
func (uc *UseCase) Run(ctx context.Context, req entity.RunRequest, handlers ...entity.EventHandler) (*entity.PipelineRunResult, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return nil, entity.NewValidationError("topic is required")
	}
	if req.TargetLength < 0 {
		return nil, entity.NewValidationError(fmt.Sprintf("target length %d is negative", req.TargetLength))
	}
	if req.TargetLength == 0 {
		req.TargetLength = uc.cfg.DefaultTargetLength
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	log := uc.logger.WithField("run_id", req.RunID)

	bus := service.NewEventBus(log)
	defer bus.Close()
	for _, h := range handlers {
		bus.Subscribe(h)
	}

	r := &run{
		cfg:      uc.cfg,
		req:      req,
		ctx:      entity.NewPipelineContext(req.RunID, req),
		bus:      bus,
		executor: orchestrator.New(req.RunID, uc.registry, bus, log, uc.cfg.Orchestrator),
		logger:   log,
		started:  time.Now(),
	}
	return r.execute(ctx), nil
}

// run is the state of a single pipeline run.
type run struct {
	cfg      Config
	req      entity.RunRequest
	ctx      *entity.PipelineContext
	bus      output.EventBus
	executor input.TaskExecutor
	logger   output.LoggerPort
	started  time.Time

	result entity.PipelineRunResult
}

func (r *run) execute(ctx context.Context) *entity.PipelineRunResult {
	r.result = entity.PipelineRunResult{
		RunID:   r.req.RunID,
		Context: r.ctx,
		Trace:   []entity.StateTransition{{State: entity.PipelineStateNotStarted}},
	}

	ev := entity.NewEvent(entity.EventPipelineStarted, r.req.RunID)
	ev.Data = map[string]any{
		entity.MetaTopic:        r.req.Topic,
		entity.MetaTargetLength: r.req.TargetLength,
	}
	r.bus.Publish(ev)
	r.logger.Info("Pipeline started", "topic", r.req.Topic)

	for _, stage := range entity.StageOrder {
		if err := ctx.Err(); err != nil {
			return r.fail(stage, entity.NewCancelledError(err))
		}

		res := r.runStage(ctx, stage, r.ctx.InputsFor(stage))
		if !res.Success {
			if err := ctx.Err(); err != nil {
				return r.fail(stage, entity.NewCancelledError(err))
			}
			if r.cfg.Policy.Required(stage) {
				return r.fail(stage, res.Error)
			}
			r.diagnose(stage, res.Error)
			r.logger.Warn("Optional stage failed, continuing", "stage", stage, "error", res.Error)
			continue
		}

		if err := r.ctx.Record(stage, res.Output); err != nil {
			return r.fail(stage, entity.AsTaskError(err))
		}

		if stage == entity.StageQuality {
			if taskErr := r.qualityGate(ctx); taskErr != nil {
				return r.fail(r.result.FailedStage, taskErr)
			}
		}
	}

	return r.complete()
}

func (r *run) runStage(ctx context.Context, stage entity.Stage, meta map[string]any) entity.TaskResult {
	r.transition(entity.PipelineStateRunningStage, stage)

	if stage == entity.StageQuality {
		meta[entity.MetaMinQuality] = r.cfg.MinQualityScore
	}

	task := entity.NewTask(stage.Kind(), stageDescriptions[stage], meta)
	task.ParentID = r.req.RunID
	task.Priority = r.req.Priority

	return r.executor.Execute(ctx, task)
}

type variant struct {
	outputs map[entity.Stage]any
	score   float64
	attempt int
}

func (r *run) snapshot(score float64, attempt int) variant {
	v := variant{outputs: make(map[entity.Stage]any, len(r.cfg.RevisionStages)), score: score, attempt: attempt}
	for _, s := range r.cfg.RevisionStages {
		v.outputs[s], _ = r.ctx.Get(s)
	}
	return v
}

// qualityGate scores the recorded quality review and, while the score stays
// below the threshold, re-runs the revision stages up to
// MaxRevisionAttempts times. On exhaustion the best-scoring variant is kept.
// The returned error aborts the run; r.result.FailedStage names the stage.
func (r *run) qualityGate(ctx context.Context) *entity.TaskError {
	score, feedback, taskErr := r.verdict()
	if taskErr != nil {
		r.result.FailedStage = entity.StageQuality
		return taskErr
	}
	if score >= r.cfg.MinQualityScore {
		r.result.Approved = true
		return nil
	}

	best := r.snapshot(score, 0)

	for attempt := 1; attempt <= r.cfg.MaxRevisionAttempts; attempt++ {
		r.transition(entity.PipelineStateRevising, "")
		r.result.Revisions = attempt

		ev := entity.NewEvent(entity.EventRevisionStarted, r.req.RunID)
		ev.Stage = r.cfg.RevisionStages[0]
		ev.Data = map[string]any{
			"attempt":   attempt,
			"score":     score,
			"threshold": r.cfg.MinQualityScore,
		}
		r.bus.Publish(ev)
		r.logger.Info("Quality below threshold, revising",
			"attempt", attempt,
			"score", score,
			"threshold", r.cfg.MinQualityScore,
		)

		for i, stage := range r.cfg.RevisionStages {
			if err := ctx.Err(); err != nil {
				r.result.FailedStage = stage
				return entity.NewCancelledError(err)
			}

			meta := r.ctx.InputsFor(stage)
			if i == 0 {
				meta[entity.MetaRevision] = attempt
				meta[entity.MetaQualityFeedback] = feedback
				meta[entity.MetaRevisionBase] = r.currentText()
			}

			res := r.runStage(ctx, stage, meta)
			if !res.Success {
				r.result.FailedStage = stage
				if err := ctx.Err(); err != nil {
					return entity.NewCancelledError(err)
				}
				return res.Error
			}
			if err := r.ctx.Revise(stage, res.Output); err != nil {
				r.result.FailedStage = stage
				return entity.AsTaskError(err)
			}
		}

		score, feedback, taskErr = r.verdict()
		if taskErr != nil {
			r.result.FailedStage = entity.StageQuality
			return taskErr
		}
		if score >= best.score {
			best = r.snapshot(score, attempt)
		}
		if score >= r.cfg.MinQualityScore {
			r.result.Approved = true
			return nil
		}
	}

	if best.attempt != r.result.Revisions {
		for _, s := range r.cfg.RevisionStages {
			if err := r.ctx.Revise(s, best.outputs[s]); err != nil {
				r.result.FailedStage = s
				return entity.AsTaskError(err)
			}
		}
		r.logger.Info("Restored best revision", "attempt", best.attempt, "score", best.score)
	}

	exhausted := entity.NewQualityGateExhaustedError(best.score, r.cfg.MinQualityScore, r.result.Revisions)
	r.diagnose(entity.StageQuality, exhausted)
	r.logger.Warn("Quality gate exhausted", "best_score", best.score, "revisions", r.result.Revisions)
	return nil
}

// verdict reads the current quality entry and appends its score to the history.
func (r *run) verdict() (float64, string, *entity.TaskError) {
	out, _ := r.ctx.Get(entity.StageQuality)
	v, ok := out.(entity.QualityVerdict)
	if !ok {
		return 0, "", entity.NewAgentExecutionError(string(entity.StageQuality),
			fmt.Errorf("quality output %T carries no score", out))
	}
	score := v.QualityScore()
	r.result.Scores = append(r.result.Scores, score)
	return score, v.RevisionFeedback(), nil
}

// currentText is the latest article body, preferring the SEO entry.
func (r *run) currentText() string {
	for _, s := range []entity.Stage{entity.StageSEO, entity.StageEditor, entity.StageWriter} {
		if v, ok := r.ctx.Get(s); ok {
			if t, ok := v.(entity.ArticleTexter); ok && t.ArticleText() != "" {
				return t.ArticleText()
			}
		}
	}
	return ""
}

func (r *run) transition(state entity.PipelineState, stage entity.Stage) {
	r.result.Trace = append(r.result.Trace, entity.StateTransition{State: state, Stage: stage})
}

func (r *run) diagnose(stage entity.Stage, taskErr *entity.TaskError) {
	d := entity.Diagnostic{Stage: stage, At: time.Now()}
	if taskErr != nil {
		d.Kind = taskErr.Kind
		d.Message = taskErr.Error()
	}
	r.result.Diagnostics = append(r.result.Diagnostics, d)
}

func (r *run) fail(stage entity.Stage, taskErr *entity.TaskError) *entity.PipelineRunResult {
	r.transition(entity.PipelineStateFailed, stage)
	r.result.Status = entity.RunStatusFailed
	r.result.Approved = false
	r.result.FailedStage = stage
	r.result.Error = taskErr
	r.result.Duration = time.Since(r.started)
	r.diagnose(stage, taskErr)

	ev := entity.NewEvent(entity.EventPipelineFailed, r.req.RunID)
	ev.Stage = stage
	ev.Error = taskErr
	r.bus.Publish(ev)

	r.logger.Error("Pipeline failed", "stage", stage, "error", taskErr, "duration_ms", r.result.Duration.Milliseconds())
	res := r.result
	return &res
}

func (r *run) complete() *entity.PipelineRunResult {
	r.transition(entity.PipelineStateCompleted, "")
	r.result.Status = entity.RunStatusCompleted
	r.result.Duration = time.Since(r.started)

	ev := entity.NewEvent(entity.EventPipelineCompleted, r.req.RunID)
	ev.Data = map[string]any{
		"approved":  r.result.Approved,
		"revisions": r.result.Revisions,
		"scores":    r.result.Scores,
	}
	r.bus.Publish(ev)

	r.logger.Info("Pipeline completed",
		"approved", r.result.Approved,
		"revisions", r.result.Revisions,
		"duration_ms", r.result.Duration.Milliseconds(),
	)
	res := r.result
	return &res
}
