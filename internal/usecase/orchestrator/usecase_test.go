package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-crew/internal/application/service"
	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/logger"
)

type fakeAgent struct {
	name  string
	calls int
	fn    func(ctx context.Context, task *entity.Task) (any, error)
}

func (a *fakeAgent) Name() string        { return a.name }
func (a *fakeAgent) Description() string { return "fake " + a.name }
func (a *fakeAgent) Process(ctx context.Context, task *entity.Task) (any, error) {
	a.calls++
	return a.fn(ctx, task)
}

type recorder struct {
	events []entity.Event
}

func (r *recorder) Publish(e entity.Event) { r.events = append(r.events, e) }

func (r *recorder) types() []entity.EventType {
	out := make([]entity.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func setup(t *testing.T, cfg Config, agents map[entity.TaskKind]*fakeAgent) (*UseCase, *recorder) {
	t.Helper()
	reg := service.NewAgentRegistry()
	for kind, a := range agents {
		require.NoError(t, reg.Register(kind, a))
	}
	rec := &recorder{}
	return New("run-1", reg, rec, logger.NewNop(), cfg), rec
}

func TestExecute_Success(t *testing.T) {
	writer := &fakeAgent{name: "writer", fn: func(ctx context.Context, task *entity.Task) (any, error) {
		return entity.NewDraft("hello there", 0), nil
	}}
	uc, rec := setup(t, DefaultConfig(), map[entity.TaskKind]*fakeAgent{entity.TaskKindWrite: writer})

	task := entity.NewTask(entity.TaskKindWrite, "write", nil)
	res := uc.Execute(context.Background(), task)

	require.True(t, res.Success)
	assert.Nil(t, res.Error)
	assert.Equal(t, task.ID, res.TaskID)
	assert.Equal(t, entity.TaskStatusSucceeded, task.Status)
	assert.Equal(t, 1, res.Attempts())
	assert.Equal(t, "writer", res.Metadata[entity.ResultMetaAgent])
	assert.Equal(t, []entity.EventType{entity.EventStageStarted, entity.EventStageCompleted}, rec.types())
	assert.Equal(t, entity.StageWriter, rec.events[0].Stage)
	assert.Equal(t, "run-1", rec.events[1].RunID)
}

func TestExecute_AgentErrorBecomesData(t *testing.T) {
	cause := errors.New("model refused")
	editor := &fakeAgent{name: "editor", fn: func(ctx context.Context, task *entity.Task) (any, error) {
		return nil, cause
	}}
	uc, rec := setup(t, DefaultConfig(), map[entity.TaskKind]*fakeAgent{entity.TaskKindEdit: editor})

	task := entity.NewTask(entity.TaskKindEdit, "edit", nil)
	res := uc.Execute(context.Background(), task)

	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, entity.ErrorKindAgentExecution, res.Error.Kind)
	assert.ErrorIs(t, res.Error, cause)
	assert.Equal(t, entity.TaskStatusFailed, task.Status)
	assert.Equal(t, []entity.EventType{entity.EventStageStarted, entity.EventStageFailed}, rec.types())
	assert.Same(t, res.Error, rec.events[1].Error)
}

func TestExecute_PanicIsRecovered(t *testing.T) {
	seo := &fakeAgent{name: "seo", fn: func(ctx context.Context, task *entity.Task) (any, error) {
		panic("nil map")
	}}
	uc, rec := setup(t, DefaultConfig(), map[entity.TaskKind]*fakeAgent{entity.TaskKindSEO: seo})

	var res entity.TaskResult
	assert.NotPanics(t, func() {
		res = uc.Execute(context.Background(), entity.NewTask(entity.TaskKindSEO, "seo", nil))
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error.Error(), "nil map")
	assert.Equal(t, []entity.EventType{entity.EventStageStarted, entity.EventStageFailed}, rec.types())
}

func TestExecute_UnknownKindHasNoEvents(t *testing.T) {
	uc, rec := setup(t, DefaultConfig(), nil)

	task := entity.NewTask(entity.TaskKindVisual, "visual", nil)
	res := uc.Execute(context.Background(), task)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Error, entity.ErrUnknownCapability)
	assert.Equal(t, entity.TaskStatusPending, task.Status)
	assert.Empty(t, rec.events)
}

func TestExecute_InvalidTask(t *testing.T) {
	uc, rec := setup(t, DefaultConfig(), nil)

	res := uc.Execute(context.Background(), nil)
	assert.ErrorIs(t, res.Error, entity.ErrValidation)

	res = uc.Execute(context.Background(), entity.NewTask("", "no kind", nil))
	assert.ErrorIs(t, res.Error, entity.ErrValidation)
	assert.Empty(t, rec.events)
}

func TestExecute_TaskAlreadyRunIsRejected(t *testing.T) {
	a := &fakeAgent{name: "research", fn: func(ctx context.Context, task *entity.Task) (any, error) {
		return "ok", nil
	}}
	uc, rec := setup(t, DefaultConfig(), map[entity.TaskKind]*fakeAgent{entity.TaskKindResearch: a})

	task := entity.NewTask(entity.TaskKindResearch, "r", nil)
	require.True(t, uc.Execute(context.Background(), task).Success)

	res := uc.Execute(context.Background(), task)
	assert.ErrorIs(t, res.Error, entity.ErrValidation)
	assert.Equal(t, 1, a.calls)
	assert.Len(t, rec.events, 2)
}

func TestExecute_RetriesTransportFailures(t *testing.T) {
	research := &fakeAgent{name: "research"}
	research.fn = func(ctx context.Context, task *entity.Task) (any, error) {
		if research.calls < 3 {
			return nil, entity.NewTransportError("chat completion", errors.New("503"))
		}
		return "brief", nil
	}
	uc, rec := setup(t, Config{MaxAttempts: 3}, map[entity.TaskKind]*fakeAgent{entity.TaskKindResearch: research})

	res := uc.Execute(context.Background(), entity.NewTask(entity.TaskKindResearch, "r", nil))

	require.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts())
	assert.Equal(t, []entity.EventType{entity.EventStageStarted, entity.EventStageCompleted}, rec.types())
}

func TestExecute_DoesNotRetryOtherFailures(t *testing.T) {
	quality := &fakeAgent{name: "quality", fn: func(ctx context.Context, task *entity.Task) (any, error) {
		return nil, errors.New("unparseable verdict")
	}}
	uc, _ := setup(t, Config{MaxAttempts: 3}, map[entity.TaskKind]*fakeAgent{entity.TaskKindQuality: quality})

	res := uc.Execute(context.Background(), entity.NewTask(entity.TaskKindQuality, "q", nil))

	assert.False(t, res.Success)
	assert.Equal(t, 1, quality.calls)
	assert.Equal(t, 1, res.Attempts())
}

func TestExecute_StageTimeout(t *testing.T) {
	slow := &fakeAgent{name: "image", fn: func(ctx context.Context, task *entity.Task) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	uc, _ := setup(t, Config{StageTimeout: 20 * time.Millisecond}, map[entity.TaskKind]*fakeAgent{entity.TaskKindImage: slow})

	res := uc.Execute(context.Background(), entity.NewTask(entity.TaskKindImage, "img", nil))

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Error, context.DeadlineExceeded)
}
