package entity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask_StartsPending(t *testing.T) {
	task := NewTask(TaskKindResearch, "research topic", nil)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, PriorityNormal, task.Priority)
	assert.NotNil(t, task.Metadata)
	require.NoError(t, task.Validate())
}

func TestTaskAdvance_ForwardOnly(t *testing.T) {
	task := NewTask(TaskKindWrite, "write", nil)

	require.NoError(t, task.Advance(TaskStatusRunning))
	assert.False(t, task.StartedAt.IsZero())

	require.NoError(t, task.Advance(TaskStatusSucceeded))
	assert.False(t, task.CompletedAt.IsZero())

	err := task.Advance(TaskStatusRunning)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, TaskStatusSucceeded, task.Status)
}

func TestTaskAdvance_RejectsSkippingRunning(t *testing.T) {
	task := NewTask(TaskKindEdit, "edit", nil)

	err := task.Advance(TaskStatusFailed)
	require.Error(t, err)
	assert.Equal(t, TaskStatusPending, task.Status)
}

func TestTaskValidate_RequiresKind(t *testing.T) {
	task := NewTask("", "no kind", nil)

	err := task.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTaskMetaAccessors(t *testing.T) {
	task := NewTask(TaskKindQuality, "q", map[string]any{
		"s": "value",
		"i": 7,
		"f": 75.5,
	})

	assert.Equal(t, "value", task.MetaString("s"))
	assert.Equal(t, "", task.MetaString("i"))
	assert.Equal(t, 7, task.MetaInt("i", 0))
	assert.Equal(t, 3, task.MetaInt("missing", 3))
	assert.Equal(t, 75.5, task.MetaFloat("f", 0))
	assert.Equal(t, 7.0, task.MetaFloat("i", 0))
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("urgent")
	require.NoError(t, err)
	assert.Equal(t, PriorityUrgent, p)

	p, err = ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityNormal, p)

	_, err = ParsePriority("critical")
	assert.ErrorIs(t, err, ErrValidation)

	var zero Priority
	assert.Equal(t, PriorityNormal, zero)
}

func TestPriority_JSONUsesNames(t *testing.T) {
	data, err := json.Marshal(RunRequest{Topic: "t", Priority: PriorityHigh})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"priority":"high"`)

	var req RunRequest
	require.NoError(t, json.Unmarshal([]byte(`{"topic":"t","priority":"urgent"}`), &req))
	assert.Equal(t, PriorityUrgent, req.Priority)

	assert.Error(t, json.Unmarshal([]byte(`{"priority":"critical"}`), &req))
}

func TestNewTaskResult_Contract(t *testing.T) {
	_, err := NewTaskResult("t1", true, "out", NewValidationError("boom"), nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewTaskResult("t1", false, nil, nil, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewTaskResult("", true, "out", nil, nil)
	assert.ErrorIs(t, err, ErrValidation)

	res, err := NewTaskResult("t1", true, "out", nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Nil(t, res.Error)
	assert.NotNil(t, res.Metadata)
}

func TestFailedResult_AlwaysCarriesError(t *testing.T) {
	res := FailedResult("t1", nil, nil)

	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrorKindAgentExecution, res.Error.Kind)
}

func TestTaskError_IsMatchesKind(t *testing.T) {
	transport := NewTransportError("chat completion", errors.New("connection reset"))
	wrapped := NewAgentExecutionError("writer", transport)

	assert.ErrorIs(t, wrapped, ErrAgentExecution)
	assert.ErrorIs(t, wrapped, ErrTransport)
	assert.NotErrorIs(t, wrapped, ErrCancelled)
	assert.Contains(t, wrapped.Error(), "connection reset")
}

func TestAsTaskError(t *testing.T) {
	assert.Nil(t, AsTaskError(nil))

	te := AsTaskError(errors.New("plain"))
	assert.Equal(t, ErrorKindAgentExecution, te.Kind)

	orig := NewCancelledError(nil)
	assert.Same(t, orig, AsTaskError(orig))
}
