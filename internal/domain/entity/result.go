package entity

import "time"

const (
	ResultMetaDurationMs = "duration_ms"
	ResultMetaAttempts   = "attempts"
	ResultMetaAgent      = "agent"
)

// TaskResult is the outcome of executing a Task. Error is set iff Success is false.
type TaskResult struct {
	TaskID   string         `json:"task_id"`
	Success  bool           `json:"success"`
	Output   any            `json:"output,omitempty"`
	Error    *TaskError     `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewTaskResult(taskID string, success bool, output any, taskErr *TaskError, metadata map[string]any) (TaskResult, error) {
	if taskID == "" {
		return TaskResult{}, NewValidationError("task result requires a task id")
	}
	if success && taskErr != nil {
		return TaskResult{}, NewValidationError("successful task result cannot carry an error")
	}
	if !success && taskErr == nil {
		return TaskResult{}, NewValidationError("failed task result requires an error")
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return TaskResult{
		TaskID:   taskID,
		Success:  success,
		Output:   output,
		Error:    taskErr,
		Metadata: metadata,
	}, nil
}

func SucceededResult(taskID string, output any, metadata map[string]any) TaskResult {
	res, _ := NewTaskResult(taskID, true, output, nil, metadata)
	return res
}

func FailedResult(taskID string, taskErr *TaskError, metadata map[string]any) TaskResult {
	if taskErr == nil {
		taskErr = &TaskError{Kind: ErrorKindAgentExecution, Message: "unspecified failure"}
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return TaskResult{TaskID: taskID, Success: false, Error: taskErr, Metadata: metadata}
}

// Duration reads the duration recorded by the orchestrator, zero if absent.
func (r TaskResult) Duration() time.Duration {
	ms, ok := r.Metadata[ResultMetaDurationMs].(int64)
	if !ok {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func (r TaskResult) Attempts() int {
	n, _ := r.Metadata[ResultMetaAttempts].(int)
	return n
}
