package entity

import "time"

type EventType string

const (
	EventPipelineStarted   EventType = "PIPELINE_STARTED"
	EventStageStarted      EventType = "STAGE_STARTED"
	EventStageCompleted    EventType = "STAGE_COMPLETED"
	EventStageFailed       EventType = "STAGE_FAILED"
	EventRevisionStarted   EventType = "REVISION_STARTED"
	EventPipelineCompleted EventType = "PIPELINE_COMPLETED"
	EventPipelineFailed    EventType = "PIPELINE_FAILED"
)

// Event is an immutable lifecycle notification. Handlers must not mutate Data.
type Event struct {
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id"`
	Stage     Stage          `json:"stage,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Error     *TaskError     `json:"error,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

func NewEvent(typ EventType, runID string) Event {
	return Event{Type: typ, RunID: runID, Timestamp: time.Now()}
}

type EventHandler func(Event)
