package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

type TaskKind string

const (
	TaskKindResearch TaskKind = "research"
	TaskKindWrite    TaskKind = "write"
	TaskKindEdit     TaskKind = "edit"
	TaskKindSEO      TaskKind = "seo"
	TaskKindQuality  TaskKind = "quality"
	TaskKindImage    TaskKind = "image"
	TaskKindVisual   TaskKind = "visual"
)

func (k TaskKind) String() string {
	return string(k)
}

// Priority orders batch runs. The zero value is PriorityNormal.
type Priority int

const (
	PriorityLow Priority = iota - 1
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority accepts the lowercase names produced by Priority.String.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "", "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	case "high":
		return PriorityHigh, nil
	case "urgent":
		return PriorityUrgent, nil
	}
	return PriorityNormal, NewValidationError(fmt.Sprintf("unknown priority %q", s))
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Task is one unit of work requested of an agent. ID and Kind never change
// after NewTask; Status only moves forward through Advance.
type Task struct {
	ID          string
	ParentID    string
	Description string
	Kind        TaskKind
	Metadata    map[string]any
	Priority    Priority
	Status      TaskStatus
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

func NewTask(kind TaskKind, description string, metadata map[string]any) *Task {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Task{
		ID:          uuid.NewString(),
		Description: description,
		Kind:        kind,
		Metadata:    metadata,
		Priority:    PriorityNormal,
		Status:      TaskStatusPending,
		CreatedAt:   time.Now(),
	}
}

// Validate checks the fields that must be present before a task can be dispatched.
func (t *Task) Validate() error {
	if t == nil {
		return NewValidationError("task is nil")
	}
	if t.ID == "" {
		return NewValidationError("task id is required")
	}
	if t.Kind == "" {
		return NewValidationError(fmt.Sprintf("task %s has no kind", t.ID))
	}
	return nil
}

// Advance moves the task to next. Allowed transitions are
// pending -> running and running -> succeeded|failed.
func (t *Task) Advance(next TaskStatus) error {
	switch {
	case t.Status == TaskStatusPending && next == TaskStatusRunning:
		t.StartedAt = time.Now()
	case t.Status == TaskStatusRunning && next.IsTerminal():
		t.CompletedAt = time.Now()
	default:
		return NewValidationError(fmt.Sprintf("task %s: illegal status transition %s -> %s", t.ID, t.Status, next))
	}
	t.Status = next
	return nil
}

// MetaString returns the string stored under key, or "" if absent or of another type.
func (t *Task) MetaString(key string) string {
	v, _ := t.Metadata[key].(string)
	return v
}

func (t *Task) MetaInt(key string, def int) int {
	switch v := t.Metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func (t *Task) MetaFloat(key string, def float64) float64 {
	switch v := t.Metadata[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}
