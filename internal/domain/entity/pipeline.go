package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

type Stage string

const (
	StageResearch Stage = "research"
	StageWriter   Stage = "writer"
	StageEditor   Stage = "editor"
	StageSEO      Stage = "seo"
	StageQuality  Stage = "quality"
	StageImage    Stage = "image"
	StageVisual   Stage = "visual"
)

// StageOrder is the fixed execution order of a content pipeline run.
var StageOrder = []Stage{
	StageResearch,
	StageWriter,
	StageEditor,
	StageSEO,
	StageQuality,
	StageImage,
	StageVisual,
}

var stageKinds = map[Stage]TaskKind{
	StageResearch: TaskKindResearch,
	StageWriter:   TaskKindWrite,
	StageEditor:   TaskKindEdit,
	StageSEO:      TaskKindSEO,
	StageQuality:  TaskKindQuality,
	StageImage:    TaskKindImage,
	StageVisual:   TaskKindVisual,
}

// Kind returns the task kind used to resolve the stage's agent.
func (s Stage) Kind() TaskKind {
	return stageKinds[s]
}

// Index is the stage position in StageOrder, -1 for unknown stages.
func (s Stage) Index() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// StageForKind is the inverse of Stage.Kind. Unknown kinds map to "".
func StageForKind(kind TaskKind) Stage {
	for s, k := range stageKinds {
		if k == kind {
			return s
		}
	}
	return ""
}

func (s Stage) String() string {
	return string(s)
}

// Task metadata keys shared between the pipeline and the stage agents.
const (
	MetaTopic           = "topic"
	MetaUserContext     = "user_context"
	MetaTargetLength    = "target_length"
	MetaWritingStyle    = "writing_style"
	MetaMinQuality      = "min_quality_score"
	MetaRevision        = "revision"
	MetaQualityFeedback = "quality_feedback"
	MetaRevisionBase    = "revision_base"
)

// PipelineContext is the working set of one run. Inputs are fixed at creation;
// stage entries are written once by Record and only replaced through Revise.
type PipelineContext struct {
	RunID        string
	Topic        string
	UserContext  string
	TargetLength int
	WritingStyle string

	entries map[Stage]any
}

func NewPipelineContext(runID string, req RunRequest) *PipelineContext {
	return &PipelineContext{
		RunID:        runID,
		Topic:        req.Topic,
		UserContext:  req.UserContext,
		TargetLength: req.TargetLength,
		WritingStyle: req.WritingStyle,
		entries:      make(map[Stage]any, len(StageOrder)),
	}
}

func (c *PipelineContext) Record(stage Stage, output any) error {
	if stage.Index() < 0 {
		return NewValidationError(fmt.Sprintf("unknown stage %q", stage))
	}
	if _, exists := c.entries[stage]; exists {
		return NewValidationError(fmt.Sprintf("stage %s already recorded", stage))
	}
	c.entries[stage] = output
	return nil
}

// Revise replaces an existing entry. It is only valid for stages that already
// produced output.
func (c *PipelineContext) Revise(stage Stage, output any) error {
	if _, exists := c.entries[stage]; !exists {
		return NewValidationError(fmt.Sprintf("stage %s has no entry to revise", stage))
	}
	c.entries[stage] = output
	return nil
}

func (c *PipelineContext) Get(stage Stage) (any, bool) {
	v, ok := c.entries[stage]
	return v, ok
}

func (c *PipelineContext) Has(stage Stage) bool {
	_, ok := c.entries[stage]
	return ok
}

// Stages lists recorded stages in pipeline order.
func (c *PipelineContext) Stages() []Stage {
	out := make([]Stage, 0, len(c.entries))
	for _, s := range StageOrder {
		if _, ok := c.entries[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// RunInputs returns the immutable run inputs as task metadata.
func (c *PipelineContext) RunInputs() map[string]any {
	return map[string]any{
		MetaTopic:        c.Topic,
		MetaUserContext:  c.UserContext,
		MetaTargetLength: c.TargetLength,
		MetaWritingStyle: c.WritingStyle,
	}
}

// InputsFor builds the metadata for stage: run inputs plus entries of every
// stage strictly before it.
func (c *PipelineContext) InputsFor(stage Stage) map[string]any {
	meta := c.RunInputs()
	limit := stage.Index()
	for i, s := range StageOrder {
		if i >= limit {
			break
		}
		if v, ok := c.entries[s]; ok {
			meta[string(s)] = v
		}
	}
	return meta
}

func (c *PipelineContext) MarshalJSON() ([]byte, error) {
	entries := make(map[string]any, len(c.entries))
	for s, v := range c.entries {
		entries[string(s)] = v
	}
	return json.Marshal(struct {
		RunID        string         `json:"run_id"`
		Topic        string         `json:"topic"`
		UserContext  string         `json:"user_context,omitempty"`
		TargetLength int            `json:"target_length"`
		WritingStyle string         `json:"writing_style,omitempty"`
		Entries      map[string]any `json:"entries"`
	}{c.RunID, c.Topic, c.UserContext, c.TargetLength, c.WritingStyle, entries})
}

type RunRequest struct {
	RunID        string   `json:"run_id,omitempty"`
	Topic        string   `json:"topic"`
	UserContext  string   `json:"user_context,omitempty"`
	TargetLength int      `json:"target_length,omitempty"`
	WritingStyle string   `json:"writing_style,omitempty"`
	Priority     Priority `json:"priority,omitempty"`
}

type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

type PipelineState string

const (
	PipelineStateNotStarted   PipelineState = "NOT_STARTED"
	PipelineStateRunningStage PipelineState = "RUNNING_STAGE"
	PipelineStateRevising     PipelineState = "REVISING"
	PipelineStateCompleted    PipelineState = "COMPLETED"
	PipelineStateFailed       PipelineState = "FAILED"
)

// StateTransition is one step in a run's state trace.
type StateTransition struct {
	State PipelineState `json:"state"`
	Stage Stage         `json:"stage,omitempty"`
}

type Diagnostic struct {
	Stage   Stage     `json:"stage,omitempty"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type PipelineRunResult struct {
	RunID       string            `json:"run_id"`
	Status      RunStatus         `json:"status"`
	Approved    bool              `json:"approved"`
	Context     *PipelineContext  `json:"context"`
	FailedStage Stage             `json:"failed_stage,omitempty"`
	Error       *TaskError        `json:"error,omitempty"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
	Revisions   int               `json:"revisions"`
	Scores      []float64         `json:"scores,omitempty"`
	Trace       []StateTransition `json:"trace"`
	Duration    time.Duration     `json:"duration"`
}

func (r *PipelineRunResult) Failed() bool {
	return r.Status == RunStatusFailed
}

// DiagnosticFor returns the first diagnostic recorded for stage.
func (r *PipelineRunResult) DiagnosticFor(stage Stage) (Diagnostic, bool) {
	for _, d := range r.Diagnostics {
		if d.Stage == stage {
			return d, true
		}
	}
	return Diagnostic{}, false
}
