package userinteraction

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-crew/internal/domain/entity"
)

func newTestReporter(input string) (*ConsoleReporter, *bytes.Buffer) {
	color.NoColor = true
	var out bytes.Buffer
	return NewReporter(strings.NewReader(input), &out), &out
}

func TestHandleEvent_StageLifecycle(t *testing.T) {
	r, out := newTestReporter("")

	started := entity.NewEvent(entity.EventPipelineStarted, "run-1")
	started.Data = map[string]any{entity.MetaTopic: "Intuition"}
	r.HandleEvent(started)

	stage := entity.NewEvent(entity.EventStageStarted, "run-1")
	stage.Stage = entity.StageSEO
	r.HandleEvent(stage)

	done := entity.NewEvent(entity.EventStageCompleted, "run-1")
	done.Stage = entity.StageSEO
	done.Data = map[string]any{entity.ResultMetaDurationMs: int64(1500)}
	r.HandleEvent(done)

	failed := entity.NewEvent(entity.EventStageFailed, "run-1")
	failed.Stage = entity.StageImage
	failed.Error = entity.NewAgentExecutionError("image_prompt", errors.New("rate limited"))
	r.HandleEvent(failed)

	rev := entity.NewEvent(entity.EventRevisionStarted, "run-1")
	rev.Data = map[string]any{"attempt": 1, "score": 60.0, "threshold": 75.0}
	r.HandleEvent(rev)

	text := out.String()
	assert.Contains(t, text, "Pipeline started: Intuition")
	assert.Contains(t, text, "📈 SEO")
	assert.Contains(t, text, "SEO done (1.5s)")
	assert.Contains(t, text, "Image prompts failed")
	assert.Contains(t, text, "rate limited")
	assert.Contains(t, text, "Revision 1: score 60 below 75")
}

func TestHandleEvent_PrefixRunIDs(t *testing.T) {
	r, out := newTestReporter("")
	r.PrefixRunIDs()

	ev := entity.NewEvent(entity.EventPipelineFailed, "0123456789abcdef")
	ev.Error = entity.NewCancelledError(nil)
	r.HandleEvent(ev)

	assert.Contains(t, out.String(), "[01234567] ")
	assert.Contains(t, out.String(), "run cancelled")
}

func TestShowSummary(t *testing.T) {
	r, out := newTestReporter("")

	r.ShowSummary(&entity.PipelineRunResult{
		RunID:     "run-1",
		Status:    entity.RunStatusCompleted,
		Scores:    []float64{60, 68, 64},
		Revisions: 2,
		Duration:  3 * time.Second,
		Diagnostics: []entity.Diagnostic{
			{Kind: entity.ErrorKindQualityGateExhausted, Message: "best score 68"},
		},
	})

	text := out.String()
	assert.Contains(t, text, "Approved:  no")
	assert.Contains(t, text, "60 → 68 → 64")
	assert.Contains(t, text, "Revisions: 2")
	assert.Contains(t, text, "[quality_gate_exhausted]: best score 68")
}

func TestAskQuestion(t *testing.T) {
	r, out := newTestReporter("  Intuition in business \n")

	answer, err := r.AskQuestion("Topic?")
	require.NoError(t, err)
	assert.Equal(t, "Intuition in business", answer)
	assert.Contains(t, out.String(), "Topic?")

	r, _ = newTestReporter("no newline")
	answer, err = r.AskQuestion("Topic?")
	require.NoError(t, err)
	assert.Equal(t, "no newline", answer)

	r, _ = newTestReporter("")
	_, err = r.AskQuestion("Topic?")
	assert.Error(t, err)
}
