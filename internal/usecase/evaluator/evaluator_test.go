package evaluator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/logger"
)

type mockLLM struct {
	reply string
	err   error
	last  output.ChatRequest
}

func (m *mockLLM) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &output.ChatResponse{Message: entity.Message{Role: entity.RoleAssistant, Content: m.reply}}, nil
}

func TestParseReviewResponse_ValidJSON(t *testing.T) {
	e := &Evaluator{}

	result, err := e.parseReviewResponse(`{
  "score": 82,
  "strengths": ["clear structure"],
  "issues": ["weak ending"],
  "feedback": "rewrite the conclusion"
}`)
	require.NoError(t, err)

	assert.Equal(t, 82.0, result.Score)
	assert.Equal(t, []string{"clear structure"}, result.Strengths)
	assert.Equal(t, []string{"weak ending"}, result.Issues)
	assert.Equal(t, "rewrite the conclusion", result.Feedback)
}

func TestParseReviewResponse_WithTextAround(t *testing.T) {
	e := &Evaluator{}

	result, err := e.parseReviewResponse("Here's my review:\n\n{\"score\": 64.5, \"issues\": [\"typos\", \"no examples\"], \"feedback\": \"add examples\"}\n\nHope this helps!")
	require.NoError(t, err)

	assert.Equal(t, 64.5, result.Score)
	assert.Len(t, result.Issues, 2)
}

func TestParseReviewResponse_PlainTextFallback(t *testing.T) {
	e := &Evaluator{logger: logger.NewNop()}

	result, err := e.parseReviewResponse("Accuracy: 20/25\nClarity: 18/25\nTOTAL: 71/100\nNeeds a stronger hook.")
	require.NoError(t, err)

	assert.Equal(t, 71.0, result.Score)
	assert.Contains(t, result.Feedback, "stronger hook")
}

func TestParseReviewResponse_ClampsScore(t *testing.T) {
	e := &Evaluator{}

	result, err := e.parseReviewResponse(`{"score": 140}`)
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Score)
}

func TestParseReviewResponse_Invalid(t *testing.T) {
	e := &Evaluator{}

	_, err := e.parseReviewResponse("This is not a review at all")
	assert.Error(t, err)

	_, err = e.parseReviewResponse(`{"feedback": "no score"}`)
	assert.Error(t, err)
}

func TestReview_SetsApprovalFromThreshold(t *testing.T) {
	llm := &mockLLM{reply: `{"score": 76, "feedback": "fine"}`}
	e := New(llm, logger.NewNop())

	review, err := e.Review(context.Background(), Criteria{Content: "article body", MinScore: 75})
	require.NoError(t, err)
	assert.True(t, review.Approved)

	review, err = e.Review(context.Background(), Criteria{Content: "article body", MinScore: 80})
	require.NoError(t, err)
	assert.False(t, review.Approved)

	require.Len(t, llm.last.Messages, 2)
	assert.Contains(t, llm.last.Messages[1].Content, "article body")
	assert.Contains(t, llm.last.Messages[1].Content, "score of 80 or more")
}

func TestReview_PropagatesTransportErrors(t *testing.T) {
	llm := &mockLLM{err: entity.NewTransportError("chat completion", errors.New("reset"))}
	e := New(llm, logger.NewNop())

	_, err := e.Review(context.Background(), Criteria{Content: "x", MinScore: 75})
	assert.ErrorIs(t, err, entity.ErrTransport)
}
