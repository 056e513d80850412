package agents

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

type replyLLM struct {
	reply string
	err   error
}

func (m *replyLLM) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &output.ChatResponse{Message: entity.Message{Role: entity.RoleAssistant, Content: m.reply}}, nil
}

type failingRetriever struct{}

func (failingRetriever) Retrieve(ctx context.Context, query string, scope entity.RetrievalScope, limit int) ([]entity.Snippet, error) {
	return nil, errors.New("index offline")
}

func TestComplete(t *testing.T) {
	out, err := Complete(context.Background(), &replyLLM{reply: "  text \n"}, "sys", "user", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "text", out)

	_, err = Complete(context.Background(), &replyLLM{reply: "   "}, "sys", "user", 0, 0)
	assert.Error(t, err)

	transport := entity.NewTransportError("chat", errors.New("reset"))
	_, err = Complete(context.Background(), &replyLLM{err: transport}, "sys", "user", 0, 0)
	assert.ErrorIs(t, err, entity.ErrTransport)
}

func TestTopic(t *testing.T) {
	_, err := Topic(entity.NewTask(entity.TaskKindWrite, "w", nil))
	assert.ErrorIs(t, err, entity.ErrValidation)

	topic, err := Topic(entity.NewTask(entity.TaskKindWrite, "w", map[string]any{entity.MetaTopic: " Focus "}))
	require.NoError(t, err)
	assert.Equal(t, "Focus", topic)
}

func TestArticleText_PrefersFirstStage(t *testing.T) {
	task := entity.NewTask(entity.TaskKindImage, "img", map[string]any{
		string(entity.StageEditor): entity.NewDraft("edited", 0),
		string(entity.StageSEO):    entity.SEOResult{Content: "optimized"},
	})

	assert.Equal(t, "optimized", ArticleText(task, entity.StageSEO, entity.StageEditor))
	assert.Equal(t, "edited", ArticleText(task, entity.StageWriter, entity.StageEditor))
	assert.Empty(t, ArticleText(task, entity.StageWriter))
}

func TestRetrieve_FailureIsEmpty(t *testing.T) {
	hits := Retrieve(context.Background(), failingRetriever{}, logger.NewNop(), "q", entity.ScopeBoth, 3)
	assert.Nil(t, hits)
	assert.Nil(t, Retrieve(context.Background(), nil, logger.NewNop(), "q", entity.ScopeBoth, 3))
}

func TestJoinSnippets(t *testing.T) {
	assert.Equal(t, "a\n\n---\n\nb", JoinSnippets([]entity.Snippet{{Text: "a"}, {Text: " "}, {Text: "b"}}))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short", 10))
	assert.Equal(t, "açã...", Excerpt("açãoxyz", 3))
}
