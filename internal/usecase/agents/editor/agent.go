package editor

import (
	"context"
	"fmt"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/prompts"
	"content-crew/internal/usecase/agents"
)

const styleRefs = 2

// Agent polishes the draft. On a revision pass it edits the latest article
// variant against the quality reviewer's feedback.
type Agent struct {
	llm       output.LLMPort
	retriever output.Retriever
	logger    output.LoggerPort
}

var _ output.Agent = (*Agent)(nil)

func New(llm output.LLMPort, retriever output.Retriever, logger output.LoggerPort) *Agent {
	return &Agent{
		llm:       llm,
		retriever: retriever,
		logger:    logger,
	}
}

func (a *Agent) Name() string { return "editor" }

func (a *Agent) Description() string {
	return "Edits the draft for clarity, flow and style, and applies quality review feedback on revisions"
}

func (a *Agent) Process(ctx context.Context, task *entity.Task) (any, error) {
	topic, err := agents.Topic(task)
	if err != nil {
		return nil, err
	}
	revision := task.MetaInt(entity.MetaRevision, 0)

	content := task.MetaString(entity.MetaRevisionBase)
	if content == "" {
		content = agents.ArticleText(task, entity.StageWriter)
	}
	if content == "" {
		return nil, entity.NewValidationError("editor needs a draft to work on")
	}

	a.logger.Info("Editor agent executing", "task_id", task.ID, "revision", revision, "words", entity.WordCount(content))

	prompt, err := prompts.Render("editor", prompts.EditorPrompt, prompts.EditorData{
		Content:      content,
		Feedback:     task.MetaString(entity.MetaQualityFeedback),
		WritingStyle: task.MetaString(entity.MetaWritingStyle),
		Style:        agents.JoinSnippets(agents.Retrieve(ctx, a.retriever, a.logger, topic, entity.ScopeStyle, styleRefs)),
	})
	if err != nil {
		return nil, fmt.Errorf("render editor prompt: %w", err)
	}

	edited, err := agents.Complete(ctx, a.llm, prompts.EditorSystemPrompt, prompt, 0.5, 0)
	if err != nil {
		return nil, err
	}

	return entity.NewDraft(edited, revision), nil
}
