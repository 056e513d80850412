package writer

import (
	"context"
	"fmt"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/prompts"
	"content-crew/internal/usecase/agents"
)

const styleRefs = 3

// Agent drafts the article in two calls: an outline from the research brief,
// then the full text from the outline.
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

func (a *Agent) Name() string { return "writer" }

func (a *Agent) Description() string {
	return "Outlines and writes the first draft of the article from the research brief"
}

func (a *Agent) Process(ctx context.Context, task *entity.Task) (any, error) {
	topic, err := agents.Topic(task)
	if err != nil {
		return nil, err
	}
	length := task.MetaInt(entity.MetaTargetLength, 1500)
	a.logger.Info("Writer agent executing", "task_id", task.ID, "topic", topic, "target_length", length)

	var research string
	if brief, ok := task.Metadata[string(entity.StageResearch)].(entity.ResearchBrief); ok {
		research = brief.Analysis
	}
	style := agents.JoinSnippets(agents.Retrieve(ctx, a.retriever, a.logger, topic, entity.ScopeStyle, styleRefs))

	prompt, err := prompts.Render("outline", prompts.OutlinePrompt, prompts.OutlineData{
		Topic:        topic,
		Research:     research,
		Style:        style,
		TargetLength: length,
	})
	if err != nil {
		return nil, fmt.Errorf("render outline prompt: %w", err)
	}
	outline, err := agents.Complete(ctx, a.llm, prompts.WriterSystemPrompt, prompt, 0.7, 0)
	if err != nil {
		return nil, fmt.Errorf("outline: %w", err)
	}

	prompt, err = prompts.Render("writer", prompts.WriterPrompt, prompts.WriterData{
		Topic:        topic,
		Outline:      outline,
		TargetLength: length,
		WritingStyle: task.MetaString(entity.MetaWritingStyle),
		Style:        style,
	})
	if err != nil {
		return nil, fmt.Errorf("render writer prompt: %w", err)
	}
	content, err := agents.Complete(ctx, a.llm, prompts.WriterSystemPrompt, prompt, 0.7, 0)
	if err != nil {
		return nil, fmt.Errorf("draft: %w", err)
	}

	draft := entity.NewDraft(content, 0)
	a.logger.Debug("Draft written", "task_id", task.ID, "words", draft.WordCount)
	return draft, nil
}
