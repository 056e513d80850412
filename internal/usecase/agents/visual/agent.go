package visual

import (
	"context"
	"fmt"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/prompts"
	"content-crew/internal/usecase/agents"
)

const excerptLen = 2000

type Agent struct {
	llm    output.LLMPort
	logger output.LoggerPort
}

var _ output.Agent = (*Agent)(nil)

func New(llm output.LLMPort, logger output.LoggerPort) *Agent {
	return &Agent{
		llm:    llm,
		logger: logger,
	}
}

func (a *Agent) Name() string { return "visual" }

func (a *Agent) Description() string {
	return "Suggests layout, palette, typography and image placement for the article"
}

func (a *Agent) Process(ctx context.Context, task *entity.Task) (any, error) {
	content := agents.ArticleText(task, entity.StageSEO, entity.StageEditor, entity.StageWriter)
	if content == "" {
		return nil, entity.NewValidationError("visual suggestions need an article")
	}

	var images []string
	if ip, ok := task.Metadata[string(entity.StageImage)].(entity.ImagePrompts); ok {
		images = ip.Prompts
	}
	a.logger.Info("Visual agent executing", "task_id", task.ID, "images", len(images))

	prompt, err := prompts.Render("visual", prompts.VisualPrompt, prompts.VisualData{
		Content:      agents.Excerpt(content, excerptLen),
		ImagePrompts: images,
	})
	if err != nil {
		return nil, fmt.Errorf("render visual prompt: %w", err)
	}

	suggestions, err := agents.Complete(ctx, a.llm, prompts.VisualSystemPrompt, prompt, 0.7, 0)
	if err != nil {
		return nil, err
	}
	return entity.VisualSuggestions{Suggestions: suggestions}, nil
}
