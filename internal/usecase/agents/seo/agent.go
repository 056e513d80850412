package seo

import (
	"context"
	"fmt"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/prompts"
	"content-crew/internal/usecase/agents"
)

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

func (a *Agent) Name() string { return "seo" }

func (a *Agent) Description() string {
	return "Extracts keywords and writes the meta title, meta description and keyword-optimized article"
}

func (a *Agent) Process(ctx context.Context, task *entity.Task) (any, error) {
	topic, err := agents.Topic(task)
	if err != nil {
		return nil, err
	}
	content := agents.ArticleText(task, entity.StageEditor, entity.StageWriter)
	if content == "" {
		return nil, entity.NewValidationError("seo needs an edited article")
	}

	keywords := ExtractKeywords(content, maxKeywords)
	a.logger.Info("SEO agent executing", "task_id", task.ID, "keywords", len(keywords))

	prompt, err := prompts.Render("seo", prompts.SEOPrompt, prompts.SEOData{
		Content:  content,
		Keywords: keywords,
	})
	if err != nil {
		return nil, fmt.Errorf("render seo prompt: %w", err)
	}

	response, err := agents.Complete(ctx, a.llm, prompts.SEOSystemPrompt, prompt, 0.4, 0)
	if err != nil {
		return nil, err
	}

	res := parseResponse(response, content, topic, keywords)
	a.logger.Debug("SEO result parsed", "task_id", task.ID, "title", res.Title, "slug", res.Slug)
	return res, nil
}
