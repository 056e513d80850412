package imageprompt

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/prompts"
	"content-crew/internal/usecase/agents"
)

const excerptLen = 2000

var promptLine = regexp.MustCompile(`(?i)^[\s*#\-\d.]*prompt\s*:\s*\**\s*(.+)$`)

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

func (a *Agent) Name() string { return "image_prompt" }

func (a *Agent) Description() string {
	return "Writes image generator prompts for the featured image and section illustrations"
}

func (a *Agent) Process(ctx context.Context, task *entity.Task) (any, error) {
	content := agents.ArticleText(task, entity.StageSEO, entity.StageEditor, entity.StageWriter)
	if content == "" {
		return nil, entity.NewValidationError("image prompts need an article")
	}
	a.logger.Info("Image prompt agent executing", "task_id", task.ID)

	prompt, err := prompts.Render("image", prompts.ImagePrompt, prompts.ImageData{
		Content: agents.Excerpt(content, excerptLen),
	})
	if err != nil {
		return nil, fmt.Errorf("render image prompt: %w", err)
	}

	raw, err := agents.Complete(ctx, a.llm, prompts.ImageSystemPrompt, prompt, 0.8, 0)
	if err != nil {
		return nil, err
	}

	return entity.ImagePrompts{Prompts: parsePrompts(raw), Raw: raw}, nil
}

// parsePrompts collects the "Prompt:" lines. A reply without any is taken
// one non-empty line per prompt.
func parsePrompts(raw string) []string {
	var found, lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if m := promptLine.FindStringSubmatch(line); m != nil {
			found = append(found, strings.TrimSpace(strings.Trim(m[1], "*\"")))
		}
	}
	if len(found) > 0 {
		return found
	}
	return lines
}
