// Package agents holds the helpers shared by the stage agents in its
// subpackages.
package agents

import (
	"context"
	"fmt"
	"strings"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

// Complete sends one system + user exchange and returns the trimmed reply.
func Complete(ctx context.Context, llm output.LLMPort, system, user string, temperature float32, maxTokens int) (string, error) {
	resp, err := llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			entity.SystemMessage(system),
			entity.UserMessage(user),
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return "", fmt.Errorf("llm returned an empty response")
	}
	return text, nil
}

func Topic(task *entity.Task) (string, error) {
	topic := strings.TrimSpace(task.MetaString(entity.MetaTopic))
	if topic == "" {
		return "", entity.NewValidationError("task has no topic")
	}
	return topic, nil
}

// ArticleText returns the body carried by the first of stages present in the
// task metadata.
func ArticleText(task *entity.Task, stages ...entity.Stage) string {
	for _, s := range stages {
		if t, ok := task.Metadata[string(s)].(entity.ArticleTexter); ok && t.ArticleText() != "" {
			return t.ArticleText()
		}
	}
	return ""
}

// Retrieve wraps an optional retriever. Failures are logged and treated as
// no results so a broken knowledge base does not stop a stage.
func Retrieve(ctx context.Context, r output.Retriever, logger output.LoggerPort, query string, scope entity.RetrievalScope, limit int) []entity.Snippet {
	if r == nil {
		return nil
	}
	hits, err := r.Retrieve(ctx, query, scope, limit)
	if err != nil {
		logger.Warn("Retrieval failed, continuing without context", "scope", scope, "error", err)
		return nil
	}
	return hits
}

func JoinSnippets(snippets []entity.Snippet) string {
	parts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// Excerpt cuts s to at most n runes, for prompts that only need the gist.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
