package research

import (
	"context"
	"fmt"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/prompts"
	"content-crew/internal/usecase/agents"
)

type Config struct {
	Limit int
	// Web search runs only when fewer than MinRelevantHits snippets reach
	// MinRelevance.
	MinRelevantHits int
	MinRelevance    float64
}

func DefaultConfig() Config {
	return Config{Limit: 5, MinRelevantHits: 2, MinRelevance: 0.2}
}

type Agent struct {
	llm       output.LLMPort
	retriever output.Retriever
	searcher  output.WebSearcher
	logger    output.LoggerPort
	config    Config
}

var _ output.Agent = (*Agent)(nil)

// New builds the research agent. retriever and searcher may be nil.
func New(llm output.LLMPort, retriever output.Retriever, searcher output.WebSearcher, logger output.LoggerPort, config Config) *Agent {
	if config.Limit <= 0 {
		config.Limit = DefaultConfig().Limit
	}
	return &Agent{
		llm:       llm,
		retriever: retriever,
		searcher:  searcher,
		logger:    logger,
		config:    config,
	}
}

func (a *Agent) Name() string { return "research" }

func (a *Agent) Description() string {
	return "Gathers knowledge base and web material on the topic and compiles a research brief"
}

func (a *Agent) Process(ctx context.Context, task *entity.Task) (any, error) {
	topic, err := agents.Topic(task)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Research agent executing", "task_id", task.ID, "topic", topic)

	snippets := agents.Retrieve(ctx, a.retriever, a.logger, topic, entity.ScopeBoth, a.config.Limit)

	var sources []entity.SearchResult
	if a.needsWeb(snippets) && a.searcher != nil {
		sources, err = a.searcher.Search(ctx, topic)
		if err != nil {
			a.logger.Warn("Web search failed, continuing without it", "task_id", task.ID, "error", err)
			sources = nil
		}
	}

	prompt, err := prompts.Render("research", prompts.ResearchPrompt, prompts.ResearchData{
		Topic:       topic,
		UserContext: task.MetaString(entity.MetaUserContext),
		Snippets:    snippets,
		Sources:     sources,
	})
	if err != nil {
		return nil, fmt.Errorf("render research prompt: %w", err)
	}

	analysis, err := agents.Complete(ctx, a.llm, prompts.ResearchSystemPrompt, prompt, 0.5, 0)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Research brief compiled", "task_id", task.ID, "snippets", len(snippets), "sources", len(sources))

	return entity.ResearchBrief{
		Topic:    topic,
		Analysis: analysis,
		Snippets: snippets,
		Sources:  sources,
		UsedWeb:  len(sources) > 0,
	}, nil
}

func (a *Agent) needsWeb(snippets []entity.Snippet) bool {
	relevant := 0
	for _, s := range snippets {
		if s.Score >= a.config.MinRelevance {
			relevant++
		}
	}
	return relevant < a.config.MinRelevantHits
}
