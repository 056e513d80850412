package di

import (
	"context"
	"fmt"
	"strings"

	"content-crew/internal/application/port/input"
	"content-crew/internal/application/port/output"
	"content-crew/internal/application/service"
	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/config"
	"content-crew/internal/infrastructure/llm/gemini"
	"content-crew/internal/infrastructure/llm/openrouter"
	"content-crew/internal/infrastructure/logger"
	"content-crew/internal/infrastructure/publisher/markdown"
	"content-crew/internal/infrastructure/rag"
	"content-crew/internal/infrastructure/search/duckduckgo"
	"content-crew/internal/usecase/agents/editor"
	"content-crew/internal/usecase/agents/imageprompt"
	"content-crew/internal/usecase/agents/quality"
	"content-crew/internal/usecase/agents/research"
	"content-crew/internal/usecase/agents/seo"
	"content-crew/internal/usecase/agents/visual"
	"content-crew/internal/usecase/agents/writer"
	"content-crew/internal/usecase/batch"
	"content-crew/internal/usecase/orchestrator"
	"content-crew/internal/usecase/pipeline"
)

const openAIBaseURL = "https://api.openai.com/v1"

type Container struct {
	Settings  config.Settings
	Logger    output.LoggerPort
	LLM       output.LLMPort
	Knowledge *rag.Store
	Registry  output.AgentRegistry
	Pipeline  input.PipelineRunner
	Batch     input.BatchRunner
	Publisher *markdown.Store

	closers []func() error
}

type Config struct {
	Settings config.Settings
	// LogName becomes part of the log file name.
	LogName string
	// LLM replaces the configured provider, mainly for tests.
	LLM output.LLMPort
	// WithoutLLM builds only the logger, knowledge store and publisher.
	// Registry, Pipeline and Batch stay nil and no API key is needed.
	WithoutLLM bool
}

func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	s := cfg.Settings

	log, err := logger.NewLoggerAdapter(logger.Options{
		Level:   s.Log.Level,
		Dir:     s.Log.Dir,
		Name:    cfg.LogName,
		Console: s.Log.Console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	c := &Container{Settings: s, Logger: log}
	c.closers = append(c.closers, log.Close)

	c.Knowledge = rag.NewStore(rag.Config{
		ChunkSize:    s.RAG.ChunkSize,
		ChunkOverlap: s.RAG.ChunkOverlap,
		DefaultLimit: s.RAG.DefaultLimit,
	}, log)
	c.loadKnowledge(ctx)
	c.Publisher = markdown.New(s.Content.OutputDir, log)

	if cfg.WithoutLLM {
		return c, nil
	}

	llm := cfg.LLM
	if llm == nil {
		llm, err = c.newLLM(ctx)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to create llm client: %w", err)
		}
	}
	c.LLM = llm

	var searcher output.WebSearcher
	if s.Search.Enabled {
		searchCfg := duckduckgo.DefaultConfig()
		searchCfg.Endpoint = s.Search.Endpoint
		searchCfg.Region = s.Search.Region
		searchCfg.MaxResults = s.Search.MaxResults
		searcher = duckduckgo.New(searchCfg, log)
	}

	registry := service.NewAgentRegistry()
	if err := registerAgents(registry, llm, c.Knowledge, searcher, log, s.RAG); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to register agents: %w", err)
	}
	c.Registry = registry

	pipelineCfg := pipeline.DefaultConfig()
	pipelineCfg.MinQualityScore = s.Content.MinQualityScore
	pipelineCfg.MaxRevisionAttempts = s.Content.MaxRevisionAttempts
	pipelineCfg.RevisionStages = s.Content.Stages()
	pipelineCfg.DefaultTargetLength = s.Content.DefaultTargetLength
	pipelineCfg.Orchestrator = orchestrator.Config{
		StageTimeout: s.Pipeline.StageTimeout,
		MaxAttempts:  s.Pipeline.MaxAttempts,
		RetryDelay:   s.Pipeline.RetryDelay,
	}
	runner := pipeline.New(registry, log, pipelineCfg)
	c.Pipeline = runner
	c.Batch = batch.New(runner, log, s.Pipeline.MaxConcurrentRuns)

	return c, nil
}

func (c *Container) newLLM(ctx context.Context) (output.LLMPort, error) {
	s := c.Settings.LLM
	if s.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", s.Provider)
	}

	switch s.Provider {
	case "gemini":
		model := s.Model
		if strings.Contains(model, "/") {
			model = ""
		}
		adapter, err := gemini.NewGeminiAdapter(ctx, gemini.Config{
			APIKey:      s.APIKey,
			Model:       model,
			Temperature: s.Temperature,
			MaxTokens:   s.MaxTokens,
			Logger:      c.Logger,
		})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, adapter.Close)
		return adapter, nil

	default:
		llmCfg := openrouter.DefaultConfig(s.APIKey, s.Model)
		if s.BaseURL != "" {
			llmCfg.BaseURL = s.BaseURL
		}
		if s.Provider == "openai" && strings.Contains(llmCfg.BaseURL, "openrouter.ai") {
			llmCfg.BaseURL = openAIBaseURL
		}
		llmCfg.Temperature = s.Temperature
		llmCfg.MaxTokens = s.MaxTokens
		llmCfg.Logger = c.Logger
		return openrouter.NewOpenRouterAdapter(llmCfg), nil
	}
}

func (c *Container) loadKnowledge(ctx context.Context) {
	dirs := []struct {
		scope entity.RetrievalScope
		dir   string
	}{
		{entity.ScopeKnowledge, c.Settings.RAG.KnowledgeDir},
		{entity.ScopeStyle, c.Settings.RAG.StyleDir},
	}
	for _, d := range dirs {
		if d.dir == "" {
			continue
		}
		if _, err := c.Knowledge.LoadDir(ctx, d.scope, d.dir); err != nil {
			c.Logger.Warn("Failed to load documents", "scope", d.scope, "dir", d.dir, "error", err)
		}
	}
}

func registerAgents(
	registry *service.AgentRegistryImpl,
	llm output.LLMPort,
	retriever output.Retriever,
	searcher output.WebSearcher,
	log output.LoggerPort,
	ragCfg config.RAGConfig,
) error {
	researchCfg := research.DefaultConfig()
	researchCfg.Limit = ragCfg.DefaultLimit
	researchCfg.MinRelevantHits = ragCfg.MinRelevantHits
	researchCfg.MinRelevance = ragCfg.MinRelevance

	agents := map[entity.TaskKind]output.Agent{
		entity.TaskKindResearch: research.New(llm, retriever, searcher, log, researchCfg),
		entity.TaskKindWrite:    writer.New(llm, retriever, log),
		entity.TaskKindEdit:     editor.New(llm, retriever, log),
		entity.TaskKindSEO:      seo.New(llm, log),
		entity.TaskKindQuality:  quality.New(llm, retriever, log),
		entity.TaskKindImage:    imageprompt.New(llm, log),
		entity.TaskKindVisual:   visual.New(llm, log),
	}
	for _, stage := range entity.StageOrder {
		if err := registry.Register(stage.Kind(), agents[stage.Kind()]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
}
