// Package config loads the application settings: built-in defaults, then
// config/settings.yaml, then environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

const DefaultPath = "config/settings.yaml"

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"-"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type ContentConfig struct {
	DefaultTargetLength int      `yaml:"default_target_length"`
	MinQualityScore     float64  `yaml:"min_quality_score"`
	MaxRevisionAttempts int      `yaml:"max_revision_attempts"`
	// RevisionStages re-run on a failed quality gate, e.g. [editor, seo, quality].
	RevisionStages []string `yaml:"revision_stages"`
	WritingStyle   string   `yaml:"writing_style"`
	OutputDir      string   `yaml:"output_dir"`
}

type PipelineConfig struct {
	StageTimeout      time.Duration `yaml:"stage_timeout"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	MaxConcurrentRuns int           `yaml:"max_concurrent_runs"`
}

type RAGConfig struct {
	ChunkSize       int     `yaml:"chunk_size"`
	ChunkOverlap    int     `yaml:"chunk_overlap"`
	DefaultLimit    int     `yaml:"default_limit"`
	MinRelevantHits int     `yaml:"min_relevant_hits"`
	MinRelevance    float64 `yaml:"min_relevance"`
	KnowledgeDir    string  `yaml:"knowledge_dir"`
	StyleDir        string  `yaml:"style_dir"`
}

type SearchConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	Region     string `yaml:"region"`
	MaxResults int    `yaml:"max_results"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Dir     string `yaml:"dir"`
	Console bool   `yaml:"console"`
}

type Settings struct {
	LLM      LLMConfig      `yaml:"llm"`
	Content  ContentConfig  `yaml:"content"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	RAG      RAGConfig      `yaml:"rag"`
	Search   SearchConfig   `yaml:"search"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

func Default() Settings {
	return Settings{
		LLM: LLMConfig{
			Provider:    "openrouter",
			Model:       "anthropic/claude-3.5-sonnet",
			BaseURL:     "https://openrouter.ai/api/v1",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Content: ContentConfig{
			DefaultTargetLength: 1500,
			MinQualityScore:     75,
			MaxRevisionAttempts: 2,
			RevisionStages:      []string{"editor", "seo", "quality"},
			OutputDir:           "output",
		},
		Pipeline: PipelineConfig{
			StageTimeout:      5 * time.Minute,
			MaxAttempts:       2,
			RetryDelay:        2 * time.Second,
			MaxConcurrentRuns: 5,
		},
		RAG: RAGConfig{
			ChunkSize:       500,
			ChunkOverlap:    50,
			DefaultLimit:    5,
			MinRelevantHits: 2,
			MinRelevance:    0.2,
			KnowledgeDir:    "data/knowledge",
			StyleDir:        "data/style",
		},
		Search: SearchConfig{
			Enabled:    true,
			Endpoint:   "https://html.duckduckgo.com/html/",
			Region:     "br-pt",
			MaxResults: 5,
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Dir: "logs", Console: true},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string, environ output.ConfigPort) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if environ != nil {
		s.applyEnv(environ)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) applyEnv(e output.ConfigPort) {
	s.LLM.Provider = strings.ToLower(e.GetWithDefault("LLM_PROVIDER", s.LLM.Provider))
	s.LLM.Model = e.GetWithDefault("LLM_MODEL", s.LLM.Model)
	s.LLM.BaseURL = e.GetWithDefault("LLM_BASE_URL", s.LLM.BaseURL)
	s.LLM.Temperature = float32(e.GetFloat("LLM_TEMPERATURE", float64(s.LLM.Temperature)))
	s.LLM.MaxTokens = e.GetInt("LLM_MAX_TOKENS", s.LLM.MaxTokens)
	s.LLM.APIKey = e.Get(apiKeyVar(s.LLM.Provider))

	s.Content.DefaultTargetLength = e.GetInt("DEFAULT_TARGET_LENGTH", s.Content.DefaultTargetLength)
	s.Content.MinQualityScore = e.GetFloat("MIN_QUALITY_SCORE", s.Content.MinQualityScore)
	s.Content.MaxRevisionAttempts = e.GetInt("MAX_REVISION_ATTEMPTS", s.Content.MaxRevisionAttempts)
	if v := e.Get("REVISION_STAGES"); v != "" {
		s.Content.RevisionStages = splitList(v)
	}
	s.Content.WritingStyle = e.GetWithDefault("WRITING_STYLE", s.Content.WritingStyle)
	s.Content.OutputDir = e.GetWithDefault("OUTPUT_DIR", s.Content.OutputDir)

	s.Pipeline.StageTimeout = e.GetDuration("STAGE_TIMEOUT", s.Pipeline.StageTimeout)
	s.Pipeline.MaxAttempts = e.GetInt("STAGE_MAX_ATTEMPTS", s.Pipeline.MaxAttempts)
	s.Pipeline.RetryDelay = e.GetDuration("STAGE_RETRY_DELAY", s.Pipeline.RetryDelay)
	s.Pipeline.MaxConcurrentRuns = e.GetInt("MAX_CONCURRENT_RUNS", s.Pipeline.MaxConcurrentRuns)

	s.RAG.KnowledgeDir = e.GetWithDefault("KNOWLEDGE_DIR", s.RAG.KnowledgeDir)
	s.RAG.StyleDir = e.GetWithDefault("STYLE_DIR", s.RAG.StyleDir)

	s.Search.Enabled = e.GetBool("WEB_SEARCH_ENABLED", s.Search.Enabled)

	s.Server.Addr = e.GetWithDefault("SERVER_ADDR", s.Server.Addr)

	s.Log.Level = e.GetWithDefault("LOG_LEVEL", s.Log.Level)
	s.Log.Dir = e.GetWithDefault("LOG_DIR", s.Log.Dir)
	s.Log.Console = e.GetBool("LOG_CONSOLE", s.Log.Console)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Stages converts RevisionStages to pipeline stages.
func (c ContentConfig) Stages() []entity.Stage {
	out := make([]entity.Stage, 0, len(c.RevisionStages))
	for _, s := range c.RevisionStages {
		out = append(out, entity.Stage(s))
	}
	return out
}

func apiKeyVar(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return "OPENROUTER_API_KEY"
	}
}

func (s *Settings) Validate() error {
	var errs []error
	switch s.LLM.Provider {
	case "openrouter", "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", s.LLM.Provider))
	}
	if s.Content.MinQualityScore < 0 || s.Content.MinQualityScore > 100 {
		errs = append(errs, fmt.Errorf("content.min_quality_score must be within 0..100, got %v", s.Content.MinQualityScore))
	}
	if s.Content.MaxRevisionAttempts < 0 {
		errs = append(errs, fmt.Errorf("content.max_revision_attempts must not be negative"))
	}
	for _, st := range s.Content.Stages() {
		if st.Index() < entity.StageEditor.Index() || st.Index() > entity.StageQuality.Index() {
			errs = append(errs, fmt.Errorf("content.revision_stages: %q cannot be revised", st))
		}
	}
	if s.Content.DefaultTargetLength <= 0 {
		errs = append(errs, fmt.Errorf("content.default_target_length must be positive"))
	}
	if s.RAG.ChunkOverlap >= s.RAG.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk_overlap must be smaller than rag.chunk_size"))
	}
	return errors.Join(errs...)
}
