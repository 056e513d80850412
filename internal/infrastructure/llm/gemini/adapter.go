package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

var _ output.LLMPort = (*GeminiAdapter)(nil)

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      output.LoggerPort
}

type GeminiAdapter struct {
	client *genai.Client
	cfg    Config
}

func NewGeminiAdapter(ctx context.Context, cfg Config) (*GeminiAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiAdapter{client: client, cfg: cfg}, nil
}

func (a *GeminiAdapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	system, history, last := splitMessages(req.Messages)
	if last == "" {
		return nil, fmt.Errorf("gemini chat requires a user message")
	}

	// GenerativeModel is a lightweight handle; one per call keeps the
	// adapter safe for concurrent runs.
	model := a.client.GenerativeModel(a.cfg.Model)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = a.cfg.Temperature
	}
	if temperature > 0 {
		model.SetTemperature(temperature)
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = a.cfg.MaxTokens
	}
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, classify(err)
	}

	text := firstText(resp)
	if text == "" {
		return nil, fmt.Errorf("gemini returned no text")
	}

	out := &output.ChatResponse{
		Message: entity.Message{Role: entity.RoleAssistant, Content: text},
		Model:   a.cfg.Model,
	}
	if resp.UsageMetadata != nil {
		out.Usage = output.TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	if a.cfg.Logger != nil {
		a.cfg.Logger.Debug("Gemini chat finished", "model", a.cfg.Model, "textLen", len(text))
	}
	return out, nil
}

func (a *GeminiAdapter) Close() error {
	return a.client.Close()
}

// splitMessages joins system messages into one instruction, turns the rest
// into chat history and returns the final user message separately.
func splitMessages(messages []entity.Message) (string, []*genai.Content, string) {
	var system []string
	var history []*genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case entity.RoleSystem:
			system = append(system, msg.Content)
		case entity.RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}

	last := ""
	if n := len(history); n > 0 && history[n-1].Role == "user" {
		if t, ok := history[n-1].Parts[0].(genai.Text); ok {
			last = string(t)
		}
		history = history[:n-1]
	}
	return strings.Join(system, "\n\n"), history, last
}

func firstText(r *genai.GenerateContentResponse) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

// classify treats everything except blocked prompts and cancellation as a
// transport failure.
func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("gemini generate: %w", err)
	}
	return entity.NewTransportError("gemini generate", err)
}
