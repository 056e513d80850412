package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

var _ output.LLMPort = (*OpenRouterAdapter)(nil)

// OpenRouterAdapter talks to any OpenAI-compatible chat completions API.
// OpenRouter is the default base URL; OpenAI works with its own.
type OpenRouterAdapter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      output.LoggerPort
}

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Logger      output.LoggerPort
	HTTPClient  *http.Client
}

func DefaultConfig(apiKey, model string) Config {
	return Config{
		APIKey:      apiKey,
		Model:       model,
		BaseURL:     "https://openrouter.ai/api/v1",
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}

	var requestData map[string]any
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &requestData)
	}

	t.logger.Debug("HTTP Request",
		"method", req.Method,
		"url", req.URL.String(),
		"model", requestData["model"],
		"bodyLen", len(bodyBytes),
	)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("HTTP Request failed", "url", req.URL.String(), "error", err)
		return nil, err
	}

	t.logger.Debug("HTTP Response",
		"status", resp.Status,
		"statusCode", resp.StatusCode,
	)
	return resp, nil
}

func NewOpenRouterAdapter(cfg Config) *OpenRouterAdapter {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Logger != nil {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		httpClient = &http.Client{
			Transport: &loggingTransport{base: base, logger: cfg.Logger},
			Timeout:   httpClient.Timeout,
		}
	}
	config.HTTPClient = httpClient

	return &OpenRouterAdapter{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

func (a *OpenRouterAdapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = a.temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = a.maxTokens
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    convertMessages(req.Messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	if a.logger != nil {
		a.logger.Debug("Chat completion finished",
			"model", resp.Model,
			"promptTokens", resp.Usage.PromptTokens,
			"completionTokens", resp.Usage.CompletionTokens,
			"finishReason", resp.Choices[0].FinishReason,
		)
	}

	return &output.ChatResponse{
		Message: convertResponseMessage(resp.Choices[0].Message),
		Model:   resp.Model,
		Usage: output.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// classify marks failures worth retrying (network errors, 429, 5xx) as
// transport errors. Other API errors are returned as is.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("chat completion failed: %w", err)
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return entity.NewTransportError("chat completion", err)
	}

	if status == http.StatusTooManyRequests || status >= 500 {
		return entity.NewTransportError("chat completion", err)
	}
	return fmt.Errorf("chat completion failed: %w", err)
}

func convertMessages(messages []entity.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		result = append(result, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return result
}

func convertResponseMessage(msg openai.ChatCompletionMessage) entity.Message {
	return entity.Message{
		Role:    entity.MessageRole(msg.Role),
		Content: msg.Content,
	}
}
