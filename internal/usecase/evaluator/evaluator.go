package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/prompts"
)

// Criteria is what the reviewer scores.
type Criteria struct {
	Topic     string
	Content   string
	Knowledge string
	MinScore  float64
}

// Evaluator asks the LLM for a JSON quality verdict and parses it.
type Evaluator struct {
	llm    output.LLMPort
	logger output.LoggerPort
}

func New(llm output.LLMPort, logger output.LoggerPort) *Evaluator {
	return &Evaluator{
		llm:    llm,
		logger: logger,
	}
}

func (e *Evaluator) Review(ctx context.Context, criteria Criteria) (*entity.QualityReview, error) {
	prompt, err := prompts.Render("quality", prompts.QualityPrompt, prompts.QualityData{
		Content:   criteria.Content,
		Knowledge: criteria.Knowledge,
		MinScore:  criteria.MinScore,
	})
	if err != nil {
		return nil, fmt.Errorf("render quality prompt: %w", err)
	}

	resp, err := e.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			entity.SystemMessage(prompts.QualitySystemPrompt),
			entity.UserMessage(prompt),
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluation llm request failed: %w", err)
	}

	review, err := e.parseReviewResponse(resp.Message.Content)
	if err != nil {
		return nil, err
	}
	review.Approved = review.Score >= criteria.MinScore

	e.logger.Info("Quality review completed",
		"score", review.Score,
		"approved", review.Approved,
		"issues_count", len(review.Issues),
	)

	return review, nil
}

var totalScore = regexp.MustCompile(`(?i)(?:total|score)\D{0,20}?(\d{1,3}(?:\.\d+)?)\s*/\s*100`)

// parseReviewResponse extracts the JSON verdict from the response. When the
// model ignored the format it falls back to a "TOTAL: NN/100" line.
func (e *Evaluator) parseReviewResponse(response string) (*entity.QualityReview, error) {
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")

	if start != -1 && end > start {
		var verdict struct {
			Score     *float64 `json:"score"`
			Strengths []string `json:"strengths"`
			Issues    []string `json:"issues"`
			Feedback  string   `json:"feedback"`
		}
		if err := json.Unmarshal([]byte(response[start:end+1]), &verdict); err == nil && verdict.Score != nil {
			return &entity.QualityReview{
				Score:     clamp(*verdict.Score),
				Strengths: verdict.Strengths,
				Issues:    verdict.Issues,
				Feedback:  verdict.Feedback,
				Review:    response,
			}, nil
		}
	}

	if m := totalScore.FindStringSubmatch(response); m != nil {
		score, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			if e.logger != nil {
				e.logger.Warn("Quality review was not JSON, using plain-text score", "score", score)
			}
			return &entity.QualityReview{
				Score:    clamp(score),
				Feedback: response,
				Review:   response,
			}, nil
		}
	}

	return nil, fmt.Errorf("no score found in review response")
}

func clamp(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}
