package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/resume-agent/backend/internal/metrics"
	"github.com/resume-agent/backend/internal/scoring"
	"github.com/resume-agent/backend/pkg/circuitbreaker"
	"github.com/resume-agent/backend/pkg/logger"
	"github.com/resume-agent/backend/pkg/retry"
)

// ErrGenerationFailed wraps any narrative generation failure so callers
// can route the session to the error state with a single apology.
var ErrGenerationFailed = errors.New("narrative generation failed")

const narrativeSystemPrompt = `You are a resume coach writing one short WhatsApp message.
Write 2-3 sentences of personalized, encouraging advice grounded ONLY in the
facts provided. Never mention scores or percentages. Never invent details
about the resume. Plain text, no markdown.`

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NewClient returns nil when apiKey is empty: the review pipeline treats
// a nil client as "narrative disabled" and composes from templates alone.
func NewClient(apiKey, model string, temperature float32, maxTokens int) *Client {
	if apiKey == "" {
		return nil
	}

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("LLM client initialized", zap.String("model", model))

	return &Client{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: req.UserPrompt,
		},
	}

	var result *CompletionResponse

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: temperature,
					MaxTokens:   maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			logger.Debug("LLM completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			metrics.LLMTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
			metrics.LLMTokensUsed.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

			result = &CompletionResponse{
				Content: resp.Choices[0].Message.Content,
				Usage: Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// GenerateReviewNarrative produces the short personalized paragraph
// embedded in the executive summary. citations are display labels for
// the newsletter chunks the score drew on.
func (c *Client) GenerateReviewNarrative(ctx context.Context, score *scoring.Result, citations []string) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Overall fit: %s.\n", score.Band)
	if len(score.MatchedKeywords) > 0 {
		fmt.Fprintf(&b, "Keywords the resume already covers: %s.\n", strings.Join(head(score.MatchedKeywords, 8), ", "))
	}
	if len(score.MissingKeywords) > 0 {
		fmt.Fprintf(&b, "Keywords from the job the resume is missing: %s.\n", strings.Join(head(score.MissingKeywords, 8), ", "))
	}
	if len(citations) > 0 {
		fmt.Fprintf(&b, "Relevant newsletter advice: %s.\n", strings.Join(citations, "; "))
	}

	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: narrativeSystemPrompt,
		UserPrompt:   b.String(),
		MaxTokens:    200,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	narrative := strings.TrimSpace(resp.Content)
	if narrative == "" {
		return "", ErrGenerationFailed
	}
	return narrative, nil
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
