package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/prensa-app/prensa/internal/config"
)

// Client is the OpenAI-backed Summarizer. The two tiers map to the two
// configured model names; everything else about the call is identical across
// tiers.
type Client struct {
	client *openai.Client
	cfg    config.OpenAIConfig
	retry  RetryPolicy
	logger *slog.Logger
}

// NewClient creates an OpenAI-backed summarizer.
func NewClient(cfg config.OpenAIConfig, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key not configured")
	}

	return &Client{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
		retry:  DefaultRetryPolicy(),
		logger: logger,
	}, nil
}

// modelFor maps a tier to its configured model name.
func (c *Client) modelFor(tier Tier) string {
	if tier == TierPremium {
		return c.cfg.PremiumModel
	}
	return c.cfg.StandardModel
}

// Summarize sends one article to the provider and parses the structured
// bilingual response. Rate-limit responses are retried in-call with backoff;
// any other transport or parse failure surfaces to the caller.
func (c *Client) Summarize(ctx context.Context, req Request) (*Result, error) {
	model := c.modelFor(req.Tier)
	prompt := BuildPrompt(req)

	start := time.Now()
	c.logger.Debug("provider call starting",
		"model", model,
		"tier", req.Tier,
		"body_chars", len(req.Body))

	var resp openai.ChatCompletionResponse

	err := Retry(ctx, c.retry, func() error {
		apiCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		var callErr error
		resp, callErr = c.client.CreateChatCompletion(apiCtx, openai.ChatCompletionRequest{
			Model:               model,
			MaxCompletionTokens: c.cfg.MaxTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if callErr != nil {
			if isRateLimited(callErr) {
				c.logger.Warn("provider rate limited, backing off", "model", model, "error", callErr)
				return NewRetryableError(callErr)
			}
			return callErr
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("provider call failed (model %s): %w", model, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned from model %s", model)
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("empty response from model %s (finish_reason: %s)",
			model, resp.Choices[0].FinishReason)
	}

	result, err := ParseResult(content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("provider call complete",
		"model", model,
		"tier", req.Tier,
		"quality", result.QualityScore,
		"tags", len(result.TopicTags),
		"duration_ms", time.Since(start).Milliseconds(),
		"tokens", resp.Usage.TotalTokens)

	return result, nil
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(msg, "Rate limit")
}
