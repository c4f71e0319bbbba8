package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/nijaru/yt-summary/apperrors"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client sends one chat completion per call. It never retries.
type Client struct {
	api    *openai.Client
	model  string
	tokens int
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("LLM API key is required (set OPENAI_API_KEY)")
	}
	if cfg.Model == "" {
		return nil, errors.New("LLM model is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:    openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		tokens: cfg.MaxTokens,
	}, nil
}

func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	const op = "llm.Summarize"
	start := time.Now()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.tokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", apperrors.LLMRequestFailed(op, err, describe(err))
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.LLMRequestFailed(op, nil, "language model returned no choices")
	}

	logrus.WithFields(logrus.Fields{
		"model":             c.model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"duration":          time.Since(start),
	}).Debug("Summary generated")

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// describe turns an API failure into a message safe to show a client.
func describe(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "language model rejected the API credentials"
		case http.StatusTooManyRequests:
			return "language model rate limit exceeded"
		}
		return "language model request failed"
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return "language model rate limit exceeded"
	}

	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return "language model request timed out"
	}
	return "language model request failed"
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
