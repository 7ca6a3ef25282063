package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"Newspods/internal/apperr"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicClient: альтернативный провайдер через Messages API.
// Messages API отдаёт один вариант, Candidates игнорируется.
type AnthropicClient struct {
	client   anthropic.Client
	sampling Sampling
	logger   *zap.SugaredLogger
}

func NewAnthropicClient(apiKey, baseURL string, s Sampling, logger *zap.SugaredLogger) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if s.Model == "" {
		s.Model = DefaultAnthropicModel
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = 4096
	}
	return &AnthropicClient{
		client:   anthropic.NewClient(opts...),
		sampling: s,
		logger:   logger,
	}
}

func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.sampling.Model),
		MaxTokens: int64(c.sampling.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.sampling.Temperature > 0 {
		params.Temperature = anthropic.Float(c.sampling.Temperature)
	}
	if c.sampling.TopP > 0 {
		params.TopP = anthropic.Float(c.sampling.TopP)
	}
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &apperr.Error{Kind: apperr.ErrUpstream, Op: "anthropic", Status: apiErr.StatusCode, Reason: apiErr.Error(), Err: err}
		}
		return "", apperr.Upstream("anthropic", err.Error(), err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", apperr.Upstream("anthropic", "response has no text (stop_reason="+string(resp.StopReason)+")", nil)
	}
	logDone(c.logger, "anthropic", c.sampling.Model, start, len(text))
	return text, nil
}
