package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"Newspods/internal/apperr"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// OpenAIClient генерирует SSML через Chat Completions.
type OpenAIClient struct {
	client   openai.Client
	sampling Sampling
	logger   *zap.SugaredLogger
}

// NewOpenAIClient создаёт клиента без повторов: неудачный запрос сразу возвращается вызывающему.
func NewOpenAIClient(apiKey, baseURL string, s Sampling, logger *zap.SugaredLogger) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if s.Model == "" {
		s.Model = string(openai.ChatModelGPT4o)
	}
	return &OpenAIClient{
		client:   openai.NewClient(opts...),
		sampling: s,
		logger:   logger,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.sampling.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.sampling.Temperature),
		TopP:        openai.Float(c.sampling.TopP),
	}
	if c.sampling.Candidates > 0 {
		params.N = openai.Int(int64(c.sampling.Candidates))
	}
	if c.sampling.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.sampling.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", openaiError(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.Upstream("openai", "response has no choices", nil)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", apperr.Upstream("openai", "first choice is empty (finish_reason="+string(resp.Choices[0].FinishReason)+")", nil)
	}
	logDone(c.logger, "openai", c.sampling.Model, start, len(text))
	return text, nil
}

func openaiError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		reason := apiErr.Message
		if reason == "" {
			reason = apiErr.Error()
		}
		return &apperr.Error{Kind: apperr.ErrUpstream, Op: "openai", Status: apiErr.StatusCode, Reason: reason, Err: err}
	}
	return apperr.Upstream("openai", err.Error(), err)
}
