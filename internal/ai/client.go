package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Newspods/internal/config"

	"go.uber.org/zap"
)

// Generator отправляет промпт модели и возвращает текст первого варианта ответа.
// Все реализации взаимозаменяемы.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Sampling: параметры сэмплирования, общие для провайдеров.
type Sampling struct {
	Model       string
	Temperature float64
	TopP        float64
	Candidates  int
	MaxTokens   int
}

func samplingFrom(cfg config.LLMConfig) Sampling {
	return Sampling{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		Candidates:  cfg.Candidates,
		MaxTokens:   cfg.MaxTokens,
	}
}

// New выбирает реализацию по cfg.Provider. Конфигурация проверяется до создания клиента.
// stubResponse используется только провайдером stub.
func New(cfg config.LLMConfig, logger *zap.SugaredLogger, stubResponse string) (Generator, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, samplingFrom(cfg), logger), nil
	case "anthropic":
		return NewAnthropicClient(cfg.AnthropicAPIKey, "", samplingFrom(cfg), logger), nil
	case "stub":
		return NewStubClient(stubResponse), nil
	}
	return nil, fmt.Errorf("unreachable provider %q", cfg.Provider)
}

func logDone(logger *zap.SugaredLogger, provider, model string, start time.Time, chars int) {
	if logger == nil {
		return
	}
	logger.Infow("llm generation completed",
		"provider", provider,
		"model", model,
		"chars", chars,
		"took", time.Since(start).String(),
	)
}
