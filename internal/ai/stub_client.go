package ai

import "context"

// StubClient заглушка, которая не делает реальных запросов и возвращает заданный ответ.
type StubClient struct {
	response string
	Prompts  []string // полученные промпты, для проверок
}

func NewStubClient(response string) *StubClient { return &StubClient{response: response} }

func (c *StubClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.Prompts = append(c.Prompts, prompt)
	return c.response, nil
}
