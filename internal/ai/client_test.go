package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"Newspods/internal/apperr"
	"Newspods/internal/config"

	"go.uber.org/zap/zaptest"
)

const speak = `<speak version="1.0"/>`

func TestOpenAIClientSendsSamplingAndReturnsFirstChoice(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",
			"choices":[
				{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"\n` + strings.ReplaceAll(speak, `"`, `\"`) + `\n"}},
				{"index":1,"finish_reason":"stop","message":{"role":"assistant","content":"second"}}
			]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL, Sampling{Temperature: 0.2, TopP: 0.9, Candidates: 2}, zaptest.NewLogger(t).Sugar())
	got, err := c.Generate(context.Background(), "prompt text")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != speak {
		t.Errorf("got %q", got)
	}
	if body["model"] != "gpt-4o" || body["temperature"] != 0.2 || body["top_p"] != 0.9 || body["n"] != float64(2) {
		t.Errorf("request body = %v", body)
	}
}

func TestOpenAIClientSurfacesUpstreamReasonWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota","code":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL, Sampling{}, nil)
	_, err := c.Generate(context.Background(), "p")
	if !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("err = %v, want upstream", err)
	}
	var e *apperr.Error
	if !errors.As(err, &e) || e.Status != http.StatusTooManyRequests {
		t.Errorf("status not carried: %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("reason lost: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestAnthropicClientJoinsTextBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "ak-test" {
			t.Errorf("api key header = %q", r.Header.Get("X-Api-Key"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"m1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514",
			"content":[{"type":"text","text":"<speak "},{"type":"text","text":"version=\"1.0\"/>"}],
			"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":3,"output_tokens":5}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("ak-test", srv.URL, Sampling{Temperature: 0.2, TopP: 0.9}, zaptest.NewLogger(t).Sugar())
	got, err := c.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != speak {
		t.Errorf("got %q", got)
	}
}

func TestAnthropicClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropicClient("bad", srv.URL, Sampling{}, nil).Generate(context.Background(), "p")
	if !errors.Is(err, apperr.ErrUpstream) || !strings.Contains(err.Error(), "invalid x-api-key") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewChecksConfigurationFirst(t *testing.T) {
	cases := []config.LLMConfig{
		{Provider: "openai"},
		{Provider: "anthropic", OpenAIAPIKey: "sk"},
		{Provider: "gemini"},
	}
	for _, cfg := range cases {
		g, err := New(cfg, nil, "")
		if !errors.Is(err, apperr.ErrConfiguration) || g != nil {
			t.Errorf("New(%+v) = %v, %v", cfg, g, err)
		}
	}

	g, err := New(config.LLMConfig{Provider: "stub"}, nil, speak)
	if err != nil {
		t.Fatal(err)
	}
	out, err := g.Generate(context.Background(), "p")
	if err != nil || out != speak {
		t.Errorf("stub = %q, %v", out, err)
	}
	stub, ok := g.(*StubClient)
	if !ok {
		t.Fatalf("stub provider returned %T", g)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := stub.Generate(ctx, "late"); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled generate err = %v", err)
	}
	if len(stub.Prompts) != 1 || stub.Prompts[0] != "p" {
		t.Errorf("recorded prompts = %q", stub.Prompts)
	}
}
