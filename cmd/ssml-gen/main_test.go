package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Newspods/internal/apperr"
	"Newspods/internal/config"
	"Newspods/internal/ssml"

	"go.uber.org/zap/zaptest"
)

func stubConfig() *config.Config {
	cfg := config.Defaults()
	cfg.LLM.Provider = "stub"
	return cfg
}

func writeArticle(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "article.txt")
	if err := os.WriteFile(p, []byte("The city council approved a new budget for public libraries."), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRunWritesValidatedSSML(t *testing.T) {
	cfg := stubConfig()
	dir := t.TempDir()
	out := filepath.Join(dir, "episode.ssml")
	raw := filepath.Join(dir, "raw.txt")

	if err := run(cfg, zaptest.NewLogger(t).Sugar(), writeArticle(t), out, raw, false); err != nil {
		t.Fatalf("run: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	pair := ssml.VoicePair{cfg.Prompt.Voices[0], cfg.Prompt.Voices[1]}
	if _, err := ssml.Parse(string(got), ssml.ParseOptions{Voices: pair}); err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	rawText, err := os.ReadFile(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(rawText), "```xml") {
		t.Errorf("raw response was not saved as returned")
	}
}

func TestRunPromptOnly(t *testing.T) {
	cfg := stubConfig()
	cfg.LLM.Provider = "openai" // ключа нет, но модель не вызывается
	cfg.Prompt.Language = "en-GB"
	out := filepath.Join(t.TempDir(), "prompt.txt")

	if err := run(cfg, zaptest.NewLogger(t).Sugar(), writeArticle(t), out, "", true); err != nil {
		t.Fatalf("run: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), `xml:lang="en-GB"`) {
		t.Error("prompt ignores the configured language")
	}
	for _, v := range cfg.Prompt.Voices {
		if !strings.Contains(string(got), v) {
			t.Errorf("prompt does not mention %s", v)
		}
	}
}

func TestRunRejectsInvalidModelOutput(t *testing.T) {
	cfg := stubConfig()
	// пара не совпадает со встроенным выпуском, заглушка отвечает пустой строкой
	cfg.Prompt.Voices = []string{"en-US-AvaNeural", "en-US-AndrewNeural"}
	out := filepath.Join(t.TempDir(), "episode.ssml")

	err := run(cfg, zaptest.NewLogger(t).Sugar(), writeArticle(t), out, "", false)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if apperr.ExitCode(err) != 3 {
		t.Errorf("exit code = %d", apperr.ExitCode(err))
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("rejected output was written: %v", statErr)
	}
}

func TestRunMissingKey(t *testing.T) {
	cfg := stubConfig()
	cfg.LLM.Provider = "openai"
	cfg.LLM.OpenAIAPIKey = ""

	err := run(cfg, zaptest.NewLogger(t).Sugar(), writeArticle(t), "", "", false)
	if !errors.Is(err, apperr.ErrConfiguration) || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("err = %v", err)
	}
}
