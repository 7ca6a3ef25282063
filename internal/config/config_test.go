package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Newspods/internal/apperr"
)

func TestLoadLayersEnvAndFlags(t *testing.T) {
	t.Chdir(t.TempDir()) // без .env из рабочего каталога
	t.Setenv("SSML_VOICES", "en-US-AvaNeural; en-US-AndrewNeural")
	t.Setenv("TTS_SERVICE", "google")
	t.Setenv("LLM_TEMPERATURE", "0.5")
	t.Setenv("B2_BUCKET_NAME", "FromEnv")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	out := fs.String("out", "news_mono.mp3", "")
	cfg, err := Load(fs, []string{"-bucket", "FromFlag", "-max-pause", "2s", "-out", "x.mp3"})
	if err != nil {
		t.Fatal(err)
	}
	if *out != "x.mp3" {
		t.Errorf("tool flag not parsed: %q", *out)
	}
	if a, b, err := cfg.Prompt.VoicePair(); err != nil || a != "en-US-AvaNeural" || b != "en-US-AndrewNeural" {
		t.Errorf("voices = %q %q %v", a, b, err)
	}
	if cfg.Speech.Backend != "google" || cfg.LLM.Temperature != 0.5 {
		t.Errorf("env not applied: %+v %+v", cfg.Speech, cfg.LLM)
	}
	if cfg.Storage.Bucket != "FromFlag" || cfg.Speech.MaxPause != 2*time.Second {
		t.Errorf("flags not applied: %+v", cfg.Storage)
	}
	if cfg.LLM.TopP != 0.9 || cfg.Speech.SampleRateHz != 48000 || cfg.Storage.Prefix != "audio" {
		t.Error("defaults lost")
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_CANDIDATES", "many")
	_, err := Load(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("err = %v", err)
	}
}

func TestVoicePair(t *testing.T) {
	for _, voices := range [][]string{{"a"}, {"a", "b", "c"}, {"a", "a"}} {
		if _, _, err := (PromptConfig{Voices: voices}).VoicePair(); !errors.Is(err, apperr.ErrConfiguration) {
			t.Errorf("%v: err = %v", voices, err)
		}
	}
}

func TestChecksNameMissingVariables(t *testing.T) {
	cases := []struct {
		err  error
		want []string
	}{
		{AzureSpeechConfig{}.Check(), []string{"AZURE_SPEECH_KEY", "AZURE_SPEECH_REGION"}},
		{AzureSpeechConfig{Key: "k"}.Check(), []string{"AZURE_SPEECH_REGION"}},
		{LLMConfig{Provider: "openai"}.Check(), []string{"OPENAI_API_KEY"}},
		{LLMConfig{Provider: "anthropic"}.Check(), []string{"ANTHROPIC_API_KEY"}},
		{LLMConfig{Provider: "bard"}.Check(), []string{"LLM_PROVIDER"}},
		{StorageConfig{Bucket: "b"}.Check(), []string{"B2_KEY_ID", "B2_APP_KEY", "B2_S3_ENDPOINT"}},
		{GoogleTTSConfig{}.Check(), []string{"GOOGLE_APPLICATION_CREDENTIALS", "GOOGLE_TTS_LANGUAGE"}},
		{GoogleTTSConfig{CredentialsPath: "/nonexistent/sa.json", Language: "en-IN"}.Check(), []string{"credentials file not found"}},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, apperr.ErrConfiguration) {
			t.Errorf("err = %v, want configuration error", tc.err)
			continue
		}
		for _, w := range tc.want {
			if !strings.Contains(tc.err.Error(), w) {
				t.Errorf("%v does not mention %s", tc.err, w)
			}
		}
	}

	if err := (AzureSpeechConfig{Key: "k", Region: "centralindia"}).Check(); err != nil {
		t.Errorf("complete azure config: %v", err)
	}
	if err := (LLMConfig{Provider: "stub"}).Check(); err != nil {
		t.Errorf("stub: %v", err)
	}
	cred := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(cred, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := (GoogleTTSConfig{CredentialsPath: cred, Language: "en-IN"}).Check(); err != nil {
		t.Errorf("complete google config: %v", err)
	}
}
