package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"Newspods/internal/apperr"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode bool `env:"DEBUG_MODE"` // Режим дебага: development-логгер zap

	Prompt    PromptConfig      // Параметры промпта и пары голосов
	LLM       LLMConfig         // Генерация SSML языковой моделью
	Speech    SpeechConfig      // Общие параметры синтеза и переключатель бэкенда
	Azure     AzureSpeechConfig // Azure Speech (REST)
	GoogleTTS GoogleTTSConfig   // Google Cloud Text-to-Speech
	Storage   StorageConfig     // Бакет B2 (S3-совместимый API)
	AudioAPI  AudioAPIConfig    // HTTP-сервис раздачи аудио
}

// PromptConfig: пара голосов и темп подачи.
type PromptConfig struct {
	Voices   []string `env:"SSML_VOICES" envSeparator:";"` // Ровно два голоса, разделённых ';'
	Pacing   string   `env:"SSML_PACING"`                  // slow|normal|fast
	Language string   `env:"SSML_LANGUAGE"`                // xml:lang документа и локаль списка голосов, напр. en-IN
}

// LLMConfig конфигурация генеративной модели.
type LLMConfig struct {
	Provider        string        `env:"LLM_PROVIDER"`      // openai|anthropic|stub
	Model           string        `env:"LLM_MODEL"`         // Идентификатор модели; пусто: модель провайдера по умолчанию
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY"`    // Ключ OpenAI
	OpenAIBaseURL   string        `env:"OPENAI_BASE_URL"`   // Необязательный base URL (прокси/совместимые API)
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"` // Ключ Anthropic
	Temperature     float64       `env:"LLM_TEMPERATURE"`
	TopP            float64       `env:"LLM_TOP_P"`
	Candidates      int           `env:"LLM_CANDIDATES"` // Сколько вариантов запрашивать; используется первый
	MaxTokens       int           `env:"LLM_MAX_TOKENS"`
	Timeout         time.Duration `env:"LLM_TIMEOUT"`
}

// SpeechConfig общие параметры синтеза.
type SpeechConfig struct {
	Backend      string        `env:"TTS_SERVICE"`     // azure|google, по умолчанию azure
	Codec        string        `env:"TTS_CODEC"`       // mp3|wav|ogg
	SampleRateHz int           `env:"TTS_SAMPLE_RATE"` // Частота дискретизации, Гц
	BitrateKbps  int           `env:"TTS_BITRATE"`     // Битрейт для mp3
	Channels     int           `env:"TTS_CHANNELS"`    // Только моно поддерживается бэкендами
	MaxPause     time.Duration `env:"SSML_MAX_PAUSE"`  // Верхняя граница <break time>
	Timeout      time.Duration `env:"TTS_TIMEOUT"`
}

// AzureSpeechConfig конфигурация Azure Speech.
type AzureSpeechConfig struct {
	Key      string `env:"AZURE_SPEECH_KEY"`
	Region   string `env:"AZURE_SPEECH_REGION"`   // напр. centralindia, eastus
	Endpoint string `env:"AZURE_SPEECH_ENDPOINT"` // Переопределение адреса; пусто: по региону
}

// GoogleTTSConfig конфигурация для синтеза речи через Google Cloud Text-to-Speech.
type GoogleTTSConfig struct {
	// Путь к файлу ключа сервисного аккаунта. Читается из ENV GOOGLE_APPLICATION_CREDENTIALS.
	CredentialsPath string  `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	Language        string  `env:"GOOGLE_TTS_LANGUAGE"`
	SpeakingRate    float64 `env:"GOOGLE_TTS_SPEAKING_RATE"`
	Pitch           float64 `env:"GOOGLE_TTS_PITCH"`
	VolumeGainDb    float64 `env:"GOOGLE_TTS_VOLUME_DB"`
	// Эффект профиля устройства воспроизведения, напр. large-home-entertainment-class-device
	EffectsProfileID string `env:"GOOGLE_TTS_EFFECTS_PROFILE_ID"`
}

// StorageConfig: бакет Backblaze B2 через S3-совместимый endpoint.
type StorageConfig struct {
	KeyID    string `env:"B2_KEY_ID"`
	AppKey   string `env:"B2_APP_KEY"`
	Bucket   string `env:"B2_BUCKET_NAME"`
	Endpoint string `env:"B2_S3_ENDPOINT"` // напр. s3.us-west-004.backblazeb2.com
	Region   string `env:"B2_REGION"`
	Prefix   string `env:"AUDIO_PREFIX"` // Префикс ключей объектов
	Secure   bool   `env:"B2_SECURE"`
}

// AudioAPIConfig конфигурация сервиса раздачи аудио.
type AudioAPIConfig struct {
	BindAddr  string        `env:"AUDIO_API_BIND_ADDR"`
	RedisAddr string        `env:"REDIS_ADDR"` // Пусто: индекс только в памяти
	IndexTTL  time.Duration `env:"AUDIO_INDEX_TTL"`
	// Период фонового обновления индекса; 0: только по запросу
	RefreshInterval time.Duration `env:"AUDIO_INDEX_REFRESH"`
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode: false,
		Prompt: PromptConfig{
			Voices:   []string{"en-IN-NeerjaNeural", "en-IN-PrabhatNeural"},
			Pacing:   "normal",
			Language: "en-IN",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Temperature: 0.2,
			TopP:        0.9,
			Candidates:  1,
			MaxTokens:   4096,
			Timeout:     2 * time.Minute,
		},
		Speech: SpeechConfig{
			Backend:      "azure",
			Codec:        "mp3",
			SampleRateHz: 48000,
			BitrateKbps:  192,
			Channels:     1,
			MaxPause:     5 * time.Second,
			Timeout:      2 * time.Minute,
		},
		Azure: AzureSpeechConfig{
			Region: "centralindia",
		},
		GoogleTTS: GoogleTTSConfig{
			CredentialsPath:  "service-account.json",
			Language:         "en-IN",
			SpeakingRate:     1.0,
			EffectsProfileID: "large-home-entertainment-class-device",
		},
		Storage: StorageConfig{
			Bucket: "Newspods",
			Prefix: "audio",
			Secure: true,
		},
		AudioAPI: AudioAPIConfig{
			BindAddr:        ":3000",
			IndexTTL:        10 * time.Minute,
			RefreshInterval: 5 * time.Minute,
		},
	}
}

// Load загружает конфигурацию: дефолты, затем .env и окружение, затем флаги.
// fs может уже содержать флаги конкретной утилиты; общие флаги добавляются сюда же.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, apperr.Configuration("config", err.Error())
	}

	voicesFlag := strings.Join(cfg.Prompt.Voices, ";")
	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага (development-логгер)")
	fs.StringVar(&voicesFlag, "voices", voicesFlag, "два голоса синтеза, разделённых ';'")
	fs.StringVar(&cfg.Prompt.Pacing, "pacing", cfg.Prompt.Pacing, "темп подачи: slow|normal|fast")
	fs.StringVar(&cfg.Prompt.Language, "lang", cfg.Prompt.Language, "язык документа (xml:lang), напр. en-IN")
	// LLM
	fs.StringVar(&cfg.LLM.Provider, "llm-provider", cfg.LLM.Provider, "провайдер модели: openai|anthropic|stub")
	fs.StringVar(&cfg.LLM.Model, "llm-model", cfg.LLM.Model, "идентификатор модели (пусто: по умолчанию для провайдера)")
	fs.Float64Var(&cfg.LLM.Temperature, "temperature", cfg.LLM.Temperature, "температура сэмплирования")
	fs.Float64Var(&cfg.LLM.TopP, "top-p", cfg.LLM.TopP, "порог nucleus-сэмплирования")
	fs.IntVar(&cfg.LLM.Candidates, "candidates", cfg.LLM.Candidates, "количество запрашиваемых вариантов")
	// Синтез
	fs.StringVar(&cfg.Speech.Backend, "tts-service", cfg.Speech.Backend, "сервис синтеза: azure|google")
	fs.StringVar(&cfg.Speech.Codec, "codec", cfg.Speech.Codec, "кодек результата: mp3|wav|ogg")
	fs.IntVar(&cfg.Speech.SampleRateHz, "sample-rate", cfg.Speech.SampleRateHz, "частота дискретизации, Гц")
	fs.IntVar(&cfg.Speech.BitrateKbps, "bitrate", cfg.Speech.BitrateKbps, "битрейт mp3, кбит/с")
	fs.DurationVar(&cfg.Speech.MaxPause, "max-pause", cfg.Speech.MaxPause, "максимальная длительность <break>")
	fs.StringVar(&cfg.Azure.Region, "azure-region", cfg.Azure.Region, "регион Azure Speech")
	fs.StringVar(&cfg.GoogleTTS.CredentialsPath, "google-tts-credentials", cfg.GoogleTTS.CredentialsPath, "путь к service-account.json (также читается из ENV GOOGLE_APPLICATION_CREDENTIALS)")
	fs.StringVar(&cfg.GoogleTTS.Language, "google-tts-language", cfg.GoogleTTS.Language, "язык синтеза Google, напр. en-IN")
	// Хранилище
	fs.StringVar(&cfg.Storage.Bucket, "bucket", cfg.Storage.Bucket, "имя бакета B2")
	fs.StringVar(&cfg.Storage.Prefix, "prefix", cfg.Storage.Prefix, "префикс ключей объектов")

	if err := fs.Parse(args); err != nil {
		return nil, apperr.Configuration("config", err.Error())
	}

	cfg.Prompt.Voices = parseListFlag(voicesFlag, cfg.Prompt.Voices)
	return cfg, nil
}

// VoicePair возвращает пару голосов; ровно два различных значения.
func (p PromptConfig) VoicePair() (string, string, error) {
	if len(p.Voices) != 2 {
		return "", "", apperr.Configuration("config", fmt.Sprintf("SSML_VOICES must name exactly two voices, got %d", len(p.Voices)))
	}
	a, b := p.Voices[0], p.Voices[1]
	if a == b {
		return "", "", apperr.Configuration("config", "SSML_VOICES must name two different voices")
	}
	return a, b, nil
}

// Check проверяет обязательные параметры выбранного провайдера модели.
func (c LLMConfig) Check() error {
	var missing []string
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case "openai":
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case "anthropic":
		if strings.TrimSpace(c.AnthropicAPIKey) == "" {
			missing = append(missing, "ANTHROPIC_API_KEY")
		}
	case "stub":
		// офлайн-прогон, ключи не нужны
		return nil
	default:
		return apperr.Configuration("llm", fmt.Sprintf("unknown LLM_PROVIDER %q (want openai|anthropic|stub)", c.Provider))
	}
	return apperr.MissingEnv("llm", missing...)
}

// Check: ключ и регион обязательны.
func (c AzureSpeechConfig) Check() error {
	var missing []string
	if strings.TrimSpace(c.Key) == "" {
		missing = append(missing, "AZURE_SPEECH_KEY")
	}
	if strings.TrimSpace(c.Region) == "" {
		missing = append(missing, "AZURE_SPEECH_REGION")
	}
	return apperr.MissingEnv("azure speech", missing...)
}

// Check проверяет путь к ключу сервисного аккаунта и язык. Сеть не используется.
func (c GoogleTTSConfig) Check() error {
	var missing []string
	cred := strings.TrimSpace(c.CredentialsPath)
	if cred == "" {
		missing = append(missing, "GOOGLE_APPLICATION_CREDENTIALS")
	}
	if strings.TrimSpace(c.Language) == "" {
		missing = append(missing, "GOOGLE_TTS_LANGUAGE")
	}
	if err := apperr.MissingEnv("google tts", missing...); err != nil {
		return err
	}
	if _, err := os.Stat(cred); err != nil {
		return apperr.Configuration("google tts", "credentials file not found: "+cred)
	}
	return nil
}

// Check проверяет параметры доступа к бакету.
func (c StorageConfig) Check() error {
	var missing []string
	if strings.TrimSpace(c.KeyID) == "" {
		missing = append(missing, "B2_KEY_ID")
	}
	if strings.TrimSpace(c.AppKey) == "" {
		missing = append(missing, "B2_APP_KEY")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "B2_BUCKET_NAME")
	}
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "B2_S3_ENDPOINT")
	}
	return apperr.MissingEnv("storage", missing...)
}

// parseListFlag разбирает значение флага со списком, разделённым ';'
func parseListFlag(v string, def []string) []string {
	// Пустая строка → дефолт
	if v == "" {
		return def
	}
	parts := strings.Split(v, ";")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return def
	}
	return cleaned
}
