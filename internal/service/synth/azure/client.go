// Package azure: синтез через REST API Azure Speech.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"Newspods/internal/apperr"
	"Newspods/internal/config"
	"Newspods/internal/service/synth"
	"Newspods/internal/ssml"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const userAgent = "newspods"

// Client реализует synth.Backend и synth.VoiceLister для Azure Speech.
type Client struct {
	http   *http.Client
	cfg    config.AzureSpeechConfig
	logger *zap.SugaredLogger
}

func New(cfg config.AzureSpeechConfig, logger *zap.SugaredLogger) *Client {
	return &Client{http: &http.Client{}, cfg: cfg, logger: logger}
}

// WithHTTPClient подменяет HTTP-клиент (таймауты, тесты).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) Name() string { return "azure" }

func (c *Client) CheckConfig() error { return c.cfg.Check() }

func (c *Client) baseURL() string {
	if ep := strings.TrimRight(strings.TrimSpace(c.cfg.Endpoint), "/"); ep != "" {
		return ep
	}
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com", strings.TrimSpace(c.cfg.Region))
}

// Synthesize отправляет документ в диалекте Azure и возвращает аудио целиком.
func (c *Client) Synthesize(ctx context.Context, doc *ssml.Document, format synth.AudioFormat) ([]byte, error) {
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}
	outFmt, err := OutputFormat(format)
	if err != nil {
		return nil, err
	}

	body := doc.Render(ssml.DialectAzure)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/cognitiveservices/v1", strings.NewReader(body))
	if err != nil {
		return nil, apperr.Upstream("azure speech", err.Error(), err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", outFmt)
	req.Header.Set("User-Agent", userAgent)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Upstream("azure speech", err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.UpstreamStatus("azure speech", resp.StatusCode, failureReason(resp))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream("azure speech", "read audio: "+err.Error(), err)
	}
	if c.logger != nil {
		c.logger.Infow("Azure TTS synthesize completed",
			"format", outFmt,
			"bytes", len(audio),
			"took", time.Since(started).String(),
		)
	}
	return audio, nil
}

type voiceEntry struct {
	ShortName string   `json:"ShortName"`
	Locale    string   `json:"Locale"`
	Gender    string   `json:"Gender"`
	StyleList []string `json:"StyleList"`
}

// ListVoices возвращает голоса региона; пустая локаль: все.
func (c *Client) ListVoices(ctx context.Context, locale string) ([]synth.Voice, error) {
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/cognitiveservices/voices/list", nil)
	if err != nil {
		return nil, apperr.Upstream("azure voices", err.Error(), err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Upstream("azure voices", err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.UpstreamStatus("azure voices", resp.StatusCode, failureReason(resp))
	}

	var entries []voiceEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, apperr.Upstream("azure voices", "decode voices: "+err.Error(), err)
	}
	entries = lo.Filter(entries, func(v voiceEntry, _ int) bool {
		return locale == "" || strings.EqualFold(v.Locale, locale)
	})
	return lo.Map(entries, func(v voiceEntry, _ int) synth.Voice {
		return synth.Voice{Name: v.ShortName, Locale: v.Locale, Gender: v.Gender, Styles: v.StyleList}
	}), nil
}

// failureReason: тело ответа (до 4 КБ) или строка статуса, если тело пустое.
func failureReason(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return resp.Status
	}
	return string(b)
}

type formatKey struct {
	codec   string
	rate    int
	bitrate int
}

var outputFormats = map[formatKey]string{
	{"mp3", 16000, 32}:  "audio-16khz-32kbitrate-mono-mp3",
	{"mp3", 16000, 64}:  "audio-16khz-64kbitrate-mono-mp3",
	{"mp3", 16000, 128}: "audio-16khz-128kbitrate-mono-mp3",
	{"mp3", 24000, 48}:  "audio-24khz-48kbitrate-mono-mp3",
	{"mp3", 24000, 96}:  "audio-24khz-96kbitrate-mono-mp3",
	{"mp3", 24000, 160}: "audio-24khz-160kbitrate-mono-mp3",
	{"mp3", 48000, 96}:  "audio-48khz-96kbitrate-mono-mp3",
	{"mp3", 48000, 192}: "audio-48khz-192kbitrate-mono-mp3",
	{"wav", 8000, 0}:    "riff-8khz-16bit-mono-pcm",
	{"wav", 16000, 0}:   "riff-16khz-16bit-mono-pcm",
	{"wav", 22050, 0}:   "riff-22050hz-16bit-mono-pcm",
	{"wav", 24000, 0}:   "riff-24khz-16bit-mono-pcm",
	{"wav", 44100, 0}:   "riff-44100hz-16bit-mono-pcm",
	{"wav", 48000, 0}:   "riff-48khz-16bit-mono-pcm",
	{"ogg", 16000, 0}:   "ogg-16khz-16bit-mono-opus",
	{"ogg", 24000, 0}:   "ogg-24khz-16bit-mono-opus",
	{"ogg", 48000, 0}:   "ogg-48khz-16bit-mono-opus",
}

// OutputFormat переводит формат в значение заголовка X-Microsoft-OutputFormat.
func OutputFormat(f synth.AudioFormat) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	key := formatKey{codec: f.Codec, rate: f.SampleRateHz}
	if f.Codec == "mp3" {
		key.bitrate = f.BitrateKbps
	}
	v, ok := outputFormats[key]
	if !ok {
		return "", apperr.Configuration("azure speech", fmt.Sprintf("no Azure output format for %s %d Hz %d kbps mono", f.Codec, f.SampleRateHz, f.BitrateKbps))
	}
	return v, nil
}
