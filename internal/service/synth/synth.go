// Package synth отправляет проверенный SSML в бэкенд синтеза и сохраняет аудио в файл.
package synth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"Newspods/internal/apperr"
	"Newspods/internal/config"
	"Newspods/internal/ssml"

	"go.uber.org/zap"
)

// AudioFormat: параметры результата: кодек, частота, битрейт, каналы.
type AudioFormat struct {
	Codec        string // mp3|wav|ogg
	SampleRateHz int
	BitrateKbps  int // только для mp3
	Channels     int
}

func FormatFromConfig(c config.SpeechConfig) AudioFormat {
	return AudioFormat{
		Codec:        strings.ToLower(strings.TrimSpace(c.Codec)),
		SampleRateHz: c.SampleRateHz,
		BitrateKbps:  c.BitrateKbps,
		Channels:     c.Channels,
	}
}

// ContentType возвращает MIME-тип для кодека.
func (f AudioFormat) ContentType() string {
	return ContentTypeFor(f.Codec)
}

func ContentTypeFor(codec string) string {
	switch strings.ToLower(strings.TrimPrefix(codec, ".")) {
	case "wav":
		return "audio/wav"
	case "ogg":
		return "audio/ogg"
	default:
		return "audio/mpeg"
	}
}

// Validate проверяет формат, общий для всех бэкендов. Бэкенды отдают только моно.
func (f AudioFormat) Validate() error {
	switch f.Codec {
	case "mp3", "wav", "ogg":
	default:
		return apperr.Configuration("synth", fmt.Sprintf("unsupported codec %q (want mp3|wav|ogg)", f.Codec))
	}
	if f.SampleRateHz <= 0 {
		return apperr.Configuration("synth", "sample rate must be positive")
	}
	if f.Channels != 1 {
		return apperr.Configuration("synth", fmt.Sprintf("only mono output is supported, got %d channels", f.Channels))
	}
	return nil
}

// Backend: сервис синтеза речи. CheckConfig не обращается к сети.
type Backend interface {
	Name() string
	CheckConfig() error
	Synthesize(ctx context.Context, doc *ssml.Document, format AudioFormat) ([]byte, error)
}

// Voice: голос из каталога бэкенда.
type Voice struct {
	Name   string   `json:"name"`
	Locale string   `json:"locale"`
	Gender string   `json:"gender"`
	Styles []string `json:"styles,omitempty"`
}

// VoiceLister: бэкенд, умеющий перечислять голоса для локали.
type VoiceLister interface {
	ListVoices(ctx context.Context, locale string) ([]Voice, error)
}

// Invoker выполняет один запрос синтеза на документ. Повторов нет.
type Invoker struct {
	backend Backend
	format  AudioFormat
	logger  *zap.SugaredLogger
}

func NewInvoker(b Backend, f AudioFormat, logger *zap.SugaredLogger) *Invoker {
	return &Invoker{backend: b, format: f, logger: logger}
}

// Synthesize синтезирует doc и записывает аудио в outPath. Файл создаётся или
// перезаписывается только при успехе; при любой ошибке прежнее содержимое не трогается.
func (i *Invoker) Synthesize(ctx context.Context, doc *ssml.Document, outPath string) (string, error) {
	if doc == nil || len(doc.Body) == 0 {
		return "", apperr.Validation("synth", "empty document")
	}
	if strings.TrimSpace(outPath) == "" {
		return "", apperr.Validation("synth", "output path is empty")
	}
	if err := i.backend.CheckConfig(); err != nil {
		return "", err
	}
	if err := i.format.Validate(); err != nil {
		return "", err
	}

	started := time.Now()
	audio, err := i.backend.Synthesize(ctx, doc, i.format)
	if err != nil {
		if errors.Is(err, apperr.ErrUpstream) || errors.Is(err, apperr.ErrConfiguration) || errors.Is(err, apperr.ErrValidation) {
			return "", err
		}
		return "", apperr.Upstream(i.backend.Name(), err.Error(), err)
	}
	if len(audio) == 0 {
		return "", apperr.Upstream(i.backend.Name(), "backend returned no audio", nil)
	}

	if err := writeFileAtomic(outPath, audio); err != nil {
		return "", apperr.IO("synth", err)
	}
	if i.logger != nil {
		i.logger.Infow("synthesis completed",
			"backend", i.backend.Name(),
			"voices", doc.Voices(),
			"turns", doc.Turns(),
			"bytes", len(audio),
			"out", outPath,
			"took", time.Since(started).String(),
		)
	}
	return outPath, nil
}

// writeFileAtomic пишет во временный файл рядом с целью и переименовывает его.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
