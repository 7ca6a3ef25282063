// Package backends выбирает бэкенд синтеза по конфигурации (TTS_SERVICE).
package backends

import (
	"fmt"
	"net/http"
	"strings"

	"Newspods/internal/apperr"
	"Newspods/internal/config"
	"Newspods/internal/service/synth"
	"Newspods/internal/service/synth/azure"
	"Newspods/internal/service/synth/google"

	"go.uber.org/zap"
)

// Backend: бэкенд синтеза, умеющий и перечислять голоса.
type Backend interface {
	synth.Backend
	synth.VoiceLister
}

func New(cfg *config.Config, logger *zap.SugaredLogger) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Speech.Backend)) {
	case "azure":
		return azure.New(cfg.Azure, logger).WithHTTPClient(&http.Client{Timeout: cfg.Speech.Timeout}), nil
	case "google":
		return google.New(cfg.GoogleTTS, logger), nil
	default:
		return nil, apperr.Configuration("synth", fmt.Sprintf("unknown TTS_SERVICE %q (want azure|google)", cfg.Speech.Backend))
	}
}
