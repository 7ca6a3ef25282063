package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"Newspods/internal/apperr"
	"Newspods/internal/config"
	"Newspods/internal/logging"
	"Newspods/internal/service/synth/backends"
)

// Небольшая утилита: печатает голоса выбранного бэкенда синтеза для локали.
// Помогает подобрать пару для SSML_VOICES.
func main() {
	fs := flag.NewFlagSet("voices", flag.ExitOnError)
	locale := fs.String("locale", "", "локаль, напр. en-IN (по умолчанию язык документа)")

	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperr.ExitCode(err))
	}
	zl, logger, err := logging.New(cfg.DebugMode, "voices")
	if err != nil {
		panic(err)
	}
	defer func() { _ = zl.Sync() }()

	fail := func(err error) {
		logger.Errorw("voice listing failed", "error", err, "reason", apperr.Reason(err))
		_ = zl.Sync()
		os.Exit(apperr.ExitCode(err))
	}

	lang := *locale
	if lang == "" {
		lang = cfg.Prompt.Language
	}

	backend, err := backends.New(cfg, logger)
	if err != nil {
		fail(err)
	}
	if err := backend.CheckConfig(); err != nil {
		fail(err)
	}

	ctx, cancel := context.WithTimeoutCause(context.Background(), 20*time.Second, errors.New("voices request timeout"))
	defer cancel()

	voices, err := backend.ListVoices(ctx, lang)
	if err != nil {
		fail(err)
	}

	out := struct {
		Backend string `json:"backend"`
		Locale  string `json:"locale"`
		Count   int    `json:"count"`
		Voices  any    `json:"voices"`
	}{backend.Name(), lang, len(voices), voices}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
