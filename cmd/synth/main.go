package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"Newspods/internal/apperr"
	"Newspods/internal/config"
	"Newspods/internal/logging"
	"Newspods/internal/service/storage"
	"Newspods/internal/service/synth"
	"Newspods/internal/service/synth/backends"
	"Newspods/internal/service/synth/player"
	"Newspods/internal/ssml"

	"go.uber.org/zap"
)

type options struct {
	ssmlPath   string
	scriptPath string
	builtin    string
	out        string
	play       bool
	volumeDB   float64
	upload     bool
}

// synth: проверенный SSML (файл, YAML-сценарий или встроенный выпуск) -> аудиофайл.
func main() {
	fs := flag.NewFlagSet("synth", flag.ExitOnError)
	var o options
	fs.StringVar(&o.ssmlPath, "ssml", "", "файл SSML")
	fs.StringVar(&o.scriptPath, "script", "", "YAML-сценарий выпуска")
	fs.StringVar(&o.builtin, "builtin", "", "встроенный выпуск: "+strings.Join(ssml.BuiltinScripts(), ", "))
	fs.StringVar(&o.out, "out", "news_mono.mp3", "путь к результату")
	fs.BoolVar(&o.play, "play", false, "воспроизвести результат")
	fs.Float64Var(&o.volumeDB, "volume", 0, "громкость воспроизведения, dB (отрицательные тише)")
	fs.BoolVar(&o.upload, "upload", false, "загрузить результат в бакет")

	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperr.ExitCode(err))
	}
	zl, logger, err := logging.New(cfg.DebugMode, "synth")
	if err != nil {
		panic(err)
	}
	defer func() { _ = zl.Sync() }()

	backend, err := backends.New(cfg, logger)
	if err == nil {
		err = run(cfg, logger, backend, o)
	}
	if err != nil {
		logger.Errorw("synthesis failed", "error", err, "reason", apperr.Reason(err))
		_ = zl.Sync()
		os.Exit(apperr.ExitCode(err))
	}
}

func run(cfg *config.Config, logger *zap.SugaredLogger, backend synth.Backend, o options) error {
	// конфигурация проверяется до чтения входа и до сети
	if err := backend.CheckConfig(); err != nil {
		return err
	}
	doc, err := loadDocument(cfg, o)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeoutCause(context.Background(), cfg.Speech.Timeout, errors.New("synthesis timeout"))
	defer cancel()

	path, err := synth.NewInvoker(backend, synth.FormatFromConfig(cfg.Speech), logger).Synthesize(ctx, doc, o.out)
	if err != nil {
		return err
	}
	fmt.Println("Synth complete:", path)

	if o.upload {
		store, err := storage.New(cfg.Storage, logger)
		if err != nil {
			return err
		}
		key, err := store.Upload(ctx, path, synth.ContentTypeFor(cfg.Speech.Codec))
		if err != nil {
			return err
		}
		fmt.Println("Uploaded:", key)
	}
	if o.play {
		if err := player.PlayFile(player.NewWithVolume(o.volumeDB), path); err != nil {
			// файл уже записан; ошибка воспроизведения не делает синтез неуспешным
			logger.Warnw("playback failed", "path", path, "error", err)
		}
	}
	return nil
}

func loadDocument(cfg *config.Config, o options) (*ssml.Document, error) {
	set := 0
	for _, v := range []string{o.ssmlPath, o.scriptPath, o.builtin} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, apperr.Validation("synth", "exactly one of -ssml, -script, -builtin is required")
	}

	switch {
	case o.ssmlPath != "":
		a, b, err := cfg.Prompt.VoicePair()
		if err != nil {
			return nil, err
		}
		pair, err := ssml.NewVoicePair(a, b)
		if err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(o.ssmlPath)
		if err != nil {
			return nil, apperr.IO("read ssml", err)
		}
		return ssml.Parse(ssml.Extract(string(raw)), ssml.ParseOptions{Voices: pair, MaxPause: cfg.Speech.MaxPause})
	case o.scriptPath != "":
		f, err := os.Open(o.scriptPath)
		if err != nil {
			return nil, apperr.IO("read script", err)
		}
		defer f.Close()
		s, err := ssml.LoadScript(f)
		if err != nil {
			return nil, err
		}
		return s.Document(cfg.Speech.MaxPause)
	default:
		s, err := ssml.BuiltinScript(o.builtin)
		if err != nil {
			return nil, err
		}
		return s.Document(cfg.Speech.MaxPause)
	}
}
