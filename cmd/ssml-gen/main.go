package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"Newspods/internal/ai"
	"Newspods/internal/apperr"
	"Newspods/internal/config"
	"Newspods/internal/logging"
	"Newspods/internal/prompt"
	"Newspods/internal/ssml"

	"go.uber.org/zap"
)

// ssml-gen: статья -> промпт -> языковая модель -> проверенный SSML на два голоса.
// Ответ модели, не прошедший проверку, не сохраняется как результат.
func main() {
	fs := flag.NewFlagSet("ssml-gen", flag.ExitOnError)
	articlePath := fs.String("article", "-", "файл со статьёй, '-' означает stdin")
	outPath := fs.String("out", "", "куда записать SSML (по умолчанию stdout)")
	rawOut := fs.String("raw-out", "", "сохранить сырой ответ модели (для разбора ошибок)")
	promptOnly := fs.Bool("prompt-only", false, "только напечатать промпт, модель не вызывать")

	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperr.ExitCode(err))
	}

	zl, logger, err := logging.New(cfg.DebugMode, "ssml-gen")
	if err != nil {
		panic(err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, logger, *articlePath, *outPath, *rawOut, *promptOnly); err != nil {
		logger.Errorw("ssml generation failed", "error", err)
		_ = zl.Sync()
		os.Exit(apperr.ExitCode(err))
	}
}

func run(cfg *config.Config, logger *zap.SugaredLogger, articlePath, outPath, rawOut string, promptOnly bool) error {
	voiceA, voiceB, err := cfg.Prompt.VoicePair()
	if err != nil {
		return err
	}
	pair, err := ssml.NewVoicePair(voiceA, voiceB)
	if err != nil {
		return err
	}

	article, err := readArticle(articlePath)
	if err != nil {
		return err
	}
	p, err := prompt.Build(article, prompt.Options{VoiceA: voiceA, VoiceB: voiceB, Pacing: cfg.Prompt.Pacing, Lang: cfg.Prompt.Language})
	if err != nil {
		return err
	}
	if promptOnly {
		return writeOutput(outPath, p)
	}

	gen, err := ai.New(cfg.LLM, logger, stubResponse(pair, cfg))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeoutCause(context.Background(), cfg.LLM.Timeout, errors.New("llm request timeout"))
	defer cancel()

	started := time.Now()
	raw, err := gen.Generate(ctx, p)
	if err != nil {
		return err
	}
	if rawOut != "" {
		if err := os.WriteFile(rawOut, []byte(raw), 0o644); err != nil {
			return apperr.IO("ssml-gen", err)
		}
	}

	doc, err := ssml.Parse(ssml.Extract(raw), ssml.ParseOptions{Voices: pair, MaxPause: cfg.Speech.MaxPause})
	if err != nil {
		return err
	}
	logger.Infow("ssml accepted",
		"voices", doc.Voices(),
		"turns", doc.Turns(),
		"pauses", len(doc.Pauses()),
		"took", time.Since(started).String(),
	)
	return writeOutput(outPath, doc.Render(ssml.DialectAzure))
}

func readArticle(path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" || path == "" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", apperr.IO("read article", err)
	}
	return string(b), nil
}

func writeOutput(path, s string) error {
	if path == "" {
		_, err := fmt.Fprintln(os.Stdout, s)
		return err
	}
	if err := os.WriteFile(path, []byte(s+"\n"), 0o644); err != nil {
		return apperr.IO("write output", err)
	}
	return nil
}

// stubResponse: ответ для LLM_PROVIDER=stub: встроенный выпуск, если он подходит под пару голосов.
func stubResponse(pair ssml.VoicePair, cfg *config.Config) string {
	s, err := ssml.BuiltinScript("civic-lens")
	if err != nil {
		return ""
	}
	if p, err := s.Pair(); err != nil || p != pair {
		return ""
	}
	doc, err := s.Document(cfg.Speech.MaxPause)
	if err != nil {
		return ""
	}
	return "```xml\n" + doc.Render(ssml.DialectAzure) + "\n```"
}
