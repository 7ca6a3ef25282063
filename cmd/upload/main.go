package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"Newspods/internal/apperr"
	"Newspods/internal/config"
	"Newspods/internal/logging"
	"Newspods/internal/service/storage"
)

// upload: загружает готовый аудиофайл в бакет под детерминированным ключом.
func main() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	file := fs.String("file", "news_mono.mp3", "локальный файл")
	contentType := fs.String("content-type", "", "Content-Type объекта (по умолчанию по расширению)")

	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperr.ExitCode(err))
	}
	zl, logger, err := logging.New(cfg.DebugMode, "upload")
	if err != nil {
		panic(err)
	}
	defer func() { _ = zl.Sync() }()

	fail := func(err error) {
		logger.Errorw("upload failed", "file", *file, "error", err, "reason", apperr.Reason(err))
		_ = zl.Sync()
		os.Exit(apperr.ExitCode(err))
	}

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		fail(err)
	}

	ctx, cancel := context.WithTimeoutCause(context.Background(), 10*time.Minute, errors.New("upload timeout"))
	defer cancel()

	key, err := store.Upload(ctx, *file, *contentType)
	if err != nil {
		fail(err)
	}
	fmt.Println("Uploaded:", key)
}
