package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Newspods/internal/app/audioapi"
	"Newspods/internal/app/scheduler"
	"Newspods/internal/apperr"
	"Newspods/internal/config"
	"Newspods/internal/logging"
	"Newspods/internal/service/storage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// audio-api: список выпусков в бакете и потоковая раздача с поддержкой Range.
func main() {
	fs := flag.NewFlagSet("audio-api", flag.ExitOnError)
	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperr.ExitCode(err))
	}
	zl, logger, err := logging.New(cfg.DebugMode, "audio-api")
	if err != nil {
		panic(err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Errorw("audio api stopped with error", "error", err, "reason", apperr.Reason(err))
		_ = zl.Sync()
		os.Exit(apperr.ExitCode(err))
	}
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeoutCause(context.Background(), 30*time.Second, errors.New("startup timeout"))
	defer cancel()

	// Redis необязателен: без него индекс живёт только в памяти процесса
	var cache storage.IndexCache
	if cfg.AudioAPI.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.AudioAPI.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnw("redis unavailable, running without cache", "addr", cfg.AudioAPI.RedisAddr, "error", err)
		} else {
			cache = storage.NewRedisCache(rdb, store.Bucket(), store.Prefix(), cfg.AudioAPI.IndexTTL)
		}
	}

	index := storage.NewIndex(store, cache, logger)
	if _, err := index.Refresh(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.AudioAPI.BindAddr,
		Handler:           audioapi.New(index, store, store.Bucket(), store.Prefix(), logger).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("audio api listening", "addr", srv.Addr, "bucket", store.Bucket(), "prefix", store.Prefix())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Фоновое обновление индекса: новые выпуски видны без POST /refresh-index
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	refresh := func(ctx context.Context) error {
		_, err := index.Refresh(ctx)
		return err
	}
	go func() {
		_ = scheduler.New("audio-index", refresh, scheduler.Options{Interval: cfg.AudioAPI.RefreshInterval}, logger).Run(bgCtx)
	}()

	// Graceful shutdown по Ctrl+C / SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err, ok := <-errCh:
		if ok {
			return apperr.IO("listen", err)
		}
		return nil
	case <-sigCh:
	}

	shutdownCtx, cancelShutdown := context.WithTimeoutCause(context.Background(), 5*time.Second, errors.New("shutdown timeout"))
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("graceful shutdown error", "error", err)
		_ = srv.Close()
	}
	logger.Infow("audio api stopped")
	return nil
}
