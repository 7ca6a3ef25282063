// Package scheduler периодически выполняет фоновую задачу сервиса,
// например обновление индекса аудио.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Task: одна итерация фоновой работы.
type Task func(ctx context.Context) error

type Options struct {
	Interval             time.Duration // Пауза между тиками; первый тик через Interval
	TickTimeout          time.Duration // Таймаут одного тика
	MaxConsecutiveErrors int           // 0: не останавливаться из-за ошибок
}

type Scheduler struct {
	name   string
	task   Task
	opts   Options
	logger *zap.SugaredLogger

	consecutiveErrors int
}

func New(name string, task Task, opts Options, logger *zap.SugaredLogger) *Scheduler {
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = 30 * time.Second
	}
	return &Scheduler{name: name, task: task, opts: opts, logger: logger}
}

// Run крутит цикл до отмены контекста или до порога подряд идущих ошибок.
// При Interval <= 0 сразу возвращает nil.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.opts.Interval <= 0 {
		return nil
	}
	s.logger.Infow("scheduler started", "task", s.name, "interval", s.opts.Interval.String())

	t := time.NewTimer(s.opts.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-t.C:
		}

		if err := s.runTick(ctx); err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			s.consecutiveErrors++
			s.logger.Errorw("tick failed", "task", s.name, "error", err, "consecutiveErrors", s.consecutiveErrors)
			if s.opts.MaxConsecutiveErrors > 0 && s.consecutiveErrors >= s.opts.MaxConsecutiveErrors {
				s.logger.Errorw("stopping due to consecutive errors threshold", "task", s.name, "threshold", s.opts.MaxConsecutiveErrors)
				return err
			}
		} else {
			s.consecutiveErrors = 0
		}
		t.Reset(s.opts.Interval)
	}
}

func (s *Scheduler) runTick(parent context.Context) error {
	tickCtx, cancel := context.WithTimeoutCause(parent, s.opts.TickTimeout, errors.New("tick timeout"))
	defer cancel()

	start := time.Now()
	if err := s.task(tickCtx); err != nil {
		return err
	}
	s.logger.Debugw("tick done", "task", s.name, "took", time.Since(start).String())
	return nil
}
