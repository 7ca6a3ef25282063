package storage

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Bucket: то, что нужно индексу и раздаче от хранилища.
type Bucket interface {
	List(ctx context.Context) ([]Object, error)
	Open(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
}

// IndexCache: общий для нескольких экземпляров сервиса снимок индекса.
type IndexCache interface {
	Load(ctx context.Context) ([]Object, bool, error)
	Save(ctx context.Context, objects []Object) error
}

// Index: индекс объектов в памяти: ключ -> размер и тип.
type Index struct {
	bucket Bucket
	cache  IndexCache // может быть nil
	logger *zap.SugaredLogger

	mu      sync.RWMutex
	objects map[string]Object
}

func NewIndex(b Bucket, cache IndexCache, logger *zap.SugaredLogger) *Index {
	return &Index{bucket: b, cache: cache, logger: logger, objects: map[string]Object{}}
}

// Refresh перечитывает бакет и обновляет кэш. Возвращает число объектов.
func (x *Index) Refresh(ctx context.Context) (int, error) {
	started := time.Now()
	list, err := x.bucket.List(ctx)
	if err != nil {
		return 0, err
	}
	x.replace(list)
	if x.cache != nil {
		if err := x.cache.Save(ctx, list); err != nil && x.logger != nil {
			x.logger.Warnw("index cache save failed", "error", err)
		}
	}
	if x.logger != nil {
		x.logger.Infow("audio index refreshed", "count", len(list), "took", time.Since(started).String())
	}
	return len(list), nil
}

func (x *Index) replace(list []Object) {
	m := make(map[string]Object, len(list))
	for _, o := range list {
		m[o.Key] = o
	}
	x.mu.Lock()
	x.objects = m
	x.mu.Unlock()
}

func (x *Index) empty() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.objects) == 0
}

// warm заполняет пустой индекс: сначала из кэша, затем из бакета.
func (x *Index) warm(ctx context.Context) error {
	if !x.empty() {
		return nil
	}
	if x.cache != nil {
		list, ok, err := x.cache.Load(ctx)
		if err != nil && x.logger != nil {
			x.logger.Warnw("index cache load failed", "error", err)
		}
		if ok && len(list) > 0 {
			x.replace(list)
			return nil
		}
	}
	_, err := x.Refresh(ctx)
	return err
}

// All возвращает объекты, отсортированные по ключу.
func (x *Index) All(ctx context.Context) ([]Object, error) {
	if err := x.warm(ctx); err != nil {
		return nil, err
	}
	x.mu.RLock()
	out := make([]Object, 0, len(x.objects))
	for _, o := range x.objects {
		out = append(out, o)
	}
	x.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Lookup ищет ключ; при промахе один раз перечитывает бакет (свежая загрузка).
func (x *Index) Lookup(ctx context.Context, key string) (Object, bool, error) {
	if err := x.warm(ctx); err != nil {
		return Object{}, false, err
	}
	if o, ok := x.get(key); ok {
		return o, true, nil
	}
	if _, err := x.Refresh(ctx); err != nil {
		return Object{}, false, err
	}
	o, ok := x.get(key)
	return o, ok, nil
}

func (x *Index) get(key string) (Object, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	o, ok := x.objects[key]
	return o, ok
}
