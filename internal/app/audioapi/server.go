// Package audioapi раздаёт выпуски из бакета: список и потоковое воспроизведение с Range.
package audioapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"Newspods/internal/service/storage"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Server: HTTP-обработчики поверх индекса и бакета.
type Server struct {
	index  *storage.Index
	bucket storage.Bucket
	name   string // имя бакета для ответа /audios
	prefix string
	logger *zap.SugaredLogger
}

func New(index *storage.Index, bucket storage.Bucket, bucketName, prefix string, logger *zap.SugaredLogger) *Server {
	return &Server{index: index, bucket: bucket, name: bucketName, prefix: prefix, logger: logger}
}

// Routes собирает роутер chi со всеми маршрутами.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors)

	r.Get("/audios", s.listAudios)
	r.Get("/stream", s.stream)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Post("/refresh-index", s.refreshIndex)
	return r
}

type audioFile struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

type listResponse struct {
	Bucket string      `json:"bucket"`
	Prefix string      `json:"prefix"`
	Count  int         `json:"count"`
	Files  []audioFile `json:"files"`
}

func (s *Server) listAudios(w http.ResponseWriter, r *http.Request) {
	objects, err := s.index.All(r.Context())
	if err != nil {
		s.logger.Errorw("list audios failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list audio files")
		return
	}
	files := lo.Map(objects, func(o storage.Object, _ int) audioFile {
		return audioFile{Key: o.Key, Name: strings.TrimPrefix(o.Key, s.prefix), Size: o.Size, ContentType: o.ContentType}
	})
	writeJSON(w, http.StatusOK, listResponse{Bucket: s.name, Prefix: s.prefix, Count: len(files), Files: files})
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "Missing query param: key")
		return
	}
	obj, ok, err := s.index.Lookup(r.Context(), key)
	if err != nil {
		s.logger.Errorw("index lookup failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "Streaming failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Audio not found")
		return
	}

	rng, err := parseRange(r.Header.Get("Range"), obj.Size)
	if errors.Is(err, errUnsatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", obj.Size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	start, end := int64(0), int64(-1)
	if rng.partial {
		start, end = rng.start, rng.end
	}
	body, err := s.bucket.Open(r.Context(), key, start, end)
	if err != nil {
		s.logger.Errorw("open object failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "Streaming failed")
		return
	}
	defer body.Close()

	h := w.Header()
	h.Set("Content-Type", obj.ContentType)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", "public, max-age=86400, immutable")
	status := http.StatusOK
	if rng.partial {
		status = http.StatusPartialContent
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, obj.Size))
		h.Set("Content-Length", strconv.FormatInt(rng.end-rng.start+1, 10))
	} else {
		h.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(status)

	// заголовки уже отправлены; обрыв потока только логируем
	if n, err := io.Copy(w, body); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warnw("stream interrupted", "key", key, "written", n, "error", err)
	}
}

func (s *Server) refreshIndex(w http.ResponseWriter, r *http.Request) {
	n, err := s.index.Refresh(r.Context())
	if err != nil {
		s.logger.Errorw("refresh index failed", "error", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": n})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"requestID", chimiddleware.GetReqID(r.Context()),
			"took", time.Since(started).String(),
		)
	})
}

// cors открывает API для любого источника: плеер живёт на другом домене.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range, Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Range, Content-Length, Accept-Ranges")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
