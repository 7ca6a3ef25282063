// Package storage хранит выпуски в бакете Backblaze B2 через S3-совместимый API.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"Newspods/internal/apperr"
	"Newspods/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Object: запись бакета под префиксом выпусков.
type Object struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Store: клиент бакета. Создаётся на запуск утилиты и передаётся явно.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
	logger *zap.SugaredLogger
}

// New проверяет конфигурацию до создания клиента; сеть не используется.
func New(cfg config.StorageConfig, logger *zap.SugaredLogger) (*Store, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.KeyID, cfg.AppKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, apperr.Configuration("storage", "minio client: "+err.Error())
	}
	return &Store{client: client, bucket: cfg.Bucket, prefix: cleanPrefix(cfg.Prefix), logger: logger}, nil
}

func (s *Store) Bucket() string { return s.bucket }

// Prefix возвращает префикс ключей со слэшем на конце, или пустую строку.
func (s *Store) Prefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}

func cleanPrefix(p string) string { return strings.Trim(strings.TrimSpace(p), "/") }

// ObjectKey: детерминированный ключ <prefix>/<имя файла>.
func ObjectKey(prefix, localPath string) string {
	name := path.Base(filepath.ToSlash(localPath))
	if p := cleanPrefix(prefix); p != "" {
		return p + "/" + name
	}
	return name
}

// EnsureBucket проверяет, что бакет существует. Отсутствие бакета: ошибка конфигурации.
func (s *Store) EnsureBucket(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return upstream("bucket check", err)
	}
	if !ok {
		return apperr.Configuration("storage", fmt.Sprintf("bucket %q not found (check B2_BUCKET_NAME)", s.bucket))
	}
	return nil
}

// Upload загружает локальный файл под ключом ObjectKey(prefix, файл) и возвращает ключ.
// Пустой contentType определяется по расширению.
func (s *Store) Upload(ctx context.Context, localPath, contentType string) (string, error) {
	st, err := os.Stat(localPath)
	if err != nil {
		return "", apperr.IO("storage upload", err)
	}
	if st.IsDir() {
		return "", apperr.Validationf("storage upload", "%s is a directory", localPath)
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = ContentTypeOf(localPath, "")
	}

	key := ObjectKey(s.prefix, localPath)
	started := time.Now()
	info, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=86400, immutable",
	})
	if err != nil {
		return "", upstream("upload", err)
	}
	if s.logger != nil {
		s.logger.Infow("upload completed",
			"bucket", s.bucket,
			"key", info.Key,
			"size", info.Size,
			"contentType", contentType,
			"took", time.Since(started).String(),
		)
	}
	return key, nil
}

// List перечисляет объекты под префиксом.
func (s *Store) List(ctx context.Context) ([]Object, error) {
	var out []Object
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.Prefix(), Recursive: true}) {
		if info.Err != nil {
			return nil, upstream("list", info.Err)
		}
		if strings.HasSuffix(info.Key, "/") {
			continue
		}
		out = append(out, Object{
			Key:         info.Key,
			Name:        strings.TrimPrefix(info.Key, s.Prefix()),
			Size:        info.Size,
			ContentType: ContentTypeOf(info.Key, info.ContentType),
		})
	}
	return out, nil
}

// Open открывает байты [start, end] объекта включительно; end < 0 означает весь объект.
func (s *Store) Open(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if end >= 0 {
		if err := opts.SetRange(start, end); err != nil {
			return nil, apperr.Validationf("storage open", "range %d-%d: %v", start, end, err)
		}
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, opts)
	if err != nil {
		return nil, upstream("open", err)
	}
	return obj, nil
}

// ContentTypeOf: тип из метаданных, иначе по расширению, иначе audio/mpeg.
func ContentTypeOf(name, reported string) string {
	if reported != "" {
		return reported
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg", ".opus":
		return "audio/ogg"
	}
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "audio/mpeg"
}

func upstream(op string, err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.StatusCode != 0 {
		reason := resp.Message
		if reason == "" {
			reason = resp.Code
		}
		return &apperr.Error{Kind: apperr.ErrUpstream, Op: "storage " + op, Status: resp.StatusCode, Reason: reason, Err: err}
	}
	return apperr.Upstream("storage "+op, err.Error(), err)
}
