// Package gcs выдает V4-подписанные ссылки на объекты Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"filevault/internal/config"
	"filevault/internal/logging"
)

type Store struct {
	bucket     string
	email      string
	privateKey []byte
	ttl        time.Duration
	client     *storage.Client
	now        func() time.Time
}

// NewStore подготавливает подпись ссылок. Если клиент GCS создать не удалось,
// ссылки все равно выдаются, а удаление объектов отключается.
func NewStore(ctx context.Context, conf config.GCSConfig, ttl time.Duration) *Store {
	s := newStore(conf, ttl)

	client, err := storage.NewClient(ctx)
	if err != nil {
		logging.Warn("gcs client unavailable, object deletion disabled", zap.Error(err))
	} else {
		s.client = client
	}
	return s
}

func newStore(conf config.GCSConfig, ttl time.Duration) *Store {
	return &Store{
		bucket: conf.Bucket,
		email:  conf.SigningEmail,
		// ключ из окружения приходит с экранированными переводами строк
		privateKey: []byte(strings.ReplaceAll(conf.PrivateKey, `\n`, "\n")),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (s *Store) PresignGet(_ context.Context, key, fileName string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}

	// X-Goog-Expires отсчитывается от момента подписи и обрезается до секунд
	expires := s.now().Add(s.ttl).Truncate(time.Second).Add(time.Second)
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        expires,
		GoogleAccessID: s.email,
		PrivateKey:     s.privateKey,
	}
	if fileName != "" {
		opts.QueryParameters = map[string][]string{
			"response-content-disposition": {
				mime.FormatMediaType("attachment", map[string]string{"filename": fileName}),
			},
		}
	}

	url, err := storage.SignedURL(s.bucket, key, opts)
	if err != nil {
		return "", fmt.Errorf("failed to sign url: %w", err)
	}
	return url, nil
}

func (s *Store) DeleteObject(ctx context.Context, key string) error {
	if s.client == nil {
		return fmt.Errorf("gcs client is not configured")
	}

	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object from GCS: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
