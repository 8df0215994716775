package service

import "context"

// ObjectStore - внешнее хранилище содержимого файлов
type ObjectStore interface {
	PresignGet(ctx context.Context, key, fileName string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}
