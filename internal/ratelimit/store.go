// Package ratelimit ограничивает частоту запросов фиксированным окном на ключ.
package ratelimit

import (
	"context"
	"time"
)

// Window - состояние окна после учета очередного запроса
type Window struct {
	Count   int64
	ResetAt time.Time
}

// Store хранит счетчики окон. Increment атомарно открывает новое окно,
// если текущее истекло, и учитывает запрос.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (Window, error)
	Reset(ctx context.Context, key string) error
	Cleanup(ctx context.Context) error
}
