package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"filevault/internal/config"
	"filevault/internal/logging"
)

const (
	MessageAPI   = "Rate limit exceeded. Please slow down your requests."
	MessageShare = "Too many download attempts. Please try again in a few minutes."
)

type Limiter struct {
	store   Store
	prefix  string
	window  time.Duration
	max     int64
	message string
	now     func() time.Time
}

// New создает ограничитель; prefix разделяет счетчики разных ограничителей
func New(store Store, prefix string, cfg config.LimitConfig, message string) *Limiter {
	return &Limiter{
		store:   store,
		prefix:  prefix,
		window:  cfg.Window,
		max:     cfg.MaxRequests,
		message: message,
		now:     time.Now,
	}
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.prefix + ":" + clientIP(r)

		win, err := l.store.Increment(r.Context(), key, l.window)
		if err != nil {
			// хранилище недоступно - пропускаем запрос
			logging.Error("rate limit store failed", zap.String("key", key), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		remaining := l.max - win.Count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(l.max, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", win.ResetAt.UTC().Format(time.RFC3339))

		if win.Count > l.max {
			retryAfter := int64(math.Ceil(win.ResetAt.Sub(l.now()).Seconds()))
			if retryAfter < 0 {
				retryAfter = 0
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"message":    l.message,
				"retryAfter": retryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP берет адрес из RemoteAddr, который уже выставлен middleware.RealIP
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
