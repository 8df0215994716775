// Package security содержит генерацию токенов и проверку учетных данных
// для ссылок общего доступа и анти-CSRF защиты.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	tokenBytes     = 32 // 256 бит энтропии
	ShareTokenLen  = tokenBytes * 2
	csrfTokenBytes = 32
)

// GenerateToken возвращает токен ссылки: 64 hex-символа
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateCSRFToken возвращает анти-CSRF токен в base64
func GenerateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// IsShareToken проверяет только формат: токен другой формы заведомо не найдется в базе
func IsShareToken(s string) bool {
	if len(s) != ShareTokenLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
