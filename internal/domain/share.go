package domain

import (
	"time"

	"github.com/google/uuid"
)

type ShareLink struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	FileID        uuid.UUID  `json:"fileId" db:"file_id"`
	Token         string     `json:"token" db:"token"`
	PasswordHash  *string    `json:"-" db:"password_hash"`
	ExpiresAt     *time.Time `json:"expiresAt" db:"expires_at"`
	DownloadCount int64      `json:"downloadCount" db:"download_count"`
	IsActive      bool       `json:"isActive" db:"is_active"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

// HasPassword сообщает, защищена ли ссылка паролем
func (l *ShareLink) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

// IsExpiredAt вычисляет истечение срока на момент now; в базе это состояние не хранится
func (l *ShareLink) IsExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// DenyReason - причина отказа в доступе по ссылке
type DenyReason string

const (
	DenyNone              DenyReason = ""
	DenyNotFound          DenyReason = "not_found"
	DenyExpired           DenyReason = "expired"
	DenyPasswordRequired  DenyReason = "password_required"
	DenyPasswordIncorrect DenyReason = "password_incorrect"
)

type AccessDecision struct {
	Reason DenyReason
}

func Allow() AccessDecision { return AccessDecision{} }

func Deny(reason DenyReason) AccessDecision { return AccessDecision{Reason: reason} }

func (d AccessDecision) Allowed() bool { return d.Reason == DenyNone }

// Err переводит решение в ошибку из таксономии домена
func (d AccessDecision) Err() error {
	switch d.Reason {
	case DenyNone:
		return nil
	case DenyExpired:
		return ErrExpired
	case DenyPasswordRequired:
		return ErrPasswordRequired
	case DenyPasswordIncorrect:
		return ErrPasswordIncorrect
	default:
		return ErrNotFound
	}
}

// ShareInfo - публичные сведения о ссылке, доступные по одному токену
type ShareInfo struct {
	ID            uuid.UUID  `json:"id"`
	FileName      string     `json:"fileName"`
	FileSize      int64      `json:"fileSize"`
	MIMEType      string     `json:"mimeType"`
	HasPassword   bool       `json:"hasPassword"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	IsExpired     bool       `json:"isExpired"`
	DownloadCount int64      `json:"downloadCount"`
}

// DownloadGrant - результат успешной проверки доступа
type DownloadGrant struct {
	DownloadURL string `json:"downloadUrl"`
	FileName    string `json:"fileName"`
}
