package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"filevault/internal/domain"
	"filevault/internal/logging"
	"filevault/internal/repository"
	"filevault/internal/security"
)

// ShareService управляет жизненным циклом публичных ссылок.
// Срок действия не хранится как состояние, он вычисляется при каждом чтении.
type ShareService struct {
	shareRepo *repository.ShareRepository
	hasher    *security.PasswordHasher
	now       func() time.Time
}

func NewShareService(shareRepo *repository.ShareRepository, hasher *security.PasswordHasher) *ShareService {
	return &ShareService{
		shareRepo: shareRepo,
		hasher:    hasher,
		now:       time.Now,
	}
}

// Create выпускает новую ссылку на файл. Пустой пароль означает ссылку без пароля.
func (s *ShareService) Create(ctx context.Context, fileID uuid.UUID, password *string, expiresAt *time.Time) (*domain.ShareLink, error) {
	now := s.now().UTC()

	if expiresAt != nil {
		if !expiresAt.After(now) {
			return nil, fmt.Errorf("%w: expiration must be in the future", domain.ErrValidation)
		}
		utc := expiresAt.UTC()
		expiresAt = &utc
	}

	token, err := security.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	var passwordHash *string
	if password != nil && *password != "" {
		hash, err := s.hasher.HashPassword(*password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = &hash
	}

	link := &domain.ShareLink{
		ID:            uuid.New(),
		FileID:        fileID,
		Token:         token,
		PasswordHash:  passwordHash,
		ExpiresAt:     expiresAt,
		DownloadCount: 0,
		IsActive:      true,
		CreatedAt:     now,
	}
	if err := s.shareRepo.Create(ctx, link); err != nil {
		return nil, err
	}

	logging.Info("share link created",
		zap.String("share_id", link.ID.String()),
		zap.String("file_id", fileID.String()),
		zap.Bool("password", passwordHash != nil),
		zap.Bool("expires", expiresAt != nil))

	return link, nil
}

// ResolveByToken находит активную ссылку. Неактивная, неизвестная и
// синтаксически неверная ссылка неразличимы для вызывающего.
func (s *ShareService) ResolveByToken(ctx context.Context, token string) (*domain.ShareLink, error) {
	if !security.IsShareToken(token) {
		return nil, domain.ErrNotFound
	}

	link, err := s.shareRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !link.IsActive {
		return nil, domain.ErrNotFound
	}
	return link, nil
}

// CheckAccess проверяет ссылку по порядку: существование, срок, наличие пароля, пароль.
// Просроченная ссылка отклоняется раньше проверки пароля.
func (s *ShareService) CheckAccess(link *domain.ShareLink, password *string) domain.AccessDecision {
	if link == nil || !link.IsActive {
		return domain.Deny(domain.DenyNotFound)
	}
	if link.IsExpiredAt(s.now()) {
		return domain.Deny(domain.DenyExpired)
	}
	if link.HasPassword() {
		if password == nil || *password == "" {
			return domain.Deny(domain.DenyPasswordRequired)
		}
		if !s.hasher.VerifyPassword(*password, *link.PasswordHash) {
			return domain.Deny(domain.DenyPasswordIncorrect)
		}
	}
	return domain.Allow()
}

func (s *ShareService) IsExpired(link *domain.ShareLink) bool {
	return link.IsExpiredAt(s.now())
}

func (s *ShareService) RecordDownload(ctx context.Context, id uuid.UUID) error {
	return s.shareRepo.IncrementDownloadCount(ctx, id)
}

func (s *ShareService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ShareLink, error) {
	return s.shareRepo.GetByID(ctx, id)
}

func (s *ShareService) ListByFile(ctx context.Context, fileID uuid.UUID) ([]domain.ShareLink, error) {
	return s.shareRepo.ListActiveByFile(ctx, fileID)
}

// Delete удаляет ссылку безвозвратно; повторное удаление не ошибка
func (s *ShareService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.shareRepo.Delete(ctx, id)
}

// Revoke отключает ссылку, сохраняя запись и счетчик скачиваний
func (s *ShareService) Revoke(ctx context.Context, id uuid.UUID) error {
	if _, err := s.shareRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	return s.shareRepo.Deactivate(ctx, id)
}
