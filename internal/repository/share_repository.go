package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"filevault/internal/domain"
)

const shareColumns = `id, file_id, token, password_hash, expires_at, download_count, is_active, created_at`

type ShareRepository struct {
	db *sqlx.DB
}

func NewShareRepository(db *sqlx.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

func (r *ShareRepository) Create(ctx context.Context, link *domain.ShareLink) error {
	query := r.db.Rebind(`
        INSERT INTO share_links (` + shareColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		link.ID,
		link.FileID,
		link.Token,
		link.PasswordHash,
		link.ExpiresAt,
		link.DownloadCount,
		link.IsActive,
		link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create share link: %w", err)
	}
	return nil
}

func (r *ShareRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ShareLink, error) {
	query := r.db.Rebind(`SELECT ` + shareColumns + ` FROM share_links WHERE id = ?`)

	var link domain.ShareLink
	if err := r.db.GetContext(ctx, &link, query, id); err != nil {
		return nil, fmt.Errorf("failed to get share link: %w", notFound(err))
	}
	return &link, nil
}

// GetByToken ищет ссылку по точному совпадению токена, включая неактивные
func (r *ShareRepository) GetByToken(ctx context.Context, token string) (*domain.ShareLink, error) {
	query := r.db.Rebind(`SELECT ` + shareColumns + ` FROM share_links WHERE token = ?`)

	var link domain.ShareLink
	if err := r.db.GetContext(ctx, &link, query, token); err != nil {
		return nil, fmt.Errorf("failed to get share link: %w", notFound(err))
	}
	return &link, nil
}

func (r *ShareRepository) ListActiveByFile(ctx context.Context, fileID uuid.UUID) ([]domain.ShareLink, error) {
	query := r.db.Rebind(`
        SELECT ` + shareColumns + `
        FROM share_links
        WHERE file_id = ? AND is_active = ?
        ORDER BY created_at DESC`)

	links := []domain.ShareLink{}
	if err := r.db.SelectContext(ctx, &links, query, fileID, true); err != nil {
		return nil, fmt.Errorf("failed to list share links: %w", err)
	}
	return links, nil
}

// IncrementDownloadCount увеличивает счетчик одним UPDATE, без чтения значения
func (r *ShareRepository) IncrementDownloadCount(ctx context.Context, id uuid.UUID) error {
	query := r.db.Rebind(`
        UPDATE share_links
        SET download_count = download_count + 1
        WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment download count: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("failed to increment download count: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *ShareRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := r.db.Rebind(`UPDATE share_links SET is_active = ? WHERE id = ?`)

	if _, err := r.db.ExecContext(ctx, query, false, id); err != nil {
		return fmt.Errorf("failed to deactivate share link: %w", err)
	}
	return nil
}

// Delete удаляет ссылку; отсутствие строки ошибкой не считается
func (r *ShareRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := r.db.Rebind(`DELETE FROM share_links WHERE id = ?`)

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete share link: %w", err)
	}
	return nil
}
