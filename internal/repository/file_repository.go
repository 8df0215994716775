package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"filevault/internal/domain"
)

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	query := r.db.Rebind(`
        INSERT INTO files (
            id, name, size_bytes, mime_type, object_path,
            folder_id, owner_id, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		file.ID,
		file.Name,
		file.SizeBytes,
		file.MIMEType,
		file.ObjectPath,
		file.FolderID,
		file.OwnerID,
		file.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	query := r.db.Rebind(`
        SELECT id, name, size_bytes, mime_type, object_path, folder_id, owner_id, created_at
        FROM files
        WHERE id = ?`)

	var file domain.File
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		return nil, fmt.Errorf("failed to get file: %w", notFound(err))
	}
	return &file, nil
}

// ListByFolder возвращает файлы папки; nil означает корень владельца
func (r *FileRepository) ListByFolder(ctx context.Context, ownerID string, folderID *uuid.UUID) ([]domain.File, error) {
	var (
		query string
		args  []interface{}
	)
	if folderID == nil {
		query = `
        SELECT id, name, size_bytes, mime_type, object_path, folder_id, owner_id, created_at
        FROM files
        WHERE owner_id = ? AND folder_id IS NULL
        ORDER BY created_at DESC, name`
		args = []interface{}{ownerID}
	} else {
		query = `
        SELECT id, name, size_bytes, mime_type, object_path, folder_id, owner_id, created_at
        FROM files
        WHERE owner_id = ? AND folder_id = ?
        ORDER BY created_at DESC, name`
		args = []interface{}{ownerID, *folderID}
	}

	files := []domain.File{}
	if err := r.db.SelectContext(ctx, &files, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// Delete удаляет файл владельца вместе с его ссылками.
// Возвращает удаленную запись или nil, если удалять было нечего.
func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID, ownerID string) (*domain.File, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var files []domain.File
	err = tx.SelectContext(ctx, &files, tx.Rebind(`
        SELECT id, name, size_bytes, mime_type, object_path, folder_id, owner_id, created_at
        FROM files
        WHERE id = ? AND owner_id = ?`), id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check file: %w", err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM share_links WHERE file_id = ?`), id); err != nil {
		return nil, fmt.Errorf("failed to delete share links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM files WHERE id = ? AND owner_id = ?`), id, ownerID); err != nil {
		return nil, fmt.Errorf("failed to delete file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit file deletion: %w", err)
	}
	return &files[0], nil
}
