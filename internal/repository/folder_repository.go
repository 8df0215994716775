package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"filevault/internal/domain"
	"filevault/internal/logging"
)

// maxFolderDepth ограничивает обход предков, даже если в таблице окажется цикл
const maxFolderDepth = 1024

type FolderRepository struct {
	db *sqlx.DB
}

func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	query := r.db.Rebind(`
        INSERT INTO folders (id, name, parent_id, owner_id, created_at)
        VALUES (?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		folder.ID,
		folder.Name,
		folder.ParentID,
		folder.OwnerID,
		folder.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

func (r *FolderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Folder, error) {
	query := r.db.Rebind(`
        SELECT id, name, parent_id, owner_id, created_at
        FROM folders
        WHERE id = ?`)

	var folder domain.Folder
	if err := r.db.GetContext(ctx, &folder, query, id); err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", notFound(err))
	}
	return &folder, nil
}

// ListByParent возвращает подпапки parentID; nil означает корень владельца
func (r *FolderRepository) ListByParent(ctx context.Context, ownerID string, parentID *uuid.UUID) ([]domain.Folder, error) {
	var (
		query string
		args  []interface{}
	)
	if parentID == nil {
		query = `
        SELECT id, name, parent_id, owner_id, created_at
        FROM folders
        WHERE owner_id = ? AND parent_id IS NULL
        ORDER BY name`
		args = []interface{}{ownerID}
	} else {
		query = `
        SELECT id, name, parent_id, owner_id, created_at
        FROM folders
        WHERE owner_id = ? AND parent_id = ?
        ORDER BY name`
		args = []interface{}{ownerID, *parentID}
	}

	folders := []domain.Folder{}
	if err := r.db.SelectContext(ctx, &folders, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// GetPath возвращает цепочку папок от корня до folderID включительно.
// Неизвестный id дает пустой срез.
func (r *FolderRepository) GetPath(ctx context.Context, folderID uuid.UUID) ([]domain.Folder, error) {
	query := r.db.Rebind(`
        WITH RECURSIVE ancestors (id, parent_id, depth) AS (
            SELECT id, parent_id, 0
            FROM folders
            WHERE id = ?

            UNION ALL

            SELECT f.id, f.parent_id, a.depth + 1
            FROM folders f
            INNER JOIN ancestors a ON f.id = a.parent_id
            WHERE a.depth < ?
        )
        SELECT f.id, f.name, f.parent_id, f.owner_id, f.created_at
        FROM ancestors a
        INNER JOIN folders f ON f.id = a.id
        ORDER BY a.depth DESC`)

	path := []domain.Folder{}
	if err := r.db.SelectContext(ctx, &path, query, folderID, maxFolderDepth); err != nil {
		return nil, fmt.Errorf("failed to get folder path: %w", err)
	}
	return path, nil
}

// DeleteTree удаляет папку, все вложенные папки, их файлы и ссылки на эти файлы
// в одной транзакции. Папка чужого владельца не трогается.
func (r *FolderRepository) DeleteTree(ctx context.Context, folderID uuid.UUID, ownerID string) (*domain.FolderDeletion, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := &domain.FolderDeletion{ObjectPaths: []string{}}

	var owned int
	err = tx.GetContext(ctx, &owned,
		tx.Rebind(`SELECT COUNT(*) FROM folders WHERE id = ? AND owner_id = ?`),
		folderID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check folder: %w", err)
	}
	if owned == 0 {
		return result, nil
	}

	levels, err := collectSubtree(ctx, tx, folderID, ownerID)
	if err != nil {
		return nil, err
	}

	all := make([]uuid.UUID, 0)
	for _, level := range levels {
		all = append(all, level...)
	}

	var files []struct {
		ID         uuid.UUID `db:"id"`
		ObjectPath string    `db:"object_path"`
	}
	if err := selectIn(ctx, tx, &files,
		`SELECT id, object_path FROM files WHERE folder_id IN (?) AND owner_id = ?`,
		all, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get files: %w", err)
	}
	for _, f := range files {
		result.ObjectPaths = append(result.ObjectPaths, f.ObjectPath)
	}
	result.Files = len(files)

	links, err := execIn(ctx, tx,
		`DELETE FROM share_links
         WHERE file_id IN (SELECT id FROM files WHERE folder_id IN (?) AND owner_id = ?)`,
		all, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete share links: %w", err)
	}
	result.ShareLinks = int(links)

	if _, err := execIn(ctx, tx,
		`DELETE FROM files WHERE folder_id IN (?) AND owner_id = ?`,
		all, ownerID); err != nil {
		return nil, fmt.Errorf("failed to delete files: %w", err)
	}

	// дети раньше родителей
	for i := len(levels) - 1; i >= 0; i-- {
		n, err := execIn(ctx, tx,
			`DELETE FROM folders WHERE id IN (?) AND owner_id = ?`,
			levels[i], ownerID)
		if err != nil {
			return nil, fmt.Errorf("failed to delete folders: %w", err)
		}
		result.Folders += int(n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit folder deletion: %w", err)
	}

	logging.Debug("folder tree deleted",
		zap.String("folder_id", folderID.String()),
		zap.Int("folders", result.Folders),
		zap.Int("files", result.Files),
		zap.Int("share_links", result.ShareLinks))

	return result, nil
}

// collectSubtree обходит поддерево рабочим списком, уровень за уровнем,
// без рекурсии. Первый уровень - сама папка.
func collectSubtree(ctx context.Context, tx *sqlx.Tx, rootID uuid.UUID, ownerID string) ([][]uuid.UUID, error) {
	levels := [][]uuid.UUID{{rootID}}
	seen := map[uuid.UUID]bool{rootID: true}

	for frontier := levels[0]; len(frontier) > 0; {
		var children []uuid.UUID
		if err := selectIn(ctx, tx, &children,
			`SELECT id FROM folders WHERE parent_id IN (?) AND owner_id = ?`,
			frontier, ownerID); err != nil {
			return nil, fmt.Errorf("failed to get child folders: %w", err)
		}

		next := make([]uuid.UUID, 0, len(children))
		for _, id := range children {
			if !seen[id] {
				seen[id] = true
				next = append(next, id)
			}
		}
		if len(next) > 0 {
			levels = append(levels, next)
		}
		frontier = next
	}

	return levels, nil
}

func selectIn(ctx context.Context, tx *sqlx.Tx, dest interface{}, query string, args ...interface{}) error {
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return tx.SelectContext(ctx, dest, tx.Rebind(q), expanded...)
}

func execIn(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int64, error) {
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(q), expanded...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
