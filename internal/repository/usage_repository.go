package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"filevault/internal/domain"
)

type UsageRepository struct {
	db *sqlx.DB
}

func NewUsageRepository(db *sqlx.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) GetStats(ctx context.Context, ownerID string) (*domain.UsageStats, error) {
	query := r.db.Rebind(`
        SELECT
            (SELECT COUNT(*) FROM files WHERE owner_id = ?) AS total_files,
            (SELECT COUNT(*) FROM folders WHERE owner_id = ?) AS total_folders,
            (SELECT CAST(COALESCE(SUM(size_bytes), 0) AS BIGINT) FROM files WHERE owner_id = ?) AS total_size`)

	var stats domain.UsageStats
	if err := r.db.GetContext(ctx, &stats, query, ownerID, ownerID, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get usage stats: %w", err)
	}
	return &stats, nil
}
