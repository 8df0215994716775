package repository

import (
	"database/sql"
	"errors"

	"filevault/internal/domain"
)

// notFound переводит sql.ErrNoRows в доменную ошибку
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
