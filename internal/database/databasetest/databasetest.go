// Package databasetest поднимает мигрированную SQLite-базу в памяти для тестов.
package databasetest

import (
	"testing"

	"github.com/jmoiron/sqlx"

	"filevault/internal/database"
)

func New(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open(database.DriverSQLite, "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// каждое соединение к :memory: - отдельная база
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}
