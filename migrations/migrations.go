// Package migrations содержит SQL-миграции схемы, общие для PostgreSQL и SQLite.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
