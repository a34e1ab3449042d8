package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kandev/androidctl/internal/common/config"
	"github.com/kandev/androidctl/internal/db/dialect"
)

// Open opens a Pool for cfg.Driver ("sqlite" or "pgx") and returns it
// alongside the driver name, for callers that need dialect-aware SQL
// (see internal/db/dialect).
func Open(cfg config.DatabaseConfig) (*Pool, string, error) {
	switch cfg.Driver {
	case "pgx":
		writer, err := OpenPostgres(cfg.DSN(), cfg.MaxConns, cfg.MinConns)
		if err != nil {
			return nil, "", err
		}
		wrapped := sqlx.NewDb(writer, dialect.PGX)
		return NewPool(wrapped, wrapped), dialect.PGX, nil
	case "sqlite", "":
		writer, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, "", err
		}
		reader, err := OpenSQLiteReader(cfg.Path)
		if err != nil {
			_ = writer.Close()
			return nil, "", err
		}
		return NewPool(sqlx.NewDb(writer, dialect.SQLite3), sqlx.NewDb(reader, dialect.SQLite3)), dialect.SQLite3, nil
	default:
		return nil, "", fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}
