package tasks

import (
	"context"
	"errors"
	"strings"
)

// NewStore picks a backend from the scheme of databaseURL:
//
//	postgres://, postgresql://  pgx connection pool
//	mysql://<dsn>               go-sql-driver/mysql
//	memory://                   in-process map
//	sqlite://<path>, file:..., or a bare path  modernc sqlite
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	raw := strings.TrimSpace(databaseURL)
	lower := strings.ToLower(raw)
	switch {
	case raw == "":
		return nil, errors.New("database url is empty")
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return NewPostgresStore(ctx, raw)
	case strings.HasPrefix(lower, "mysql://"):
		return NewMySQLStore(ctx, raw[len("mysql://"):])
	case strings.HasPrefix(lower, "memory://"):
		return NewMemoryStore(), nil
	case strings.HasPrefix(lower, "sqlite://"):
		return NewSQLiteStore(ctx, raw[len("sqlite://"):])
	default:
		return NewSQLiteStore(ctx, raw)
	}
}
