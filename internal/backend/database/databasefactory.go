package database

import (
	"context"
	"fmt"
	"log/slog"
)

// NewDatabase opens the store for the given driver type. With ensureSchema the
// table is created if missing, which in-memory SQLite databases need.
func NewDatabase(ctx context.Context, databaseType, connectionString string, ensureSchema bool) (database DatabaseService, err error) {
	switch databaseType {
	case "sqlite":
		database, err = NewSQLiteDatabase(connectionString)
	case "postgres":
		database, err = NewPostgresDatabase(connectionString)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}
	if err != nil {
		return nil, err
	}

	if ensureSchema {
		slog.Debug("initializing database schema (ensuring tables exist)", "type", databaseType)
		if err = database.CreateSchema(ctx); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to create database schema: %w", err)
		}
	}

	return database, nil
}
