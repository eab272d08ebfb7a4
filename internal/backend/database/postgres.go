package database

import (
	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	name: "postgres",
	createTable: `CREATE TABLE IF NOT EXISTS ` + tableName + ` (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		batch_name TEXT NOT NULL,
		url TEXT NOT NULL,
		downloaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		image BYTEA NOT NULL
	)`,
	insert: `INSERT INTO ` + tableName + ` (id, title, batch_name, url, downloaded_at, image)
		VALUES ($1, $2, $3, $4, $5, $6)`,
	insertNoTime: `INSERT INTO ` + tableName + ` (id, title, batch_name, url, image)
		VALUES ($1, $2, $3, $4, $5)`,
	selectRandom: `SELECT id, title, batch_name, url, downloaded_at, image
		FROM ` + tableName + `
		ORDER BY RANDOM()
		LIMIT 1`,
	countRows: `SELECT COUNT(*) FROM ` + tableName,
	dropTable: `DROP TABLE IF EXISTS ` + tableName,
}

// NewPostgresDatabase opens a PostgreSQL database via lib/pq. The connection
// string is either a URL (postgres://...) or a key=value DSN.
func NewPostgresDatabase(connectionString string) (DatabaseService, error) {
	return openSQLDatabase("postgres", connectionString, postgresDialect)
}
