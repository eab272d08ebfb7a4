package database

import (
	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name: "sqlite",
	createTable: `CREATE TABLE IF NOT EXISTS ` + tableName + ` (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		batch_name TEXT NOT NULL,
		url TEXT NOT NULL,
		downloaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		image BLOB NOT NULL
	)`,
	insert: `INSERT INTO ` + tableName + ` (id, title, batch_name, url, downloaded_at, image)
		VALUES (?, ?, ?, ?, ?, ?)`,
	insertNoTime: `INSERT INTO ` + tableName + ` (id, title, batch_name, url, image)
		VALUES (?, ?, ?, ?, ?)`,
	selectRandom: `SELECT id, title, batch_name, url, downloaded_at, image
		FROM ` + tableName + `
		ORDER BY RANDOM()
		LIMIT 1`,
	countRows: `SELECT COUNT(*) FROM ` + tableName,
	dropTable: `DROP TABLE IF EXISTS ` + tableName,
	// A single connection keeps ":memory:" databases shared across calls.
	maxOpenConns:    1,
	afterOpenPragma: []string{"PRAGMA busy_timeout = 5000"},
}

// NewSQLiteDatabase opens a SQLite database via modernc.org/sqlite.
func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	return openSQLDatabase("sqlite", connectionString, sqliteDialect)
}
