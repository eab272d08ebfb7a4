package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jo-hoe/imageset/internal/failure"
)

const tableName = "tb_images"

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	name            string
	createTable     string
	insert          string
	insertNoTime    string
	selectRandom    string
	countRows       string
	dropTable       string
	maxOpenConns    int
	afterOpenPragma []string
}

// sqlDatabase implements DatabaseService on top of database/sql.
type sqlDatabase struct {
	db      *sql.DB
	dialect dialect
}

func openSQLDatabase(driverName, connectionString string, d dialect) (*sqlDatabase, error) {
	db, err := sql.Open(driverName, connectionString)
	if err != nil {
		return nil, failure.New(failure.KindPersistence, "open "+d.name+" database", err)
	}
	if d.maxOpenConns > 0 {
		db.SetMaxOpenConns(d.maxOpenConns)
	}
	for _, pragma := range d.afterOpenPragma {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, failure.New(failure.KindPersistence, "open "+d.name+" database", fmt.Errorf("%s: %w", pragma, err))
		}
	}

	return &sqlDatabase{db: db, dialect: d}, nil
}

func (s *sqlDatabase) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable); err != nil {
		return failure.New(failure.KindPersistence, "create schema", err)
	}
	return nil
}

func (s *sqlDatabase) DropSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.dropTable); err != nil {
		return failure.New(failure.KindPersistence, "drop schema", err)
	}
	return nil
}

func (s *sqlDatabase) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return failure.New(failure.KindPersistence, "ping", err)
	}
	return nil
}

func (s *sqlDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *sqlDatabase) Insert(ctx context.Context, record ImageRecordInput) (string, error) {
	const op = "insert image"

	id, err := generateID()
	if err != nil {
		return "", failure.New(failure.KindPersistence, op, fmt.Errorf("failed to generate id: %w", err))
	}

	if record.DownloadedAt.IsZero() {
		_, err = s.db.ExecContext(ctx, s.dialect.insertNoTime,
			id, record.Title, record.BatchName, record.URL, record.Image)
	} else {
		_, err = s.db.ExecContext(ctx, s.dialect.insert,
			id, record.Title, record.BatchName, record.URL, record.DownloadedAt, record.Image)
	}
	if err != nil {
		return "", failure.New(failure.KindPersistence, op, err)
	}
	return id, nil
}

// SelectRandom orders the whole table by a random key, which costs
// O(n log n) per call. That is fine for a few thousand rows.
func (s *sqlDatabase) SelectRandom(ctx context.Context) (*ImageRecord, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.selectRandom)

	var img ImageRecord
	var downloadedAt sql.NullTime
	err := row.Scan(&img.ID, &img.Title, &img.BatchName, &img.URL, &downloadedAt, &img.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, failure.New(failure.KindPersistence, "select random image", err)
	}
	if downloadedAt.Valid {
		img.DownloadedAt = downloadedAt.Time
	}
	return &img, nil
}

func (s *sqlDatabase) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.countRows).Scan(&n); err != nil {
		return 0, failure.New(failure.KindPersistence, "count images", err)
	}
	return n, nil
}
