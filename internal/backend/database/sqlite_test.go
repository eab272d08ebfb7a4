package database

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jo-hoe/imageset/internal/failure"
)

func newTestDB(t *testing.T) DatabaseService {
	t.Helper()

	ds, err := NewDatabase(context.Background(), "sqlite", ":memory:", true)
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func TestSQLite_InsertAndSelectRandom(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	downloadedAt := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	in := ImageRecordInput{
		Title:        "leptodactylus_pentadactylus_s_000004.png",
		BatchName:    "training batch 1 of 5",
		URL:          "https://www.cs.toronto.edu/~kriz/cifar-10-python.tar.gz",
		DownloadedAt: downloadedAt,
		Image:        []byte{0x89, 0x50, 0x4e, 0x47, 0x01, 0x02},
	}

	id, err := ds.Insert(ctx, in)
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}

	got, err := ds.SelectRandom(ctx)
	if err != nil {
		t.Fatalf("SelectRandom error: %v", err)
	}
	if got == nil {
		t.Fatalf("SelectRandom returned nil for non-empty table")
	}
	if got.ID != id {
		t.Errorf("ID = %q, want %q", got.ID, id)
	}
	if got.Title != in.Title || got.BatchName != in.BatchName || got.URL != in.URL {
		t.Errorf("metadata mismatch: got %+v", got)
	}
	if !bytes.Equal(got.Image, in.Image) {
		t.Errorf("image bytes mismatch: got %v, want %v", got.Image, in.Image)
	}
	if !got.DownloadedAt.Equal(downloadedAt) {
		t.Errorf("DownloadedAt = %v, want %v", got.DownloadedAt, downloadedAt)
	}
}

func TestSQLite_InsertGeneratesUUIDs(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	uuidV4Pattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

	const n = 32
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id, err := ds.Insert(ctx, ImageRecordInput{Title: "t", BatchName: "b", URL: "u", Image: []byte{1}})
		if err != nil {
			t.Fatalf("Insert #%d error: %v", i, err)
		}
		if !uuidV4Pattern.MatchString(id) {
			t.Fatalf("Insert returned invalid UUID v4: %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("Insert returned duplicate id: %q", id)
		}
		seen[id] = struct{}{}
	}

	count, err := ds.Count(ctx)
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if count != n {
		t.Errorf("Count = %d, want %d", count, n)
	}
}

func TestSQLite_InsertDefaultsTimestamp(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	if _, err := ds.Insert(ctx, ImageRecordInput{Title: "t", BatchName: "b", URL: "u", Image: []byte{1}}); err != nil {
		t.Fatalf("Insert error: %v", err)
	}

	got, err := ds.SelectRandom(ctx)
	if err != nil {
		t.Fatalf("SelectRandom error: %v", err)
	}
	if got.DownloadedAt.IsZero() {
		t.Fatalf("expected database default timestamp, got zero time")
	}
	if time.Since(got.DownloadedAt) > 24*time.Hour {
		t.Errorf("default timestamp %v is not recent", got.DownloadedAt)
	}
}

func TestSQLite_SelectRandom_Empty(t *testing.T) {
	ds := newTestDB(t)

	got, err := ds.SelectRandom(context.Background())
	if err != nil {
		t.Fatalf("SelectRandom error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil record for empty table, got %+v", got)
	}
}

func TestSQLite_SelectRandom_ReachesEveryRow(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	ids := map[string]bool{}
	for _, title := range []string{"a.png", "b.png", "c.png"} {
		id, err := ds.Insert(ctx, ImageRecordInput{Title: title, BatchName: "b", URL: "u", Image: []byte(title)})
		if err != nil {
			t.Fatalf("Insert error: %v", err)
		}
		ids[id] = false
	}

	for i := 0; i < 300; i++ {
		got, err := ds.SelectRandom(ctx)
		if err != nil {
			t.Fatalf("SelectRandom error: %v", err)
		}
		ids[got.ID] = true
	}
	for id, hit := range ids {
		if !hit {
			t.Errorf("row %s never selected", id)
		}
	}
}

func TestSQLite_CreateSchema_Idempotent(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	if _, err := ds.Insert(ctx, ImageRecordInput{Title: "t", BatchName: "b", URL: "u", Image: []byte{1}}); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if err := ds.CreateSchema(ctx); err != nil {
		t.Fatalf("second CreateSchema error: %v", err)
	}
	count, err := ds.Count(ctx)
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if count != 1 {
		t.Errorf("Count after re-create = %d, want 1", count)
	}
}

func TestSQLite_DropSchema(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	if err := ds.DropSchema(ctx); err != nil {
		t.Fatalf("DropSchema error: %v", err)
	}
	// dropping a missing table is not an error
	if err := ds.DropSchema(ctx); err != nil {
		t.Fatalf("second DropSchema error: %v", err)
	}

	_, err := ds.Count(ctx)
	if err == nil {
		t.Fatalf("expected error counting a dropped table")
	}
	if !errors.Is(err, failure.ErrPersistence) {
		t.Errorf("expected persistence error, got %v", err)
	}
}

func TestSQLite_Ping(t *testing.T) {
	ds := newTestDB(t)
	if err := ds.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
}

func TestNewDatabase_UnsupportedType(t *testing.T) {
	if _, err := NewDatabase(context.Background(), "mongodb", "whatever", false); err == nil {
		t.Fatalf("expected error for unsupported database type")
	}
}

func TestNewDatabase_PostgresOpensLazily(t *testing.T) {
	// lib/pq does not dial until the first query, so opening succeeds offline
	ds, err := NewDatabase(context.Background(), "postgres", "postgres://user:pw@127.0.0.1:1/db?sslmode=disable", false)
	if err != nil {
		t.Fatalf("NewDatabase(postgres) error: %v", err)
	}
	defer ds.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ds.Ping(ctx); !errors.Is(err, failure.ErrPersistence) {
		t.Errorf("expected persistence error pinging unreachable postgres, got %v", err)
	}
}
