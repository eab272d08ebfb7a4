package database

import "context"

// DatabaseService owns the tb_images table. No other component writes to it.
type DatabaseService interface {
	// CreateSchema creates tb_images if it does not exist.
	CreateSchema(ctx context.Context) error
	// DropSchema removes tb_images if it exists.
	DropSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// Insert stores one record under a freshly generated ID and commits it.
	Insert(ctx context.Context, record ImageRecordInput) (string, error)
	// SelectRandom returns one uniformly chosen record, or nil when the table is empty.
	SelectRandom(ctx context.Context) (*ImageRecord, error)
	Count(ctx context.Context) (int, error)
}
