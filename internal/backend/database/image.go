package database

import "time"

// ImageRecord is one persisted row of tb_images.
type ImageRecord struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	BatchName    string    `db:"batch_name"`
	URL          string    `db:"url"`
	DownloadedAt time.Time `db:"downloaded_at"`
	Image        []byte    `db:"image"` // PNG image data stored as binary
}

// ImageRecordInput carries the caller supplied fields of a new row.
// A zero DownloadedAt lets the database fill in the insertion time.
type ImageRecordInput struct {
	Title        string
	BatchName    string
	URL          string
	DownloadedAt time.Time
	Image        []byte
}
