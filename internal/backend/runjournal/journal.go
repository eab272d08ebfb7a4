// Package runjournal keeps a short history of ingest runs.
package runjournal

import (
	"context"
	"time"
)

// RunSummary describes one ingest run. Error is empty on success.
type RunSummary struct {
	URL         string    `json:"url"`
	ArchivePath string    `json:"archivePath"`
	Extracted   int       `json:"extracted"`
	Inserted    int       `json:"inserted"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Error       string    `json:"error,omitempty"`
}

// Succeeded reports whether the run finished without an error.
func (r RunSummary) Succeeded() bool {
	return r.Error == ""
}

// Journal stores run summaries, newest first.
type Journal interface {
	Record(ctx context.Context, summary RunSummary) error
	// Recent returns at most n summaries, newest first.
	Recent(ctx context.Context, n int) ([]RunSummary, error)
	Close() error
}

// NopJournal discards every summary.
type NopJournal struct{}

func (NopJournal) Record(context.Context, RunSummary) error { return nil }

func (NopJournal) Recent(context.Context, int) ([]RunSummary, error) { return nil, nil }

func (NopJournal) Close() error { return nil }
