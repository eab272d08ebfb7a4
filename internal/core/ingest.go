package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/imageset/internal/backend/batch"
	"github.com/jo-hoe/imageset/internal/backend/database"
	"github.com/jo-hoe/imageset/internal/backend/runjournal"
	"github.com/jo-hoe/imageset/internal/backend/sampler"
)

const journalTimeout = 5 * time.Second

// Ingest resolves an archive from the listing page, downloads it unless it is
// already present, decodes every batch member and stores a random subset of at
// most MaxImages images. Rows committed before a failure stay committed.
func (s *CoreService) Ingest(ctx context.Context) (summary *runjournal.RunSummary, err error) {
	summary = &runjournal.RunSummary{StartedAt: s.now().UTC()}
	defer func() {
		summary.FinishedAt = s.now().UTC()
		if err != nil {
			summary.Error = err.Error()
			slog.Error("ingest failed", "url", summary.URL, "inserted", summary.Inserted, "error", err)
		}
		s.recordRun(ctx, *summary)
	}()

	fullURL, href, err := s.resolver.ResolveSourceURL(ctx)
	if err != nil {
		return summary, err
	}
	summary.URL = fullURL
	slog.Info("resolved image set", "url", fullURL)

	archivePath, err := s.downloader.FetchArchive(ctx, fullURL, href)
	if err != nil {
		return summary, err
	}
	summary.ArchivePath = archivePath

	images, err := batch.ExtractImages(archivePath, s.config.MaxImages)
	if err != nil {
		return summary, err
	}
	summary.Extracted = len(images)

	selected := sampler.SampleAndShuffle(s.sampler, images, s.config.MaxImages)
	slog.Info("selected images", "extracted", len(images), "selected", len(selected), "max_images", s.config.MaxImages)

	store, err := s.openStore(ctx)
	if err != nil {
		return summary, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			slog.Warn("failed to close store", "error", cerr)
		}
	}()

	for i, img := range selected {
		_, err = store.Insert(ctx, database.ImageRecordInput{
			Title:        img.Title,
			BatchName:    img.BatchLabel,
			URL:          fullURL,
			DownloadedAt: s.now().UTC(),
			Image:        img.ImageBytes,
		})
		if err != nil {
			return summary, fmt.Errorf("image %d (%s): %w", i, img.Title, err)
		}
		summary.Inserted++
	}

	slog.Info("inserted images", "count", summary.Inserted, "url", fullURL)
	return summary, nil
}

// recordRun writes the summary to the journal. Journal failures are logged
// and never change the run outcome.
func (s *CoreService) recordRun(ctx context.Context, summary runjournal.RunSummary) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := s.journal.Record(ctx, summary); err != nil {
		slog.Warn("failed to record run", "succeeded", summary.Succeeded(), "error", err)
		return
	}
	slog.Debug("run recorded", "succeeded", summary.Succeeded(), "inserted", summary.Inserted)
}
