package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jo-hoe/imageset/internal/backend/database"
)

// ReportRandomImage writes one random stored image to outputPath and prints
// its metadata to out. It returns nil without writing when the store is empty.
func (s *CoreService) ReportRandomImage(ctx context.Context, outputPath string, out io.Writer) (*database.ImageRecord, error) {
	if outputPath == "" {
		outputPath = s.config.OutputPath
	}

	store, err := s.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			slog.Warn("failed to close store", "error", cerr)
		}
	}()

	record, err := store.SelectRandom(ctx)
	if err != nil {
		return nil, err
	}
	if record == nil {
		fmt.Fprintln(out, "No images found in the database.")
		return nil, nil
	}

	if err := os.WriteFile(outputPath, record.Image, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write random image to %s: %w", outputPath, err)
	}

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		absPath = outputPath
	}
	fmt.Fprintf(out, "ID: %s, Title: %s, Batch Name: %s, URL: %s\n",
		record.ID, record.Title, record.BatchName, record.URL)
	fmt.Fprintf(out, "Random image is fetched from database and stored at %s\n", absPath)
	return record, nil
}
