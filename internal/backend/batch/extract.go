// Package batch reads dataset archives: it walks the tar.gz container, unpickles
// every batch member and turns each raw pixel buffer into a PNG.
package batch

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jo-hoe/imageset/internal/backend/imageprocessing"
	"github.com/jo-hoe/imageset/internal/failure"
	"github.com/klauspost/compress/gzip"
)

// DecodedImage is one image ready to be persisted.
type DecodedImage struct {
	Title      string
	BatchLabel string
	ImageBytes []byte
}

// ExtractImages decodes every image of every batch member in the archive.
// maxImages is not applied here; truncation is left to the sampler.
func ExtractImages(archivePath string, maxImages int) ([]DecodedImage, error) {
	const op = "extract images"

	f, err := os.Open(archivePath)
	if err != nil {
		return nil, failure.New(failure.KindArchiveCorrupt, op, err)
	}
	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, failure.New(failure.KindArchiveCorrupt, op, fmt.Errorf("failed to open gzip stream %s: %w", archivePath, err))
	}
	defer func() {
		_ = gz.Close()
	}()

	var images []DecodedImage
	members := 0
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, failure.New(failure.KindArchiveCorrupt, op, fmt.Errorf("failed to read archive %s: %w", archivePath, err))
		}
		if !hdr.FileInfo().Mode().IsRegular() || !IsBatchMember(hdr.Name) {
			slog.Debug("skipping archive member", "member", hdr.Name)
			continue
		}

		decoded, err := decodeMember(hdr.Name, tr)
		if err != nil {
			return nil, err
		}
		members++
		images = append(images, decoded...)
		slog.Debug("decoded batch member", "member", hdr.Name, "images", len(decoded))
	}

	slog.Info("extracted images from archive",
		"archive", archivePath,
		"members", members,
		"images", len(images),
		"max_images", maxImages)
	return images, nil
}

func decodeMember(name string, r io.Reader) ([]DecodedImage, error) {
	op := "decode member " + name

	record, err := DecodeRecord(r)
	if err != nil {
		return nil, failure.New(failure.KindArchiveCorrupt, op, err)
	}
	if record.Filenames != nil && len(record.Filenames) != len(record.Data) {
		return nil, failure.Newf(failure.KindRecordMalformed, op,
			"%d filenames for %d images", len(record.Filenames), len(record.Data))
	}

	images := make([]DecodedImage, 0, len(record.Data))
	for i, raw := range record.Data {
		if len(raw) != imageprocessing.RawSize {
			return nil, failure.Newf(failure.KindRecordMalformed, op,
				"image %d has %d bytes, want %d", i, len(raw), imageprocessing.RawSize)
		}
		png, err := imageprocessing.PlanarToPNG(raw)
		if err != nil {
			return nil, failure.New(failure.KindRecordMalformed, op, err)
		}

		title := fmt.Sprintf("image_%d.png", i)
		if record.Filenames != nil {
			title = record.Filenames[i]
		}
		label := fmt.Sprintf("batch_%d", i)
		if record.BatchLabel != nil {
			label = *record.BatchLabel
		}

		images = append(images, DecodedImage{
			Title:      title,
			BatchLabel: label,
			ImageBytes: png,
		})
	}
	return images, nil
}
