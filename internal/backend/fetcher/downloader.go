package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jo-hoe/imageset/internal/failure"
)

const (
	DefaultDownloadDir = "image_sets"
	chunkSize          = 8192
)

// Downloader stores dataset archives in a local directory, skipping files
// that are already present.
type Downloader struct {
	dir    string
	client *http.Client
}

// NewDownloader creates a Downloader writing into dir. A nil client uses
// http.DefaultClient.
func NewDownloader(dir string, client *http.Client) *Downloader {
	if dir == "" {
		dir = DefaultDownloadDir
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{dir: dir, client: client}
}

// FetchArchive downloads url into the download directory as localName and
// returns the local path. An existing file of that name is returned as is.
// A failed transfer may leave a partial file behind.
func (d *Downloader) FetchArchive(ctx context.Context, url, localName string) (string, error) {
	const op = "fetch archive"

	name := filepath.Base(localName)
	if name == "." || name == string(filepath.Separator) {
		return "", failure.Newf(failure.KindDownloadFailed, op, "invalid local file name %q", localName)
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", failure.New(failure.KindDownloadFailed, op, fmt.Errorf("failed to create download dir %s: %w", d.dir, err))
	}

	localPath := filepath.Join(d.dir, name)
	if _, err := os.Stat(localPath); err == nil {
		slog.Info("archive already exists, skipping download", "path", localPath)
		return localPath, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", failure.New(failure.KindDownloadFailed, op, err)
	}

	slog.Info("downloading archive", "url", url, "path", localPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", failure.New(failure.KindDownloadFailed, op, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", failure.New(failure.KindDownloadFailed, op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", failure.Newf(failure.KindDownloadFailed, op, "GET %s returned status %d", url, resp.StatusCode)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return "", failure.New(failure.KindDownloadFailed, op, err)
	}
	written, err := copyChunked(f, resp.Body)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return "", failure.New(failure.KindDownloadFailed, op, fmt.Errorf("failed to write %s: %w", localPath, err))
	}

	slog.Info("archive downloaded", "path", localPath, "size_bytes", written)
	return localPath, nil
}

// copyChunked streams src into dst in fixed-size chunks.
func copyChunked(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, werr
			}
			if w != n {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
