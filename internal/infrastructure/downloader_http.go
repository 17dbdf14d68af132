package infrastructure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/yourusername/vidharvest/internal/domain"
	"go.uber.org/zap"
)

// HTTPDownloader implements domain.Downloader by streaming a resource into a temp file
// and renaming it into place once fully written
type HTTPDownloader struct {
	client    domain.HTTPClient
	headers   http.Header
	chunkSize int
	logger    *zap.Logger
}

// NewHTTPDownloader creates a new downloader
func NewHTTPDownloader(client domain.HTTPClient, headers http.Header, chunkSize int, logger *zap.Logger) *HTTPDownloader {
	if chunkSize <= 0 {
		chunkSize = 1 << 20
	}
	return &HTTPDownloader{
		client:    client,
		headers:   headers,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Download streams the descriptor's locator to dest
func (d *HTTPDownloader) Download(ctx context.Context, descriptor domain.MediaDescriptor, dest string) domain.DownloadOutcome {
	outcome := domain.DownloadOutcome{Descriptor: descriptor, Path: dest}

	status, body, err := d.client.Get(ctx, descriptor.Locator, d.headers)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	defer body.Close()

	if !domain.IsSuccessStatus(status) {
		outcome.Err = &domain.HTTPStatusError{URL: descriptor.Locator, StatusCode: status}
		return outcome
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		outcome.Err = &domain.IOError{Op: "mkdir", Path: dir, Err: err}
		return outcome
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.part")
	if err != nil {
		outcome.Err = &domain.IOError{Op: "create", Path: dest, Err: err}
		return outcome
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
				d.logger.Warn("Failed to remove partial download", zap.String("path", tmpPath), zap.Error(rmErr))
			}
		}
	}()

	// Hide ReadFrom so the chunk-sized buffer is used
	written, err := io.CopyBuffer(struct{ io.Writer }{tmp}, body, make([]byte, d.chunkSize))
	outcome.BytesWritten = written
	if err != nil {
		// Errors from the writer side are reported as filesystem failures
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			outcome.Err = &domain.IOError{Op: "write", Path: tmpPath, Err: err}
		} else {
			outcome.Err = err
		}
		return outcome
	}

	if err := tmp.Close(); err != nil {
		outcome.Err = &domain.IOError{Op: "close", Path: tmpPath, Err: err}
		return outcome
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		outcome.Err = &domain.IOError{Op: "rename", Path: dest, Err: err}
		return outcome
	}
	committed = true

	d.logger.Debug("Downloaded media",
		zap.String("locator", descriptor.Locator),
		zap.String("path", dest),
		zap.Int64("bytes", written))

	outcome.Success = true
	return outcome
}
