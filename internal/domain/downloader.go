package domain

import (
	"context"
	"io"
	"net/http"
)

// HTTPClient is the outbound network capability shared by all workers
type HTTPClient interface {
	// Get issues a GET request; the caller must close body when err is nil
	Get(ctx context.Context, url string, headers http.Header) (status int, body io.ReadCloser, err error)
}

// Extractor finds downloadable media in a fetched page
type Extractor interface {
	// Extract returns the page's media in order of appearance.
	// Malformed markup yields whatever could be parsed.
	Extract(item WorkItem, body []byte) ([]MediaDescriptor, error)
}

// Downloader persists one media resource to disk
type Downloader interface {
	// Download streams the descriptor's resource to dest, leaving dest untouched on failure
	Download(ctx context.Context, descriptor MediaDescriptor, dest string) DownloadOutcome
}
