package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedItem is returned for input lines that are not a page URL
	ErrMalformedItem = errors.New("malformed work item")

	// ErrPipelineRunning is returned when a second run is started on a busy pipeline
	ErrPipelineRunning = errors.New("pipeline already running")
)

// ErrorKind classifies why a work item failed
type ErrorKind string

const (
	KindFetch       ErrorKind = "fetch_error"
	KindExtraction  ErrorKind = "extraction_error"
	KindDownload    ErrorKind = "download_error"
	KindPersistence ErrorKind = "persistence_error"
)

// ItemError is recorded against a work item that reached the failed state
type ItemError struct {
	Kind ErrorKind
	Item WorkItem
	Err  error
}

// NewItemError creates an item error of the given kind
func NewItemError(kind ErrorKind, item WorkItem, err error) *ItemError {
	return &ItemError{Kind: kind, Item: item, Err: err}
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Item, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first ItemError in err's chain
func KindOf(err error) ErrorKind {
	var itemErr *ItemError
	if errors.As(err, &itemErr) {
		return itemErr.Kind
	}
	return ""
}

// HTTPStatusError is returned when a remote host answers with a non-success status
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// IOError is returned when the destination filesystem cannot be written
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsSuccessStatus reports whether an HTTP status code counts as success
func IsSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}
