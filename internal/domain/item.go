package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// WorkItem identifies one remote page, stored in its normalized URL form
type WorkItem string

// ItemStatus represents the processing state of a work item within a run
type ItemStatus string

const (
	StatusQueued      ItemStatus = "queued"
	StatusFetching    ItemStatus = "fetching"
	StatusExtracting  ItemStatus = "extracting"
	StatusDownloading ItemStatus = "downloading"
	StatusCompleted   ItemStatus = "completed"
	StatusFailed      ItemStatus = "failed"
)

// IsTerminal checks if the status ends processing for the run
func (s ItemStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var itemTransitions = map[ItemStatus][]ItemStatus{
	StatusQueued:      {StatusFetching},
	StatusFetching:    {StatusExtracting, StatusFailed},
	StatusExtracting:  {StatusDownloading, StatusCompleted, StatusFailed},
	StatusDownloading: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether an item may move from one status to another
func CanTransition(from, to ItemStatus) bool {
	for _, next := range itemTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NormalizeWorkItem trims a raw input line and validates it as an absolute http(s) URL.
// Fragments and trailing slashes are dropped, and so is the query once the path carries an
// owner and an identifier segment, so that the same page is never recorded twice.
func NormalizeWorkItem(raw string) (WorkItem, error) {
	s := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if s == "" {
		return "", fmt.Errorf("%w: empty line", ErrMalformedItem)
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedItem, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrMalformedItem, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrMalformedItem)
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")
	if len(pathSegments(u.Path)) >= 2 {
		u.RawQuery = ""
		u.ForceQuery = false
	}
	return WorkItem(u.String()), nil
}

// String returns the item as a plain string
func (w WorkItem) String() string {
	return string(w)
}

func (w WorkItem) segments() (*url.URL, []string) {
	u, err := url.Parse(string(w))
	if err != nil {
		return &url.URL{}, nil
	}
	return u, pathSegments(u.Path)
}

func pathSegments(p string) []string {
	var parts []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return parts
}

// OwnerKey returns the directory name for the item's owner.
// URL format: https://host/{owner}/.../{id}, e.g. https://www.tiktok.com/@user/video/123
func (w WorkItem) OwnerKey() string {
	u, parts := w.segments()
	if len(parts) >= 2 {
		if key := sanitizeKey(strings.TrimPrefix(parts[0], "@")); key != "" {
			return key
		}
	}
	if key := sanitizeKey(u.Hostname()); key != "" {
		return key
	}
	return "unknown"
}

// ItemKey returns the trailing identifier segment of the item
func (w WorkItem) ItemKey() string {
	_, parts := w.segments()
	if len(parts) > 0 {
		if key := sanitizeKey(parts[len(parts)-1]); key != "" {
			return key
		}
	}
	return "index"
}

// HashedItemKey returns ItemKey suffixed with a short hash of the whole item
func (w WorkItem) HashedItemKey() string {
	sum := sha256.Sum256([]byte(w))
	return w.ItemKey() + "-" + hex.EncodeToString(sum[:4])
}

// DestinationKeys assigns every item the key its files are named after.
// Items are visited in order; the first one claiming an owner/key pair keeps ItemKey and
// later ones that would land on the same path get HashedItemKey.
func DestinationKeys(items []WorkItem) map[WorkItem]string {
	keys := make(map[WorkItem]string, len(items))
	claimed := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := keys[item]; ok {
			continue
		}
		owner := item.OwnerKey()
		key := item.ItemKey()
		if _, taken := claimed[owner+"/"+key]; taken {
			key = item.HashedItemKey()
		}
		claimed[owner+"/"+key] = struct{}{}
		keys[item] = key
	}
	return keys
}

// sanitizeKey keeps characters that are safe in a file name
func sanitizeKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.':
			if b.Len() > 0 {
				b.WriteRune(r)
			}
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// MediaDescriptor is one downloadable resource extracted from a page
type MediaDescriptor struct {
	Owner   WorkItem `json:"owner"`
	Ordinal int      `json:"ordinal"`
	Locator string   `json:"locator"`
}

var mediaExtensions = map[string]bool{
	".mp4": true, ".m4v": true, ".mov": true, ".webm": true, ".mkv": true, ".avi": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".mp3": true, ".m4a": true,
}

// Extension returns the file extension for the descriptor's resource
func (d MediaDescriptor) Extension(defaultExt string) string {
	if u, err := url.Parse(d.Locator); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if mediaExtensions[ext] {
			return ext
		}
	}
	if defaultExt == "" {
		return ".mp4"
	}
	return defaultExt
}

// FileName returns the deterministic file name {itemKey}_{ordinal}{ext}.
// An empty itemKey falls back to the owner's ItemKey.
func (d MediaDescriptor) FileName(itemKey, defaultExt string) string {
	if itemKey == "" {
		itemKey = d.Owner.ItemKey()
	}
	return fmt.Sprintf("%s_%d%s", itemKey, d.Ordinal, d.Extension(defaultExt))
}

// DestinationPath returns baseDir/{ownerKey}/{itemKey}_{ordinal}{ext}
func (d MediaDescriptor) DestinationPath(baseDir, itemKey, defaultExt string) string {
	return filepath.Join(baseDir, d.Owner.OwnerKey(), d.FileName(itemKey, defaultExt))
}

// DownloadOutcome is the result of downloading one descriptor
type DownloadOutcome struct {
	Descriptor   MediaDescriptor
	Path         string
	Success      bool
	BytesWritten int64
	Err          error
}

// FailureReason returns the failure message, or empty on success
func (o DownloadOutcome) FailureReason() string {
	if o.Success || o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// LedgerEntry records one completed work item
type LedgerEntry struct {
	Item        WorkItem  `json:"item" gorm:"primaryKey"`
	CompletedAt time.Time `json:"completed_at" gorm:"not null"`
}

// TableName specifies the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// ItemResult is the terminal report of one work item
type ItemResult struct {
	Item         WorkItem
	Status       ItemStatus
	Descriptors  int
	Downloaded   int
	BytesWritten int64
	Err          error
	Duration     time.Duration
}

// FailureKind returns the error kind of a failed item
func (r ItemResult) FailureKind() ErrorKind {
	if r.Status != StatusFailed {
		return ""
	}
	return KindOf(r.Err)
}
