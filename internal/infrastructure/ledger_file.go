package infrastructure

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yourusername/vidharvest/internal/domain"
)

// FileLedger implements domain.Ledger as an append-only newline-delimited text file
type FileLedger struct {
	path string
	sync bool

	mu    sync.RWMutex
	file  *os.File
	items map[domain.WorkItem]struct{}
}

// NewFileLedger reads the existing ledger at path and opens it for appending.
// A missing file is created; an unreadable or unwritable one is a setup error.
func NewFileLedger(path string, syncWrites bool) (*FileLedger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	items, err := readLedgerFile(path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger for append: %w", err)
	}

	return &FileLedger{
		path:  path,
		sync:  syncWrites,
		file:  file,
		items: items,
	}, nil
}

func readLedgerFile(path string) (map[domain.WorkItem]struct{}, error) {
	items := make(map[domain.WorkItem]struct{})

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return items, nil
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// Entries written by hand may not be normalized yet
		if item, err := domain.NormalizeWorkItem(line); err == nil {
			items[item] = struct{}{}
		} else {
			items[domain.WorkItem(line)] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return items, nil
}

// Path returns the ledger file path
func (l *FileLedger) Path() string {
	return l.path
}

// Contains reports whether the item is recorded
func (l *FileLedger) Contains(item domain.WorkItem) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.items[item]
	return ok
}

// Append writes the item as a single line before adding it to the membership set
func (l *FileLedger) Append(item domain.WorkItem) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.items[item]; ok {
		return nil
	}
	if l.file == nil {
		return &domain.IOError{Op: "append", Path: l.path, Err: os.ErrClosed}
	}

	if _, err := l.file.Write([]byte(string(item) + "\n")); err != nil {
		return &domain.IOError{Op: "append", Path: l.path, Err: err}
	}
	if l.sync {
		if err := l.file.Sync(); err != nil {
			return &domain.IOError{Op: "sync", Path: l.path, Err: err}
		}
	}

	l.items[item] = struct{}{}
	return nil
}

// Len returns the number of recorded items
func (l *FileLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Close closes the ledger file
func (l *FileLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
