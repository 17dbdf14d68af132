package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yourusername/vidharvest/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLiteStore implements domain.Ledger and domain.RunRepository using SQLite
type SQLiteStore struct {
	db *gorm.DB

	mu    sync.RWMutex
	items map[domain.WorkItem]struct{}
}

// NewSQLiteStore opens the database at dbPath, migrates the schema and loads ledger membership
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.LedgerEntry{}, &domain.RunStats{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store := &SQLiteStore{db: db, items: make(map[domain.WorkItem]struct{})}

	var entries []domain.LedgerEntry
	if err := db.Select("item").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	for _, e := range entries {
		store.items[e.Item] = struct{}{}
	}

	return store, nil
}

// Contains reports whether the item is recorded
func (s *SQLiteStore) Contains(item domain.WorkItem) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[item]
	return ok
}

// Append inserts a ledger entry; an existing entry is left untouched
func (s *SQLiteStore) Append(item domain.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item]; ok {
		return nil
	}

	entry := &domain.LedgerEntry{Item: item, CompletedAt: time.Now()}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	s.items[item] = struct{}{}
	return nil
}

// Len returns the number of recorded items
func (s *SQLiteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Entries returns ledger entries, newest first
func (s *SQLiteStore) Entries(limit int) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	query := s.db.Order("completed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, err
}

// SaveRun inserts or replaces a run summary
func (s *SQLiteStore) SaveRun(stats *domain.RunStats) error {
	return s.db.Save(stats).Error
}

// RecentRuns returns up to limit runs ordered by start time, newest first
func (s *SQLiteStore) RecentRuns(limit int) ([]*domain.RunStats, error) {
	var runs []*domain.RunStats
	query := s.db.Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
