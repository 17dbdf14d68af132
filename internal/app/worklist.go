package app

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/yourusername/vidharvest/internal/domain"
	"go.uber.org/zap"
)

// LoadReport counts what happened to each input line
type LoadReport struct {
	Lines            int `json:"lines"`
	Blank            int `json:"blank"`
	Malformed        int `json:"malformed"`
	Duplicates       int `json:"duplicates"`
	AlreadyCompleted int `json:"already_completed"`
	Accepted         int `json:"accepted"`
	Renamed          int `json:"renamed"` // accepted items whose file names carry a hash suffix
}

// WorkListLoader turns raw input lines into the run's ordered work items
type WorkListLoader struct {
	ledger domain.Ledger
	logger *zap.Logger
}

// NewWorkListLoader creates a loader that filters against ledger
func NewWorkListLoader(ledger domain.Ledger, logger *zap.Logger) *WorkListLoader {
	return &WorkListLoader{ledger: ledger, logger: logger}
}

// Load normalizes lines, drops blanks and malformed lines, collapses duplicates keeping
// first-seen order, then removes items the ledger already records.
// Accepted items that would share a destination path are counted in Renamed.
func (l *WorkListLoader) Load(lines []string) ([]domain.WorkItem, LoadReport) {
	report := LoadReport{Lines: len(lines)}
	seen := make(map[domain.WorkItem]struct{}, len(lines))
	items := make([]domain.WorkItem, 0, len(lines))

	for i, line := range lines {
		item, err := domain.NormalizeWorkItem(line)
		if err != nil {
			if isBlank(line) {
				report.Blank++
				continue
			}
			report.Malformed++
			l.logger.Warn("Skipping malformed line",
				zap.Int("line", i+1),
				zap.String("value", line),
				zap.Error(err))
			continue
		}

		if _, dup := seen[item]; dup {
			report.Duplicates++
			continue
		}
		seen[item] = struct{}{}

		if l.ledger != nil && l.ledger.Contains(item) {
			report.AlreadyCompleted++
			l.logger.Debug("Skipping completed item", zap.String("item", item.String()))
			continue
		}

		items = append(items, item)
	}

	report.Accepted = len(items)

	for item, key := range domain.DestinationKeys(items) {
		if key != item.ItemKey() {
			report.Renamed++
			l.logger.Warn("Item shares a destination with an earlier item, file names get a hash suffix",
				zap.String("item", item.String()),
				zap.String("key", key))
		}
	}
	return items, report
}

// LoadFile reads the newline-delimited input list at path
func (l *WorkListLoader) LoadFile(path string) ([]domain.WorkItem, LoadReport, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("failed to open input list: %w", err)
	}
	defer file.Close()

	lines, err := ReadLines(file)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("failed to read input list %s: %w", path, err)
	}

	items, report := l.Load(lines)
	return items, report, nil
}

// ReadLines splits r into lines, accepting lines up to 1 MiB
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func isBlank(line string) bool {
	for _, r := range line {
		switch r {
		case ' ', '\t', '\r', '\n', '\ufeff':
		default:
			return false
		}
	}
	return true
}
