package logger

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")

	log, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)

	log.Info("hello", zap.String("k", "v"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "loud", Format: "console", OutputPath: "stderr"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
}

func TestMultiLogger_RequiresLogsDir(t *testing.T) {
	_, err := NewMultiLogger(MultiLoggerConfig{Level: "info"})
	assert.Error(t, err)
}

func TestMultiLogger_WritesAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)

	ml.LogPipelineEvent("item_completed", zap.String("item", "https://x.com/a/status/1"), zap.Int("descriptors", 2))
	ml.LogPipelineEvent("item_failed", zap.String("item", "https://x.com/b/status/2"), zap.String("reason", "fetch_error"))
	ml.LogAppError("ledger append failed", zap.String("item", "https://x.com/c/status/3"))
	require.NoError(t, ml.Close())

	reader := NewLogReader(dir)

	entries, err := reader.ReadLogs(CategoryPipeline, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "item_completed", entries[0].Message)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "pipeline", entries[0].Category)
	assert.Equal(t, "https://x.com/a/status/1", entries[0].Fields["item"])
	assert.EqualValues(t, 2, entries[0].Fields["descriptors"])

	last, err := reader.ReadLogs(CategoryPipeline, time.Now(), 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "item_failed", last[0].Message)

	found, err := reader.SearchLogs(CategoryPipeline, time.Now(), "FETCH_ERROR", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "item_failed", found[0].Message)

	errs, err := reader.ReadLogs(CategoryError, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "error", errs[0].Level)
}

func TestLogReader_MissingFile(t *testing.T) {
	reader := NewLogReader(t.TempDir())
	entries, err := reader.ReadLogs(CategoryError, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLogReader_NonJSONLine(t *testing.T) {
	dir := t.TempDir()
	reader := NewLogReader(dir)
	path := reader.GetLogPath(CategoryPipeline, time.Now())
	require.NoError(t, os.WriteFile(path, []byte("plain text line\n"), 0644))

	entries, err := reader.ReadLogs(CategoryPipeline, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "plain text line", entries[0].Message)
}

func TestLogReader_TailLogs(t *testing.T) {
	dir := t.TempDir()
	reader := NewLogReader(dir)
	reader.pollInterval = 10 * time.Millisecond
	path := reader.GetLogPath(CategoryPipeline, time.Now())
	require.NoError(t, os.WriteFile(path, []byte(`{"message":"old"}`+"\n"), 0644))

	entries := make(chan LogEntry, 4)
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- reader.TailLogs(CategoryPipeline, entries, stop) }()

	// Give the tail time to seek past the existing line.
	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"message":"new","level":"info"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case entry := <-entries:
		assert.Equal(t, "new", entry.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no tailed entry received")
	}

	close(stop)
	assert.NoError(t, <-done)
}

func TestLogReader_TailLogsFollowsDateChange(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2026, 3, 1, 23, 59, 0, 0, time.Local)
	day2 := day1.Add(2 * time.Minute)

	var nextDay atomic.Bool
	reader := NewLogReader(dir)
	reader.pollInterval = 10 * time.Millisecond
	reader.now = func() time.Time {
		if nextDay.Load() {
			return day2
		}
		return day1
	}
	require.NoError(t, os.WriteFile(reader.GetLogPath(CategoryPipeline, day1), []byte(`{"message":"old"}`+"\n"), 0644))

	entries := make(chan LogEntry, 4)
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- reader.TailLogs(CategoryPipeline, entries, stop) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(reader.GetLogPath(CategoryPipeline, day2), []byte(`{"message":"after midnight"}`+"\n"), 0644))
	nextDay.Store(true)

	select {
	case entry := <-entries:
		assert.Equal(t, "after midnight", entry.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no entry from the new day's file")
	}

	close(stop)
	assert.NoError(t, <-done)
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(CategoryPipeline))
	assert.True(t, ValidCategory(CategoryError))
	assert.False(t, ValidCategory("download"))
}
