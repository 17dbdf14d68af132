package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/vidharvest/internal/domain"
	"go.uber.org/zap"
)

func TestWorkListLoader_DedupPreservesOrder(t *testing.T) {
	loader := NewWorkListLoader(newMemoryLedger(), zap.NewNop())

	items, report := loader.Load([]string{
		"https://x.com/b/status/2",
		"https://x.com/a/status/1",
		"  https://x.com/b/status/2  ",
		"",
		"https://X.com/a/status/1#frag",
		"https://x.com/c/status/3",
	})

	assert.Equal(t, []domain.WorkItem{
		"https://x.com/b/status/2",
		"https://x.com/a/status/1",
		"https://x.com/c/status/3",
	}, items)
	assert.Equal(t, LoadReport{Lines: 6, Blank: 1, Duplicates: 2, Accepted: 3}, report)
}

func TestWorkListLoader_SkipsCompleted(t *testing.T) {
	ledger := newMemoryLedger()
	require.NoError(t, ledger.Append("https://x.com/a/status/1"))

	loader := NewWorkListLoader(ledger, zap.NewNop())
	items, report := loader.Load([]string{"https://x.com/a/status/1", "https://x.com/b/status/2"})

	assert.Equal(t, []domain.WorkItem{"https://x.com/b/status/2"}, items)
	assert.Equal(t, 1, report.AlreadyCompleted)
	assert.Equal(t, 1, report.Accepted)
}

func TestWorkListLoader_MalformedLinesSkipped(t *testing.T) {
	loader := NewWorkListLoader(newMemoryLedger(), zap.NewNop())
	items, report := loader.Load([]string{"not a url", "ftp://host/file", "https://x.com/a/status/1"})

	assert.Equal(t, []domain.WorkItem{"https://x.com/a/status/1"}, items)
	assert.Equal(t, 2, report.Malformed)
}

func TestWorkListLoader_EmptyInput(t *testing.T) {
	loader := NewWorkListLoader(nil, zap.NewNop())
	items, report := loader.Load(nil)
	assert.Empty(t, items)
	assert.Equal(t, 0, report.Accepted)
}

func TestWorkListLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "videolist.txt")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffhttps://x.com/a/status/1\r\nhttps://x.com/a/status/1\n\n"), 0644))

	loader := NewWorkListLoader(newMemoryLedger(), zap.NewNop())
	items, report, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []domain.WorkItem{"https://x.com/a/status/1"}, items)
	assert.Equal(t, 3, report.Lines)
	assert.Equal(t, 1, report.Duplicates)

	_, _, err = loader.LoadFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestWorkListLoader_CanonicalVariantsAndSharedDestinations(t *testing.T) {
	loader := NewWorkListLoader(newMemoryLedger(), zap.NewNop())
	items, report := loader.Load([]string{
		"https://www.tiktok.com/@u/video/1",
		"https://www.tiktok.com/@u/video/1/",
		"https://www.tiktok.com/@u/video/1?lang=en",
		"https://www.tiktok.com/@u/photo/1",
	})

	assert.Equal(t, []domain.WorkItem{
		"https://www.tiktok.com/@u/video/1",
		"https://www.tiktok.com/@u/photo/1",
	}, items)
	assert.Equal(t, 2, report.Duplicates)
	assert.Equal(t, 1, report.Renamed)

	keys := domain.DestinationKeys(items)
	assert.NotEqual(t, keys[items[0]], keys[items[1]])
}
