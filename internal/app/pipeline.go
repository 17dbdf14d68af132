package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/vidharvest/internal/domain"
	"github.com/yourusername/vidharvest/pkg/logger"
)

// ErrPageTooLarge is returned when a page body exceeds PipelineOptions.MaxPageBytes
var ErrPageTooLarge = errors.New("page too large")

// PipelineOptions holds the settings fixed for the lifetime of a pipeline
type PipelineOptions struct {
	Workers      int
	QueueSize    int
	MaxPageBytes int64
	BaseDir      string
	DefaultExt   string
	Headers      http.Header
}

// Pipeline runs work items through fetch, extract and download on a fixed pool of workers
type Pipeline struct {
	client      domain.HTTPClient
	extractor   domain.Extractor
	downloader  domain.Downloader
	ledger      domain.Ledger
	runs        domain.RunRepository
	options     PipelineOptions
	logger      *zap.Logger
	multiLogger *logger.MultiLogger

	mu      sync.RWMutex
	running bool
	stats   domain.RunStats

	dispatched   atomic.Int64
	succeeded    atomic.Int64
	failed       atomic.Int64
	descriptors  atomic.Int64
	bytesWritten atomic.Int64
}

// NewPipeline creates a new pipeline
func NewPipeline(
	client domain.HTTPClient,
	extractor domain.Extractor,
	downloader domain.Downloader,
	ledger domain.Ledger,
	options PipelineOptions,
	log *zap.Logger,
	multiLogger *logger.MultiLogger,
) *Pipeline {
	if options.Workers < 1 {
		options.Workers = 1
	}
	if options.QueueSize < 1 {
		options.QueueSize = 1
	}
	if options.MaxPageBytes <= 0 {
		options.MaxPageBytes = 10 << 20
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		client:      client,
		extractor:   extractor,
		downloader:  downloader,
		ledger:      ledger,
		options:     options,
		logger:      log,
		multiLogger: multiLogger,
	}
}

// SetRunRepository enables run history persistence
func (p *Pipeline) SetRunRepository(runs domain.RunRepository) {
	p.runs = runs
}

// IsRunning returns whether a run is in progress
func (p *Pipeline) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Snapshot returns the counters of the current run, or the final counters of the last one
func (p *Pipeline) Snapshot() domain.RunStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := p.stats
	if p.running {
		stats.Dispatched = p.dispatched.Load()
		stats.Succeeded = p.succeeded.Load()
		stats.Failed = p.failed.Load()
		stats.Descriptors = p.descriptors.Load()
		stats.BytesWritten = p.bytesWritten.Load()
		stats.Unprocessed = stats.Total - stats.Dispatched
	}
	return stats
}

// Run processes items until the queue drains or ctx is cancelled.
// Cancellation stops dequeuing; items already taken by a worker finish normally.
// Item failures are reported in the returned stats, never as an error.
func (p *Pipeline) Run(ctx context.Context, items []domain.WorkItem) (*domain.RunStats, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, domain.ErrPipelineRunning
	}
	p.running = true
	p.stats = domain.RunStats{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Workers:   p.options.Workers,
		Total:     int64(len(items)),
	}
	p.dispatched.Store(0)
	p.succeeded.Store(0)
	p.failed.Store(0)
	p.descriptors.Store(0)
	p.bytesWritten.Store(0)
	runID := p.stats.RunID
	p.mu.Unlock()

	p.logger.Info("Pipeline started",
		zap.String("run_id", runID),
		zap.Int("items", len(items)),
		zap.Int("workers", p.options.Workers),
		zap.Int("queue_size", p.options.QueueSize))
	if p.multiLogger != nil {
		p.multiLogger.LogPipelineEvent("run_started",
			zap.String("run_id", runID),
			zap.Int("items", len(items)),
			zap.Int("workers", p.options.Workers))
	}
	start := p.Snapshot()
	p.saveRun(&start)

	keys := domain.DestinationKeys(items)
	queue := make(chan domain.WorkItem, p.options.QueueSize)
	g, gctx := errgroup.WithContext(ctx)

	// Producer blocks while the queue is full
	g.Go(func() error {
		defer close(queue)
		for _, item := range items {
			select {
			case queue <- item:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for i := 0; i < p.options.Workers; i++ {
		workerID := i + 1
		g.Go(func() error {
			p.worker(gctx, workerID, queue, keys)
			return nil
		})
	}

	_ = g.Wait()

	finished := time.Now()
	p.mu.Lock()
	stats := p.stats
	stats.Dispatched = p.dispatched.Load()
	stats.Succeeded = p.succeeded.Load()
	stats.Failed = p.failed.Load()
	stats.Descriptors = p.descriptors.Load()
	stats.BytesWritten = p.bytesWritten.Load()
	stats.Unprocessed = stats.Total - stats.Dispatched
	stats.FinishedAt = &finished
	stats.Interrupted = ctx.Err() != nil
	p.stats = stats
	p.running = false
	p.mu.Unlock()

	p.saveRun(&stats)

	fields := []zap.Field{
		zap.String("run_id", stats.RunID),
		zap.Int64("total", stats.Total),
		zap.Int64("succeeded", stats.Succeeded),
		zap.Int64("failed", stats.Failed),
		zap.Int64("unprocessed", stats.Unprocessed),
		zap.Int64("descriptors", stats.Descriptors),
		zap.Int64("bytes", stats.BytesWritten),
		zap.Bool("interrupted", stats.Interrupted),
		zap.Duration("duration", stats.Duration()),
	}
	p.logger.Info("Pipeline finished", fields...)
	if p.multiLogger != nil {
		p.multiLogger.LogPipelineEvent("run_finished", fields...)
	}

	return &stats, nil
}

// worker takes one item at a time so each worker has at most one network operation in flight
func (p *Pipeline) worker(ctx context.Context, workerID int, queue <-chan domain.WorkItem, keys map[domain.WorkItem]string) {
	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case item, ok := <-queue:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				// Dequeued after cancellation: left for the next run
				return
			}
			p.dispatched.Add(1)
			// In-flight work is not aborted by cancellation
			result := p.processItem(context.WithoutCancel(ctx), workerID, item, keys[item])
			p.record(workerID, result)
		}
	}
}

func (p *Pipeline) processItem(ctx context.Context, workerID int, item domain.WorkItem, itemKey string) domain.ItemResult {
	start := time.Now()
	result := domain.ItemResult{Item: item, Status: domain.StatusQueued}

	fail := func(kind domain.ErrorKind, err error) domain.ItemResult {
		p.transition(&result, domain.StatusFailed, workerID)
		result.Err = domain.NewItemError(kind, item, err)
		result.Duration = time.Since(start)
		return result
	}

	p.transition(&result, domain.StatusFetching, workerID)
	body, err := p.fetch(ctx, item)
	if err != nil {
		return fail(domain.KindFetch, err)
	}

	p.transition(&result, domain.StatusExtracting, workerID)
	descriptors, err := p.extractor.Extract(item, body)
	if err != nil {
		p.logger.Warn("Extraction failed, treating page as having no media",
			zap.String("item", item.String()),
			zap.Error(err))
		descriptors = nil
	}
	result.Descriptors = len(descriptors)

	if len(descriptors) > 0 {
		p.transition(&result, domain.StatusDownloading, workerID)

		var failures []error
		for _, descriptor := range descriptors {
			dest := descriptor.DestinationPath(p.options.BaseDir, itemKey, p.options.DefaultExt)
			outcome := p.downloader.Download(ctx, descriptor, dest)
			result.BytesWritten += outcome.BytesWritten

			if outcome.Success {
				result.Downloaded++
				continue
			}

			reason := outcome.Err
			if reason == nil {
				reason = errors.New("download failed")
			}
			p.logger.Debug("Descriptor download failed",
				zap.String("item", item.String()),
				zap.Int("ordinal", descriptor.Ordinal),
				zap.String("locator", descriptor.Locator),
				zap.Int("worker", workerID),
				zap.Error(reason))
			failures = append(failures, fmt.Errorf("descriptor %d: %w", descriptor.Ordinal, reason))
		}

		if len(failures) > 0 {
			return fail(domain.KindDownload, errors.Join(failures...))
		}
	}

	if err := p.ledger.Append(item); err != nil {
		if p.multiLogger != nil {
			p.multiLogger.LogAppError("Ledger append failed",
				zap.String("item", item.String()),
				zap.Int("downloaded", result.Downloaded),
				zap.Error(err))
		}
		return fail(domain.KindPersistence, err)
	}

	p.transition(&result, domain.StatusCompleted, workerID)
	result.Duration = time.Since(start)
	return result
}

// fetch reads the page body; pages larger than MaxPageBytes fail rather than being
// extracted from a truncated body
func (p *Pipeline) fetch(ctx context.Context, item domain.WorkItem) ([]byte, error) {
	status, body, err := p.client.Get(ctx, item.String(), p.options.Headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if !domain.IsSuccessStatus(status) {
		return nil, &domain.HTTPStatusError{URL: item.String(), StatusCode: status}
	}

	data, err := io.ReadAll(io.LimitReader(body, p.options.MaxPageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read page body: %w", err)
	}
	if int64(len(data)) > p.options.MaxPageBytes {
		p.logger.Warn("Page exceeds max page size",
			zap.String("item", item.String()),
			zap.Int64("max_page_bytes", p.options.MaxPageBytes))
		return nil, fmt.Errorf("%w: page larger than %d bytes", ErrPageTooLarge, p.options.MaxPageBytes)
	}
	return data, nil
}

func (p *Pipeline) transition(result *domain.ItemResult, to domain.ItemStatus, workerID int) {
	if !domain.CanTransition(result.Status, to) {
		p.logger.Error("Invalid item transition",
			zap.String("item", result.Item.String()),
			zap.String("from", string(result.Status)),
			zap.String("to", string(to)))
	}
	result.Status = to
	if !to.IsTerminal() {
		p.logger.Debug("Item state changed",
			zap.String("item", result.Item.String()),
			zap.String("status", string(to)),
			zap.Int("worker", workerID))
	}
}

// record updates counters and logs the terminal transition
func (p *Pipeline) record(workerID int, result domain.ItemResult) {
	p.descriptors.Add(int64(result.Descriptors))
	p.bytesWritten.Add(result.BytesWritten)

	fields := []zap.Field{
		zap.String("item", result.Item.String()),
		zap.Int("descriptors", result.Descriptors),
		zap.Int("downloaded", result.Downloaded),
		zap.Int64("bytes", result.BytesWritten),
		zap.Int("worker", workerID),
		zap.Duration("duration", result.Duration),
	}

	if result.Status == domain.StatusCompleted {
		p.succeeded.Add(1)
		p.logger.Info("Item completed", fields...)
		if p.multiLogger != nil {
			p.multiLogger.LogPipelineEvent("item_completed", fields...)
		}
		return
	}

	p.failed.Add(1)
	fields = append(fields,
		zap.String("reason", string(result.FailureKind())),
		zap.Error(result.Err))
	p.logger.Warn("Item failed", fields...)
	if p.multiLogger != nil {
		p.multiLogger.LogPipelineEvent("item_failed", fields...)
	}
}

func (p *Pipeline) saveRun(stats *domain.RunStats) {
	if p.runs == nil {
		return
	}
	if err := p.runs.SaveRun(stats); err != nil {
		p.logger.Warn("Failed to save run history", zap.String("run_id", stats.RunID), zap.Error(err))
		if p.multiLogger != nil {
			p.multiLogger.LogAppError("Failed to save run history",
				zap.String("run_id", stats.RunID),
				zap.Error(err))
		}
	}
}
