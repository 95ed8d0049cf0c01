// Package gc provides garbage collection for orphaned content blobs.
//
// A blob becomes orphaned when its index commit never happened: the engine
// writes the blob first and commits the record second, so a crash or an
// infrastructure failure between the two leaves a blob no history entry
// references. The collector periodically diffs the content store against the
// vault's referenced set and reclaims the difference.
//
// Blobs referenced only by history are NOT orphans: superseded and deleted
// snapshots stay addressable through versioned reads and must be kept.
package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/Schwartzmorn/filevault/internal/logger"
	"github.com/Schwartzmorn/filevault/pkg/content"
	"github.com/Schwartzmorn/filevault/pkg/metrics"
	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// Collector performs periodic garbage collection on a content store.
//
// Thread Safety: safe for concurrent use.
type Collector struct {
	vaultStore   vault.Store
	contentStore content.ContentStore
	config       Config
	metrics      metrics.GCMetrics
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// Config contains configuration for the garbage collector.
type Config struct {
	// Enabled controls whether garbage collection is active.
	Enabled bool

	// Interval is how often to run garbage collection (default: 24h).
	Interval time.Duration

	// BatchSize is how many orphaned blobs to delete per batch (default:
	// 1000, the S3 DeleteObjects limit).
	BatchSize int

	// DryRun logs what would be deleted without deleting it.
	DryRun bool
}

// NewCollector creates a garbage collector. Call Start to begin background
// collection.
//
// Returns an error when the content store cannot enumerate its blobs.
func NewCollector(
	vaultStore vault.Store,
	contentStore content.ContentStore,
	config Config,
	gcMetrics metrics.GCMetrics,
) (*Collector, error) {
	if _, ok := contentStore.(content.GarbageCollectableStore); !ok {
		return nil, fmt.Errorf("content store does not implement GarbageCollectableStore interface")
	}

	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}
	if config.BatchSize == 0 {
		config.BatchSize = 1000
	}
	if gcMetrics == nil {
		gcMetrics = metrics.NewNoopGCMetrics()
	}

	return &Collector{
		vaultStore:   vaultStore,
		contentStore: contentStore,
		config:       config,
		metrics:      gcMetrics,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins background garbage collection. No-op when disabled.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Garbage collection disabled")
		return
	}

	logger.Info("Starting garbage collector: interval=%s batch_size=%d dry_run=%v",
		c.config.Interval, c.config.BatchSize, c.config.DryRun)

	go c.worker()
}

// Stop stops the garbage collector and waits for any in-progress collection,
// bounded by the context.
func (c *Collector) Stop(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	logger.Info("Stopping garbage collector...")
	close(c.stopCh)

	select {
	case <-c.doneCh:
		logger.Info("Garbage collector stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Garbage collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate collection run and blocks until it completes.
// Useful for tests and initial cleanup on startup.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	return c.collect(ctx)
}

// worker runs periodic collection until stopped.
func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect performs one collection run: enumerate referenced blobs, enumerate
// stored blobs, delete the difference in batches.
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	gcStore, ok := c.contentStore.(content.GarbageCollectableStore)
	if !ok {
		c.metrics.RecordError()
		return stats, fmt.Errorf("content store does not support garbage collection")
	}

	referenced, err := c.vaultStore.ReferencedContentIDs(ctx)
	if err != nil {
		c.metrics.RecordError()
		return stats, fmt.Errorf("failed to get referenced content: %w", err)
	}
	stats.ReferencedCount = uint64(len(referenced))

	referencedSet := make(map[vault.ContentID]struct{}, len(referenced))
	for _, id := range referenced {
		referencedSet[id] = struct{}{}
	}

	existing, err := gcStore.ListAllContent(ctx)
	if err != nil {
		c.metrics.RecordError()
		return stats, fmt.Errorf("failed to list content: %w", err)
	}
	stats.ExistingCount = uint64(len(existing))

	orphaned := make([]vault.ContentID, 0)
	for _, id := range existing {
		if _, isReferenced := referencedSet[id]; !isReferenced {
			orphaned = append(orphaned, id)
		}
	}
	stats.OrphanedCount = uint64(len(orphaned))

	if len(orphaned) == 0 {
		stats.EndTime = time.Now()
		c.metrics.RecordRun(stats.Duration(), 0, 0)
		return stats, nil
	}

	logger.Info("GC: found %d orphaned blobs", stats.OrphanedCount)

	if c.config.DryRun {
		logger.Info("GC: dry run, would delete %d blobs", stats.OrphanedCount)
		for i, id := range orphaned {
			if i >= 10 {
				logger.Info("  ... and %d more", len(orphaned)-10)
				break
			}
			logger.Info("  - %s", id)
		}
		stats.EndTime = time.Now()
		c.metrics.RecordRun(stats.Duration(), len(orphaned), 0)
		return stats, nil
	}

	for i := 0; i < len(orphaned); i += c.config.BatchSize {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			c.metrics.RecordError()
			return stats, err
		}

		end := i + c.config.BatchSize
		if end > len(orphaned) {
			end = len(orphaned)
		}
		batch := orphaned[i:end]

		failures, err := gcStore.DeleteBatch(ctx, batch)
		if err != nil {
			logger.Warn("GC: batch delete failed: %v", err)
			stats.FailedCount += uint64(len(batch))
			continue
		}

		stats.DeletedCount += uint64(len(batch) - len(failures))
		stats.FailedCount += uint64(len(failures))

		for id, ferr := range failures {
			logger.Debug("GC: failed to delete %s: %v", id, ferr)
		}
	}

	stats.EndTime = time.Now()
	c.metrics.RecordRun(stats.Duration(), int(stats.OrphanedCount), int(stats.DeletedCount))

	return stats, nil
}

// Stats contains statistics from a garbage collection run.
type Stats struct {
	StartTime       time.Time
	EndTime         time.Time
	ReferencedCount uint64 // blobs referenced by the vault index or history
	ExistingCount   uint64 // blobs present in the content store
	OrphanedCount   uint64 // blobs found with no reference
	DeletedCount    uint64 // orphans successfully deleted
	FailedCount     uint64 // orphans that failed to delete
}

// Duration returns the total collection duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the collection.
func (s *Stats) Summary() string {
	return fmt.Sprintf("referenced=%d existing=%d orphaned=%d deleted=%d failed=%d duration=%s",
		s.ReferencedCount, s.ExistingCount, s.OrphanedCount,
		s.DeletedCount, s.FailedCount, s.Duration())
}
