package scan

import (
	"context"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/lumilio/scanner/internal/catalog"
	"github.com/lumilio/scanner/internal/derivative"
	"github.com/lumilio/scanner/internal/extract"
	"github.com/lumilio/scanner/internal/utils/errgroup"
	"github.com/lumilio/scanner/internal/utils/sysinfo"
)

var sysMonitor = sysinfo.NewMonitor()

// perFileTimeout is the soft extraction budget; exceeding it counts the
// file as a failure rather than hanging the worker pool indefinitely.
const perFileTimeout = 30 * time.Second

// ExecutorConfig controls the worker pool's shape.
type ExecutorConfig struct {
	// ParallelEnabled selects a bounded worker pool sized to the host;
	// false forces a single worker for serial-mode benchmarking.
	ParallelEnabled bool
	WorkerCount     int
}

// Executor owns the worker pool that consumes a Plan's add/update items,
// dispatches them to the Metadata Extractors, and stages results through
// the Catalog Adapter.
type Executor struct {
	extractor  *extract.Extractor
	adapter    *catalog.Adapter
	reporter   *Reporter
	cfg        ExecutorConfig
	thumbnails *derivative.Queue // optional: nil disables enqueueing
}

func NewExecutor(extractor *extract.Extractor, adapter *catalog.Adapter, reporter *Reporter, cfg ExecutorConfig) *Executor {
	if !cfg.ParallelEnabled {
		cfg.WorkerCount = 1
	} else if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = sysMonitor.OptimalPoolConfig(0, catalog.DefaultBatchSize).Workers
	}
	return &Executor{extractor: extractor, adapter: adapter, reporter: reporter, cfg: cfg}
}

// WithThumbnailQueue attaches the derivative-cache producer so newly
// added or changed records get a thumbnail job enqueued after staging.
func (e *Executor) WithThumbnailQueue(q *derivative.Queue) *Executor {
	e.thumbnails = q
	return e
}

// Run processes toAdd and toUpdate concurrently, bounded by the
// configured worker count, then runs the delete phase serially. It
// returns ErrCancelled if ctx is cancelled mid-run; already-staged work
// is still flushed before returning.
func (e *Executor) Run(ctx context.Context, plan *Plan) error {
	total := len(plan.ToAdd) + len(plan.ToUpdate)
	var success, failure int64

	processingPhase := PhaseProcessing
	e.reporter.Update(Patch{Phase: &processingPhase})

	group := errgroup.NewFaultTolerantBounded(e.cfg.WorkerCount)
	allItems := make([]Item, 0, total)
	allItems = append(allItems, plan.ToAdd...)
	allItems = append(allItems, plan.ToUpdate...)

	var cancelled atomic.Bool
	for _, item := range allItems {
		item := item
		group.Go(func() error {
			if ctx.Err() != nil {
				cancelled.Store(true)
				return ctx.Err()
			}
			ok := e.processOne(ctx, item)
			if ok {
				atomic.AddInt64(&success, 1)
			} else {
				atomic.AddInt64(&failure, 1)
			}
			s, f := int(atomic.LoadInt64(&success)), int(atomic.LoadInt64(&failure))
			e.reporter.Update(Patch{SuccessCount: &s, FailureCount: &f})
			return nil
		})
	}
	group.Wait()

	if err := e.adapter.Flush(ctx); err != nil {
		return err
	}

	if cancelled.Load() || ctx.Err() != nil {
		return ErrCancelled
	}

	if plan.UseGenerationDelete {
		return e.deleteStaleGeneration(ctx)
	}
	return e.delete(ctx, plan.ToDelete)
}

// processOne runs the per-item protocol: re-stat (the Planner's walk may
// be stale by the time a worker picks the item up), fast-path skip, then
// dispatch to the extractor, then stage. Returns true on success.
func (e *Executor) processOne(ctx context.Context, item Item) bool {
	existing, found, err := e.adapter.Lookup(ctx, item.Path)
	if err != nil {
		log.Printf("[ScanExecutor] lookup failed for %s: %v", item.Path, err)
	}

	info, statErr := os.Stat(item.Path)
	if statErr != nil {
		log.Printf("[ScanExecutor] stat failed for %s: %v", item.Path, statErr)
		return false
	}

	if found && existing.SameContent(info.Size(), info.ModTime()) {
		existing.LastScanned = time.Now()
		if err := e.adapter.Stage(ctx, existing); err != nil {
			log.Printf("[ScanExecutor] stage failed for %s: %v", item.Path, err)
			return false
		}
		return true
	}

	extractCtx, cancel := context.WithTimeout(ctx, perFileTimeout)
	defer cancel()

	rec, fileErr := e.extractor.Extract(extractCtx, item.Path, info)
	if fileErr != nil && fileErr.Kind == extract.KindUnreadableFile {
		return false
	}
	if rec == nil {
		return false
	}

	rec.LastScanned = time.Now()
	if found {
		rec.ID = existing.ID
	}

	if err := e.adapter.Stage(ctx, rec); err != nil {
		log.Printf("[ScanExecutor] stage failed for %s: %v", item.Path, err)
		return false
	}

	if e.thumbnails != nil && !rec.ThumbnailGenerated {
		if err := e.thumbnails.EnqueueThumbnail(ctx, rec); err != nil {
			log.Printf("[ScanExecutor] enqueue thumbnail failed for %s: %v", item.Path, err)
		}
	}
	return true
}

// delete runs phase `deleting` serially in batches of
// catalog.DefaultBatchSize paths, checking the cancellation flag before
// each batch. Failures are retried by the adapter on its backoff schedule,
// then logged; they never flip the scan to error status.
func (e *Executor) delete(ctx context.Context, paths []string) error {
	deletingPhase := PhaseDeleting
	e.reporter.Update(Patch{Phase: &deletingPhase})

	for start := 0; start < len(paths); start += catalog.DefaultBatchSize {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		end := min(start+catalog.DefaultBatchSize, len(paths))
		if err := e.adapter.DeleteBatch(ctx, paths[start:end]); err != nil {
			log.Printf("[ScanExecutor] delete batch failed: %v", err)
		}
	}
	return nil
}

// deleteStaleGeneration runs phase `deleting` via the generation-based
// orphan detection path: every record not touched by this scan's
// generation is removed in one store-side operation instead of a
// precomputed path list.
func (e *Executor) deleteStaleGeneration(ctx context.Context) error {
	deletingPhase := PhaseDeleting
	e.reporter.Update(Patch{Phase: &deletingPhase})

	if ctx.Err() != nil {
		return ErrCancelled
	}

	removed, err := e.adapter.DeleteStaleGeneration(ctx)
	if err != nil {
		log.Printf("[ScanExecutor] delete stale generation failed: %v", err)
		return nil
	}
	filesToDelete := removed
	e.reporter.Update(Patch{FilesToDelete: &filesToDelete})
	return nil
}
