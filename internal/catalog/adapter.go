package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultBatchSize is the number of records flushed to the Store per
// transaction when the caller does not request a specific size.
const DefaultBatchSize = 50

var retryBackoffs = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond}

// Adapter sits between the scan executor and a Store. It batches writes,
// retries transient store failures with backoff, and memoizes the records
// it has seen so far in the current scan so the planner and executor can
// ask "what do we already have for this path" without round-tripping to
// the store for every file.
type Adapter struct {
	store    Store
	dirStore DirectoryStore

	batchSize int

	// generationThreshold is the catalog size above which BeginScan
	// switches the delete phase from set-difference to generation-based
	// orphan detection, per spec.md §4.4's scalability alternative. Zero
	// disables the alternative path entirely.
	generationThreshold int

	mu                sync.Mutex
	seen              map[string]*MediaRecord
	pending           []*MediaRecord
	currentGeneration int64
	useGenerationMode bool
}

func NewAdapter(store Store, dirStore DirectoryStore, batchSize int) *Adapter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Adapter{
		store:     store,
		dirStore:  dirStore,
		batchSize: batchSize,
		seen:      make(map[string]*MediaRecord),
	}
}

// WithGenerationThreshold enables the generation-based orphan detection
// path once the catalog holds more than n paths. n <= 0 disables it,
// leaving the planner's set-difference computation as the only path.
func (a *Adapter) WithGenerationThreshold(n int) *Adapter {
	a.generationThreshold = n
	return a
}

// BeginScan clears the per-scan memoization cache and loads the current
// catalog snapshot into it, so Lookup reflects pre-scan state without a
// store round trip per file. It also advances the scan generation counter
// and decides, based on catalog size, whether this run uses generation-
// based orphan detection instead of the planner's set difference.
func (a *Adapter) BeginScan(ctx context.Context) error {
	paths, err := a.store.AllPaths(ctx)
	if err != nil {
		return fmt.Errorf("load catalog snapshot: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = make(map[string]*MediaRecord, len(paths))
	a.pending = nil
	for _, p := range paths {
		a.seen[p] = nil // presence without content: FindByPath fills it lazily
	}
	a.currentGeneration++
	a.useGenerationMode = a.generationThreshold > 0 && len(paths) > a.generationThreshold
	return nil
}

// UseGenerationDelete reports whether this scan should skip the planner's
// set-difference delete computation in favor of DeleteStaleGeneration.
func (a *Adapter) UseGenerationDelete() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.useGenerationMode
}

// DeleteStaleGeneration removes every record not touched by the current
// scan (i.e. every record whose scanGeneration predates it), the cheaper
// alternative to computing toDelete as a set difference over every known
// path. Returns the number of records removed.
func (a *Adapter) DeleteStaleGeneration(ctx context.Context) (int, error) {
	a.mu.Lock()
	gen := a.currentGeneration
	a.mu.Unlock()

	removed, err := a.store.DeleteStaleGeneration(ctx, gen)
	if err != nil {
		return 0, fmt.Errorf("delete stale generation: %w", err)
	}
	return removed, nil
}

// KnownPaths returns every path known to the catalog as of the last
// BeginScan snapshot. Valid only before any Stage call adds new paths to
// the memoization cache, i.e. during the planner's counting phase.
func (a *Adapter) KnownPaths() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	paths := make([]string, 0, len(a.seen))
	for p := range a.seen {
		paths = append(paths, p)
	}
	return paths
}

// Lookup returns the memoized record for path, fetching and caching it
// from the store on first access within the scan.
func (a *Adapter) Lookup(ctx context.Context, path string) (*MediaRecord, bool, error) {
	a.mu.Lock()
	rec, known := a.seen[path]
	a.mu.Unlock()
	if !known {
		return nil, false, nil
	}
	if rec != nil {
		return rec, true, nil
	}

	fetched, err := a.store.FindByPath(ctx, path)
	if err != nil {
		return nil, false, err
	}
	a.mu.Lock()
	a.seen[path] = fetched
	a.mu.Unlock()
	return fetched, fetched != nil, nil
}

// Stage queues rec to be written on the next Flush or once the internal
// batch reaches its configured size.
func (a *Adapter) Stage(ctx context.Context, rec *MediaRecord) error {
	a.mu.Lock()
	rec.scanGeneration = a.currentGeneration
	a.seen[rec.Path] = rec
	a.pending = append(a.pending, rec)
	shouldFlush := len(a.pending) >= a.batchSize
	var batch []*MediaRecord
	if shouldFlush {
		batch = a.pending
		a.pending = nil
	}
	a.mu.Unlock()

	if batch != nil {
		return a.saveWithRetry(ctx, batch)
	}
	return nil
}

// Flush writes any remaining staged records.
func (a *Adapter) Flush(ctx context.Context) error {
	a.mu.Lock()
	batch := a.pending
	a.pending = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return a.saveWithRetry(ctx, batch)
}

// DeleteBatch removes paths from the store and the memoization cache.
func (a *Adapter) DeleteBatch(ctx context.Context, paths []string) error {
	if err := a.retrying(ctx, func(ctx context.Context) error {
		return a.store.DeleteBatch(ctx, paths)
	}); err != nil {
		return err
	}

	a.mu.Lock()
	for _, p := range paths {
		delete(a.seen, p)
	}
	a.mu.Unlock()
	return nil
}

func (a *Adapter) saveWithRetry(ctx context.Context, batch []*MediaRecord) error {
	return a.retrying(ctx, func(ctx context.Context) error {
		return a.store.SaveBatch(ctx, batch)
	})
}

// TouchDirectory lazily upserts the coarse per-folder index entry for
// path. It is best-effort: a failure here never aborts a scan, since the
// Directory table is cached state for aggregate UI, never a correctness
// source.
func (a *Adapter) TouchDirectory(ctx context.Context, path string, fileCount int, lastModified time.Time) {
	if a.dirStore == nil {
		return
	}
	err := a.dirStore.Upsert(ctx, &Directory{
		Path:         path,
		FileCount:    fileCount,
		LastModified: lastModified,
	})
	if err != nil {
		log.Printf("[CatalogAdapter] directory upsert failed for %s: %v", path, err)
	}
}

// retrying runs op, retrying on transient store failures per
// StoreTransient semantics with the configured backoff schedule. A
// StoreFatal error aborts immediately without retry.
func (a *Adapter) retrying(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= len(retryBackoffs); attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrStoreFatal) {
			return lastErr
		}
		if attempt == len(retryBackoffs) {
			break
		}
		log.Printf("[CatalogAdapter] transient store error, retrying in %s: %v", retryBackoffs[attempt], lastErr)
		select {
		case <-time.After(retryBackoffs[attempt]):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", ErrStoreTransient, lastErr)
}

var (
	ErrStoreTransient = errors.New("catalog: transient store error")
	ErrStoreFatal     = errors.New("catalog: fatal store error")
)
