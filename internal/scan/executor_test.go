package scan

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumilio/scanner/internal/catalog"
	"github.com/lumilio/scanner/internal/extract"
	"github.com/lumilio/scanner/internal/heif"
	"github.com/lumilio/scanner/internal/utils/file"
)

func newTestExecutor(adapter *catalog.Adapter, reporter *Reporter) *Executor {
	extractor := extract.NewExtractor(extract.NewExifToolRunner(extract.DefaultExifToolConfig()), heif.NewBridge(1))
	return NewExecutor(extractor, adapter, reporter, ExecutorConfig{ParallelEnabled: false, WorkerCount: 1})
}

func TestExecutor_FastPathSkipBumpsLastScannedOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(path, []byte("unchanged"), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	store := catalog.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SaveBatch(ctx, []*catalog.MediaRecord{
		{Path: path, Size: info.Size(), ModifyTime: info.ModTime(), Category: file.CategoryImage, CameraMake: strPtr("Canon")},
	}))

	adapter := catalog.NewAdapter(store, catalog.NewMemoryDirectoryStore(), catalog.DefaultBatchSize)
	require.NoError(t, adapter.BeginScan(ctx))

	reporter := NewReporter()
	reporter.Reset(time.Now())
	exec := newTestExecutor(adapter, reporter)

	plan := &Plan{ToUpdate: []Item{{Path: path, Info: info}}}
	require.NoError(t, exec.Run(ctx, plan))

	rec, err := store.FindByPath(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, rec.CameraMake)
	assert.Equal(t, "Canon", *rec.CameraMake, "fast-path skip must not re-extract")

	snap := reporter.Snapshot()
	assert.Equal(t, 1, snap.SuccessCount)
}

// cancelOnFirstSave wraps a MemoryStore and cancels the scan synchronously
// from inside the first SaveBatch call, so the cancellation is guaranteed
// to land before the worker that triggered it returns and the single
// worker slot frees up for the next item.
type cancelOnFirstSave struct {
	*catalog.MemoryStore
	cancel context.CancelFunc

	mu        sync.Mutex
	cancelled bool
}

func (s *cancelOnFirstSave) SaveBatch(ctx context.Context, records []*catalog.MediaRecord) error {
	if err := s.MemoryStore.SaveBatch(ctx, records); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cancelled {
		s.cancelled = true
		s.cancel()
	}
	return nil
}

func TestExecutor_CancellationStillFlushesCommittedWork(t *testing.T) {
	dir := t.TempDir()
	items := make([]Item, 0, 3)
	for i := 0; i < 3; i++ {
		p := filepath.Join(dir, "f"+string(rune('a'+i))+".jpg")
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		info, err := os.Stat(p)
		require.NoError(t, err)
		items = append(items, Item{Path: p, Info: info})
	}

	ctx, cancel := context.WithCancel(context.Background())
	memStore := catalog.NewMemoryStore()
	store := &cancelOnFirstSave{MemoryStore: memStore, cancel: cancel}
	adapter := catalog.NewAdapter(store, catalog.NewMemoryDirectoryStore(), 1) // flush every item
	require.NoError(t, adapter.BeginScan(ctx))

	reporter := NewReporter()
	reporter.Reset(time.Now())
	exec := newTestExecutor(adapter, reporter) // WorkerCount: 1, serial, so cancellation lands between items deterministically

	plan := &Plan{ToAdd: items}
	err := exec.Run(ctx, plan)
	assert.Equal(t, ErrCancelled, err)

	count, err := memStore.Count(context.Background())
	require.NoError(t, err)
	assert.Greater(t, count, 0, "work already committed before cancellation must survive")
	assert.Less(t, count, len(items), "items after the cancellation point must not be processed")
}

func TestExecutor_GenerationBasedDeletePhase(t *testing.T) {
	dir := t.TempDir()
	newPath := filepath.Join(dir, "new.jpg")
	require.NoError(t, os.WriteFile(newPath, []byte("x"), 0o644))
	info, err := os.Stat(newPath)
	require.NoError(t, err)

	ctx := context.Background()
	store := catalog.NewMemoryStore()
	require.NoError(t, store.SaveBatch(ctx, []*catalog.MediaRecord{
		{Path: "/stale/a.jpg", Size: 1, Category: file.CategoryImage},
		{Path: "/stale/b.jpg", Size: 1, Category: file.CategoryImage},
	}))

	adapter := catalog.NewAdapter(store, catalog.NewMemoryDirectoryStore(), catalog.DefaultBatchSize)
	adapter.WithGenerationThreshold(1) // 2 known paths > threshold of 1
	require.NoError(t, adapter.BeginScan(ctx))
	require.True(t, adapter.UseGenerationDelete(), "generation mode should trigger once catalog exceeds the threshold")

	reporter := NewReporter()
	reporter.Reset(time.Now())
	exec := newTestExecutor(adapter, reporter)

	plan := &Plan{ToAdd: []Item{{Path: newPath, Info: info}}, UseGenerationDelete: true}
	require.NoError(t, exec.Run(ctx, plan))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "both stale records should be removed, leaving only the newly touched one")

	snap := reporter.Snapshot()
	assert.Equal(t, 2, snap.FilesToDelete)
}

func strPtr(s string) *string { return &s }
