package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumilio/scanner/internal/catalog"
	"github.com/lumilio/scanner/internal/utils/file"
)

// flakyStore fails SaveBatch the first failCount times with a transient
// error, then delegates to an embedded MemoryStore.
type flakyStore struct {
	*catalog.MemoryStore
	failCount int
	calls     int
}

func (f *flakyStore) SaveBatch(ctx context.Context, records []*catalog.MediaRecord) error {
	f.calls++
	if f.calls <= f.failCount {
		return errors.New("connection reset")
	}
	return f.MemoryStore.SaveBatch(ctx, records)
}

func TestAdapter_FlushesAtBatchSize(t *testing.T) {
	store := catalog.NewMemoryStore()
	adapter := catalog.NewAdapter(store, catalog.NewMemoryDirectoryStore(), 2)

	ctx := context.Background()
	require.NoError(t, adapter.BeginScan(ctx))

	require.NoError(t, adapter.Stage(ctx, &catalog.MediaRecord{Path: "/a.jpg", Category: file.CategoryImage}))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "should not flush below batch size")

	require.NoError(t, adapter.Stage(ctx, &catalog.MediaRecord{Path: "/b.jpg", Category: file.CategoryImage}))
	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "should flush once batch size is reached")
}

func TestAdapter_FlushWritesRemainder(t *testing.T) {
	store := catalog.NewMemoryStore()
	adapter := catalog.NewAdapter(store, catalog.NewMemoryDirectoryStore(), 10)
	ctx := context.Background()
	require.NoError(t, adapter.BeginScan(ctx))

	require.NoError(t, adapter.Stage(ctx, &catalog.MediaRecord{Path: "/a.jpg", Category: file.CategoryImage}))
	require.NoError(t, adapter.Flush(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAdapter_LookupReflectsPreScanSnapshot(t *testing.T) {
	store := catalog.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SaveBatch(ctx, []*catalog.MediaRecord{
		{Path: "/existing.jpg", Size: 100, Category: file.CategoryImage},
	}))

	adapter := catalog.NewAdapter(store, catalog.NewMemoryDirectoryStore(), catalog.DefaultBatchSize)
	require.NoError(t, adapter.BeginScan(ctx))

	rec, found, err := adapter.Lookup(ctx, "/existing.jpg")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(100), rec.Size)

	_, found, err = adapter.Lookup(ctx, "/missing.jpg")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAdapter_RetriesTransientErrors(t *testing.T) {
	store := &flakyStore{MemoryStore: catalog.NewMemoryStore(), failCount: 1}
	adapter := catalog.NewAdapter(store, catalog.NewMemoryDirectoryStore(), 1)
	ctx := context.Background()
	require.NoError(t, adapter.BeginScan(ctx))

	start := time.Now()
	err := adapter.Stage(ctx, &catalog.MediaRecord{Path: "/a.jpg", Category: file.CategoryImage})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAdapter_DeleteBatchRemovesFromCache(t *testing.T) {
	store := catalog.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SaveBatch(ctx, []*catalog.MediaRecord{
		{Path: "/gone.jpg", Category: file.CategoryImage},
	}))

	adapter := catalog.NewAdapter(store, catalog.NewMemoryDirectoryStore(), catalog.DefaultBatchSize)
	require.NoError(t, adapter.BeginScan(ctx))

	require.NoError(t, adapter.DeleteBatch(ctx, []string{"/gone.jpg"}))

	_, found, err := adapter.Lookup(ctx, "/gone.jpg")
	require.NoError(t, err)
	assert.False(t, found)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAdapter_DeleteStaleGenerationRemovesUntouchedRecords(t *testing.T) {
	store := catalog.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SaveBatch(ctx, []*catalog.MediaRecord{
		{Path: "/stale.jpg", Category: file.CategoryImage},
	}))

	adapter := catalog.NewAdapter(store, catalog.NewMemoryDirectoryStore(), catalog.DefaultBatchSize)
	adapter.WithGenerationThreshold(0) // disabled for the count check below
	require.NoError(t, adapter.BeginScan(ctx))
	assert.False(t, adapter.UseGenerationDelete(), "threshold 0 must never enable generation mode")

	require.NoError(t, adapter.Stage(ctx, &catalog.MediaRecord{Path: "/touched.jpg", Category: file.CategoryImage}))
	require.NoError(t, adapter.Flush(ctx))

	removed, err := adapter.DeleteStaleGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
