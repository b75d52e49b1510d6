package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumilio/scanner/internal/catalog"
	"github.com/lumilio/scanner/internal/extract"
	"github.com/lumilio/scanner/internal/heif"
)

func newTestCoordinator(t *testing.T, basePath string) (*Coordinator, *catalog.MemoryStore) {
	t.Helper()
	store := catalog.NewMemoryStore()
	adapter := catalog.NewAdapter(store, catalog.NewMemoryDirectoryStore(), catalog.DefaultBatchSize)
	extractor := extract.NewExtractor(extract.NewExifToolRunner(extract.DefaultExifToolConfig()), heif.NewBridge(1))
	reporter := NewReporter()

	cfg := Config{BasePath: basePath, ParallelEnabled: false, WorkerCount: 1}
	return NewCoordinator(cfg, adapter, extractor, reporter), store
}

func TestCoordinator_EmptyTreeCompletes(t *testing.T) {
	dir := t.TempDir()
	c, _ := newTestCoordinator(t, dir)

	err := c.StartScan(context.Background())
	require.NoError(t, err)

	snap := c.CurrentProgress()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "100.0", snap.ProgressPercentage)
	assert.False(t, c.IsScanning())
}

func TestCoordinator_SingleFlight(t *testing.T) {
	dir := t.TempDir()
	// A moderately large file count gives the first scan time to still be
	// "running" when the second StartScan races in.
	for i := 0; i < 20; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, string(rune('a'+i))+".jpg"), []byte("x"), 0o644))
	}

	c, _ := newTestCoordinator(t, dir)

	atomicStarted := make(chan struct{})
	go func() {
		close(atomicStarted)
		_ = c.StartScan(context.Background())
	}()
	<-atomicStarted

	// Best-effort race: depending on scheduling the first scan may already
	// be done, in which case AlreadyRunning cannot be asserted reliably,
	// so we only assert it when we do observe it mid-flight.
	if c.IsScanning() {
		err := c.StartScan(context.Background())
		assert.ErrorIs(t, err, ErrAlreadyRunning)
	}
}

func TestCoordinator_MissingBasePathIsRootUnreadable(t *testing.T) {
	store := catalog.NewMemoryStore()
	adapter := catalog.NewAdapter(store, catalog.NewMemoryDirectoryStore(), catalog.DefaultBatchSize)
	extractor := extract.NewExtractor(extract.NewExifToolRunner(extract.DefaultExifToolConfig()), heif.NewBridge(1))
	reporter := NewReporter()

	c := NewCoordinator(Config{BasePath: ""}, adapter, extractor, reporter)
	err := c.StartScan(context.Background())
	require.Error(t, err)

	snap := c.CurrentProgress()
	assert.Equal(t, StatusError, snap.Status)
}

func TestCoordinator_CancelDuringScan(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, string(rune('a'+i))+".jpg"), []byte("x"), 0o644))
	}

	c, _ := newTestCoordinator(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel before the walk even starts

	// Cancellation is reported through the terminal status, not as an error.
	err := c.StartScan(ctx)
	require.NoError(t, err)

	snap := c.CurrentProgress()
	assert.Equal(t, StatusCancelled, snap.Status)
}

func TestCoordinator_SchedulerDropsTickWhileRunning(t *testing.T) {
	dir := t.TempDir()
	c, _ := newTestCoordinator(t, dir)
	c.cfg.Enabled = true
	c.cfg.Cron = "* * * * * *" // every second, exercised only long enough to observe no panic

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.StartScheduler(ctx))
	time.Sleep(10 * time.Millisecond)
	c.StopScheduler()
}
