package scan

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lumilio/scanner/internal/catalog"
	"github.com/lumilio/scanner/internal/derivative"
	"github.com/lumilio/scanner/internal/extract"
)

const (
	flagIdle int32 = iota
	flagRunning
)

// Coordinator is the single-flight entry point for the scan pipeline: it
// owns the running flag, wires the planner and executor together for one
// run, and optionally drives them from a cron schedule.
type Coordinator struct {
	cfg        Config
	adapter    *catalog.Adapter
	extractor  *extract.Extractor
	reporter   *Reporter
	thumbnails *derivative.Queue

	running int32 // atomic: flagIdle | flagRunning

	mu         sync.Mutex
	cancelFunc context.CancelFunc

	cronSched cron.Schedule
	stopCron  chan struct{}
}

func NewCoordinator(cfg Config, adapter *catalog.Adapter, extractor *extract.Extractor, reporter *Reporter) *Coordinator {
	if cfg.GenerationOrphanThreshold > 0 {
		adapter.WithGenerationThreshold(cfg.GenerationOrphanThreshold)
	}
	return &Coordinator{
		cfg:       cfg,
		adapter:   adapter,
		extractor: extractor,
		reporter:  reporter,
	}
}

// WithThumbnailQueue attaches the derivative-cache producer used by every
// subsequent scan's executor.
func (c *Coordinator) WithThumbnailQueue(q *derivative.Queue) *Coordinator {
	c.thumbnails = q
	return c
}

// StartScan atomically transitions idle → running via compare-and-swap,
// returning ErrAlreadyRunning if a scan is already in flight.
func (c *Coordinator) StartScan(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&c.running, flagIdle, flagRunning) {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()

	defer func() {
		atomic.StoreInt32(&c.running, flagIdle)
		c.mu.Lock()
		c.cancelFunc = nil
		c.mu.Unlock()
	}()

	c.reporter.Reset(time.Now())

	err := c.run(runCtx)

	status := StatusCompleted
	var message string
	switch {
	case err == nil:
		status = StatusCompleted
	case err == ErrCancelled || runCtx.Err() != nil:
		status = StatusCancelled
		message = "scan cancelled"
	default:
		status = StatusError
		message = err.Error()
	}

	completedPhase := PhaseCompleted
	c.reporter.Update(Patch{Status: &status, Phase: &completedPhase, Message: &message})

	if status == StatusError {
		return err
	}
	return nil
}

func (c *Coordinator) run(ctx context.Context) error {
	if c.cfg.BasePath == "" {
		return fmt.Errorf("%w: basePath not configured", ErrRootUnreadable)
	}

	if err := c.adapter.BeginScan(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFatal, err)
	}

	planner := NewPlanner(c.adapter, c.reporter)
	plan, err := planner.Plan(ctx, c.cfg.BasePath)
	if err != nil {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return fmt.Errorf("%w: %v", ErrRootUnreadable, err)
	}

	progressStatus := StatusProgress
	c.reporter.Update(Patch{Status: &progressStatus})

	executor := NewExecutor(c.extractor, c.adapter, c.reporter, ExecutorConfig{
		ParallelEnabled: c.cfg.ParallelEnabled,
		WorkerCount:     c.cfg.WorkerCount,
	}).WithThumbnailQueue(c.thumbnails)

	return executor.Run(ctx, plan)
}

// CancelScan sets a cooperative cancellation flag; idempotent, a no-op
// when no scan is running.
func (c *Coordinator) CancelScan() {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// CurrentProgress delegates to the Progress Reporter.
func (c *Coordinator) CurrentProgress() Progress {
	return c.reporter.Snapshot()
}

// IsScanning reports whether a scan is currently active.
func (c *Coordinator) IsScanning() bool {
	return atomic.LoadInt32(&c.running) == flagRunning
}

// StartScheduler begins the cron-like recurring trigger described in the
// coordinator's scheduling hook. A tick that arrives while a scan is
// already running is dropped with a log line, never queued.
func (c *Coordinator) StartScheduler(ctx context.Context) error {
	if !c.cfg.Enabled || c.cfg.Cron == "" {
		return nil
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(c.cfg.Cron)
	if err != nil {
		return fmt.Errorf("parse scan.cron %q: %w", c.cfg.Cron, err)
	}
	c.cronSched = sched
	c.stopCron = make(chan struct{})

	go c.runScheduler(ctx)
	return nil
}

func (c *Coordinator) runScheduler(ctx context.Context) {
	for {
		now := time.Now()
		next := c.cronSched.Next(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-c.stopCron:
			timer.Stop()
			return
		case <-timer.C:
			if c.IsScanning() {
				log.Println("[ScanCoordinator] scheduled tick dropped: scan already running")
				continue
			}
			go func() {
				if err := c.StartScan(ctx); err != nil {
					log.Printf("[ScanCoordinator] scheduled scan failed: %v", err)
				}
			}()
		}
	}
}

// StopScheduler halts the cron trigger without affecting a scan already
// in flight.
func (c *Coordinator) StopScheduler() {
	if c.stopCron != nil {
		close(c.stopCron)
	}
}
