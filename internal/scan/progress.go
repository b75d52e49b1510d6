package scan

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Progress is the immutable snapshot delivered to observers, the wire
// shape described for the duplex progress channel.
type Progress struct {
	Scanning bool `json:"scanning"`

	Status Status `json:"status"`
	Phase  Phase  `json:"phase"`

	PhaseMessage string `json:"phaseMessage"`
	Message      string `json:"message,omitempty"`

	TotalFiles   int `json:"totalFiles"`
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`

	FilesToAdd    int `json:"filesToAdd"`
	FilesToUpdate int `json:"filesToUpdate"`
	FilesToDelete int `json:"filesToDelete"`

	ProgressPercentage string    `json:"progressPercentage"`
	StartTime          time.Time `json:"startTime"`
}

// Patch is a set of field deltas applied atomically by Reporter.Update.
// Pointer/nil-slice-style optional fields let a caller update only what
// changed without first reading the current snapshot.
type Patch struct {
	Status *Status
	Phase  *Phase

	PhaseMessage *string
	Message      *string

	TotalFiles   *int
	SuccessCount *int
	FailureCount *int

	FilesToAdd    *int
	FilesToUpdate *int
	FilesToDelete *int
}

// Observer receives snapshots. Delivery is best-effort: Reporter never
// blocks a worker on a slow or absent observer.
type Observer func(Progress)

// subscriberQueueSize bounds each observer's buffered channel. A full
// channel means the subscriber is falling behind; the oldest queued
// snapshot is dropped rather than blocking the publisher, per spec.md
// §4.6's non-blocking fan-out requirement.
const subscriberQueueSize = 8

// Reporter holds the current ScanProgress behind a mutex and fans updates
// out to subscribers. Non-terminal updates that arrive within the
// coalescing window of the last publish are not published (and are not
// flushed later), so a fast worker pool cannot flood observers.
type Reporter struct {
	mu        sync.Mutex
	current   Progress
	subs      map[int]chan Progress
	nextSubID int

	lastPublish time.Time
	coalesce    time.Duration
}

func NewReporter() *Reporter {
	return &Reporter{
		current: Progress{
			Status:             StatusIdle,
			ProgressPercentage: "0.0",
		},
		subs:     make(map[int]chan Progress),
		coalesce: 100 * time.Millisecond,
	}
}

// Snapshot returns a deep copy of the current progress; callers never see
// a half-applied update.
func (r *Reporter) Snapshot() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Reset reinitializes progress for a new scan, called by the coordinator
// on a successful startScan transition.
func (r *Reporter) Reset(startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = Progress{
		Scanning:           true,
		Status:             StatusStarted,
		Phase:              PhaseCollecting,
		ProgressPercentage: "0.0",
		StartTime:          startTime,
	}
	r.lastPublish = time.Time{}
	r.publishLocked(true)
}

// Update applies patch atomically, recomputes progressPercentage from the
// resulting counters, and publishes to subscribers unless the update
// falls inside the coalescing window and is not a terminal state.
func (r *Reporter) Update(patch Patch) Progress {
	r.mu.Lock()
	defer r.mu.Unlock()

	if patch.Status != nil {
		r.current.Status = *patch.Status
		r.current.Scanning = r.current.Status.IsActive() || r.current.Status == StatusStarted
	}
	if patch.Phase != nil {
		r.current.Phase = *patch.Phase
	}
	if patch.PhaseMessage != nil {
		r.current.PhaseMessage = *patch.PhaseMessage
	}
	if patch.Message != nil {
		r.current.Message = *patch.Message
	}
	if patch.TotalFiles != nil {
		r.current.TotalFiles = *patch.TotalFiles
	}
	if patch.SuccessCount != nil {
		r.current.SuccessCount = *patch.SuccessCount
	}
	if patch.FailureCount != nil {
		r.current.FailureCount = *patch.FailureCount
	}
	if patch.FilesToAdd != nil {
		r.current.FilesToAdd = *patch.FilesToAdd
	}
	if patch.FilesToUpdate != nil {
		r.current.FilesToUpdate = *patch.FilesToUpdate
	}
	if patch.FilesToDelete != nil {
		r.current.FilesToDelete = *patch.FilesToDelete
	}

	r.current.ProgressPercentage = computePercentage(r.current.TotalFiles, r.current.SuccessCount, r.current.FailureCount)

	terminal := r.current.Status.IsTerminal()
	if terminal {
		r.current.Scanning = false
	}
	r.publishLocked(terminal)

	return r.current
}

func computePercentage(total, success, failure int) string {
	if total <= 0 {
		return "100.0"
	}
	pct := 100 * float64(success+failure) / float64(total)
	pct = math.Floor(pct*10) / 10
	return fmt.Sprintf("%.1f", pct)
}

// publishLocked delivers the current snapshot to every subscriber's
// queue, honoring the coalescing window unless force is set (terminal
// updates always publish). A queue at capacity has its oldest pending
// snapshot dropped in favor of the newest one, so a stalled subscriber
// falls behind rather than blocking the caller holding r.mu.
func (r *Reporter) publishLocked(force bool) {
	now := time.Now()
	if !force && now.Sub(r.lastPublish) < r.coalesce {
		return
	}
	r.lastPublish = now

	snapshot := r.current
	for _, ch := range r.subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// Subscribe registers observer and returns a token for Unsubscribe. Each
// subscriber gets its own buffered channel and delivery goroutine, so one
// slow observer callback cannot reorder or delay another's snapshots.
func (r *Reporter) Subscribe(observer Observer) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	ch := make(chan Progress, subscriberQueueSize)
	r.subs[id] = ch

	go func() {
		for p := range ch {
			safeDeliver(observer, p)
		}
	}()
	return id
}

func safeDeliver(obs Observer, p Progress) {
	defer func() { _ = recover() }()
	obs(p)
}

func (r *Reporter) Unsubscribe(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.subs[id]; ok {
		close(ch)
		delete(r.subs, id)
	}
}
