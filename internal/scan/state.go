// Package scan implements the scan pipeline: walking a media tree,
// reconciling it against the catalog, extracting metadata in a bounded
// worker pool, and publishing progress to observers, one scan at a time.
package scan

// Status is the coarse lifecycle state of a scan.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusStarted   Status = "started"
	StatusProgress  Status = "progress"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Phase is the finer-grained stage within a running scan.
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseCounting   Phase = "counting"
	PhaseProcessing Phase = "processing"
	PhaseDeleting   Phase = "deleting"
	PhaseCompleted  Phase = "completed"
)

// IsActive reports whether status counts as "a scan is running" for the
// coordinator's isScanning/single-flight contract.
func (s Status) IsActive() bool {
	switch s {
	case StatusStarted, StatusProgress:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether status ends a scan run.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}
