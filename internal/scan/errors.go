package scan

import "errors"

var (
	// ErrAlreadyRunning is returned by Coordinator.StartScan when a scan
	// is already active process-wide (the single-flight invariant).
	ErrAlreadyRunning = errors.New("scan: already running")

	// ErrStoreFatal signals unrecoverable catalog access; the coordinator
	// flips status to error and abandons remaining work.
	ErrStoreFatal = errors.New("scan: fatal store error")

	// ErrCancelled marks a run that ended because cancelScan was called.
	ErrCancelled = errors.New("scan: cancelled")

	// ErrRootUnreadable means the configured root path could not be
	// walked at all, a catastrophic failure per the error-handling design.
	ErrRootUnreadable = errors.New("scan: root path unreadable")
)
