package domain

import (
	"fmt"
	"strings"
	"time"
)

// WorkerStatus reflects the last known state a worker reported about itself.
// Liveness is always derived from the heartbeat timestamp, not this field.
type WorkerStatus string

const (
	WorkerActive   WorkerStatus = "ACTIVE"
	WorkerInactive WorkerStatus = "INACTIVE"
)

func (s WorkerStatus) String() string { return string(s) }

// WorkerHeartbeat is the liveness record for one process hosting dispatcher
// loops. Registered on start, refreshed at the start of every inter-batch
// sleep and after every iteration.
type WorkerHeartbeat struct {
	WorkerName    string
	Status        WorkerStatus
	LastHeartbeat time.Time
	JobsProcessed int64
	StartedAt     time.Time
}

func (w *WorkerHeartbeat) Validate() error {
	if strings.TrimSpace(w.WorkerName) == "" {
		return fmt.Errorf("%w: workerName is required", ErrValidation)
	}
	return nil
}

// Alive reports whether the worker refreshed its heartbeat within the
// threshold. A PROCESSING campaign whose worker is not alive is a stuck
// state requiring operator intervention; it is never auto-restarted.
func (w *WorkerHeartbeat) Alive(now time.Time, threshold time.Duration) bool {
	if w.Status != WorkerActive {
		return false
	}
	return now.Sub(w.LastHeartbeat) < threshold
}
