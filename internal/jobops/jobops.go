// Package jobops defines the JobOperations contract the reconciler uses
// to enumerate running tasks and look up jobs, see spec.md §4.5.
package jobops

import (
	"context"
	"errors"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
)

// ErrJobNotFound signals that the job itself no longer exists — an
// orphan condition (spec.md §4.2, "Orphan detection"), distinct from any
// other, transient error from GetTasks.
var ErrJobNotFound = errors.New("jobops: job not found")

// JobOperations is the reconciler's read-only view into the job
// manager.
type JobOperations interface {
	// GetTasks returns the currently running tasks of jobId. Returns
	// ErrJobNotFound if the job does not exist; any other non-nil error
	// is treated as transient and retried next tick.
	GetTasks(ctx context.Context, jobId models.JobId) ([]models.RunningTask, error)
	// GetJob reports whether jobId currently exists.
	GetJob(ctx context.Context, jobId models.JobId) (bool, error)
}
