package characterize

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrJobPanicked wraps a panic recovered from a job.
	ErrJobPanicked = errors.New("job panicked")
	// ErrFrequencyMismatch means two jobs returned different frequency
	// grids, so their curves cannot share a table.
	ErrFrequencyMismatch = errors.New("frequency vectors differ between jobs")
)

// JobError is the failure of one job.
type JobError struct {
	Key JobKey
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s: %v", e.Key, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }
