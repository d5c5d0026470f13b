// Package async runs file processing on a bounded worker pool, so the
// drop-folder daemon keeps draining watcher events while model calls are
// in flight.
package async

import (
	"context"
	"time"
)

// Job is one file to process. Extend as needed later (priority, retry, trace).
type Job struct {
	Path        string // ticket file to process
	Pages       []int  // page selection, nil means every page
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
