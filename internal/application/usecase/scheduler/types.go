package scheduler

import (
	"context"
	"errors"
	"time"

	"pricewatch/internal/domain/model"
)

var ErrUnknownJob = errors.New("unknown job")

// JobFunc runs one bounded invocation of a job.
type JobFunc func(ctx context.Context) (*model.JobResult, error)

// Job binds a name and a standard 5-field cron spec (UTC) to a JobFunc.
// Timeout overrides the dispatcher's default budget when positive.
type Job struct {
	Name    string
	Spec    string
	Run     JobFunc
	Timeout time.Duration
}
