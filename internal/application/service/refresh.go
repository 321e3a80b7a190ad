package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pricewatch/internal/domain/model"
)

// Job names, shared by the dispatcher, the CLI and the Lambda handler.
const (
	JobPriceRefresh      = "price-refresh"
	JobMoversRefresh     = "movers-refresh"
	JobDailySnapshot     = "daily-snapshot"
	JobHistoryCleanup    = "history-cleanup"
	JobHistoryRetention  = "history-retention"
	JobSnapshotRetention = "snapshot-retention"
	JobMaintenanceWindow = "maintenance-window"
)

// startResult opens a JobResult with a fresh run id.
func startResult(job string, clock Clock) *model.JobResult {
	return &model.JobResult{
		Job:       job,
		RunID:     uuid.NewString(),
		StartedAt: clock.Now(),
		Details:   map[string]any{},
	}
}

// finishResult closes r. A job succeeds when err is nil; per-item errors do
// not fail it.
func finishResult(r *model.JobResult, errs *ErrorList, err error, clock Clock) *model.JobResult {
	r.FinishedAt = clock.Now()
	if errs != nil {
		r.Errors = errs.Items()
		r.DroppedErrors = errs.Dropped()
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	r.Success = err == nil
	if err != nil {
		r.Details["error"] = err.Error()
	}
	return r
}

// RefreshJob is the two-minute price refresh: crawl new cards, refresh known
// card prices, then spread simulated observations over what is left of the
// interval.
type RefreshJob struct {
	crawler   *Crawler
	updater   *PriceUpdater
	simulator *Simulator
	Clock     Clock
}

func NewRefreshJob(crawler *Crawler, updater *PriceUpdater, simulator *Simulator) *RefreshJob {
	return &RefreshJob{crawler: crawler, updater: updater, simulator: simulator}
}

// Run executes the three phases in order. A failing phase is reported but
// does not prevent the next one.
func (j *RefreshJob) Run(ctx context.Context) (*model.JobResult, error) {
	res := startResult(JobPriceRefresh, j.Clock)
	errs := NewErrorList(DefaultMaxErrors)
	var phaseErrs []error

	crawl, err := j.crawler.Run(ctx)
	if crawl != nil {
		res.Updated += crawl.Created + crawl.Updated
		errs.Merge(crawl.Errors.Items(), crawl.Errors.Dropped())
		res.Details["crawl"] = crawl
	}
	if err != nil {
		log.Warn().Err(err).Str("job", res.Job).Str("phase", "crawl").Msg("refresh phase failed")
		phaseErrs = append(phaseErrs, err)
	}

	upd, err := j.updater.Run(ctx)
	if upd != nil {
		res.Updated += upd.Updated
		errs.Merge(upd.Errors.Items(), upd.Errors.Dropped())
		res.Details["update"] = upd
	}
	if err != nil {
		log.Warn().Err(err).Str("job", res.Job).Str("phase", "update").Msg("refresh phase failed")
		phaseErrs = append(phaseErrs, err)
	}

	sim, err := j.simulator.Run(ctx, res.StartedAt)
	if sim != nil {
		res.Updated += sim.Touched
		errs.Merge(sim.Errors.Items(), sim.Errors.Dropped())
		res.Details["live"] = map[string]any{
			"touched":   sim.Touched,
			"window_ms": sim.Window.Milliseconds(),
			"wrapped":   sim.Wrapped,
		}
	}
	if err != nil {
		log.Warn().Err(err).Str("job", res.Job).Str("phase", "live").Msg("refresh phase failed")
		phaseErrs = append(phaseErrs, err)
	}

	jobErr := errors.Join(phaseErrs...)
	return finishResult(res, errs, jobErr, j.Clock), jobErr
}
