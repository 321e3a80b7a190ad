package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

// MaintenanceStep is one sub-job run inside the maintenance window.
// Timeout is the step's own budget; a step that overruns the window's
// deadline does not starve the steps after it. Zero means no step budget.
type MaintenanceStep struct {
	Name    string
	Run     func(ctx context.Context) (*model.JobResult, error)
	Timeout time.Duration
}

// Orchestrator runs the weekly maintenance window: flag on, sub-jobs in order,
// flag off on every exit path.
type Orchestrator struct {
	repo    port.MaintenanceRepository
	message string
	steps   []MaintenanceStep
	Clock   Clock
}

func NewOrchestrator(repo port.MaintenanceRepository, message string, steps ...MaintenanceStep) *Orchestrator {
	return &Orchestrator{repo: repo, message: message, steps: steps}
}

func (o *Orchestrator) Run(ctx context.Context) (res *model.JobResult, err error) {
	res = startResult(JobMaintenanceWindow, o.Clock)
	errs := NewErrorList(DefaultMaxErrors)

	if err := o.begin(ctx, res.StartedAt); err != nil {
		err = fmt.Errorf("enter maintenance: %w", err)
		return finishResult(res, errs, err, o.Clock), err
	}

	// teardown must outlive a cancelled or timed-out caller
	defer func() {
		if endErr := o.end(context.WithoutCancel(ctx), res.StartedAt); endErr != nil {
			log.Error().Err(endErr).Msg("leave maintenance failed")
			err = errors.Join(err, fmt.Errorf("leave maintenance: %w", endErr))
		}
		finishResult(res, errs, err, o.Clock)
	}()

	var stepErrs []error
	steps := make(map[string]any, len(o.steps))
	for _, st := range o.steps {
		sub, serr := o.runStep(ctx, st)
		if sub != nil {
			res.Updated += sub.Updated
			errs.Merge(sub.Errors, sub.DroppedErrors)
			steps[st.Name] = map[string]any{"success": sub.Success, "updated": sub.Updated}
		}
		if serr != nil {
			log.Error().Err(serr).Str("step", st.Name).Msg("maintenance step failed")
			stepErrs = append(stepErrs, fmt.Errorf("%s: %w", st.Name, serr))
			continue
		}
		log.Info().Str("step", st.Name).Msg("maintenance step done")
	}
	res.Details["steps"] = steps
	return res, errors.Join(stepErrs...)
}

// runStep converts a panicking sub-job into an error so the remaining steps
// and the teardown still run.
func (o *Orchestrator) runStep(ctx context.Context, st MaintenanceStep) (sub *model.JobResult, err error) {
	ctx, cancel := stepContext(ctx, st.Timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return st.Run(ctx)
}

// stepContext detaches a step from the window's deadline but not from an
// explicit cancellation such as shutdown.
func stepContext(parent context.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(parent)
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if budget > 0 {
		ctx, cancel = context.WithTimeout(base, budget)
	} else {
		ctx, cancel = context.WithCancel(base)
	}
	stop := context.AfterFunc(parent, func() {
		if errors.Is(parent.Err(), context.Canceled) {
			cancel()
		}
	})
	return ctx, func() {
		stop()
		cancel()
	}
}

func (o *Orchestrator) begin(ctx context.Context, at time.Time) error {
	return o.repo.SaveMaintenance(ctx, &model.MaintenanceMode{
		IsActive:  true,
		Message:   o.message,
		StartTime: at,
	})
}

func (o *Orchestrator) end(ctx context.Context, startedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	endAt := o.Clock.Now()
	return o.repo.SaveMaintenance(ctx, &model.MaintenanceMode{
		IsActive:  false,
		Message:   o.message,
		StartTime: startedAt,
		EndTime:   &endAt,
	})
}
