package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

type ServiceDeps struct {
	Jobs    []Job
	Sink    port.ResultSink
	Timeout time.Duration // default per invocation
}

// Service dispatches jobs on their cron schedule. Runs of the same job never
// overlap; a tick that fires while the previous run is busy is skipped.
type Service struct {
	deps   ServiceDeps
	byName map[string]Job
	cron   *cron.Cron
}

func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Timeout <= 0 {
		deps.Timeout = 55 * time.Second
	}
	byName := make(map[string]Job, len(deps.Jobs))
	for _, j := range deps.Jobs {
		if _, dup := byName[j.Name]; dup {
			return nil, fmt.Errorf("job %q registered twice", j.Name)
		}
		if _, err := cron.ParseStandard(j.Spec); err != nil {
			return nil, fmt.Errorf("job %q: bad schedule %q: %w", j.Name, j.Spec, err)
		}
		byName[j.Name] = j
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	return &Service{deps: deps, byName: byName, cron: c}, nil
}

// Jobs returns the registered jobs sorted by name.
func (s *Service) Jobs() []Job {
	out := make([]Job, 0, len(s.byName))
	for _, j := range s.byName {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// Next reports when a job fires next after t.
func (s *Service) Next(name string, t time.Time) (time.Time, error) {
	j, ok := s.byName[name]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	sched, err := cron.ParseStandard(j.Spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(t.UTC()), nil
}

// Run starts the schedule and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Service) Run(ctx context.Context) error {
	for _, j := range s.Jobs() {
		job := j
		if _, err := s.cron.AddFunc(job.Spec, func() {
			_, _ = s.invoke(ctx, job)
		}); err != nil {
			return fmt.Errorf("schedule %q: %w", job.Name, err)
		}
		log.Info().Str("job", job.Name).Str("spec", job.Spec).Msg("job scheduled")
	}

	s.cron.Start()
	log.Info().Int("jobs", len(s.byName)).Msg("scheduler started")

	<-ctx.Done()
	log.Info().Msg("scheduler stopping")
	<-s.cron.Stop().Done()
	return ctx.Err()
}

// RunOnce runs a single job immediately, outside the schedule.
func (s *Service) RunOnce(ctx context.Context, name string) (*model.JobResult, error) {
	j, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.invoke(ctx, j)
}

func (s *Service) timeout(j Job) time.Duration {
	if j.Timeout > 0 {
		return j.Timeout
	}
	return s.deps.Timeout
}

func (s *Service) invoke(ctx context.Context, j Job) (*model.JobResult, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	jobCtx, cancel := context.WithTimeout(ctx, s.timeout(j))
	defer cancel()

	log.Debug().Str("job", j.Name).Msg("job starting")
	res, err := j.Run(jobCtx)
	if res == nil {
		res = &model.JobResult{Job: j.Name, Errors: []string{}}
		if err != nil {
			res.Details = map[string]any{"error": err.Error()}
		}
	}

	if s.deps.Sink != nil {
		pubCtx, pubCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer pubCancel()
		if perr := s.deps.Sink.Publish(pubCtx, res); perr != nil {
			log.Warn().Err(perr).Str("job", j.Name).Msg("publish job result failed")
		}
	}
	return res, err
}
