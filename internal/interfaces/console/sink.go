package console

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

// Sink logs one summary line per job run.
type Sink struct{}

func NewSink() port.ResultSink { return &Sink{} }

func (s *Sink) Publish(ctx context.Context, res *model.JobResult) error {
	var ev *zerolog.Event
	switch {
	case !res.Success:
		ev = log.Error()
	case len(res.Errors) > 0:
		ev = log.Warn()
	default:
		ev = log.Info()
	}
	ev = ev.
		Str("job", res.Job).
		Str("run_id", res.RunID).
		Bool("success", res.Success).
		Int("updated", res.Updated).
		Int("errors", len(res.Errors)+res.DroppedErrors).
		Dur("took", res.Duration())
	if len(res.Errors) > 0 {
		ev = ev.Str("first_error", res.Errors[0])
	}
	if msg, ok := res.Details["error"].(string); ok {
		ev = ev.Str("error", msg)
	}
	ev.Msg("job finished")
	return nil
}
