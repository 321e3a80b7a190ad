package composite

import (
	"context"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

// Sink fans a job result out to several sinks.
type Sink struct {
	sinks []port.ResultSink
}

func New(sinks ...port.ResultSink) *Sink {
	// nil sinks are skipped
	out := make([]port.ResultSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Sink{sinks: out}
}

// Publish delivers to every sink and returns the first error.
func (s *Sink) Publish(ctx context.Context, res *model.JobResult) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, res); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.ResultSink = (*Sink)(nil)
