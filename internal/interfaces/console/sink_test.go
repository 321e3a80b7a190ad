package console

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pricewatch/internal/domain/model"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestSinkLevels(t *testing.T) {
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		res   *model.JobResult
		level string
	}{
		{"success", &model.JobResult{Job: "j", Success: true}, "info"},
		{"item errors", &model.JobResult{Job: "j", Success: true, Errors: []string{"x"}}, "warn"},
		{"failure", &model.JobResult{Job: "j", Details: map[string]any{"error": "boom"}}, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t)
			tt.res.StartedAt, tt.res.FinishedAt = start, start.Add(time.Second)
			if err := NewSink().Publish(context.Background(), tt.res); err != nil {
				t.Fatal(err)
			}
			var line map[string]any
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("bad log line %q: %v", buf.String(), err)
			}
			if line["level"] != tt.level || line["job"] != "j" {
				t.Errorf("unexpected line %v", line)
			}
		})
	}
}
