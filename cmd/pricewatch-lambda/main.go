package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"pricewatch/internal/domain/model"
	"pricewatch/internal/infrastructure/config"
	"pricewatch/internal/infrastructure/logger"
	"pricewatch/internal/infrastructure/svc"
)

// jobDetail is the EventBridge rule's constant input, e.g. {"job":"price-refresh"}.
type jobDetail struct {
	Job string `json:"job"`
}

var sc *svc.ServiceContext

func loadConfig() (*config.Config, error) {
	if path := os.Getenv("PRICEWATCH_CONFIG"); path != "" {
		return config.Load(path)
	}
	cfg := config.Default()
	if cfg.Storage.Postgres.DSN != "" {
		cfg.Storage.Driver = config.DriverPostgres
	}
	cfg.App.LogFormat = "json"
	return cfg, nil
}

func jobName(ev events.CloudWatchEvent) (string, error) {
	var d jobDetail
	if len(ev.Detail) > 0 {
		if err := json.Unmarshal(ev.Detail, &d); err != nil {
			return "", fmt.Errorf("decode event detail: %w", err)
		}
	}
	name := strings.TrimSpace(d.Job)
	if name == "" {
		return "", fmt.Errorf("event %s carries no job name", ev.ID)
	}
	return name, nil
}

func handler(ctx context.Context, ev events.CloudWatchEvent) (*model.JobResult, error) {
	name, err := jobName(ev)
	if err != nil {
		return nil, err
	}
	log.Info().Str("job", name).Str("event_id", ev.ID).Msg("invocation received")
	return sc.Scheduler.RunOnce(ctx, name)
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		logger.Setup("info", "json")
		log.Fatal().Err(err).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel, "json")

	// built once per cold start; warm invocations reuse the connections
	sc, err = svc.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}

	lambda.Start(handler)
}
