package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"pricewatch/internal/application/usecase/scheduler"
	"pricewatch/internal/infrastructure/config"
	"pricewatch/internal/infrastructure/logger"
	"pricewatch/internal/infrastructure/svc"
	"pricewatch/internal/interfaces/httpapi"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	runJob := flag.String("run", "", "run a single job once and exit")
	list := flag.Bool("list", false, "list jobs with their schedule and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Setup("info", "console")
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel, cfg.App.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer sc.Close()

	switch {
	case *list:
		now := time.Now().UTC()
		for _, j := range sc.Scheduler.Jobs() {
			next, _ := sc.Scheduler.Next(j.Name, now)
			fmt.Printf("%-20s %-14s next %s\n", j.Name, j.Spec, next.Format(time.RFC3339))
		}
		return

	case *runJob != "":
		res, err := sc.Scheduler.RunOnce(ctx, *runJob)
		if errors.Is(err, scheduler.ErrUnknownJob) {
			log.Error().Str("job", *runJob).Msg("unknown job, see -list")
			sc.Close()
			os.Exit(2)
		}
		if err != nil {
			log.Error().Err(err).Str("job", *runJob).Msg("job failed")
			sc.Close()
			os.Exit(1)
		}
		log.Info().Str("job", res.Job).Int("updated", res.Updated).Msg("job done")
		return
	}

	if cfg.HTTP.Enabled {
		api := httpapi.New(sc.Query)
		go func() {
			if err := api.Run(ctx, cfg.HTTP.Addr); err != nil {
				log.Error().Err(err).Msg("http api exited")
				stop()
			}
		}()
	}

	log.Info().
		Str("config", *configPath).
		Str("driver", cfg.Storage.Driver).
		Bool("http", cfg.HTTP.Enabled).
		Msg("pricewatch started")

	if err := sc.Scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("scheduler exited")
	}
}
