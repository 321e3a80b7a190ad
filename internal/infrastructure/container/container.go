package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"pricewatch/internal/application/port"
	"pricewatch/internal/infrastructure/config"
	"pricewatch/internal/infrastructure/storage/composite"
	"pricewatch/internal/infrastructure/storage/memory"
	"pricewatch/internal/infrastructure/storage/noop"
	pgrepo "pricewatch/internal/infrastructure/storage/postgres"
	redisrepo "pricewatch/internal/infrastructure/storage/redis"
	sqliterepo "pricewatch/internal/infrastructure/storage/sqlite"
	"pricewatch/internal/interfaces/console"
)

// Container owns the store, the optional Redis client and the result sinks.
type Container struct {
	cfg         *config.Config
	store       port.Store
	redisClient *redis.Client
	redisRepo   *redisrepo.Repo
	moversCache port.MoversCache
	sink        port.ResultSink
	closeOnce   sync.Once
	closerChain []func() error
}

// New opens the configured store and, when enabled, Redis.
func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}

	if err := c.initStorage(); err != nil {
		// release what was already opened
		_ = c.Close()
		return nil, err
	}
	if cfg.Storage.Redis.Enabled {
		if err := c.initRedis(); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("redis init failed: %w", err)
		}
	}

	if c.redisRepo != nil {
		c.moversCache = c.redisRepo
		c.sink = composite.New(console.NewSink(), c.redisRepo)
	} else {
		c.moversCache = noop.NewCache()
		c.sink = console.NewSink()
	}
	return c, nil
}

// initStorage opens the primary store for the configured driver.
func (c *Container) initStorage() error {
	switch c.cfg.Storage.Driver {
	case config.DriverSQLite:
		repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
		if err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
		c.setStore(repo, "sqlite")
		log.Info().Str("path", c.cfg.Storage.SQLite.Path).Msg("sqlite initialized")

	case config.DriverPostgres:
		repo, err := pgrepo.New(c.cfg.Storage.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
		c.setStore(repo, "postgres")
		log.Info().Msg("postgres initialized")

	case config.DriverMemory:
		c.setStore(memory.New(), "memory")
		log.Warn().Msg("memory store in use, state is lost on exit")

	default:
		return fmt.Errorf("unsupported storage driver %q", c.cfg.Storage.Driver)
	}
	return nil
}

func (c *Container) setStore(s port.Store, name string) {
	c.store = s
	// register for Close
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Str("driver", name).Msg("closing store")
		return s.Close()
	})
}

// initRedis connects and pings Redis.
func (c *Container) initRedis() error {
	rc := c.cfg.Storage.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	// fail fast on a bad address
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb
	c.redisRepo = redisrepo.New(rdb, rc.Prefix, rc.JobStream)

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", rc.Addr).
		Int("db", rc.DB).
		Msg("redis initialized")

	return nil
}

// Config returns the loaded configuration.
func (c *Container) Config() *config.Config {
	return c.cfg
}

// Store returns the primary store.
func (c *Container) Store() port.Store {
	return c.store
}

// RedisClient is nil when Redis is disabled.
func (c *Container) RedisClient() *redis.Client {
	return c.redisClient
}

// MoversCache returns the Redis cache or a no-op one.
func (c *Container) MoversCache() port.MoversCache {
	return c.moversCache
}

// ResultSink returns where job results are published.
func (c *Container) ResultSink() port.ResultSink {
	return c.sink
}

// Close releases resources in reverse order of opening. Safe to call twice.
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
