package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

// Repo caches movers rankings and publishes job results.
type Repo struct {
	rdb       *redis.Client
	prefix    string
	jobStream string
	jobChan   string
}

func New(rdb *redis.Client, prefix, jobStream string) *Repo {
	if strings.TrimSpace(jobStream) == "" {
		jobStream = prefix + ":jobs"
	}
	return &Repo{
		rdb:       rdb,
		prefix:    prefix,
		jobStream: jobStream,
		jobChan:   jobStream + ":pub",
	}
}

func (r *Repo) moversKey(kind model.ItemKind) string {
	if kind == "" {
		return r.prefix + ":movers:all"
	}
	return r.prefix + ":movers:" + string(kind)
}

func (r *Repo) GetMovers(ctx context.Context, kind model.ItemKind) ([]*model.Mover, bool, error) {
	b, err := r.rdb.Get(ctx, r.moversKey(kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var movers []*model.Mover
	if err := json.Unmarshal(b, &movers); err != nil {
		return nil, false, fmt.Errorf("decode movers: %w", err)
	}
	return movers, true, nil
}

func (r *Repo) SetMovers(ctx context.Context, kind model.ItemKind, movers []*model.Mover, ttl time.Duration) error {
	if movers == nil {
		movers = []*model.Mover{}
	}
	b, err := json.Marshal(movers)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.moversKey(kind), b, ttl).Err()
}

// Publish appends the result to the job stream and announces it on the
// matching pub/sub channel.
func (r *Repo) Publish(ctx context.Context, res *model.JobResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}

	// 1) Stream: XADD <stream> * job run_id success payload
	_, err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.jobStream,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]any{
			"job":     res.Job,
			"run_id":  res.RunID,
			"success": res.Success,
			"payload": string(payload),
		},
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: PUBLISH <channel> json
	return r.rdb.Publish(ctx, r.jobChan, payload).Err()
}

var (
	_ port.MoversCache = (*Repo)(nil)
	_ port.ResultSink  = (*Repo)(nil)
)
