package store

import (
	"context"
	"fmt"
	"time"

	"github.com/eventura/movie-autocomplete/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Redis implements Store on top of go-redis/v9. Batch operations map to
// Redis pipelines so each batch is a single network round trip.
type Redis struct {
	rdb *redis.Client
}

// NewRedis creates a Redis-backed store and verifies the connection with a
// PING.
func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

// BatchWrite executes the collected writes as one pipeline.
func (s *Redis) BatchWrite(ctx context.Context, batch *WriteBatch) error {
	if batch.Len() == 0 {
		return nil
	}
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range batch.ops {
			switch op.kind {
			case writeZAdd:
				pipe.ZAdd(ctx, op.set, redis.Z{Score: op.score, Member: op.member})
			case writeZAddIfAbsent:
				pipe.ZAddNX(ctx, op.set, redis.Z{Score: op.score, Member: op.member})
			case writeZRem:
				pipe.ZRem(ctx, op.set, op.member)
			case writeHSet:
				pipe.HSet(ctx, op.key, op.fields)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch write (%d ops): %w", batch.Len(), err)
	}
	return nil
}

// BulkRead executes the collected reads as one pipeline and populates the
// reply handles. Missing sorted-set members surface as found=false, not as
// errors.
func (s *Redis) BulkRead(ctx context.Context, batch *ReadBatch) error {
	if batch.Len() == 0 {
		return nil
	}
	cmds := make([]redis.Cmder, len(batch.ops))
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, op := range batch.ops {
			switch op.kind {
			case readFields:
				cmds[i] = pipe.HGetAll(ctx, op.key)
			case readScore:
				cmds[i] = pipe.ZScore(ctx, op.set, op.member)
			}
		}
		return nil
	})
	// Pipelined reports redis.Nil when any ZSCORE misses; absent members are
	// handled per-command below.
	if err != nil && err != redis.Nil {
		return fmt.Errorf("bulk read (%d ops): %w", batch.Len(), err)
	}
	for i, op := range batch.ops {
		switch op.kind {
		case readFields:
			op.fields.val = cmds[i].(*redis.MapStringStringCmd).Val()
		case readScore:
			score, err := cmds[i].(*redis.FloatCmd).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return fmt.Errorf("bulk read score %s/%s: %w", op.set, op.member, err)
			}
			op.score.score = score
			op.score.found = true
		}
	}
	return nil
}

func (s *Redis) RangeByLex(ctx context.Context, set, min, max string, limit int64) ([]string, error) {
	members, err := s.rdb.ZRangeByLex(ctx, set, &redis.ZRangeBy{
		Min:   min,
		Max:   max,
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("lex range on %s: %w", set, err)
	}
	return members, nil
}

func (s *Redis) TopByScore(ctx context.Context, set string, count int64) ([]Member, error) {
	zs, err := s.rdb.ZRevRangeWithScores(ctx, set, 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("top by score on %s: %w", set, err)
	}
	members := make([]Member, 0, len(zs))
	for _, z := range zs {
		name, _ := z.Member.(string)
		members = append(members, Member{Name: name, Score: z.Score})
	}
	return members, nil
}

func (s *Redis) Score(ctx context.Context, set, member string) (float64, bool, error) {
	score, err := s.rdb.ZScore(ctx, set, member).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("score %s/%s: %w", set, member, err)
	}
	return score, true, nil
}

func (s *Redis) IncrementScore(ctx context.Context, set, member string, delta float64) (float64, error) {
	score, err := s.rdb.ZIncrBy(ctx, set, delta, member).Result()
	if err != nil {
		return 0, fmt.Errorf("increment %s/%s: %w", set, member, err)
	}
	return score, nil
}

func (s *Redis) GetFields(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("get fields %s: %w", key, err)
	}
	return fields, nil
}

func (s *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *Redis) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Redis) Close() error {
	return s.rdb.Close()
}
