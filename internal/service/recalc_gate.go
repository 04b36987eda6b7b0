package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/snbp-backend/internal/config"
)

// ErrRecalcInProgress means another recalculation already holds the major's
// critical section. The caller retries; it must not interleave.
var ErrRecalcInProgress = errors.New("a recalculation for this major is already running")

// RecalcGate serializes recalculation per major and tracks each major's data
// generation. Every grade mutation bumps the generation; a run that sees a
// bump between its snapshot and its commit abandons the result instead of
// committing over fresher data.
type RecalcGate interface {
	Lock(ctx context.Context, majorID int) (token string, err error)
	Unlock(ctx context.Context, majorID int, token string)
	Generation(ctx context.Context, majorID int) (int64, error)
	BumpGeneration(ctx context.Context, majorID int)
}

type redisGate struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewRecalcGate builds the Redis-backed gate. The lock TTL guards against a
// crashed holder wedging a major forever.
func NewRecalcGate(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) RecalcGate {
	return &redisGate{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "recalc_gate").Logger(),
	}
}

func (g *redisGate) Lock(ctx context.Context, majorID int) (string, error) {
	token := uuid.New().String()
	ok, err := g.rdb.SetNX(ctx, config.CacheKey.MajorRecalcLockKey(majorID), token, g.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrRecalcInProgress
	}
	return token, nil
}

// Unlock releases the mutex only if this run still owns it; an expired lock
// taken over by another run is left alone. Best effort — the TTL is the
// real safety net.
func (g *redisGate) Unlock(ctx context.Context, majorID int, token string) {
	key := config.CacheKey.MajorRecalcLockKey(majorID)
	current, err := g.rdb.Get(ctx, key).Result()
	if err != nil || current != token {
		return
	}
	if err := g.rdb.Del(ctx, key).Err(); err != nil {
		g.log.Warn().Err(err).Int("major_id", majorID).Msg("Failed to release recalc lock")
	}
}

func (g *redisGate) Generation(ctx context.Context, majorID int) (int64, error) {
	gen, err := g.rdb.Get(ctx, config.CacheKey.MajorDataGenKey(majorID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (g *redisGate) BumpGeneration(ctx context.Context, majorID int) {
	if err := g.rdb.Incr(ctx, config.CacheKey.MajorDataGenKey(majorID)).Err(); err != nil {
		g.log.Warn().Err(err).Int("major_id", majorID).Msg("Failed to bump data generation")
	}
}
