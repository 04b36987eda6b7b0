package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/snbp-backend/internal/config"
	"github.com/stemsi/snbp-backend/internal/model"
)

// RecalcQueue hands recalculation jobs to the worker loop. Enqueue failures
// are logged, not returned: the bumped generation and committed stale flags
// already guarantee the next trigger repairs the gap.
type RecalcQueue interface {
	EnqueueRecalc(ctx context.Context, job model.RecalcJob)
}

type redisRecalcQueue struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewRecalcQueue(rdb *redis.Client, log zerolog.Logger) RecalcQueue {
	return &redisRecalcQueue{
		rdb: rdb,
		log: log.With().Str("component", "recalc_queue").Logger(),
	}
}

func (q *redisRecalcQueue) EnqueueRecalc(ctx context.Context, job model.RecalcJob) {
	raw, err := json.Marshal(job)
	if err != nil {
		q.log.Error().Err(err).Msg("Failed to marshal recalc job")
		return
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.RecalcQueue, raw).Err(); err != nil {
		q.log.Error().Err(err).
			Str("scope", string(job.Scope)).
			Int("student_id", job.StudentID).
			Int("major_id", job.MajorID).
			Msg("Failed to enqueue recalc job")
	}
}
