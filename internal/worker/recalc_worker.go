package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/snbp-backend/internal/config"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/service"
)

const (
	RecalcPollTimeout = 1 * time.Second
	// RecalcRetryDelay spaces out retries when a major's critical section is
	// busy or a run was superseded, so the loop does not spin on the lock.
	RecalcRetryDelay = 500 * time.Millisecond
)

// RecalcWorker drains the recalculation queue fed by rebuttal approvals and
// manual grade edits. Jobs are retried when the target major is locked or
// the run was superseded by fresher data; both mean someone else will (or
// this retry will) produce the correct final state.
type RecalcWorker struct {
	rdb    *redis.Client
	recalc *service.RecalcService
	log    zerolog.Logger
}

func NewRecalcWorker(rdb *redis.Client, recalc *service.RecalcService, log zerolog.Logger) *RecalcWorker {
	return &RecalcWorker{
		rdb:    rdb,
		recalc: recalc,
		log:    log.With().Str("component", "recalc_worker").Logger(),
	}
}

func (w *RecalcWorker) Start(ctx context.Context) {
	w.log.Info().Msg("RecalcWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. RecalcWorker stopping")
			return

		default:
			item, err := w.rdb.BLPop(ctx, RecalcPollTimeout, config.WorkerKey.RecalcQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var job model.RecalcJob
			if err := json.Unmarshal([]byte(item[1]), &job); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			w.process(ctx, &job, []byte(item[1]))
		}
	}
}

func (w *RecalcWorker) process(ctx context.Context, job *model.RecalcJob, raw []byte) {
	_, err := w.recalc.Recalc(ctx, model.RecalcRequest{
		Scope:     job.Scope,
		MajorID:   job.MajorID,
		StudentID: job.StudentID,
	})
	if err == nil {
		return
	}

	if errors.Is(err, service.ErrRecalcInProgress) || errors.Is(err, service.ErrRecalcSuperseded) {
		w.log.Debug().
			Str("scope", string(job.Scope)).
			Int("student_id", job.StudentID).
			Int("major_id", job.MajorID).
			Msg("Recalc deferred — requeueing")
		time.Sleep(RecalcRetryDelay)
		if err := w.rdb.RPush(ctx, config.WorkerKey.RecalcQueue, raw).Err(); err != nil {
			w.log.Error().Err(err).Msg("Failed to requeue recalc job")
		}
		return
	}

	w.log.Error().Err(err).
		Str("scope", string(job.Scope)).
		Int("student_id", job.StudentID).
		Int("major_id", job.MajorID).
		Msg("Recalc job failed")
}
