package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepforge/quizgate/internal/config"
	"github.com/prepforge/quizgate/internal/logger"
	"github.com/prepforge/quizgate/internal/quiz"
	"github.com/prepforge/quizgate/internal/upstream"
)

// RedeliverWorker consumes redeliver_answers_queue and retries answer
// delivery against the upstream exam API. Sessions enqueue here whenever a
// per-question delivery fails for a transient reason, so confirmed answers
// are at-least-once even across gateway restarts.
type RedeliverWorker struct {
	client *upstream.Client
	rdb    *redis.Client
	log    zerolog.Logger

	// retryDelay is the backoff after a failed redelivery attempt.
	retryDelay time.Duration
}

// NewRedeliverWorker creates a new RedeliverWorker.
func NewRedeliverWorker(client *upstream.Client, rdb *redis.Client, log zerolog.Logger) *RedeliverWorker {
	return &RedeliverWorker{
		client:     client,
		rdb:        rdb,
		log:        logger.Component(log, "redeliver_worker"),
		retryDelay: 5 * time.Second,
	}
}

// AnswerJob is one queued redelivery. The bearer token rides along because
// the upstream only accepts the learner's own credential.
type AnswerJob struct {
	Subject     string      `json:"subject"`
	Token       string      `json:"token"`
	Flavor      quiz.Flavor `json:"flavor"`
	ChapterID   int         `json:"chapter_id,omitempty"`
	QuestionID  int         `json:"question_id"`
	AnswerIndex int         `json:"answer_index"`
}

// Enqueue pushes a job onto the redelivery queue. Safe to call from session
// goroutines; a queue failure is logged and the answer is dropped rather
// than blocking navigation.
func (w *RedeliverWorker) Enqueue(ctx context.Context, job AnswerJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("worker: encode job: %w", err)
	}
	if err := w.rdb.RPush(ctx, config.WorkerKey.RedeliverAnswersQueue, raw).Err(); err != nil {
		return fmt.Errorf("worker: enqueue: %w", err)
	}
	return nil
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *RedeliverWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *RedeliverWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.RedeliverAnswersQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var job AnswerJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.redeliver(ctx, &job); err != nil {
		w.log.Error().Err(err).
			Str("subject", job.Subject).
			Int("question_id", job.QuestionID).
			Msgf("Redelivery failed, retrying in %s", w.retryDelay)
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.RedeliverAnswersQueue, result[1])
		time.Sleep(w.retryDelay)
	}
}

func (w *RedeliverWorker) redeliver(ctx context.Context, job *AnswerJob) error {
	backend := upstream.NewSessionBackend(w.client, job.Token, 0, job.Flavor, job.ChapterID)
	err := backend.DeliverAnswer(ctx, job.QuestionID, job.AnswerIndex)
	if err == nil {
		return nil
	}
	// A rejected credential never heals; drop the job instead of looping.
	if errors.Is(err, quiz.ErrCredentialRejected) {
		w.log.Warn().
			Str("subject", job.Subject).
			Int("question_id", job.QuestionID).
			Msg("Dropping job, credential rejected")
		return nil
	}
	return err
}

// drain processes everything still queued, without blocking pops. Called
// once during shutdown with a fresh context.
func (w *RedeliverWorker) drain(ctx context.Context) {
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.RedeliverAnswersQueue).Result()
		if err != nil {
			return
		}

		var job AnswerJob
		if err := json.Unmarshal([]byte(result), &job); err != nil {
			w.log.Error().Err(err).Msg("Unmarshal error during drain")
			continue
		}

		if err := w.redeliver(ctx, &job); err != nil {
			// Leave it for the next run.
			w.rdb.RPush(ctx, config.WorkerKey.RedeliverAnswersQueue, result)
			return
		}
	}
}
