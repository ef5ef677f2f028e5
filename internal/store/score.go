package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prepforge/quizgate/internal/config"
	"github.com/prepforge/quizgate/internal/quiz"
)

// ErrScoreNotFound means no pending score exists for the learner and
// flavor, either because none was saved or it was already consumed.
var ErrScoreNotFound = errors.New("store: score not found")

// ScoreStore keeps the authoritative score payload of a finished session in
// Redis until the learner views it. Payloads are consume-once: Take deletes
// on read so a refreshed results page goes back through the session state
// instead of a stale cache.
type ScoreStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewScoreStore(rdb *redis.Client, ttl time.Duration) *ScoreStore {
	return &ScoreStore{rdb: rdb, ttl: ttl}
}

func (s *ScoreStore) Save(ctx context.Context, subject string, flavor quiz.Flavor, payload quiz.ScorePayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("store: encode score: %w", err)
	}
	key := config.CacheKey.ScorePayloadKey(subject, string(flavor))
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store: save score: %w", err)
	}
	return nil
}

// Take reads and deletes the pending score in one round trip.
func (s *ScoreStore) Take(ctx context.Context, subject string, flavor quiz.Flavor) (quiz.ScorePayload, error) {
	key := config.CacheKey.ScorePayloadKey(subject, string(flavor))
	raw, err := s.rdb.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return quiz.ScorePayload{}, ErrScoreNotFound
	}
	if err != nil {
		return quiz.ScorePayload{}, fmt.Errorf("store: take score: %w", err)
	}

	var payload quiz.ScorePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return quiz.ScorePayload{}, fmt.Errorf("store: decode score: %w", err)
	}
	return payload, nil
}

// Peek reads without consuming, for the session-scoped score endpoint.
func (s *ScoreStore) Peek(ctx context.Context, subject string, flavor quiz.Flavor) (quiz.ScorePayload, error) {
	key := config.CacheKey.ScorePayloadKey(subject, string(flavor))
	raw, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return quiz.ScorePayload{}, ErrScoreNotFound
	}
	if err != nil {
		return quiz.ScorePayload{}, fmt.Errorf("store: peek score: %w", err)
	}

	var payload quiz.ScorePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return quiz.ScorePayload{}, fmt.Errorf("store: decode score: %w", err)
	}
	return payload, nil
}
