package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prepforge/quizgate/internal/config"
)

// ErrNoChapterSelected means the learner has not picked a chapter yet, or
// the selection expired.
var ErrNoChapterSelected = errors.New("store: no chapter selected")

// ChapterSelectionStore remembers which chapter a learner picked for the
// chapter drill flavor. The drill endpoints read it so a reconnecting
// client resumes the same chapter without re-selecting.
type ChapterSelectionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewChapterSelectionStore(rdb *redis.Client, ttl time.Duration) *ChapterSelectionStore {
	return &ChapterSelectionStore{rdb: rdb, ttl: ttl}
}

func (s *ChapterSelectionStore) Set(ctx context.Context, subject string, chapterID int) error {
	key := config.CacheKey.ChapterSelectionKey(subject)
	if err := s.rdb.Set(ctx, key, chapterID, s.ttl).Err(); err != nil {
		return fmt.Errorf("store: set chapter selection: %w", err)
	}
	return nil
}

func (s *ChapterSelectionStore) Get(ctx context.Context, subject string) (int, error) {
	key := config.CacheKey.ChapterSelectionKey(subject)
	raw, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNoChapterSelected
	}
	if err != nil {
		return 0, fmt.Errorf("store: get chapter selection: %w", err)
	}

	chapterID, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("store: bad chapter selection %q: %w", raw, err)
	}
	return chapterID, nil
}

func (s *ChapterSelectionStore) Clear(ctx context.Context, subject string) error {
	key := config.CacheKey.ChapterSelectionKey(subject)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("store: clear chapter selection: %w", err)
	}
	return nil
}
