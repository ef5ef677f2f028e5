package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepforge/quizgate/internal/quiz"
)

func testRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func samplePayload() quiz.ScorePayload {
	return quiz.ScorePayload{
		Score: quiz.ScoreBody{
			TotalScore: 75,
			Questions: []quiz.ScoredQuestion{
				{Prompt: "Q1", Options: map[string]string{"1": "a", "2": "b"}, CorrectAnswer: 2, UserAnswer: 2, AnswerStatus: "correct"},
				{Prompt: "Q2", Options: map[string]string{"1": "c", "2": "d"}, CorrectAnswer: 1, UserAnswer: 0, AnswerStatus: "incorrect"},
			},
		},
	}
}

func TestScoreStoreTakeConsumesOnce(t *testing.T) {
	_, rdb := testRedis(t)
	s := NewScoreStore(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "4021", quiz.FlavorPractice, samplePayload()))

	got, err := s.Take(ctx, "4021", quiz.FlavorPractice)
	require.NoError(t, err)
	assert.InDelta(t, 75, got.Score.TotalScore, 0.001)
	require.Len(t, got.Score.Questions, 2)
	assert.Equal(t, "Skipped", got.Score.Questions[1].DisplayStatus())

	_, err = s.Take(ctx, "4021", quiz.FlavorPractice)
	assert.ErrorIs(t, err, ErrScoreNotFound)
}

func TestScoreStorePeekDoesNotConsume(t *testing.T) {
	_, rdb := testRedis(t)
	s := NewScoreStore(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "4021", quiz.FlavorMock, samplePayload()))

	_, err := s.Peek(ctx, "4021", quiz.FlavorMock)
	require.NoError(t, err)
	_, err = s.Peek(ctx, "4021", quiz.FlavorMock)
	require.NoError(t, err)
}

func TestScoreStoreKeysAreFlavorScoped(t *testing.T) {
	_, rdb := testRedis(t)
	s := NewScoreStore(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "4021", quiz.FlavorPractice, samplePayload()))

	_, err := s.Take(ctx, "4021", quiz.FlavorMock)
	assert.ErrorIs(t, err, ErrScoreNotFound)
	_, err = s.Take(ctx, "5110", quiz.FlavorPractice)
	assert.ErrorIs(t, err, ErrScoreNotFound)
}

func TestScoreStoreRespectsTTL(t *testing.T) {
	mr, rdb := testRedis(t)
	s := NewScoreStore(rdb, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "4021", quiz.FlavorPractice, samplePayload()))
	mr.FastForward(time.Minute)

	_, err := s.Take(ctx, "4021", quiz.FlavorPractice)
	assert.ErrorIs(t, err, ErrScoreNotFound)
}

func TestChapterSelectionRoundTrip(t *testing.T) {
	_, rdb := testRedis(t)
	s := NewChapterSelectionStore(rdb, time.Hour)
	ctx := context.Background()

	_, err := s.Get(ctx, "4021")
	assert.ErrorIs(t, err, ErrNoChapterSelected)

	require.NoError(t, s.Set(ctx, "4021", 7))
	got, err := s.Get(ctx, "4021")
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	require.NoError(t, s.Clear(ctx, "4021"))
	_, err = s.Get(ctx, "4021")
	assert.ErrorIs(t, err, ErrNoChapterSelected)
}

func TestChapterSelectionExpires(t *testing.T) {
	mr, rdb := testRedis(t)
	s := NewChapterSelectionStore(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "4021", 7))
	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "4021")
	assert.ErrorIs(t, err, ErrNoChapterSelected)
}
