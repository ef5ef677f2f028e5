package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	QuestionID int
	Answer     int
}

// fakeBackend is an in-memory Backend for state machine tests.
type fakeBackend struct {
	mu         sync.Mutex
	paper      Paper
	loadErr    error
	deliverErr error
	scoreErr   error
	score      ScorePayload
	delivered  []delivery
	scoreCalls int
}

func (f *fakeBackend) LoadPaper(context.Context) (Paper, error) {
	if f.loadErr != nil {
		return Paper{}, f.loadErr
	}
	return f.paper, nil
}

func (f *fakeBackend) DeliverAnswer(_ context.Context, questionID, answerIndex int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deliverErr != nil {
		return f.deliverErr
	}
	f.delivered = append(f.delivered, delivery{QuestionID: questionID, Answer: answerIndex})
	return nil
}

func (f *fakeBackend) FetchScore(context.Context) (ScorePayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoreCalls++
	if f.scoreErr != nil {
		return ScorePayload{}, f.scoreErr
	}
	return f.score, nil
}

func (f *fakeBackend) deliveries() []delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]delivery, len(f.delivered))
	copy(out, f.delivered)
	return out
}

func (f *fakeBackend) scoreFetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scoreCalls
}

func threeQuestionPaper() Paper {
	return Paper{Questions: []Question{
		{ID: 101, Prompt: "Q1", Options: []string{"a", "b", "c", "d"}},
		{ID: 102, Prompt: "Q2", Options: []string{"a", "b", "c", "d"}},
		{ID: 103, Prompt: "Q3", Options: []string{"a", "b", "c", "d"}},
	}}
}

// startedSession builds a session with no pre-start countdown and a long
// local timer, so tests drive the state machine directly.
func startedSession(t *testing.T, backend Backend, opts ...Option) *Session {
	t.Helper()
	flow := PracticeFlow(time.Hour, 0)
	// A huge tick interval keeps the background loop quiet so tests drive
	// every transition deterministically.
	opts = append([]Option{WithTickInterval(time.Hour)}, opts...)
	s := NewSession("4021", flow, backend, opts...)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Close)
	require.Equal(t, StateActive, s.State())
	return s
}

func TestSessionEndToEnd(t *testing.T) {
	// Three questions: select option 2, skip, select option 1 and submit.
	backend := &fakeBackend{
		paper: threeQuestionPaper(),
		score: ScorePayload{Score: ScoreBody{TotalScore: 2}},
	}
	var saved []ScorePayload
	s := startedSession(t, backend, WithScoreSaver(func(_ context.Context, p ScorePayload) error {
		saved = append(saved, p)
		return nil
	}))
	ctx := context.Background()

	require.NoError(t, s.Select(2))
	require.NoError(t, s.Next(ctx))
	require.NoError(t, s.Skip(ctx))
	require.NoError(t, s.Select(1))
	require.NoError(t, s.Submit(ctx))

	assert.Equal(t, StateScored, s.State())
	assert.Equal(t, []delivery{{101, 2}, {102, SkipSentinel}, {103, 1}}, backend.deliveries())
	assert.Equal(t, 1, backend.scoreFetches())
	require.Len(t, saved, 1)
	assert.Equal(t, float64(2), saved[0].Score.TotalScore)

	score, ok := s.Score()
	require.True(t, ok)
	assert.Equal(t, float64(2), score.Score.TotalScore)
}

func TestSelectOverwriteBeforeAdvancing(t *testing.T) {
	backend := &fakeBackend{paper: threeQuestionPaper()}
	s := startedSession(t, backend)

	require.NoError(t, s.Select(3))
	require.NoError(t, s.Select(1))
	require.NoError(t, s.Next(context.Background()))

	assert.Equal(t, []delivery{{101, 1}}, backend.deliveries())
}

func TestNextRequiresSelection(t *testing.T) {
	backend := &fakeBackend{paper: threeQuestionPaper()}
	s := startedSession(t, backend)

	assert.ErrorIs(t, s.Next(context.Background()), ErrAnswerRequired)
	assert.Equal(t, 0, s.Snapshot().Position)
}

func TestSkipNeverRequiresSelection(t *testing.T) {
	backend := &fakeBackend{paper: threeQuestionPaper()}
	s := startedSession(t, backend)

	require.NoError(t, s.Skip(context.Background()))
	assert.Equal(t, 1, s.Snapshot().Position)
	assert.Equal(t, []delivery{{101, SkipSentinel}}, backend.deliveries())
}

func TestPreviousNeverTriggersDelivery(t *testing.T) {
	backend := &fakeBackend{paper: threeQuestionPaper()}
	s := startedSession(t, backend)

	require.NoError(t, s.Skip(context.Background()))
	before := len(backend.deliveries())
	require.NoError(t, s.Previous())
	assert.Equal(t, 0, s.Snapshot().Position)
	assert.Len(t, backend.deliveries(), before)
}

func TestSubmitRequiresFinalPositionAnswered(t *testing.T) {
	backend := &fakeBackend{paper: threeQuestionPaper()}
	s := startedSession(t, backend)

	require.NoError(t, s.Jump(2))
	assert.ErrorIs(t, s.Submit(context.Background()), ErrAnswerRequired)

	require.NoError(t, s.Select(4))
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, StateScored, s.State())
}

func TestEmptyPaperNeverActivates(t *testing.T) {
	backend := &fakeBackend{paper: Paper{}}
	s := NewSession("4021", PracticeFlow(time.Hour, 0), backend)

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, ErrNoQuestions)
	assert.Equal(t, StateError, s.State())
	assert.ErrorIs(t, s.Select(1), ErrNotActive)
}

func TestLoadFailureLandsInError(t *testing.T) {
	backend := &fakeBackend{loadErr: errors.New("upstream down")}
	s := NewSession("4021", PracticeFlow(time.Hour, 0), backend)

	require.Error(t, s.Start(context.Background()))
	assert.Equal(t, StateError, s.State())
}

func TestCredentialRejectionFailsSession(t *testing.T) {
	backend := &fakeBackend{paper: threeQuestionPaper(), deliverErr: ErrCredentialRejected}
	s := startedSession(t, backend)

	require.NoError(t, s.Select(1))
	err := s.Next(context.Background())
	assert.ErrorIs(t, err, ErrCredentialRejected)
	assert.Equal(t, StateError, s.State())
	assert.ErrorIs(t, s.Err(), ErrCredentialRejected)
}

func TestDeliveryFailureQueuesRedeliveryAndAdvances(t *testing.T) {
	backend := &fakeBackend{paper: threeQuestionPaper(), deliverErr: errors.New("timeout")}
	var queued []delivery
	s := startedSession(t, backend, WithRedeliver(func(questionID, answer int) {
		queued = append(queued, delivery{questionID, answer})
	}))

	require.NoError(t, s.Select(2))
	require.NoError(t, s.Next(context.Background()))

	assert.Equal(t, 1, s.Snapshot().Position)
	assert.Equal(t, []delivery{{101, 2}}, queued)
}

func TestSweepModeDeliversEveryPosition(t *testing.T) {
	// Chapter flow: answers stay local until submission, blanks sweep as skips.
	deadline := time.Now().Add(time.Hour)
	backend := &fakeBackend{paper: Paper{
		Questions: threeQuestionPaper().Questions,
		Deadline:  &deadline,
	}}
	flow := ChapterFlow(0)
	s := NewSession("4021", flow, backend)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Close)

	ctx := context.Background()
	require.NoError(t, s.Select(2))
	require.NoError(t, s.Next(ctx))
	assert.Empty(t, backend.deliveries(), "on-finish mode must not deliver per question")

	require.NoError(t, s.Jump(2))
	require.NoError(t, s.Select(1))
	require.NoError(t, s.Submit(ctx))

	assert.Equal(t, []delivery{{101, 2}, {102, SkipSentinel}, {103, 1}}, backend.deliveries())
	assert.Equal(t, StateScored, s.State())
}

func TestCountdownBlocksAnswering(t *testing.T) {
	backend := &fakeBackend{paper: threeQuestionPaper()}
	flow := PracticeFlow(time.Hour, 2)
	s := NewSession("4021", flow, backend, WithTickInterval(10*time.Millisecond))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Close)

	require.Equal(t, StateCountdown, s.State())
	assert.ErrorIs(t, s.Select(1), ErrNotStarted)

	require.Eventually(t, func() bool {
		return s.State() == StateActive
	}, time.Second, 5*time.Millisecond)
	assert.NoError(t, s.Select(1))
}

func TestClockExpiryAutoSubmitsExactlyOnce(t *testing.T) {
	backend := &fakeBackend{
		paper: threeQuestionPaper(),
		score: ScorePayload{Score: ScoreBody{TotalScore: 0}},
	}
	flow := PracticeFlow(2*time.Second, 0)
	s := NewSession("4021", flow, backend, WithTickInterval(5*time.Millisecond))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Close)

	require.Eventually(t, func() bool {
		return s.State() == StateScored
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, backend.scoreFetches())
}

func TestScoreFetchFailureLandsInError(t *testing.T) {
	backend := &fakeBackend{paper: threeQuestionPaper(), scoreErr: errors.New("upstream 500")}
	s := startedSession(t, backend)

	require.NoError(t, s.Jump(2))
	require.NoError(t, s.Select(1))
	require.Error(t, s.Submit(context.Background()))
	assert.Equal(t, StateError, s.State())
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	backend := &fakeBackend{paper: threeQuestionPaper()}
	s := startedSession(t, backend)

	ch, cancel := s.Subscribe()
	defer cancel()

	first := <-ch
	assert.Equal(t, StateActive, first.State)

	require.NoError(t, s.Select(2))
	snap := <-ch
	assert.Equal(t, 1, snap.SelectedCount)
}

func TestCloseStopsSessionAndSubscribers(t *testing.T) {
	backend := &fakeBackend{paper: threeQuestionPaper()}
	s := startedSession(t, backend)

	ch, _ := s.Subscribe()
	s.Close()

	// Drain until closed; a stuck channel here means leaked subscribers.
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, s.Select(1), ErrSessionClosed)
}

func TestDisplayStatusClassification(t *testing.T) {
	correct := ScoredQuestion{AnswerStatus: "correct", UserAnswer: 2}
	skipped := ScoredQuestion{AnswerStatus: "incorrect", UserAnswer: SkipSentinel}
	wrong := ScoredQuestion{AnswerStatus: "incorrect", UserAnswer: 3}

	assert.Equal(t, "Correct", correct.DisplayStatus())
	// A present-but-zero answer is a skip, never an incorrect attempt.
	assert.Equal(t, "Skipped", skipped.DisplayStatus())
	assert.Equal(t, "Incorrect", wrong.DisplayStatus())
}
