package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State enumerates the session lifecycle. Error is reachable from every
// non-terminal state; Scored and Error are terminal for the instance, so
// a fresh session is required to retry.
type State string

const (
	StateLoading    State = "LOADING"
	StateCountdown  State = "COUNTDOWN"
	StateActive     State = "ACTIVE"
	StateSubmitting State = "SUBMITTING"
	StateScored     State = "SCORED"
	StateError      State = "ERROR"
)

// Backend is the upstream surface one session needs: question supply,
// answer delivery and authoritative scoring. Implementations are bound to
// a learner's credential and flavor endpoints at construction.
type Backend interface {
	LoadPaper(ctx context.Context) (Paper, error)
	DeliverAnswer(ctx context.Context, questionID, answerIndex int) error
	FetchScore(ctx context.Context) (ScorePayload, error)
}

// RedeliverFunc enqueues a failed answer delivery for background retry.
type RedeliverFunc func(questionID, answerIndex int)

// ScoreSaver persists the score payload so the results view survives a
// page navigation.
type ScoreSaver func(ctx context.Context, payload ScorePayload) error

// Snapshot is a point-in-time view of a session, published to subscribers
// on every tick and transition.
type Snapshot struct {
	SessionID          string `json:"session_id"`
	Flavor             Flavor `json:"flavor"`
	State              State  `json:"state"`
	Position           int    `json:"position"`
	QuestionCount      int    `json:"question_count"`
	CountdownRemaining int    `json:"countdown_remaining"`
	RemainingSeconds   int    `json:"remaining_seconds"`
	SelectedCount      int    `json:"selected_count"`
	SkippedCount       int    `json:"skipped_count"`
	Error              string `json:"error,omitempty"`
}

// View extends Snapshot with the current question (sans correct option)
// and the learner's ledger, for the polling endpoint.
type View struct {
	Snapshot
	Question *Question   `json:"current_question,omitempty"`
	Recorded *int        `json:"recorded_answer,omitempty"`
	Ledger   map[int]int `json:"ledger"`
}

// Session is one live quiz run: the loaded questions, the answer ledger,
// the countdown clock and the state machine that ties them together. All
// exported methods are safe for concurrent use.
type Session struct {
	ID    uuid.UUID
	Owner string
	Flow  Flow

	backend   Backend
	redeliver RedeliverFunc
	saveScore ScoreSaver
	log       zerolog.Logger
	now       func() time.Time
	tickEvery time.Duration

	mu            sync.Mutex
	state         State
	questions     []Question
	pos           int
	ledger        *Ledger
	clock         *Clock
	countdownLeft int
	inFlight      bool
	submitStarted bool
	reason        error
	score         *ScorePayload
	subs          map[uint64]chan Snapshot
	nextSub       uint64
	cancel        context.CancelFunc
	closed        bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger attaches a logger to the session.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithRedeliver installs the background retry hook for failed deliveries.
func WithRedeliver(fn RedeliverFunc) Option {
	return func(s *Session) { s.redeliver = fn }
}

// WithScoreSaver installs the score persistence hook.
func WithScoreSaver(fn ScoreSaver) Option {
	return func(s *Session) { s.saveScore = fn }
}

// WithTickInterval overrides the 1s tick period. Test hook.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) { s.tickEvery = d }
}

// WithNow overrides the time source. Test hook.
func WithNow(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates a session in the Loading state. Call Start to fetch
// questions and begin the run.
func NewSession(owner string, flow Flow, backend Backend, opts ...Option) *Session {
	s := &Session{
		ID:        uuid.New(),
		Owner:     owner,
		Flow:      flow,
		backend:   backend,
		log:       zerolog.Nop(),
		now:       time.Now,
		tickEvery: time.Second,
		state:     StateLoading,
		ledger:    NewLedger(),
		subs:      make(map[uint64]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().
		Str("session_id", s.ID.String()).
		Str("flavor", string(flow.Flavor)).
		Logger()
	return s
}

// Start loads the paper, initializes the clock and launches the tick loop.
// On success the session is in Countdown (or straight Active when the
// countdown is configured to zero ticks).
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateLoading {
		s.mu.Unlock()
		return fmt.Errorf("session already started (state %s)", s.state)
	}
	s.mu.Unlock()

	paper, err := s.backend.LoadPaper(ctx)
	if err != nil {
		s.fail(err)
		return err
	}
	if len(paper.Questions) == 0 {
		s.fail(ErrNoQuestions)
		return ErrNoQuestions
	}

	s.mu.Lock()
	s.questions = paper.Questions
	switch s.Flow.TimerMode {
	case TimerSynced:
		if paper.Deadline == nil {
			s.mu.Unlock()
			err := errors.New("upstream supplied no session end time")
			s.fail(err)
			return err
		}
		s.clock = NewSyncedClock(*paper.Deadline).WithNow(s.now)
	default:
		s.clock = NewLocalClock(s.Flow.Duration)
	}
	s.countdownLeft = s.Flow.CountdownTicks
	if s.countdownLeft > 0 {
		s.state = StateCountdown
	} else {
		s.state = StateActive
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.publishLocked()
	s.mu.Unlock()

	s.log.Info().Int("questions", len(paper.Questions)).Msg("Session started")
	go s.run(runCtx)
	return nil
}

// run is the single tick loop driving the pre-start countdown and the
// session clock. It exits when the session reaches a terminal state or is
// closed, so no orphaned callbacks can fire against a disposed session.
func (s *Session) run(ctx context.Context) {
	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, done := s.tick()
			if expired {
				s.log.Info().Msg("Clock expired, auto-submitting")
				if s.beginSubmit() {
					s.finishSubmission(context.Background())
				}
				return
			}
			if done {
				return
			}
		}
	}
}

// tick advances one second of session time. Returns expired=true exactly
// once when the clock crosses zero, and done=true when the loop should
// stop for any other reason.
func (s *Session) tick() (expired, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateCountdown:
		s.countdownLeft--
		if s.countdownLeft <= 0 {
			s.countdownLeft = 0
			s.state = StateActive
		}
		s.publishLocked()
		return false, false
	case StateActive:
		_, fired := s.clock.Tick()
		s.publishLocked()
		return fired, false
	case StateSubmitting:
		// Submission is in flight elsewhere; keep ticking so subscribers
		// see the state until it resolves.
		return false, false
	default:
		return false, true
	}
}

// Select records the chosen option (1-based) for the current position.
// Overwriting a previous choice is allowed while the position is reachable.
func (s *Session) Select(option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked(); err != nil {
		return err
	}
	if option < 1 || option > len(s.questions[s.pos].Options) {
		return ErrPositionOutOfRange
	}
	s.ledger.Record(s.pos, option)
	s.publishLocked()
	return nil
}

// Previous moves to the prior position. Never triggers network I/O.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked(); err != nil {
		return err
	}
	if s.inFlight {
		return ErrSubmitInFlight
	}
	if s.pos > 0 {
		s.pos--
		s.publishLocked()
	}
	return nil
}

// Jump moves directly to the given position.
func (s *Session) Jump(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked(); err != nil {
		return err
	}
	if s.inFlight {
		return ErrSubmitInFlight
	}
	if position < 0 || position >= len(s.questions) {
		return ErrPositionOutOfRange
	}
	s.pos = position
	s.publishLocked()
	return nil
}

// Next confirms the current answer and advances. A selection (or explicit
// skip) must be present. On the final position Next behaves as Submit.
func (s *Session) Next(ctx context.Context) error {
	return s.advance(ctx, false)
}

// Skip records the skip sentinel for the current position, confirms it and
// advances. Unlike Next it never requires a pre-existing selection.
func (s *Session) Skip(ctx context.Context) error {
	return s.advance(ctx, true)
}

// Submit completes the session from the final position. It is rejected
// until that position holds a selection or an explicit skip; the session
// cannot complete with the final position truly blank.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if err := s.requireActiveLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrSubmitInFlight
	}
	last := len(s.questions) - 1
	answer, ok := s.ledger.Get(last)
	if !ok {
		s.mu.Unlock()
		return ErrAnswerRequired
	}
	q := s.questions[last]
	s.inFlight = true
	s.mu.Unlock()

	if s.Flow.SubmitMode == SubmitPerQuestion {
		if err := s.deliver(ctx, q.ID, answer); err != nil {
			s.clearInFlight()
			s.fail(err)
			return err
		}
	}
	s.clearInFlight()

	if !s.beginSubmit() {
		return ErrSubmitInFlight
	}
	s.finishSubmission(ctx)
	return s.Err()
}

// advance implements Next and Skip.
func (s *Session) advance(ctx context.Context, skip bool) error {
	s.mu.Lock()
	if err := s.requireActiveLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrSubmitInFlight
	}
	if skip {
		s.ledger.Record(s.pos, SkipSentinel)
	}
	answer, ok := s.ledger.Get(s.pos)
	if !ok {
		s.mu.Unlock()
		return ErrAnswerRequired
	}
	q := s.questions[s.pos]
	last := s.pos == len(s.questions)-1
	s.inFlight = true
	s.mu.Unlock()

	if s.Flow.SubmitMode == SubmitPerQuestion {
		if err := s.deliver(ctx, q.ID, answer); err != nil {
			s.clearInFlight()
			s.fail(err)
			return err
		}
	}
	s.clearInFlight()

	if last {
		if !s.beginSubmit() {
			return ErrSubmitInFlight
		}
		s.finishSubmission(ctx)
		return s.Err()
	}

	s.mu.Lock()
	if s.state == StateActive {
		s.pos++
		s.publishLocked()
	}
	s.mu.Unlock()
	return nil
}

// deliver sends one confirmed answer upstream. A 403 is fatal for the
// session; any other failure is queued for background redelivery and does
// not block navigation (at-least-once, never lost).
func (s *Session) deliver(ctx context.Context, questionID, answer int) error {
	err := s.backend.DeliverAnswer(ctx, questionID, answer)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCredentialRejected) {
		return err
	}
	s.log.Warn().Err(err).
		Int("question_id", questionID).
		Msg("Answer delivery failed, queueing for redelivery")
	if s.redeliver != nil {
		s.redeliver(questionID, answer)
	}
	return nil
}

// beginSubmit claims the one submission attempt. Guards against the user
// and the expiring clock racing each other.
func (s *Session) beginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitStarted || s.closed {
		return false
	}
	switch s.state {
	case StateCountdown, StateActive:
	default:
		return false
	}
	s.submitStarted = true
	s.state = StateSubmitting
	s.publishLocked()
	return true
}

// finishSubmission performs the sweep (when configured), fetches the
// authoritative score and lands in Scored. Any failure lands in Error.
func (s *Session) finishSubmission(ctx context.Context) {
	if s.Flow.SubmitMode == SubmitOnFinish {
		s.mu.Lock()
		answers := s.ledger.Sweep(len(s.questions))
		questions := s.questions
		s.mu.Unlock()

		for i, answer := range answers {
			if err := s.deliver(ctx, questions[i].ID, answer); err != nil {
				s.fail(err)
				return
			}
		}
	}

	payload, err := s.backend.FetchScore(ctx)
	if err != nil {
		s.fail(fmt.Errorf("fetch score: %w", err))
		return
	}

	if s.saveScore != nil {
		if err := s.saveScore(ctx, payload); err != nil {
			s.log.Warn().Err(err).Msg("Persisting score payload failed")
		}
	}

	s.mu.Lock()
	s.state = StateScored
	s.score = &payload
	s.publishLocked()
	s.mu.Unlock()
	s.log.Info().Float64("total_score", payload.Score.TotalScore).Msg("Session scored")
}

// fail moves the session to the Error state with the given reason.
func (s *Session) fail(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateScored || s.state == StateError {
		return
	}
	s.state = StateError
	s.reason = reason
	s.publishLocked()
	s.log.Warn().Err(reason).Msg("Session failed")
}

func (s *Session) clearInFlight() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *Session) requireActiveLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	switch s.state {
	case StateActive:
		return nil
	case StateLoading, StateCountdown:
		return ErrNotStarted
	default:
		return ErrNotActive
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure reason when the session is in the Error state.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateError {
		return s.reason
	}
	return nil
}

// Score returns the fetched score payload once the session is Scored.
func (s *Session) Score() (*ScorePayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateScored || s.score == nil {
		return nil, false
	}
	return s.score, true
}

// Snapshot returns a point-in-time view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// View returns the snapshot plus the current question and ledger.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Snapshot: s.snapshotLocked(),
		Ledger:   s.ledger.Export(),
	}
	if s.pos < len(s.questions) {
		q := s.questions[s.pos]
		v.Question = &q
		if recorded, ok := s.ledger.Get(s.pos); ok {
			v.Recorded = &recorded
		}
	}
	return v
}

// Subscribe returns a channel receiving snapshots on every tick and
// transition. The caller must invoke cancel to avoid leaks. Slow consumers
// miss intermediate snapshots rather than blocking the session.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 8)
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

// Close stops the tick loop and releases subscribers. Idempotent. Called
// on abandonment and by the registry janitor.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()
	s.log.Debug().Msg("Session closed")
}

func (s *Session) snapshotLocked() Snapshot {
	selected, skipped := s.ledger.Counts()
	snap := Snapshot{
		SessionID:          s.ID.String(),
		Flavor:             s.Flow.Flavor,
		State:              s.state,
		Position:           s.pos,
		QuestionCount:      len(s.questions),
		CountdownRemaining: s.countdownLeft,
		SelectedCount:      selected,
		SkippedCount:       skipped,
	}
	if s.clock != nil {
		snap.RemainingSeconds = s.clock.Remaining()
	}
	if s.state == StateError && s.reason != nil {
		snap.Error = s.reason.Error()
	}
	return snap
}

// publishLocked fans the current snapshot out to subscribers. Callers must
// hold s.mu.
func (s *Session) publishLocked() {
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
