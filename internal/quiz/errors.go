package quiz

import "errors"

var (
	// ErrNoQuestions is returned when the upstream supplies an empty or
	// missing question collection. An empty paper is never a valid session.
	ErrNoQuestions = errors.New("no questions available")
	// ErrNoChapterSelected is returned before any network call when the
	// chapter flavor is started without a prior chapter selection.
	ErrNoChapterSelected = errors.New("no chapter selected")
	// ErrCredentialRejected is returned when the upstream answers 403 to an
	// authenticated call. The boundary clears the credential and forces
	// re-authentication.
	ErrCredentialRejected = errors.New("credential rejected by upstream")
	// ErrNotStarted is returned for answer operations attempted during the
	// pre-start countdown or while questions are still loading.
	ErrNotStarted = errors.New("quiz has not started")
	// ErrNotActive is returned for answer operations on a session that has
	// moved past the active state.
	ErrNotActive = errors.New("quiz session is not active")
	// ErrAnswerRequired is returned by Next and Submit when the current
	// position holds neither a selection nor an explicit skip.
	ErrAnswerRequired = errors.New("an answer is required before advancing")
	// ErrPositionOutOfRange is returned for navigation outside 0..N-1.
	ErrPositionOutOfRange = errors.New("question position out of range")
	// ErrSubmitInFlight guards against duplicate submission attempts.
	ErrSubmitInFlight = errors.New("submission already in progress")
	// ErrSessionClosed is returned for operations on a closed session.
	ErrSessionClosed = errors.New("quiz session closed")
)
