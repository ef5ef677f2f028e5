package wsproto

import "github.com/prepforge/quizgate/internal/quiz"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect   Action = "select"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionSkip     Action = "skip"
	ActionJump     Action = "jump"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SelectRequest records a 1-based option for the current question.
type SelectRequest struct {
	Action Action `json:"action"`
	Option int    `json:"option"`
}

// JumpRequest moves to an already-answered position.
type JumpRequest struct {
	Action   Action `json:"action"`
	Position int    `json:"position"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventSnapshot Event = "snapshot"
	EventScored   Event = "scored"
	EventPong     Event = "pong"
)

// SnapshotEvent streams the session state after every transition or tick.
type SnapshotEvent struct {
	Event    Event         `json:"event"`
	Snapshot quiz.Snapshot `json:"snapshot"`
}

// ScoredEvent is pushed once when the session reaches its final score.
type ScoredEvent struct {
	Event      Event   `json:"event"`
	TotalScore float64 `json:"total_score"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
