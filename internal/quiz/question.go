package quiz

import (
	"strings"
	"time"
)

// Question is a single flattened question record as served to a learner.
// The correct option is deliberately not carried into the session: scoring
// is owned by the upstream and the client-side view must never be able to
// influence or pre-empt the authoritative verdict.
type Question struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
	Level   string   `json:"level,omitempty"`
}

// Paper is the loaded question set for one session, plus the optional
// upstream-authoritative deadline for deadline-synced flavors.
type Paper struct {
	Questions []Question
	Deadline  *time.Time
}

// ScorePayload is the authoritative scoring result returned by the upstream.
type ScorePayload struct {
	Score ScoreBody `json:"score"`
}

// ScoreBody carries the total and the per-question results.
type ScoreBody struct {
	TotalScore float64          `json:"total_score"`
	Questions  []ScoredQuestion `json:"questions"`
}

// ScoredQuestion is one per-question result inside a score payload.
type ScoredQuestion struct {
	Prompt        string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer int               `json:"correct_answer"`
	UserAnswer    int               `json:"user_answer"`
	AnswerStatus  string            `json:"answer_status"`
	Level         string            `json:"level,omitempty"`
}

// DisplayStatus classifies a scored question for presentation: "Correct"
// when the server verdict says so, "Skipped" when the user answer is the
// not-attempted sentinel, otherwise "Incorrect". Correctness is never
// recomputed locally.
func (q *ScoredQuestion) DisplayStatus() string {
	if strings.EqualFold(q.AnswerStatus, "correct") {
		return "Correct"
	}
	if q.UserAnswer == SkipSentinel {
		return "Skipped"
	}
	return "Incorrect"
}
