package quiz

import "time"

// Flavor names one quiz variant exposed by the gateway.
type Flavor string

const (
	FlavorPractice Flavor = "practice"
	FlavorMock     Flavor = "mock"
	FlavorChapter  Flavor = "chapter"
)

// SubmitMode selects when confirmed answers are delivered upstream.
type SubmitMode string

const (
	// SubmitPerQuestion delivers each answer as its position is left
	// (Next/Skip), matching the practice and mock flows.
	SubmitPerQuestion SubmitMode = "per_question"
	// SubmitOnFinish holds all answers locally and sweeps every position in
	// one pass at submission time, matching the chapter flow.
	SubmitOnFinish SubmitMode = "on_finish"
)

// Flow parameterizes the session state machine for one quiz flavor. The
// historical per-flavor forks of this flow drifted apart (0- vs 1-based
// answer adjustment, per-step vs end-of-session delivery); a single
// configurable implementation replaces them.
type Flow struct {
	Flavor     Flavor
	TimerMode  TimerMode
	SubmitMode SubmitMode
	// Duration is the fixed countdown budget for TimerLocal flows. Ignored
	// for TimerSynced flows, which take their deadline from the paper.
	Duration time.Duration
	// CountdownTicks is the pre-start pacing delay in ticks. Purely
	// cosmetic; no answering is permitted until it elapses.
	CountdownTicks int
	// RequiresChapter marks flows that cannot start without a prior
	// chapter selection.
	RequiresChapter bool
}

// PracticeFlow returns the flow config for the practice test.
func PracticeFlow(duration time.Duration, countdownTicks int) Flow {
	return Flow{
		Flavor:         FlavorPractice,
		TimerMode:      TimerLocal,
		SubmitMode:     SubmitPerQuestion,
		Duration:       duration,
		CountdownTicks: countdownTicks,
	}
}

// MockFlow returns the flow config for the mock exam.
func MockFlow(duration time.Duration, countdownTicks int) Flow {
	return Flow{
		Flavor:         FlavorMock,
		TimerMode:      TimerLocal,
		SubmitMode:     SubmitPerQuestion,
		Duration:       duration,
		CountdownTicks: countdownTicks,
	}
}

// ChapterFlow returns the flow config for the chapter-wise quiz. Its clock
// is synced against the upstream session end time and answers are swept in
// one pass at submission.
func ChapterFlow(countdownTicks int) Flow {
	return Flow{
		Flavor:          FlavorChapter,
		TimerMode:       TimerSynced,
		SubmitMode:      SubmitOnFinish,
		CountdownTicks:  countdownTicks,
		RequiresChapter: true,
	}
}
