package upstream

import (
	"context"
	"fmt"

	"github.com/prepforge/quizgate/internal/quiz"
)

// SessionBackend binds the client to one learner's session: flavor, bearer
// token, faculty and (for chapter drills) the selected chapter. It
// satisfies quiz.Backend so sessions never see HTTP details.
type SessionBackend struct {
	client    *Client
	token     string
	facultyID int
	flavor    quiz.Flavor
	chapterID int
}

func NewSessionBackend(client *Client, token string, facultyID int, flavor quiz.Flavor, chapterID int) *SessionBackend {
	return &SessionBackend{
		client:    client,
		token:     token,
		facultyID: facultyID,
		flavor:    flavor,
		chapterID: chapterID,
	}
}

func (b *SessionBackend) LoadPaper(ctx context.Context) (quiz.Paper, error) {
	switch b.flavor {
	case quiz.FlavorPractice:
		return b.client.PracticeQuestions(ctx, b.token, b.facultyID)
	case quiz.FlavorMock:
		return b.client.MockQuestions(ctx, b.token, b.facultyID)
	case quiz.FlavorChapter:
		return b.client.ChapterQuestions(ctx, b.token, b.chapterID)
	default:
		return quiz.Paper{}, fmt.Errorf("upstream: unknown flavor %q", b.flavor)
	}
}

func (b *SessionBackend) DeliverAnswer(ctx context.Context, questionID, answerIndex int) error {
	switch b.flavor {
	case quiz.FlavorPractice:
		return b.client.SubmitPracticeAnswer(ctx, b.token, questionID, answerIndex)
	case quiz.FlavorMock:
		return b.client.SubmitMockAnswer(ctx, b.token, questionID, answerIndex)
	case quiz.FlavorChapter:
		return b.client.SubmitChapterAnswer(ctx, b.token, b.chapterID, questionID, answerIndex)
	default:
		return fmt.Errorf("upstream: unknown flavor %q", b.flavor)
	}
}

func (b *SessionBackend) FetchScore(ctx context.Context) (quiz.ScorePayload, error) {
	switch b.flavor {
	case quiz.FlavorPractice:
		return b.client.PracticeScore(ctx, b.token)
	case quiz.FlavorMock:
		return b.client.MockScore(ctx, b.token)
	case quiz.FlavorChapter:
		return b.client.ChapterScore(ctx, b.token, b.chapterID)
	default:
		return quiz.ScorePayload{}, fmt.Errorf("upstream: unknown flavor %q", b.flavor)
	}
}
