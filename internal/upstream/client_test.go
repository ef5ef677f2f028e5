package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepforge/quizgate/internal/quiz"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second, zerolog.Nop())
}

func TestPracticeQuestionsFlattensLevels(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/practisetest/questions", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("faculty_id"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"questions": map[string]interface{}{
				"10": []map[string]interface{}{
					{"subchapters": []map[string]interface{}{
						{"id": 30, "question": "Hard one", "options": map[string]string{"1": "a", "2": "b"}, "correct_answer": 1},
					}},
				},
				"2": []map[string]interface{}{
					{"subchapters": []map[string]interface{}{
						{"id": 20, "question": "Medium one", "options": map[string]string{"2": "q", "1": "p"}, "correct_answer": 2},
					}},
				},
				"1": []map[string]interface{}{
					{"subchapters": []map[string]interface{}{
						{"id": 10, "question": "Easy one", "options": map[string]string{"1": "x", "2": "y", "3": "z"}, "correct_answer": 3},
					}},
				},
			},
		})
	}))

	paper, err := client.PracticeQuestions(context.Background(), "tok-1", 2)
	require.NoError(t, err)
	require.Len(t, paper.Questions, 3)
	assert.Nil(t, paper.Deadline)

	// Numeric level order, not lexicographic: 1, 2, 10.
	assert.Equal(t, []int{10, 20, 30}, []int{paper.Questions[0].ID, paper.Questions[1].ID, paper.Questions[2].ID})
	assert.Equal(t, "1", paper.Questions[0].Level)
	assert.Equal(t, "10", paper.Questions[2].Level)

	// Option maps become slices ordered by numeric key.
	assert.Equal(t, []string{"p", "q"}, paper.Questions[1].Options)
}

func TestPracticeQuestionsEmptySupply(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"questions": map[string]interface{}{}})
	}))

	_, err := client.PracticeQuestions(context.Background(), "tok-1", 2)
	assert.ErrorIs(t, err, quiz.ErrNoQuestions)
}

func TestChapterQuestionsCarriesDeadline(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/practise/chapters", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("chapter_id"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"subchapters": []map[string]interface{}{
				{"questions": []map[string]interface{}{
					{"id": 1, "question": "Q1", "options": map[string]string{"1": "a", "2": "b"}, "correct_answer": 1, "level": "basics"},
				}},
				{"questions": []map[string]interface{}{
					{"id": 2, "question": "Q2", "options": map[string]string{"1": "c", "2": "d"}, "correct_answer": 2, "level": "basics"},
				}},
			},
			"session": map[string]string{"end_time": "15:30:00"},
		})
	}))
	client.now = func() time.Time {
		return time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	}

	paper, err := client.ChapterQuestions(context.Background(), "tok-1", 7)
	require.NoError(t, err)
	require.Len(t, paper.Questions, 2)
	assert.Equal(t, "basics", paper.Questions[0].Level)

	require.NotNil(t, paper.Deadline)
	assert.Equal(t, time.Date(2026, 3, 9, 15, 30, 0, 0, time.UTC), *paper.Deadline)
}

func TestChapterQuestionsBadEndTime(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"subchapters": []map[string]interface{}{
				{"questions": []map[string]interface{}{
					{"id": 1, "question": "Q1", "options": map[string]string{"1": "a"}, "correct_answer": 1},
				}},
			},
			"session": map[string]string{"end_time": "half past three"},
		})
	}))

	_, err := client.ChapterQuestions(context.Background(), "tok-1", 7)
	assert.ErrorContains(t, err, "end_time")
}

func TestForbiddenMapsToCredentialRejected(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.PracticeQuestions(context.Background(), "stale", 2)
	assert.ErrorIs(t, err, quiz.ErrCredentialRejected)

	err = client.SubmitPracticeAnswer(context.Background(), "stale", 10, 2)
	assert.ErrorIs(t, err, quiz.ErrCredentialRejected)
}

func TestServerErrorKeepsStatus(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))

	err := client.SubmitMockAnswer(context.Background(), "tok-1", 10, 2)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Equal(t, "upstream down", statusErr.Body)
}

func TestSubmitChapterAnswerBody(t *testing.T) {
	var got answerRequest
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/practise/chapteranswer", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.SubmitChapterAnswer(context.Background(), "tok-1", 7, 42, 3))
	assert.Equal(t, answerRequest{QuestionID: 42, AnswerIndex: 3, ChapterID: 7}, got)
}

func TestTokenUsesFormEncoding(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/token", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostFormValue("grant_type"))
		assert.Equal(t, "dina", r.PostFormValue("username"))
		assert.Equal(t, "s3cret", r.PostFormValue("password"))

		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-9", "token_type": "bearer"})
	}))

	token, err := client.Token(context.Background(), "dina", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "tok-9", token)
}

func TestScoreDecodesPayload(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/practise/chapterscore", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("chapter_id"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"score": map[string]interface{}{
				"total_score": 66.7,
				"questions": []map[string]interface{}{
					{"question": "Q1", "options": map[string]string{"1": "a"}, "correct_answer": 1, "user_answer": 1, "answer_status": "correct"},
					{"question": "Q2", "options": map[string]string{"1": "b"}, "correct_answer": 1, "user_answer": 0, "answer_status": "incorrect"},
				},
			},
		})
	}))

	payload, err := client.ChapterScore(context.Background(), "tok-1", 7)
	require.NoError(t, err)
	assert.InDelta(t, 66.7, payload.Score.TotalScore, 0.001)
	require.Len(t, payload.Score.Questions, 2)
	assert.Equal(t, "Correct", payload.Score.Questions[0].DisplayStatus())
	assert.Equal(t, "Skipped", payload.Score.Questions[1].DisplayStatus())
}

func TestSessionBackendRoutesByFlavor(t *testing.T) {
	var paths []string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/mockexam/questions":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"questions": map[string]interface{}{
					"1": []map[string]interface{}{
						{"subchapters": []map[string]interface{}{
							{"id": 1, "question": "Q", "options": map[string]string{"1": "a"}, "correct_answer": 1},
						}},
					},
				},
			})
		case "/mockexam/score":
			json.NewEncoder(w).Encode(map[string]interface{}{"score": map[string]interface{}{"total_score": 100}})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))

	backend := NewSessionBackend(client, "tok-1", 2, quiz.FlavorMock, 0)

	_, err := backend.LoadPaper(context.Background())
	require.NoError(t, err)
	require.NoError(t, backend.DeliverAnswer(context.Background(), 1, 1))
	_, err = backend.FetchScore(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/mockexam/questions", "/mockexam/answer", "/mockexam/score"}, paths)
}
