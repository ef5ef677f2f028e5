package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepforge/quizgate/internal/logger"
	"github.com/prepforge/quizgate/internal/quiz"
)

// StatusError is returned for upstream responses outside the 2xx range that
// do not map to a quiz sentinel.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: status %d: %s", e.Code, e.Body)
}

// Client talks to the external exam API. All calls carry the learner's own
// bearer token; the gateway never holds credentials of its own.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
	now     func() time.Time
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger.Component(log, "upstream"),
		now:     time.Now,
	}
}

// ─────────────────────────────────────────────
// AUTH
// ─────────────────────────────────────────────

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/api/register", "", req, nil)
}

// Token exchanges a username and password for a bearer token. The upstream
// expects a form-encoded body on this one endpoint.
func (c *Client) Token(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("upstream: token: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return "", err
	}

	var body TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("upstream: decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("upstream: token response missing access_token")
	}
	return body.AccessToken, nil
}

// ─────────────────────────────────────────────
// QUESTION SUPPLY
// ─────────────────────────────────────────────

func (c *Client) PracticeQuestions(ctx context.Context, token string, facultyID int) (quiz.Paper, error) {
	return c.facultyQuestions(ctx, token, "/practisetest/questions?faculty_id="+strconv.Itoa(facultyID))
}

func (c *Client) MockQuestions(ctx context.Context, token string, facultyID int) (quiz.Paper, error) {
	return c.facultyQuestions(ctx, token, "/mockexam/questions?faculty_id="+strconv.Itoa(facultyID))
}

func (c *Client) facultyQuestions(ctx context.Context, token, path string) (quiz.Paper, error) {
	var body facultyQuestionsResponse
	if err := c.do(ctx, http.MethodGet, path, token, nil, &body); err != nil {
		return quiz.Paper{}, err
	}
	questions := flattenLevels(body.Questions)
	if len(questions) == 0 {
		return quiz.Paper{}, quiz.ErrNoQuestions
	}
	return quiz.Paper{Questions: questions}, nil
}

// ChapterQuestions loads a chapter drill paper. The upstream session's
// end_time becomes the paper deadline, so the clock runs synced rather than
// as a free local countdown.
func (c *Client) ChapterQuestions(ctx context.Context, token string, chapterID int) (quiz.Paper, error) {
	path := "/practise/chapters?chapter_id=" + strconv.Itoa(chapterID)
	var body chapterQuestionsResponse
	if err := c.do(ctx, http.MethodGet, path, token, nil, &body); err != nil {
		return quiz.Paper{}, err
	}

	questions := flattenSubchapters(body.Subchapters)
	if len(questions) == 0 {
		return quiz.Paper{}, quiz.ErrNoQuestions
	}

	deadline, err := parseEndTime(c.now(), body.Session.EndTime)
	if err != nil {
		return quiz.Paper{}, fmt.Errorf("upstream: chapter session: %w", err)
	}
	return quiz.Paper{Questions: questions, Deadline: &deadline}, nil
}

// ─────────────────────────────────────────────
// ANSWERS & SCORES
// ─────────────────────────────────────────────

func (c *Client) SubmitPracticeAnswer(ctx context.Context, token string, questionID, answerIndex int) error {
	return c.do(ctx, http.MethodPost, "/practisetest/answer", token, answerRequest{QuestionID: questionID, AnswerIndex: answerIndex}, nil)
}

func (c *Client) SubmitMockAnswer(ctx context.Context, token string, questionID, answerIndex int) error {
	return c.do(ctx, http.MethodPost, "/mockexam/answer", token, answerRequest{QuestionID: questionID, AnswerIndex: answerIndex}, nil)
}

func (c *Client) SubmitChapterAnswer(ctx context.Context, token string, chapterID, questionID, answerIndex int) error {
	return c.do(ctx, http.MethodPost, "/practise/chapteranswer", token, answerRequest{QuestionID: questionID, AnswerIndex: answerIndex, ChapterID: chapterID}, nil)
}

func (c *Client) PracticeScore(ctx context.Context, token string) (quiz.ScorePayload, error) {
	return c.score(ctx, token, "/practisetest/score")
}

func (c *Client) MockScore(ctx context.Context, token string) (quiz.ScorePayload, error) {
	return c.score(ctx, token, "/mockexam/score")
}

func (c *Client) ChapterScore(ctx context.Context, token string, chapterID int) (quiz.ScorePayload, error) {
	return c.score(ctx, token, "/practise/chapterscore?chapter_id="+strconv.Itoa(chapterID))
}

func (c *Client) score(ctx context.Context, token, path string) (quiz.ScorePayload, error) {
	var payload quiz.ScorePayload
	if err := c.do(ctx, http.MethodGet, path, token, nil, &payload); err != nil {
		return quiz.ScorePayload{}, err
	}
	return payload, nil
}

// ─────────────────────────────────────────────
// CATALOGUE & ADMIN
// ─────────────────────────────────────────────

func (c *Client) AllChapters(ctx context.Context, token string) ([]Chapter, error) {
	var chapters []Chapter
	if err := c.do(ctx, http.MethodGet, "/allchapters", token, nil, &chapters); err != nil {
		return nil, err
	}
	return chapters, nil
}

func (c *Client) Faculties(ctx context.Context, token string) ([]Faculty, error) {
	var faculties []Faculty
	if err := c.do(ctx, http.MethodGet, "/faculty", token, nil, &faculties); err != nil {
		return nil, err
	}
	return faculties, nil
}

func (c *Client) CreateFaculty(ctx context.Context, token string, req CreateFacultyRequest) error {
	return c.do(ctx, http.MethodPost, "/faculty", token, req, nil)
}

func (c *Client) CreateChapter(ctx context.Context, token string, req CreateChapterRequest) error {
	return c.do(ctx, http.MethodPost, "/chapter", token, req, nil)
}

func (c *Client) CreateSubchapter(ctx context.Context, token string, req CreateSubchapterRequest) error {
	return c.do(ctx, http.MethodPost, "/subchapter", token, req, nil)
}

func (c *Client) LinkFacultyChapters(ctx context.Context, token string, req LinkFacultyChaptersRequest) error {
	return c.do(ctx, http.MethodPost, "/faculty-chapters", token, req, nil)
}

// ─────────────────────────────────────────────
// TRANSPORT
// ─────────────────────────────────────────────

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("upstream: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("upstream: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	c.log.Warn().
		Int("status", resp.StatusCode).
		Str("url", resp.Request.URL.Path).
		Msg("upstream request failed")

	// A 403 means the credential itself was rejected, which ends the
	// learner's session rather than a single call.
	if resp.StatusCode == http.StatusForbidden {
		return quiz.ErrCredentialRejected
	}
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}
