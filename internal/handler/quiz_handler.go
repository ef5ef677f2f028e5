package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepforge/quizgate/internal/config"
	"github.com/prepforge/quizgate/internal/logger"
	"github.com/prepforge/quizgate/internal/middleware"
	"github.com/prepforge/quizgate/internal/quiz"
	"github.com/prepforge/quizgate/internal/registry"
	"github.com/prepforge/quizgate/internal/response"
	"github.com/prepforge/quizgate/internal/store"
	"github.com/prepforge/quizgate/internal/upstream"
	"github.com/prepforge/quizgate/internal/validator"
	"github.com/prepforge/quizgate/internal/worker"
)

// QuizHandler drives quiz sessions: starting, answering, navigating and
// scoring. All endpoints operate on the authenticated learner's own
// sessions.
type QuizHandler struct {
	cfg        *config.Config
	client     *upstream.Client
	sessions   *registry.Registry
	selections *store.ChapterSelectionStore
	scores     *store.ScoreStore
	redeliver  *worker.RedeliverWorker
	log        zerolog.Logger
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(
	cfg *config.Config,
	client *upstream.Client,
	sessions *registry.Registry,
	selections *store.ChapterSelectionStore,
	scores *store.ScoreStore,
	redeliver *worker.RedeliverWorker,
	log zerolog.Logger,
) *QuizHandler {
	return &QuizHandler{
		cfg:        cfg,
		client:     client,
		sessions:   sessions,
		selections: selections,
		scores:     scores,
		redeliver:  redeliver,
		log:        logger.Component(log, "quiz_handler"),
	}
}

// SelectAnswerRequest records an option for the current question.
type SelectAnswerRequest struct {
	Option int `json:"option" binding:"required,gt=0"`
}

// JumpRequest moves the cursor to an absolute position.
type JumpRequest struct {
	Position *int `json:"position" binding:"required"`
}

func (h *QuizHandler) flowFor(flavor quiz.Flavor) quiz.Flow {
	switch flavor {
	case quiz.FlavorMock:
		return quiz.MockFlow(h.cfg.MockDuration, h.cfg.CountdownTicks)
	case quiz.FlavorChapter:
		return quiz.ChapterFlow(h.cfg.CountdownTicks)
	default:
		return quiz.PracticeFlow(h.cfg.PracticeDuration, h.cfg.CountdownTicks)
	}
}

// flavorParam binds the :flavor path segment through the quizflavor rule.
type flavorParam struct {
	Flavor string `uri:"flavor" json:"flavor" binding:"required,quizflavor"`
}

func parseFlavor(c *gin.Context) (quiz.Flavor, bool) {
	var p flavorParam
	if err := c.ShouldBindUri(&p); err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
		return "", false
	}
	return quiz.Flavor(p.Flavor), true
}

// Start godoc
// POST /api/v1/quiz/:flavor/start
// Loads a paper and opens a new session for the learner.
func (h *QuizHandler) Start(c *gin.Context) {
	flavor, ok := parseFlavor(c)
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	bearer := middleware.GetBearer(c)
	ctx := c.Request.Context()

	chapterID := 0
	if flavor == quiz.FlavorChapter {
		var err error
		chapterID, err = h.selections.Get(ctx, claims.Subject)
		if err != nil {
			failQuiz(c, err)
			return
		}
	}

	backend := upstream.NewSessionBackend(h.client, bearer, claims.Faculty, flavor, chapterID)
	session := quiz.NewSession(claims.Subject, h.flowFor(flavor), backend,
		quiz.WithLogger(h.log),
		quiz.WithRedeliver(func(questionID, answerIndex int) {
			job := worker.AnswerJob{
				Subject:     claims.Subject,
				Token:       bearer,
				Flavor:      flavor,
				ChapterID:   chapterID,
				QuestionID:  questionID,
				AnswerIndex: answerIndex,
			}
			if err := h.redeliver.Enqueue(context.Background(), job); err != nil {
				h.log.Error().Err(err).Int("question_id", questionID).Msg("Redelivery enqueue failed")
			}
		}),
		quiz.WithScoreSaver(func(ctx context.Context, payload quiz.ScorePayload) error {
			return h.scores.Save(ctx, claims.Subject, flavor, payload)
		}),
	)

	h.sessions.Put(session)

	if err := session.Start(ctx); err != nil {
		h.sessions.Remove(session.ID, claims.Subject)
		failQuiz(c, err)
		return
	}

	response.Success(c, http.StatusCreated, session.View())
}

// session resolves the :session_id path param against the registry.
func (h *QuizHandler) session(c *gin.Context) (*quiz.Session, bool) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	session, err := h.sessions.Get(id, middleware.GetClaims(c).Subject)
	if err != nil {
		failQuiz(c, err)
		return nil, false
	}
	return session, true
}

// View godoc
// GET /api/v1/quiz/sessions/:session_id
// Returns the session state, current question and ledger.
func (h *QuizHandler) View(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, session.View())
}

// Answer godoc
// POST /api/v1/quiz/sessions/:session_id/answer
// Records a 1-based option for the current question. Overwrites freely
// until the position is confirmed.
func (h *QuizHandler) Answer(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := session.Select(req.Option); err != nil {
		failQuiz(c, err)
		return
	}
	response.Success(c, http.StatusOK, session.View())
}

// Next godoc
// POST /api/v1/quiz/sessions/:session_id/next
// Confirms the current answer and advances. On the final position this
// completes the session.
func (h *QuizHandler) Next(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Next(c.Request.Context()); err != nil {
		failQuiz(c, err)
		return
	}
	response.Success(c, http.StatusOK, session.View())
}

// Previous godoc
// POST /api/v1/quiz/sessions/:session_id/previous
// Moves back one position without any upstream traffic.
func (h *QuizHandler) Previous(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Previous(); err != nil {
		failQuiz(c, err)
		return
	}
	response.Success(c, http.StatusOK, session.View())
}

// Skip godoc
// POST /api/v1/quiz/sessions/:session_id/skip
// Records the skip sentinel and advances.
func (h *QuizHandler) Skip(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Skip(c.Request.Context()); err != nil {
		failQuiz(c, err)
		return
	}
	response.Success(c, http.StatusOK, session.View())
}

// Jump godoc
// POST /api/v1/quiz/sessions/:session_id/jump
// Moves the cursor to an absolute 0-based position.
func (h *QuizHandler) Jump(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req JumpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := session.Jump(*req.Position); err != nil {
		failQuiz(c, err)
		return
	}
	response.Success(c, http.StatusOK, session.View())
}

// Submit godoc
// POST /api/v1/quiz/sessions/:session_id/submit
// Completes the session from the final position.
func (h *QuizHandler) Submit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Submit(c.Request.Context()); err != nil {
		failQuiz(c, err)
		return
	}
	response.Success(c, http.StatusOK, session.View())
}

// Abandon godoc
// DELETE /api/v1/quiz/sessions/:session_id
// Closes and discards a session. Confirmed answers already delivered
// upstream stay delivered.
func (h *QuizHandler) Abandon(c *gin.Context) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessions.Remove(id, middleware.GetClaims(c).Subject); err != nil {
		failQuiz(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Score godoc
// GET /api/v1/quiz/:flavor/score
// Consumes the pending score payload and renders the per-question verdict
// rows. A second read returns SCORE_NOT_FOUND.
func (h *QuizHandler) Score(c *gin.Context) {
	flavor, ok := parseFlavor(c)
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	payload, err := h.scores.Take(c.Request.Context(), claims.Subject, flavor)
	if err != nil {
		failQuiz(c, err)
		return
	}

	response.Success(c, http.StatusOK, scoreView(flavor, payload))
}

// scoreView shapes the final results page: the total plus one row per
// question with the display verdict derived from the server's answer_status
// and the skip sentinel.
func scoreView(flavor quiz.Flavor, payload quiz.ScorePayload) gin.H {
	rows := make([]gin.H, 0, len(payload.Score.Questions))
	for _, q := range payload.Score.Questions {
		row := gin.H{
			"question":       q.Prompt,
			"options":        q.Options,
			"correct_answer": q.CorrectAnswer,
			"user_answer":    q.UserAnswer,
			"status":         q.DisplayStatus(),
		}
		if q.Level != "" {
			row["level"] = q.Level
		}
		rows = append(rows, row)
	}

	return gin.H{
		"flavor":      flavor,
		"total_score": payload.Score.TotalScore,
		"questions":   rows,
	}
}
