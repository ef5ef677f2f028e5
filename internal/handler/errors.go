package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepforge/quizgate/internal/quiz"
	"github.com/prepforge/quizgate/internal/registry"
	"github.com/prepforge/quizgate/internal/response"
	"github.com/prepforge/quizgate/internal/store"
)

// failUpstream maps an upstream client error onto the response envelope.
func failUpstream(c *gin.Context, err error) {
	if errors.Is(err, quiz.ErrCredentialRejected) {
		response.Fail(c, http.StatusUnauthorized, response.ErrCredentialRejected)
		return
	}
	response.Fail(c, http.StatusBadGateway, response.ErrUpstream)
}

// failQuiz maps session and registry errors onto the response envelope.
func failQuiz(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, quiz.ErrNoQuestions):
		response.Fail(c, http.StatusNotFound, response.ErrNoQuestions)
	case errors.Is(err, store.ErrNoChapterSelected):
		response.Fail(c, http.StatusBadRequest, response.ErrNoChapterSelected)
	case errors.Is(err, quiz.ErrCredentialRejected):
		response.Fail(c, http.StatusUnauthorized, response.ErrCredentialRejected)
	case errors.Is(err, quiz.ErrNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrQuizNotStarted)
	case errors.Is(err, quiz.ErrNotActive), errors.Is(err, quiz.ErrSessionClosed):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
	case errors.Is(err, quiz.ErrAnswerRequired):
		response.Fail(c, http.StatusBadRequest, response.ErrAnswerRequired)
	case errors.Is(err, quiz.ErrPositionOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrPositionOutOfRange)
	case errors.Is(err, quiz.ErrSubmitInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSubmitInFlight)
	case errors.Is(err, store.ErrScoreNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrScoreNotFound)
	default:
		response.Fail(c, http.StatusBadGateway, response.ErrUpstream)
	}
}
