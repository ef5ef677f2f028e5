package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepforge/quizgate/internal/middleware"
	"github.com/prepforge/quizgate/internal/response"
	"github.com/prepforge/quizgate/internal/store"
	"github.com/prepforge/quizgate/internal/upstream"
	"github.com/prepforge/quizgate/internal/validator"
)

// ChapterHandler serves the chapter catalogue and the learner's selection.
// A selection must exist before a chapter drill session can start.
type ChapterHandler struct {
	client     *upstream.Client
	selections *store.ChapterSelectionStore
}

// NewChapterHandler creates a new ChapterHandler.
func NewChapterHandler(client *upstream.Client, selections *store.ChapterSelectionStore) *ChapterHandler {
	return &ChapterHandler{client: client, selections: selections}
}

// SelectChapterRequest picks the chapter for subsequent drill sessions.
type SelectChapterRequest struct {
	ChapterID int `json:"chapter_id" binding:"required,gt=0"`
}

// List godoc
// GET /api/v1/chapters
// Returns the upstream chapter catalogue.
func (h *ChapterHandler) List(c *gin.Context) {
	chapters, err := h.client.AllChapters(c.Request.Context(), middleware.GetBearer(c))
	if err != nil {
		failUpstream(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"chapters": chapters})
}

// Select godoc
// POST /api/v1/chapters/select
// Remembers the learner's chapter for the drill flavor.
func (h *ChapterHandler) Select(c *gin.Context) {
	var req SelectChapterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.selections.Set(c.Request.Context(), claims.Subject, req.ChapterID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"chapter_id": req.ChapterID})
}

// Selected godoc
// GET /api/v1/chapters/selected
// Returns the learner's current chapter selection.
func (h *ChapterHandler) Selected(c *gin.Context) {
	claims := middleware.GetClaims(c)
	chapterID, err := h.selections.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNoChapterSelected) {
			response.Fail(c, http.StatusNotFound, response.ErrNoChapterSelected)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"chapter_id": chapterID})
}
