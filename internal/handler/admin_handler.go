package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepforge/quizgate/internal/middleware"
	"github.com/prepforge/quizgate/internal/response"
	"github.com/prepforge/quizgate/internal/upstream"
	"github.com/prepforge/quizgate/internal/validator"
)

// AdminHandler proxies catalogue management to the upstream exam API for
// admin tokens: faculties, chapters, subchapters and their links.
type AdminHandler struct {
	client *upstream.Client
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(client *upstream.Client) *AdminHandler {
	return &AdminHandler{client: client}
}

// CreateFacultyRequest names a new faculty.
type CreateFacultyRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateChapterRequest names a new chapter.
type CreateChapterRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateSubchapterRequest adds a subchapter under a chapter.
type CreateSubchapterRequest struct {
	ChapterID int    `json:"chapter_id" binding:"required,gt=0"`
	Name      string `json:"name" binding:"required"`
}

// LinkFacultyChaptersRequest assigns chapters to a faculty's curriculum.
type LinkFacultyChaptersRequest struct {
	FacultyID  int   `json:"faculty_id" binding:"required,gt=0"`
	ChapterIDs []int `json:"chapter_ids" binding:"required,min=1,dive,gt=0"`
}

// ListFaculties godoc
// GET /api/v1/admin/faculties
func (h *AdminHandler) ListFaculties(c *gin.Context) {
	faculties, err := h.client.Faculties(c.Request.Context(), middleware.GetBearer(c))
	if err != nil {
		failUpstream(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"faculties": faculties})
}

// CreateFaculty godoc
// POST /api/v1/admin/faculties
func (h *AdminHandler) CreateFaculty(c *gin.Context) {
	var req CreateFacultyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.client.CreateFaculty(c.Request.Context(), middleware.GetBearer(c), upstream.CreateFacultyRequest{Name: req.Name})
	if err != nil {
		failUpstream(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{})
}

// CreateChapter godoc
// POST /api/v1/admin/chapters
func (h *AdminHandler) CreateChapter(c *gin.Context) {
	var req CreateChapterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.client.CreateChapter(c.Request.Context(), middleware.GetBearer(c), upstream.CreateChapterRequest{Name: req.Name})
	if err != nil {
		failUpstream(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{})
}

// CreateSubchapter godoc
// POST /api/v1/admin/subchapters
func (h *AdminHandler) CreateSubchapter(c *gin.Context) {
	var req CreateSubchapterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.client.CreateSubchapter(c.Request.Context(), middleware.GetBearer(c), upstream.CreateSubchapterRequest{
		ChapterID: req.ChapterID,
		Name:      req.Name,
	})
	if err != nil {
		failUpstream(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{})
}

// LinkFacultyChapters godoc
// POST /api/v1/admin/faculty-chapters
func (h *AdminHandler) LinkFacultyChapters(c *gin.Context) {
	var req LinkFacultyChaptersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.client.LinkFacultyChapters(c.Request.Context(), middleware.GetBearer(c), upstream.LinkFacultyChaptersRequest{
		FacultyID:  req.FacultyID,
		ChapterIDs: req.ChapterIDs,
	})
	if err != nil {
		failUpstream(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{})
}
