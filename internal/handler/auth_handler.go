package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepforge/quizgate/internal/middleware"
	"github.com/prepforge/quizgate/internal/response"
	"github.com/prepforge/quizgate/internal/upstream"
	"github.com/prepforge/quizgate/internal/validator"
)

// AuthHandler proxies authentication to the upstream exam API. The gateway
// never stores credentials; it only relays them and decodes the returned
// bearer token for its own guards.
type AuthHandler struct {
	client *upstream.Client
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(client *upstream.Client) *AuthHandler {
	return &AuthHandler{client: client}
}

// LoginRequest is the gateway's login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the gateway's signup payload.
type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FacultyID int    `json:"faculty_id" binding:"required,gt=0"`
}

// Login godoc
// POST /api/v1/auth/login
// Exchanges username + password for an upstream bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	accessToken, err := h.client.Token(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) && statusErr.Code < http.StatusInternalServerError {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusBadGateway, response.ErrUpstream)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"access_token": accessToken,
		"token_type":   "bearer",
	})
}

// Register godoc
// POST /api/v1/auth/register
// Creates an account on the upstream exam API.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.client.Register(c.Request.Context(), upstream.RegisterRequest{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FacultyID: req.FacultyID,
	})
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) && statusErr.Code < http.StatusInternalServerError {
			response.Fail(c, http.StatusConflict, response.ErrInvalidPayload)
			return
		}
		response.Fail(c, http.StatusBadGateway, response.ErrUpstream)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the decoded claims of the presented bearer token.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"subject": claims.Subject,
		"role":    claims.Role,
		"faculty": claims.Faculty,
		"expires": claims.ExpiresAt,
	})
}
