package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prepforge/quizgate/internal/response"
	"github.com/prepforge/quizgate/internal/token"
)

const (
	// ContextKeyClaims is the Gin context key for decoded token claims.
	ContextKeyClaims = "claims"
	// ContextKeyBearer is the Gin context key for the raw bearer token,
	// which handlers forward to the upstream exam API verbatim.
	ContextKeyBearer = "bearer"
)

// RequireStudent validates a bearer token and admits students only.
func RequireStudent(decoder *token.Decoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, raw, ok := extractClaims(c, decoder)
		if !ok {
			return
		}

		if !claims.IsStudent() {
			response.AbortFail(c, http.StatusForbidden, response.ErrStudentAccessOnly)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyBearer, raw)
		c.Next()
	}
}

// RequireUser validates a bearer token and admits any recognized role.
func RequireUser(decoder *token.Decoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, raw, ok := extractClaims(c, decoder)
		if !ok {
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyBearer, raw)
		c.Next()
	}
}

// RequireAdmin validates a bearer token and admits admins only.
func RequireAdmin(decoder *token.Decoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, raw, ok := extractClaims(c, decoder)
		if !ok {
			return
		}

		if !claims.IsAdmin() {
			response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyBearer, raw)
		c.Next()
	}
}

// GetClaims retrieves the decoded claims from the Gin context.
func GetClaims(c *gin.Context) *token.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*token.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetBearer retrieves the raw bearer token from the Gin context.
func GetBearer(c *gin.Context) string {
	return c.GetString(ContextKeyBearer)
}

func extractClaims(c *gin.Context, decoder *token.Decoder) (*token.Claims, string, bool) {
	raw := ""

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			raw = parts[1]
		}
	}

	// Fallback for WebSocket upgrades, which cannot send headers from a
	// browser client.
	if raw == "" {
		raw = c.Query("token")
	}

	if raw == "" {
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, "", false
	}

	claims, err := decoder.Decode(raw)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenExpired)
		} else {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		}
		return nil, "", false
	}
	return claims, raw, true
}
