package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/prepforge/quizgate/internal/config"
	"github.com/prepforge/quizgate/internal/handler"
	"github.com/prepforge/quizgate/internal/middleware"
	"github.com/prepforge/quizgate/internal/response"
	"github.com/prepforge/quizgate/internal/token"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Chapter *handler.ChapterHandler
	Quiz    *handler.QuizHandler
	Admin   *handler.AdminHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(decoder *token.Decoder, handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per caller).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/register", handlers.Auth.Register)

		// Authenticated profile route
		auth.GET("/me", middleware.RequireUser(decoder), handlers.Auth.Me)
	}

	// ─── 2. Student Group (Bearer Token) ───────────────────────────────
	studentAPI := router.Group("/api/v1")
	studentAPI.Use(middleware.RequireStudent(decoder))
	{
		studentAPI.GET("/chapters", handlers.Chapter.List)
		studentAPI.POST("/chapters/select", handlers.Chapter.Select)
		studentAPI.GET("/chapters/selected", handlers.Chapter.Selected)

		studentAPI.POST("/quiz/:flavor/start", handlers.Quiz.Start)
		studentAPI.GET("/quiz/:flavor/score", handlers.Quiz.Score)

		studentAPI.GET("/quiz/sessions/:session_id", handlers.Quiz.View)
		studentAPI.POST("/quiz/sessions/:session_id/answer", handlers.Quiz.Answer)
		studentAPI.POST("/quiz/sessions/:session_id/next", handlers.Quiz.Next)
		studentAPI.POST("/quiz/sessions/:session_id/previous", handlers.Quiz.Previous)
		studentAPI.POST("/quiz/sessions/:session_id/skip", handlers.Quiz.Skip)
		studentAPI.POST("/quiz/sessions/:session_id/jump", handlers.Quiz.Jump)
		studentAPI.POST("/quiz/sessions/:session_id/submit", handlers.Quiz.Submit)
		studentAPI.DELETE("/quiz/sessions/:session_id", handlers.Quiz.Abandon)
	}

	// ─── 3. WebSocket Group (Query Token Fallback) ─────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudent(decoder))
	{
		ws.GET("/quiz/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Admin Group (Bearer Token, Admin Role) ─────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdmin(decoder))
	{
		adminAPI.GET("/faculties", handlers.Admin.ListFaculties)
		adminAPI.POST("/faculties", handlers.Admin.CreateFaculty)
		adminAPI.POST("/chapters", handlers.Admin.CreateChapter)
		adminAPI.POST("/subchapters", handlers.Admin.CreateSubchapter)
		adminAPI.POST("/faculty-chapters", handlers.Admin.LinkFacultyChapters)
	}

	return router
}
