package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/justyntemme/booklens/internal/auth"
)

// NewRouter wires every route
func NewRouter(h *Handler, ah *AuthHandler, tokens *auth.Manager) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware(), requestIDMiddleware())

	// The client resolves /health against its API base URL
	r.GET("/health", h.HealthCheck)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("", h.APIInfo)
		apiGroup.GET("/health", h.HealthCheck)

		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", ah.Register)
			authGroup.POST("/login", ah.Login)
			authGroup.POST("/refresh", ah.RefreshToken)
		}

		protected := apiGroup.Group("")
		protected.Use(tokens.Required())
		{
			protected.GET("/auth/me", ah.GetCurrentUser)
			protected.POST("/postings/:id/like", h.LikePosting)
		}

		// When a token is present, data is scoped to that user
		library := apiGroup.Group("")
		library.Use(tokens.Optional())
		{
			library.GET("/books", h.ListBooks)
			library.POST("/books", h.CreateBook)
			library.GET("/books/lookup", h.LookupBook)
			library.GET("/books/:id", h.GetBook)
			library.PUT("/books/:id", h.UpdateBook)
			library.DELETE("/books/:id", h.DeleteBook)

			library.GET("/metadata/search", h.SearchMetadata)

			library.POST("/reading-sessions/save", h.SaveSession)
			library.GET("/reading-sessions/calendar", h.CalendarHistory)
			library.GET("/reading-sessions/date", h.DateHistory)

			library.GET("/postings", h.ListPostings)
			library.POST("/postings", h.CreatePosting)
		}
	}

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestIDMiddleware echoes X-Request-ID, generating one when absent
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
