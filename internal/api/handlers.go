// Package api serves the booklens REST backend: books, reading sessions,
// community postings and accounts over SQLite.
package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/metadata"
	"github.com/justyntemme/booklens/internal/storage"
)

// Handler contains the library HTTP handlers
type Handler struct {
	db       *storage.Database
	metadata *metadata.Service
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a new handler instance. meta may be nil, in which case
// lookups answer 503.
func NewHandler(db *storage.Database, meta *metadata.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{db: db, metadata: meta, logger: logger, now: time.Now}
}

// HealthCheck reports whether the server and its database are reachable
func (h *Handler) HealthCheck(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		h.logger.Error("Database ping failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "Can't reach database server"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": h.now()})
}

// APIInfo lists the available endpoints
func (h *Handler) APIInfo(c *gin.Context) {
	endpoints := []gin.H{
		{"method": "GET", "path": "/health", "description": "Health check"},
		{"method": "GET", "path": "/api", "description": "API documentation"},

		// Auth
		{"method": "POST", "path": "/api/auth/register", "description": "Register new user", "body": "username, email, password"},
		{"method": "POST", "path": "/api/auth/login", "description": "Login", "body": "login (username or email), password"},
		{"method": "POST", "path": "/api/auth/refresh", "description": "Refresh JWT token", "body": "token"},
		{"method": "GET", "path": "/api/auth/me", "description": "Get current user", "auth": true},

		// Books
		{"method": "GET", "path": "/api/books", "description": "List books"},
		{"method": "POST", "path": "/api/books", "description": "Add a book", "body": "title, author, total_page, ..."},
		{"method": "GET", "path": "/api/books/:id", "description": "Get book by ID"},
		{"method": "PUT", "path": "/api/books/:id", "description": "Replace a book", "body": "book (snake_case)"},
		{"method": "DELETE", "path": "/api/books/:id", "description": "Delete a book and its reading sessions"},
		{"method": "GET", "path": "/api/books/lookup", "description": "Best metadata match as a draft book", "query": "isbn, title, author"},
		{"method": "GET", "path": "/api/metadata/search", "description": "All metadata matches", "query": "isbn, title, author"},

		// Reading sessions
		{"method": "POST", "path": "/api/reading-sessions/save", "description": "Record a finished reading session", "body": "bookId, pagesRead, duration, startTime"},
		{"method": "GET", "path": "/api/reading-sessions/calendar", "description": "Sessions of one month by date", "query": "year, month"},
		{"method": "GET", "path": "/api/reading-sessions/date", "description": "Sessions of one day", "query": "date (YYYY-MM-DD)"},

		// Community
		{"method": "GET", "path": "/api/postings", "description": "List postings", "query": "bookId"},
		{"method": "POST", "path": "/api/postings", "description": "Create a posting", "body": "bookId, content, rating"},
		{"method": "POST", "path": "/api/postings/:id/like", "description": "Like a posting", "auth": true},
	}

	c.JSON(http.StatusOK, gin.H{
		"name":      "booklens",
		"endpoints": endpoints,
	})
}

// parseBookID reads the :id path parameter. IDs are 32-bit on the wire.
func parseBookID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || !validBookID(id) {
		return 0, false
	}
	return id, true
}

func validBookID(id int64) bool {
	return id > 0 && id <= math.MaxInt32
}

// isNotFound reports whether err is a missing-row error from storage
func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
