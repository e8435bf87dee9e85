package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/auth"
	"github.com/justyntemme/booklens/internal/models"
)

// ListPostings returns community posts, optionally filtered by ?bookId=
func (h *Handler) ListPostings(c *gin.Context) {
	var bookID int64
	if raw := c.Query("bookId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || !validBookID(id) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
			return
		}
		bookID = id
	}

	postings, err := h.db.ListPostings(bookID)
	if err != nil {
		h.logger.Error("Failed to list postings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list postings"})
		return
	}
	c.JSON(http.StatusOK, postings)
}

// CreatePosting publishes a post about one of the user's books. Book details
// missing from the body are filled from the library.
func (h *Handler) CreatePosting(c *gin.Context) {
	var p models.Posting
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	p.Content = strings.TrimSpace(p.Content)
	if p.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	if !validBookID(p.BookID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return
	}
	if p.Rating < 0 || p.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		return
	}

	userID := auth.GetUserID(c)
	if p.BookTitle == "" {
		book, err := h.db.GetBook(userID, p.BookID)
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get book"})
			return
		}
		p.BookTitle = book.Title
		p.BookAuthor = book.Author
		p.BookThumbnail = book.Thumbnail
	}

	// Client-generated IDs are kept so offline posts do not duplicate on resend
	if _, err := uuid.Parse(p.ID); err != nil {
		p.ID = uuid.New().String()
	}
	p.UserID = userID
	p.Likes = 0
	if p.CreatedAt.IsZero() {
		p.CreatedAt = h.now()
	}

	if err := h.db.CreatePosting(&p); err != nil {
		h.logger.Error("Failed to create posting", zap.Int64("book_id", p.BookID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create posting"})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// LikePosting records the current user's like and returns the count
func (h *Handler) LikePosting(c *gin.Context) {
	likes, err := h.db.LikePosting(c.Param("id"), auth.GetUserID(c))
	if isNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Posting not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to like posting", zap.String("posting_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to like posting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes": likes})
}
