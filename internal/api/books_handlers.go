package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/auth"
	"github.com/justyntemme/booklens/internal/client"
	"github.com/justyntemme/booklens/internal/metadata"
	"github.com/justyntemme/booklens/internal/models"
)

const lookupTimeout = 10 * time.Second

var (
	errTitleRequired  = errors.New("title is required")
	errNegativePages  = errors.New("page counts and reading time must not be negative")
	errPagesOverTotal = errors.New("read_page must not exceed total_page")
	errBadProgress    = errors.New("progress must be between 0 and 100")
	errBadStatus      = errors.New("status must be reading or completed")
)

func validateBook(b *models.Book) error {
	switch {
	case b.Title == "":
		return errTitleRequired
	case b.TotalPage < 0 || b.ReadPage < 0 || b.TotalReadingTime < 0:
		return errNegativePages
	case b.TotalPage > 0 && b.ReadPage > b.TotalPage:
		return errPagesOverTotal
	case b.Progress < 0 || b.Progress > 100:
		return errBadProgress
	}
	switch b.Status {
	case models.StatusReading, models.StatusCompleted:
		return nil
	}
	return errBadStatus
}

// ListBooks returns the user's books, newest first
func (h *Handler) ListBooks(c *gin.Context) {
	books, err := h.db.ListBooks(auth.GetUserID(c))
	if err != nil {
		h.logger.Error("Failed to list books", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list books"})
		return
	}

	out := make([]client.WireBook, 0, len(books))
	for _, b := range books {
		out = append(out, client.BookToWire(b))
	}
	c.JSON(http.StatusOK, out)
}

// GetBook returns a single book
func (h *Handler) GetBook(c *gin.Context) {
	id, ok := parseBookID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return
	}

	book, err := h.db.GetBook(auth.GetUserID(c), id)
	if isNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get book", zap.Int64("book_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get book"})
		return
	}
	c.JSON(http.StatusOK, client.BookToWire(*book))
}

// CreateBook adds a book to the user's library
func (h *Handler) CreateBook(c *gin.Context) {
	var in client.IncomingBook
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	book := in.Book()
	book.ID = 0
	if book.Status == "" {
		book.Status = models.StatusReading
	}
	if book.StartDate == "" {
		book.StartDate = h.now().UTC().Format(models.DateLayout)
	}
	if err := validateBook(&book); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.CreateBook(auth.GetUserID(c), &book); err != nil {
		h.logger.Error("Failed to create book", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create book"})
		return
	}
	h.logger.Info("Book created", zap.Int64("book_id", book.ID), zap.String("title", book.Title))
	c.JSON(http.StatusCreated, client.BookToWire(book))
}

// UpdateBook replaces a book. The path ID wins over any ID in the body.
func (h *Handler) UpdateBook(c *gin.Context) {
	id, ok := parseBookID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return
	}

	var in client.IncomingBook
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	book := in.Book()
	book.ID = id
	if book.Status == "" {
		book.Status = models.StatusReading
	}
	if err := validateBook(&book); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.db.UpdateBook(auth.GetUserID(c), &book)
	if isNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to update book", zap.Int64("book_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update book"})
		return
	}
	c.JSON(http.StatusOK, client.BookToWire(book))
}

// DeleteBook removes a book and all of its reading sessions
func (h *Handler) DeleteBook(c *gin.Context) {
	id, ok := parseBookID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return
	}

	err := h.db.DeleteBook(auth.GetUserID(c), id)
	if isNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete book", zap.Int64("book_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete book"})
		return
	}
	h.logger.Info("Book deleted", zap.Int64("book_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Book deleted"})
}

// metadataError maps lookup failures to responses
func (h *Handler) metadataError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, metadata.ErrInvalidISBN):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, metadata.ErrNoMatch):
		c.JSON(http.StatusNotFound, gin.H{"error": "No matching metadata found"})
	case errors.Is(err, metadata.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limited, please try again later"})
	case errors.Is(err, metadata.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Book lookup is not configured"})
	default:
		h.logger.Warn("Metadata lookup failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to lookup metadata"})
	}
}

// LookupBook returns the best metadata match and the draft book built from it
func (h *Handler) LookupBook(c *gin.Context) {
	isbn, title, author := c.Query("isbn"), c.Query("title"), c.Query("author")
	if isbn == "" && title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least isbn or title is required"})
		return
	}
	if h.metadata == nil {
		h.metadataError(c, metadata.ErrNotConfigured)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), lookupTimeout)
	defer cancel()

	result, err := h.metadata.LookupBook(ctx, isbn, title, author)
	if err != nil {
		h.metadataError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"metadata": result,
		"book":     client.BookToWire(result.ToBook()),
	})
}

// SearchMetadata returns every metadata match ranked by confidence
func (h *Handler) SearchMetadata(c *gin.Context) {
	isbn, title, author := c.Query("isbn"), c.Query("title"), c.Query("author")
	if isbn == "" && title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least isbn or title is required"})
		return
	}
	if h.metadata == nil {
		h.metadataError(c, metadata.ErrNotConfigured)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), lookupTimeout)
	defer cancel()

	results, err := h.metadata.SearchBooks(ctx, isbn, title, author)
	if err != nil {
		h.metadataError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}
