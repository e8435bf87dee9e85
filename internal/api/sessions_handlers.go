package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/auth"
	"github.com/justyntemme/booklens/internal/models"
)

// MsgSessionSaved is returned after a session record is stored
const MsgSessionSaved = "독서 기록이 저장되었습니다."

// SaveSession appends a finished reading session. The book itself is
// updated by the client with a separate PUT.
func (h *Handler) SaveSession(c *gin.Context) {
	var rec models.SessionRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !validBookID(rec.BookID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return
	}
	if rec.PagesRead < 0 || rec.Duration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pagesRead and duration must not be negative"})
		return
	}
	if rec.StartTime.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startTime is required"})
		return
	}

	id, err := h.db.SaveSession(auth.GetUserID(c), &rec)
	if isNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to save reading session", zap.Int64("book_id", rec.BookID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save reading session"})
		return
	}

	h.logger.Info("Reading session saved",
		zap.Int64("book_id", rec.BookID),
		zap.Int("pages", rec.PagesRead),
		zap.Int64("duration", rec.Duration))
	c.JSON(http.StatusCreated, gin.H{"message": MsgSessionSaved, "id": id})
}

// CalendarHistory returns one month of sessions keyed by UTC start date
func (h *Handler) CalendarHistory(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid month"})
		return
	}

	history, err := h.db.SessionsByMonth(auth.GetUserID(c), year, month)
	if err != nil {
		h.logger.Error("Failed to load calendar", zap.Int("year", year), zap.Int("month", month), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load reading calendar"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": history})
}

// DateHistory returns the sessions of one day, or null data when none
func (h *Handler) DateHistory(c *gin.Context) {
	date := c.Query("date")
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	day, err := h.db.SessionsByDate(auth.GetUserID(c), date)
	if err != nil {
		h.logger.Error("Failed to load day", zap.String("date", date), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load reading history"})
		return
	}
	if len(day.Sessions) == 0 {
		c.JSON(http.StatusOK, gin.H{"data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": day})
}
