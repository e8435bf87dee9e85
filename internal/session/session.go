// Package session tracks the single in-progress reading session.
//
// There is no package-level state: the active session is a value owned by
// the caller and persisted through a Store so a restart does not lose it.
package session

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/models"
	"github.com/justyntemme/booklens/internal/storage"
)

// StaleAfter is how long a session may stay open before it is abandoned
const StaleAfter = 24 * time.Hour

var (
	// ErrSessionActive is returned when starting while another book is being read
	ErrSessionActive = errors.New("a reading session is already active")
	// ErrInvalidBookID is returned for non-positive book ids
	ErrInvalidBookID = errors.New("invalid book id")
)

// Store persists the active session
type Store interface {
	LoadSession() (*models.ReadingSession, error)
	SaveSession(*models.ReadingSession) error
	ClearSession() error
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock is a manually advanced clock for tests and replays
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time
func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// Start returns a new session for bookID. Starting again for the session's own
// book returns the existing session unchanged.
func Start(current *models.ReadingSession, bookID int64, now time.Time) (*models.ReadingSession, error) {
	if bookID <= 0 {
		return nil, ErrInvalidBookID
	}
	if current != nil {
		if current.BookID == bookID {
			return current, nil
		}
		return nil, fmt.Errorf("%w for book %d", ErrSessionActive, current.BookID)
	}
	return &models.ReadingSession{BookID: bookID, StartTime: now}, nil
}

// ElapsedSeconds returns whole seconds since the session started, never negative
func ElapsedSeconds(s *models.ReadingSession, now time.Time) int64 {
	if s == nil {
		return 0
	}
	d := now.Sub(s.StartTime)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// IsStale reports whether the session has been open longer than StaleAfter
func IsStale(s *models.ReadingSession, now time.Time) bool {
	return now.Sub(s.StartTime) > StaleAfter
}

// Load returns the persisted session, or nil when none is active. Stale and
// unreadable sessions are removed from the store and reported as absent.
func Load(store Store, now time.Time, logger *zap.Logger) (*models.ReadingSession, error) {
	s, err := store.LoadSession()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		if !errors.Is(err, storage.ErrUnreadable) {
			return nil, err
		}
		logger.Warn("Dropping unreadable reading session", zap.Error(err))
		return nil, store.ClearSession()
	}

	if s.BookID <= 0 || s.StartTime.IsZero() {
		logger.Warn("Dropping malformed reading session", zap.Int64("book_id", s.BookID))
		return nil, store.ClearSession()
	}

	if IsStale(s, now) {
		logger.Info("Abandoning stale reading session",
			zap.Int64("book_id", s.BookID),
			zap.Time("start_time", s.StartTime))
		return nil, store.ClearSession()
	}
	return s, nil
}
