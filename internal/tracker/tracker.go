// Package tracker runs the start/stop reading workflow: it owns the active
// session and commits finished sessions to the library.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/library"
	"github.com/justyntemme/booklens/internal/models"
	"github.com/justyntemme/booklens/internal/persona"
	"github.com/justyntemme/booklens/internal/progress"
	"github.com/justyntemme/booklens/internal/session"
)

var (
	// ErrNoActiveSession is returned when stopping without a matching active session
	ErrNoActiveSession = errors.New("no active reading session for this book")
	// ErrBookNotFound is returned when the session's book no longer exists
	ErrBookNotFound = library.ErrBookNotFound
	// ErrInvalidBookID is returned for IDs outside the valid range
	ErrInvalidBookID = session.ErrInvalidBookID
	// ErrAlreadyCompleted is returned when starting a finished book
	ErrAlreadyCompleted = errors.New("book is already completed")
)

// Messages shown to the reader
const (
	MsgStarted = "독서를 시작했습니다."
	MsgStopped = "독서가 종료되었습니다."
	MsgRefresh = "유효하지 않은 책 ID입니다. 페이지를 새로고침해주세요."
)

// Book IDs are stored as 32-bit integers by the API
const maxValidBookID = math.MaxInt32

// Library is the persistence the tracker needs
type Library interface {
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	UpdateBook(ctx context.Context, book models.Book) (*models.Book, bool, error)
	SaveSession(ctx context.Context, rec models.SessionRecord) (library.SaveResult, error)
}

// Config holds the tracker's collaborators
type Config struct {
	Library   Library
	Sessions  session.Store
	Personas  *persona.Cache
	Clock     session.Clock
	InputMode progress.InputMode
	UserID    string
	Logger    *zap.Logger
}

// Service is the reading-session state machine: Idle until StartReading,
// Active until StopReading succeeds or the session is abandoned.
type Service struct {
	lib      Library
	sessions session.Store
	personas *persona.Cache
	clock    session.Clock
	mode     progress.InputMode
	userID   string
	logger   *zap.Logger
}

// New creates a tracker
func New(cfg Config) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = session.SystemClock{}
	}
	mode := cfg.InputMode
	if mode == "" {
		mode = progress.Incremental
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		lib:      cfg.Library,
		sessions: cfg.Sessions,
		personas: cfg.Personas,
		clock:    clock,
		mode:     mode,
		userID:   cfg.UserID,
		logger:   logger,
	}
}

// InputMode returns what the stop-reading page number means
func (s *Service) InputMode() progress.InputMode {
	return s.mode
}

// Active returns the active session, or nil when idle
func (s *Service) Active(ctx context.Context) (*models.ReadingSession, error) {
	return session.Load(s.sessions, s.clock.Now(), s.logger)
}

// Elapsed returns the seconds read so far in the active session
func (s *Service) Elapsed(ctx context.Context) (int64, error) {
	active, err := s.Active(ctx)
	if err != nil {
		return 0, err
	}
	if active == nil {
		return 0, ErrNoActiveSession
	}
	return session.ElapsedSeconds(active, s.clock.Now()), nil
}

// StartReading opens a session for bookID
func (s *Service) StartReading(ctx context.Context, bookID int64) (*models.ReadingSession, error) {
	if bookID <= 0 || bookID > maxValidBookID {
		return nil, ErrInvalidBookID
	}

	book, err := s.lib.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if progress.IsCompleted(*book) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyCompleted, book.Title)
	}

	current, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	started, err := session.Start(current, bookID, now)
	if err != nil {
		return nil, err
	}
	if started == current {
		return current, nil
	}
	if err := s.sessions.SaveSession(started); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.logger.Info("Reading session started", zap.Int64("book_id", bookID), zap.String("title", book.Title))
	return started, nil
}

// StopResult describes a finalized session
type StopResult struct {
	Book          models.Book
	Record        models.SessionRecord
	Duration      int64
	JustCompleted bool
	PostingPrompt bool // the book was just finished; offer to write a post
	Message       string
	Degraded      bool // at least one write went to the local store
}

// StopReading finalizes the active session of bookID. pagesInput is read in
// the configured input mode. On validation failure the session stays active.
func (s *Service) StopReading(ctx context.Context, bookID int64, pagesInput string) (*StopResult, error) {
	active, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil || active.BookID != bookID {
		s.logger.Info("Stop ignored without a matching session", zap.Int64("book_id", bookID))
		return nil, ErrNoActiveSession
	}

	if bookID <= 0 || bookID > maxValidBookID {
		s.logger.Error("Invalid book id on active session", zap.Int64("book_id", bookID))
		return nil, fmt.Errorf("%w: %s", ErrInvalidBookID, MsgRefresh)
	}

	book, err := s.lib.GetBook(ctx, bookID)
	if err != nil {
		s.logger.Error("Book for active session not found", zap.Int64("book_id", bookID), zap.Error(err))
		return nil, err
	}

	now := s.clock.Now()
	rec, saved, err := s.commitRecord(ctx, active, *book, pagesInput, now)
	if err != nil {
		return nil, err
	}

	today := now.UTC().Format(models.DateLayout)
	next, justCompleted := progress.Apply(*book, rec.PagesRead, rec.Duration, today)
	updated, updateDegraded, err := s.lib.UpdateBook(ctx, next)
	if err != nil {
		s.logger.Error("Failed to update book after saving session",
			zap.Int64("book_id", bookID), zap.Error(err))
		return nil, err
	}

	if err := s.sessions.ClearSession(); err != nil {
		s.logger.Warn("Failed to clear reading session", zap.Error(err))
	}
	s.refreshPersona(ctx)

	msg := saved.Message
	if msg == "" {
		msg = MsgStopped
	}
	res := &StopResult{
		Book:          *updated,
		Record:        rec,
		Duration:      rec.Duration,
		JustCompleted: justCompleted,
		PostingPrompt: justCompleted,
		Message:       msg,
		Degraded:      saved.Degraded || updateDegraded,
	}

	s.logger.Info("Reading session finished",
		zap.Int64("book_id", bookID),
		zap.Int("pages", rec.PagesRead),
		zap.Int64("duration", rec.Duration),
		zap.Bool("completed", justCompleted),
		zap.Bool("degraded", res.Degraded))
	return res, nil
}

// commitRecord saves the session record once. The saved record is kept on
// the active session until the book update succeeds, so a retried stop
// finishes that record instead of appending a second one and ignores
// pagesInput.
func (s *Service) commitRecord(ctx context.Context, active *models.ReadingSession, book models.Book, pagesInput string, now time.Time) (models.SessionRecord, library.SaveResult, error) {
	if active.Pending != nil {
		s.logger.Info("Finishing previously saved session", zap.Int64("book_id", book.ID))
		return *active.Pending, library.SaveResult{}, nil
	}

	delta, err := progress.Check(s.mode, pagesInput, book)
	if err != nil {
		return models.SessionRecord{}, library.SaveResult{}, err
	}

	rec := models.SessionRecord{
		BookID:        book.ID,
		BookTitle:     book.Title,
		BookAuthor:    book.Author,
		BookThumbnail: book.Thumbnail,
		PagesRead:     delta,
		Duration:      session.ElapsedSeconds(active, now),
		StartTime:     active.StartTime,
	}
	saved, err := s.lib.SaveSession(ctx, rec)
	if err != nil {
		return models.SessionRecord{}, library.SaveResult{}, err
	}

	pending := *active
	pending.Pending = &rec
	if err := s.sessions.SaveSession(&pending); err != nil {
		s.logger.Warn("Failed to mark session record as saved", zap.Error(err))
	}
	return rec, saved, nil
}

// Cancel leaves the active session untouched, like closing the stop prompt
// without confirming.
func (s *Service) Cancel(ctx context.Context) (*models.ReadingSession, error) {
	return s.Active(ctx)
}

// Abandon discards the active session without recording it
func (s *Service) Abandon(ctx context.Context) error {
	active, err := s.Active(ctx)
	if err != nil {
		return err
	}
	if active == nil {
		return ErrNoActiveSession
	}
	s.logger.Info("Reading session abandoned", zap.Int64("book_id", active.BookID))
	return s.sessions.ClearSession()
}

// RecordManualProgress applies a +/- percentage change to a book without a page count
func (s *Service) RecordManualProgress(ctx context.Context, bookID int64, change int) (*models.Book, bool, error) {
	book, err := s.lib.GetBook(ctx, bookID)
	if err != nil {
		return nil, false, err
	}
	today := s.clock.Now().UTC().Format(models.DateLayout)
	next, justCompleted, err := progress.AdjustManual(*book, change, today)
	if err != nil {
		return nil, false, err
	}
	updated, _, err := s.lib.UpdateBook(ctx, next)
	if err != nil {
		return nil, false, err
	}
	s.refreshPersona(ctx)
	return updated, justCompleted, nil
}

// Persona returns the cached persona, computing it if needed
func (s *Service) Persona(ctx context.Context) (models.Persona, error) {
	books, err := s.lib.ListBooks(ctx)
	if err != nil {
		return models.Persona{}, err
	}
	if s.personas == nil {
		return persona.Classify(books), nil
	}
	return s.personas.GetOrCalculate(s.userID, books), nil
}

// RefreshPersona recomputes the cached persona after the library changed
func (s *Service) RefreshPersona(ctx context.Context) {
	s.refreshPersona(ctx)
}

func (s *Service) refreshPersona(ctx context.Context) {
	if s.personas == nil {
		return
	}
	books, err := s.lib.ListBooks(ctx)
	if err != nil {
		s.logger.Warn("Failed to load books for persona", zap.Error(err))
		return
	}
	p := s.personas.Recalculate(s.userID, books)
	s.logger.Debug("Persona recalculated", zap.String("persona", p.ID))
}
