// Package library persists books, reading history and postings. The REST API
// is authoritative; when it cannot be reached the local store serves instead
// and the operation still completes.
package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/client"
	"github.com/justyntemme/booklens/internal/models"
)

// ErrBookNotFound is returned when no book has the requested ID
var ErrBookNotFound = errors.New("book not found")

// Remote is the REST API
type Remote interface {
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	AddBook(ctx context.Context, book models.Book) (*models.Book, error)
	UpdateBook(ctx context.Context, book models.Book) (*models.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	SaveSession(ctx context.Context, rec models.SessionRecord) (string, error)
	CalendarHistory(ctx context.Context, year, month int) (models.History, error)
	DateHistory(ctx context.Context, date string) (*models.DayHistory, error)
	ListPostings(ctx context.Context, bookID int64) ([]models.Posting, error)
	CreatePosting(ctx context.Context, p models.Posting) (*models.Posting, error)
}

// Local is the on-disk fallback store
type Local interface {
	Books() ([]models.Book, error)
	SetBooks(books []models.Book) error
	History() (models.History, error)
	AppendSession(rec models.SessionRecord) error
	RemoveBookHistory(bookID int64) error
	Postings() ([]models.Posting, error)
	AppendPosting(p models.Posting) error
}

// Repository combines the remote API with the local fallback
type Repository struct {
	remote Remote
	local  Local
	logger *zap.Logger
	now    func() time.Time
}

// NewRepository creates a repository
func NewRepository(remote Remote, local Local, logger *zap.Logger) *Repository {
	return &Repository{remote: remote, local: local, logger: logger, now: time.Now}
}

func (r *Repository) fallback(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	r.logger.Warn("Remote API unavailable, using local store", fields...)
}

// ListBooks returns all books. A successful remote read refreshes the local mirror.
func (r *Repository) ListBooks(ctx context.Context) ([]models.Book, error) {
	books, err := r.remote.ListBooks(ctx)
	if err == nil {
		if err := r.local.SetBooks(books); err != nil {
			r.logger.Warn("Failed to refresh local library", zap.Error(err))
		}
		return books, nil
	}
	r.fallback("list_books", err)
	return r.local.Books()
}

// GetBook returns one book or ErrBookNotFound
func (r *Repository) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	book, err := r.remote.GetBook(ctx, id)
	if err == nil {
		return book, nil
	}
	if client.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %d", ErrBookNotFound, id)
	}
	r.fallback("get_book", err, zap.Int64("book_id", id))

	books, err := r.local.Books()
	if err != nil {
		return nil, err
	}
	for i := range books {
		if books[i].ID == id {
			return &books[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrBookNotFound, id)
}

// AddBook creates a book. Locally created books get the next free ID.
func (r *Repository) AddBook(ctx context.Context, book models.Book) (*models.Book, bool, error) {
	if book.Status == "" {
		book.Status = models.StatusReading
	}
	if book.StartDate == "" {
		book.StartDate = r.now().UTC().Format(models.DateLayout)
	}

	created, err := r.remote.AddBook(ctx, book)
	if err == nil {
		r.mirror(*created)
		return created, false, nil
	}
	r.fallback("add_book", err)

	books, err := r.local.Books()
	if err != nil {
		return nil, true, err
	}
	var maxID int64
	for _, b := range books {
		maxID = max(maxID, b.ID)
	}
	book.ID = maxID + 1
	if err := r.local.SetBooks(append(books, book)); err != nil {
		return nil, true, err
	}
	return &book, true, nil
}

// UpdateBook stores book and keeps the local mirror in step
func (r *Repository) UpdateBook(ctx context.Context, book models.Book) (*models.Book, bool, error) {
	updated, err := r.remote.UpdateBook(ctx, book)
	if err == nil {
		r.mirror(*updated)
		return updated, false, nil
	}
	r.fallback("update_book", err, zap.Int64("book_id", book.ID))

	if err := r.upsertLocal(book); err != nil {
		return nil, true, err
	}
	return &book, true, nil
}

// mirror applies a remote write to the local copy
func (r *Repository) mirror(book models.Book) {
	if err := r.upsertLocal(book); err != nil {
		r.logger.Warn("Failed to update local library", zap.Int64("book_id", book.ID), zap.Error(err))
	}
}

func (r *Repository) upsertLocal(book models.Book) error {
	books, err := r.local.Books()
	if err != nil {
		return err
	}
	for i := range books {
		if books[i].ID == book.ID {
			books[i] = book
			return r.local.SetBooks(books)
		}
	}
	return r.local.SetBooks(append(books, book))
}

// DeleteBook removes a book and every session record of it
func (r *Repository) DeleteBook(ctx context.Context, id int64) (bool, error) {
	degraded := false
	if err := r.remote.DeleteBook(ctx, id); err != nil {
		if client.IsNotFound(err) {
			return false, fmt.Errorf("%w: %d", ErrBookNotFound, id)
		}
		r.fallback("delete_book", err, zap.Int64("book_id", id))
		degraded = true
	}

	books, err := r.local.Books()
	if err != nil {
		return degraded, err
	}
	kept := books[:0]
	for _, b := range books {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	if err := r.local.SetBooks(kept); err != nil {
		return degraded, err
	}
	return degraded, r.local.RemoveBookHistory(id)
}

// SaveResult reports how a session record was stored
type SaveResult struct {
	Message  string
	Degraded bool
}

// SaveSession appends a session record, falling back to the local date-keyed history
func (r *Repository) SaveSession(ctx context.Context, rec models.SessionRecord) (SaveResult, error) {
	msg, err := r.remote.SaveSession(ctx, rec)
	if err == nil {
		return SaveResult{Message: msg}, nil
	}
	r.fallback("save_session", err, zap.Int64("book_id", rec.BookID))

	if err := r.local.AppendSession(rec); err != nil {
		return SaveResult{Degraded: true}, fmt.Errorf("failed to save session locally: %w", err)
	}
	return SaveResult{Degraded: true}, nil
}

// CalendarHistory returns the history of one month
func (r *Repository) CalendarHistory(ctx context.Context, year, month int) (models.History, error) {
	history, err := r.remote.CalendarHistory(ctx, year, month)
	if err == nil {
		return history, nil
	}
	r.fallback("calendar_history", err)

	local, err := r.local.History()
	if err != nil {
		return nil, err
	}
	return local.Month(year, month), nil
}

// DateHistory returns one day's history, or nil when nothing was read
func (r *Repository) DateHistory(ctx context.Context, date string) (*models.DayHistory, error) {
	day, err := r.remote.DateHistory(ctx, date)
	if err == nil {
		return day, nil
	}
	r.fallback("date_history", err, zap.String("date", date))

	local, err := r.local.History()
	if err != nil {
		return nil, err
	}
	if d, ok := local[date]; ok {
		return &d, nil
	}
	return nil, nil
}

// ListPostings returns community posts, optionally for one book
func (r *Repository) ListPostings(ctx context.Context, bookID int64) ([]models.Posting, error) {
	postings, err := r.remote.ListPostings(ctx, bookID)
	if err == nil {
		return postings, nil
	}
	r.fallback("list_postings", err)

	local, err := r.local.Postings()
	if err != nil {
		return nil, err
	}
	if bookID == 0 {
		return local, nil
	}
	var filtered []models.Posting
	for _, p := range local {
		if p.BookID == bookID {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// CreatePosting publishes a community post
func (r *Repository) CreatePosting(ctx context.Context, p models.Posting) (*models.Posting, bool, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}

	created, err := r.remote.CreatePosting(ctx, p)
	if err == nil {
		return created, false, nil
	}
	r.fallback("create_posting", err, zap.Int64("book_id", p.BookID))

	if err := r.local.AppendPosting(p); err != nil {
		return nil, true, err
	}
	return &p, true, nil
}
