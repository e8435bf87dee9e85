package metadata

import (
	"context"
	"errors"
	"strings"

	"github.com/justyntemme/booklens/internal/models"
)

// Common errors
var (
	ErrNoMatch       = errors.New("no matching metadata found")
	ErrRateLimited   = errors.New("rate limited by provider")
	ErrProviderDown  = errors.New("metadata provider unavailable")
	ErrNotConfigured = errors.New("metadata provider not configured")
	ErrInvalidISBN   = errors.New("ISBN must be 10 or 13 digits")
)

// UnknownAuthor is used when a volume lists no authors
const UnknownAuthor = "저자 미상"

// CoverSize represents cover image size options
type CoverSize string

const (
	CoverSmall  CoverSize = "S"
	CoverMedium CoverSize = "M"
	CoverLarge  CoverSize = "L"
)

// BookMetadata represents enriched book information from external sources
type BookMetadata struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Publisher   string   `json:"publisher,omitempty"`
	PublishDate string   `json:"publish_date,omitempty"`
	Description string   `json:"description,omitempty"`
	ISBN10      string   `json:"isbn_10,omitempty"`
	ISBN13      string   `json:"isbn_13,omitempty"`
	PageCount   int      `json:"page_count,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
	Language    string   `json:"language,omitempty"`
	Source      string   `json:"source"`
	Confidence  float64  `json:"confidence"` // 0.0 - 1.0
}

// ToBook converts the lookup result into a draft library entry.
// The caller assigns the ID; progress fields start at zero.
func (m BookMetadata) ToBook() models.Book {
	author := UnknownAuthor
	if len(m.Authors) > 0 {
		author = strings.Join(m.Authors, ", ")
	}
	isbn := m.ISBN13
	if isbn == "" {
		isbn = m.ISBN10
	}
	var genre string
	if len(m.Subjects) > 0 {
		genre = m.Subjects[0]
	}
	return models.Book{
		Title:       m.Title,
		Author:      author,
		Status:      models.StatusReading,
		TotalPage:   m.PageCount,
		Publisher:   m.Publisher,
		PublishDate: m.PublishDate,
		Thumbnail:   m.CoverURL,
		ISBN:        isbn,
		Genre:       genre,
	}
}

// Provider defines the interface for metadata lookup services
type Provider interface {
	// Name returns the provider identifier (e.g., "openlibrary", "googlebooks")
	Name() string

	// LookupByISBN searches for a book by ISBN (10 or 13)
	LookupByISBN(ctx context.Context, isbn string) (*BookMetadata, error)

	// Search finds books matching title and optional author
	Search(ctx context.Context, title, author string) ([]BookMetadata, error)

	// GetCoverURL returns URL for book cover image
	GetCoverURL(isbn string, size CoverSize) string
}

// ValidateISBN normalizes isbn and checks it is 10 or 13 digits
func ValidateISBN(isbn string) (string, error) {
	clean := normalizeISBN(isbn)
	if len(clean) != 10 && len(clean) != 13 {
		return "", ErrInvalidISBN
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return "", ErrInvalidISBN
		}
	}
	return clean, nil
}
