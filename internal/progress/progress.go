// Package progress validates page input and folds reading sessions into a
// book's cumulative state.
package progress

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/justyntemme/booklens/internal/models"
)

// InputMode selects what the number entered at the end of a session means
type InputMode string

const (
	// Incremental input is the number of pages read in this session
	Incremental InputMode = "incremental"
	// Absolute input is the page reached so far
	Absolute InputMode = "absolute"
)

// ParseInputMode converts a config value to an InputMode
func ParseInputMode(s string) (InputMode, error) {
	switch InputMode(s) {
	case Incremental, Absolute:
		return InputMode(s), nil
	case "":
		return Incremental, nil
	}
	return "", fmt.Errorf("unknown input mode %q", s)
}

// Validation failure reasons
const (
	ReasonNonNumeric   = "non_numeric"
	ReasonNegative     = "negative"
	ReasonBelowCurrent = "below_current"
	ReasonExceedsTotal = "exceeds_total"
)

// ErrManualProgress is returned when adjusting the percentage of a book that has a page count
var ErrManualProgress = errors.New("manual progress only applies to books without a page count")

// ValidationError describes rejected page input. The book is left unchanged.
type ValidationError struct {
	Reason   string
	Input    string
	Value    int
	Limit    int // current page for below_current, remaining pages for exceeds_total
	Overflow int // pages beyond the total
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonNonNumeric:
		return fmt.Sprintf("invalid page number: %q is not a number", e.Input)
	case ReasonNegative:
		return fmt.Sprintf("invalid page number: %d is negative", e.Value)
	case ReasonBelowCurrent:
		return fmt.Sprintf("invalid page number: %d is below the current page %d", e.Value, e.Limit)
	case ReasonExceedsTotal:
		return fmt.Sprintf("invalid page number: %d exceeds remaining pages (%d) by %d", e.Value, e.Limit, e.Overflow)
	}
	return "invalid page number"
}

// ParsePages parses user input as a whole number of pages
func ParsePages(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, &ValidationError{Reason: ReasonNonNumeric, Input: trimmed}
	}
	return n, nil
}

// Validate checks value against the book's page counts and returns the number
// of pages to add. A totalPage of 0 means there is no upper bound.
func Validate(mode InputMode, value, readPage, totalPage int) (int, error) {
	if value < 0 {
		return 0, &ValidationError{Reason: ReasonNegative, Value: value}
	}

	var delta int
	switch mode {
	case Absolute:
		if value < readPage {
			return 0, &ValidationError{Reason: ReasonBelowCurrent, Value: value, Limit: readPage}
		}
		delta = value - readPage
	default:
		delta = value
	}

	if totalPage > 0 && readPage+delta > totalPage {
		remaining := totalPage - readPage
		if remaining < 0 {
			remaining = 0
		}
		return 0, &ValidationError{
			Reason:   ReasonExceedsTotal,
			Value:    value,
			Limit:    remaining,
			Overflow: readPage + delta - totalPage,
		}
	}
	return delta, nil
}

// Check parses and validates raw input for book
func Check(mode InputMode, raw string, book models.Book) (int, error) {
	value, err := ParsePages(raw)
	if err != nil {
		return 0, err
	}
	return Validate(mode, value, book.ReadPage, book.TotalPage)
}

// Percentage returns reading progress in [0, 100]. Books without a page count
// report their manually tracked progress.
func Percentage(book models.Book) int {
	if book.TotalPage > 0 {
		p := int(math.Round(float64(book.ReadPage) / float64(book.TotalPage) * 100))
		return clamp(p, 0, 100)
	}
	return clamp(book.Progress, 0, 100)
}

// IsCompleted is the single completion rule: page counts decide when the book
// has a total, otherwise the explicit status does.
func IsCompleted(book models.Book) bool {
	if book.TotalPage > 0 {
		return book.ReadPage >= book.TotalPage
	}
	return book.Status == models.StatusCompleted
}

// Apply adds a finished session to book. today is the YYYY-MM-DD date stamped
// as CompletedDate when the session completes the book.
func Apply(book models.Book, delta int, duration int64, today string) (models.Book, bool) {
	wasCompleted := IsCompleted(book)

	book.ReadPage += delta
	if book.TotalPage > 0 && book.ReadPage > book.TotalPage {
		book.ReadPage = book.TotalPage
	}
	if duration > 0 {
		book.TotalReadingTime += duration
	}

	if book.TotalPage > 0 {
		if book.ReadPage >= book.TotalPage {
			book.Status = models.StatusCompleted
		} else {
			book.Status = models.StatusReading
		}
	}

	justCompleted := !wasCompleted && IsCompleted(book)
	if justCompleted {
		book.CompletedDate = today
	}
	return book, justCompleted
}

// AdjustManual changes the manual percentage of a book without a page count
func AdjustManual(book models.Book, change int, today string) (models.Book, bool, error) {
	if book.TotalPage > 0 {
		return book, false, ErrManualProgress
	}

	wasCompleted := IsCompleted(book)
	book.Progress = clamp(book.Progress+change, 0, 100)
	if book.Progress == 100 {
		book.Status = models.StatusCompleted
	} else {
		book.Status = models.StatusReading
	}

	justCompleted := !wasCompleted && IsCompleted(book)
	if justCompleted {
		book.CompletedDate = today
	}
	return book, justCompleted, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
