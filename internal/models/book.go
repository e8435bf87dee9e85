package models

import "time"

// Book statuses
const (
	StatusReading   = "reading"
	StatusCompleted = "completed"
)

// DateLayout is the calendar-date format used for start, completion and history keys
const DateLayout = "2006-01-02"

// User represents a registered user
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Book represents a book in the user's library.
// JSON tags follow the local mirror format; the REST wire format is snake_case
// and is translated in the client package.
type Book struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Author           string `json:"author"`
	Status           string `json:"status"`
	TotalPage        int    `json:"totalPage"`
	ReadPage         int    `json:"readPage"`
	TotalReadingTime int64  `json:"totalReadingTime"`   // Seconds
	Progress         int    `json:"progress,omitempty"` // Manual percentage, used when TotalPage is 0
	StartDate        string `json:"startDate,omitempty"`
	CompletedDate    string `json:"completedDate,omitempty"`

	// Descriptive metadata
	Publisher   string `json:"publisher,omitempty"`
	PublishDate string `json:"publishDate,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	ISBN        string `json:"isbn,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Memo        string `json:"memo,omitempty"`
}

// ReadingSession is the single in-progress reading interval
type ReadingSession struct {
	BookID    int64     `json:"bookId"`
	StartTime time.Time `json:"startTime"`

	// Pending is set once the session's record has been saved but the book
	// update has not yet succeeded. Stopping again finishes that record.
	Pending *SessionRecord `json:"pendingRecord,omitempty"`
}

// SessionRecord is a finished reading session. Records are append-only.
type SessionRecord struct {
	BookID        int64     `json:"bookId"`
	BookTitle     string    `json:"bookTitle"`
	BookAuthor    string    `json:"bookAuthor"`
	BookThumbnail string    `json:"bookThumbnail"`
	PagesRead     int       `json:"pagesRead"`
	Duration      int64     `json:"duration"` // Seconds
	StartTime     time.Time `json:"startTime"`
}

// Date returns the history key for the record (UTC calendar date of the start)
func (r SessionRecord) Date() string {
	return r.StartTime.UTC().Format(DateLayout)
}

// DayHistory aggregates all sessions that started on one calendar date
type DayHistory struct {
	Date      string          `json:"date"`
	TotalTime int64           `json:"totalTime"`
	Sessions  []SessionRecord `json:"sessions"`
}

// History maps YYYY-MM-DD to that day's aggregate
type History map[string]DayHistory

// Add appends a record to its day, creating the day if needed
func (h History) Add(rec SessionRecord) {
	key := rec.Date()
	day, ok := h[key]
	if !ok {
		day = DayHistory{Date: key, Sessions: []SessionRecord{}}
	}
	day.Sessions = append(day.Sessions, rec)
	day.TotalTime += rec.Duration
	h[key] = day
}

// Month returns the days that fall in the given year and month
func (h History) Month(year, month int) History {
	out := History{}
	for key, day := range h {
		d, err := time.Parse(DateLayout, key)
		if err != nil {
			continue
		}
		if d.Year() == year && int(d.Month()) == month {
			out[key] = day
		}
	}
	return out
}

// RemoveBook drops every record of a book and recomputes day totals.
// Days left without sessions are removed.
func (h History) RemoveBook(bookID int64) {
	for key, day := range h {
		kept := day.Sessions[:0]
		var total int64
		for _, s := range day.Sessions {
			if s.BookID == bookID {
				continue
			}
			kept = append(kept, s)
			total += s.Duration
		}
		if len(kept) == 0 {
			delete(h, key)
			continue
		}
		day.Sessions = kept
		day.TotalTime = total
		h[key] = day
	}
}
