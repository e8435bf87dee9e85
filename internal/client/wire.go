package client

import "github.com/justyntemme/booklens/internal/models"

// WireBook is the snake_case book representation used by the REST API
type WireBook struct {
	ID               int64  `json:"id,omitempty"`
	Title            string `json:"title"`
	Author           string `json:"author"`
	Status           string `json:"status"`
	TotalPage        int    `json:"total_page"`
	ReadPage         int    `json:"read_page"`
	TotalReadingTime int64  `json:"total_reading_time"`
	Progress         int    `json:"progress"`
	StartDate        string `json:"start_date,omitempty"`
	CompletedDate    string `json:"completed_date,omitempty"`
	Publisher        string `json:"publisher,omitempty"`
	PublishDate      string `json:"publish_date,omitempty"`
	Thumbnail        string `json:"thumbnail,omitempty"`
	ISBN             string `json:"isbn,omitempty"`
	Genre            string `json:"genre,omitempty"`
	Memo             string `json:"memo,omitempty"`
}

// IncomingBook accepts either spelling of the translated fields. The
// snake_case value wins when both are present.
type IncomingBook struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Publisher string `json:"publisher"`
	Thumbnail string `json:"thumbnail"`
	ISBN      string `json:"isbn"`
	Genre     string `json:"genre"`
	Memo      string `json:"memo"`

	TotalPage             *int    `json:"total_page"`
	TotalPageCamel        *int    `json:"totalPage"`
	ReadPage              *int    `json:"read_page"`
	ReadPageCamel         *int    `json:"readPage"`
	TotalReadingTime      *int64  `json:"total_reading_time"`
	TotalReadingTimeCamel *int64  `json:"totalReadingTime"`
	StartDate             *string `json:"start_date"`
	StartDateCamel        *string `json:"startDate"`
	CompletedDate         *string `json:"completed_date"`
	CompletedDateCamel    *string `json:"completedDate"`
	PublishDate           *string `json:"publish_date"`
	PublishDateCamel      *string `json:"publishDate"`
}

func coalesce[T any](vals ...*T) T {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	var zero T
	return zero
}

// BookToWire converts a book to the wire format
func BookToWire(b models.Book) WireBook {
	return WireBook{
		ID:               b.ID,
		Title:            b.Title,
		Author:           b.Author,
		Status:           b.Status,
		TotalPage:        b.TotalPage,
		ReadPage:         b.ReadPage,
		TotalReadingTime: b.TotalReadingTime,
		Progress:         b.Progress,
		StartDate:        b.StartDate,
		CompletedDate:    b.CompletedDate,
		Publisher:        b.Publisher,
		PublishDate:      b.PublishDate,
		Thumbnail:        b.Thumbnail,
		ISBN:             b.ISBN,
		Genre:            b.Genre,
		Memo:             b.Memo,
	}
}

// Book converts the decoded wire value to a book
func (w IncomingBook) Book() models.Book {
	return models.Book{
		ID:               w.ID,
		Title:            w.Title,
		Author:           w.Author,
		Status:           w.Status,
		TotalPage:        coalesce(w.TotalPage, w.TotalPageCamel),
		ReadPage:         coalesce(w.ReadPage, w.ReadPageCamel),
		TotalReadingTime: coalesce(w.TotalReadingTime, w.TotalReadingTimeCamel),
		Progress:         w.Progress,
		StartDate:        coalesce(w.StartDate, w.StartDateCamel),
		CompletedDate:    coalesce(w.CompletedDate, w.CompletedDateCamel),
		Publisher:        w.Publisher,
		PublishDate:      coalesce(w.PublishDate, w.PublishDateCamel),
		Thumbnail:        w.Thumbnail,
		ISBN:             w.ISBN,
		Genre:            w.Genre,
		Memo:             w.Memo,
	}
}
