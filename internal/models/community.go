package models

import "time"

// Persona is a coarse label summarizing a reader's habits
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// Posting is a community post about a book
type Posting struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId,omitempty"`
	BookID        int64     `json:"bookId"`
	BookTitle     string    `json:"bookTitle"`
	BookAuthor    string    `json:"bookAuthor"`
	BookThumbnail string    `json:"bookThumbnail,omitempty"`
	Content       string    `json:"content"`
	Rating        int       `json:"rating,omitempty"` // 1-5, 0 = unrated
	Likes         int       `json:"likes"`
	CreatedAt     time.Time `json:"createdAt"`
}
