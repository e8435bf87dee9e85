package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/justyntemme/booklens/internal/models"
)

// Database handles all server-side database operations
type Database struct {
	db *sql.DB
}

// NewDatabase creates and initializes the SQLite database
func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	d := &Database{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'reading',
		total_page INTEGER NOT NULL DEFAULT 0,
		read_page INTEGER NOT NULL DEFAULT 0,
		total_reading_time INTEGER NOT NULL DEFAULT 0,
		progress INTEGER NOT NULL DEFAULT 0,
		start_date TEXT NOT NULL DEFAULT '',
		completed_date TEXT NOT NULL DEFAULT '',
		publisher TEXT NOT NULL DEFAULT '',
		publish_date TEXT NOT NULL DEFAULT '',
		thumbnail TEXT NOT NULL DEFAULT '',
		isbn TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL DEFAULT '',
		memo TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS reading_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL DEFAULT '',
		book_id INTEGER NOT NULL,
		book_title TEXT NOT NULL DEFAULT '',
		book_author TEXT NOT NULL DEFAULT '',
		book_thumbnail TEXT NOT NULL DEFAULT '',
		pages_read INTEGER NOT NULL DEFAULT 0,
		duration INTEGER NOT NULL DEFAULT 0,
		start_time TEXT NOT NULL,
		FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS postings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		book_id INTEGER NOT NULL,
		book_title TEXT NOT NULL DEFAULT '',
		book_author TEXT NOT NULL DEFAULT '',
		book_thumbnail TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		rating INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS posting_likes (
		posting_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		PRIMARY KEY (posting_id, user_id),
		FOREIGN KEY (posting_id) REFERENCES postings(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_books_user ON books(user_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_user_start ON reading_sessions(user_id, start_time);
	CREATE INDEX IF NOT EXISTS idx_sessions_book ON reading_sessions(book_id);
	CREATE INDEX IF NOT EXISTS idx_postings_book ON postings(book_id);
	`

	_, err := d.db.Exec(schema)
	return err
}

const bookColumns = `id, title, author, status, total_page, read_page, total_reading_time, progress,
	start_date, completed_date, publisher, publish_date, thumbnail, isbn, genre, memo`

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (*models.Book, error) {
	book := &models.Book{}
	err := row.Scan(&book.ID, &book.Title, &book.Author, &book.Status, &book.TotalPage, &book.ReadPage,
		&book.TotalReadingTime, &book.Progress, &book.StartDate, &book.CompletedDate,
		&book.Publisher, &book.PublishDate, &book.Thumbnail, &book.ISBN, &book.Genre, &book.Memo)
	if err != nil {
		return nil, err
	}
	return book, nil
}

// CreateBook inserts a new book and sets its ID
func (d *Database) CreateBook(userID string, book *models.Book) error {
	if book.Status == "" {
		book.Status = models.StatusReading
	}
	res, err := d.db.Exec(`
		INSERT INTO books (user_id, title, author, status, total_page, read_page, total_reading_time, progress,
			start_date, completed_date, publisher, publish_date, thumbnail, isbn, genre, memo)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, book.Title, book.Author, book.Status, book.TotalPage, book.ReadPage, book.TotalReadingTime,
		book.Progress, book.StartDate, book.CompletedDate, book.Publisher, book.PublishDate,
		book.Thumbnail, book.ISBN, book.Genre, book.Memo,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	book.ID = id
	return nil
}

// GetBook retrieves a user's book by ID. Returns ErrNotFound if absent.
func (d *Database) GetBook(userID string, id int64) (*models.Book, error) {
	book, err := scanBook(d.db.QueryRow(
		"SELECT "+bookColumns+" FROM books WHERE id = ? AND user_id = ?", id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return book, err
}

// ListBooks returns a user's books, newest first
func (d *Database) ListBooks(userID string) ([]models.Book, error) {
	rows, err := d.db.Query(
		"SELECT "+bookColumns+" FROM books WHERE user_id = ? ORDER BY id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}
	return books, rows.Err()
}

// UpdateBook overwrites a user's book. Returns ErrNotFound if absent.
func (d *Database) UpdateBook(userID string, book *models.Book) error {
	res, err := d.db.Exec(`
		UPDATE books SET title = ?, author = ?, status = ?, total_page = ?, read_page = ?,
			total_reading_time = ?, progress = ?, start_date = ?, completed_date = ?, publisher = ?,
			publish_date = ?, thumbnail = ?, isbn = ?, genre = ?, memo = ?
		WHERE id = ? AND user_id = ?`,
		book.Title, book.Author, book.Status, book.TotalPage, book.ReadPage, book.TotalReadingTime,
		book.Progress, book.StartDate, book.CompletedDate, book.Publisher, book.PublishDate,
		book.Thumbnail, book.ISBN, book.Genre, book.Memo, book.ID, userID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteBook removes a user's book and its reading sessions
func (d *Database) DeleteBook(userID string, id int64) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}

	res, err := tx.Exec("DELETE FROM books WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		tx.Rollback()
		return err
	}
	if err := requireAffected(res); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec("DELETE FROM reading_sessions WHERE book_id = ?", id); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSession appends a finished reading session. The book must belong to the user.
func (d *Database) SaveSession(userID string, rec *models.SessionRecord) (int64, error) {
	if _, err := d.GetBook(userID, rec.BookID); err != nil {
		return 0, err
	}
	res, err := d.db.Exec(`
		INSERT INTO reading_sessions (user_id, book_id, book_title, book_author, book_thumbnail,
			pages_read, duration, start_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, rec.BookID, rec.BookTitle, rec.BookAuthor, rec.BookThumbnail,
		rec.PagesRead, rec.Duration, rec.StartTime.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SessionsByMonth aggregates a user's sessions by UTC start date for one month
func (d *Database) SessionsByMonth(userID string, year, month int) (models.History, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	return d.querySessions(userID, prefix+"%")
}

// SessionsByDate returns a user's sessions that started on date (YYYY-MM-DD, UTC)
func (d *Database) SessionsByDate(userID, date string) (models.DayHistory, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return models.DayHistory{}, fmt.Errorf("invalid date %q", date)
	}
	history, err := d.querySessions(userID, date+"T%")
	if err != nil {
		return models.DayHistory{}, err
	}
	day, ok := history[date]
	if !ok {
		return models.DayHistory{Date: date, Sessions: []models.SessionRecord{}}, nil
	}
	return day, nil
}

func (d *Database) querySessions(userID, pattern string) (models.History, error) {
	rows, err := d.db.Query(`
		SELECT book_id, book_title, book_author, book_thumbnail, pages_read, duration, start_time
		FROM reading_sessions WHERE user_id = ? AND start_time LIKE ?
		ORDER BY start_time`, userID, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := models.History{}
	for rows.Next() {
		var rec models.SessionRecord
		var start string
		if err := rows.Scan(&rec.BookID, &rec.BookTitle, &rec.BookAuthor, &rec.BookThumbnail,
			&rec.PagesRead, &rec.Duration, &start); err != nil {
			return nil, err
		}
		rec.StartTime, err = time.Parse(time.RFC3339Nano, start)
		if err != nil {
			return nil, fmt.Errorf("corrupt start_time %q: %w", start, err)
		}
		history.Add(rec)
	}
	return history, rows.Err()
}

// CreatePosting stores a community post
func (d *Database) CreatePosting(p *models.Posting) error {
	_, err := d.db.Exec(`
		INSERT INTO postings (id, user_id, book_id, book_title, book_author, book_thumbnail, content, rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.BookID, p.BookTitle, p.BookAuthor, p.BookThumbnail, p.Content, p.Rating,
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// ListPostings returns community posts, newest first. bookID 0 lists all books.
func (d *Database) ListPostings(bookID int64) ([]models.Posting, error) {
	query := `
		SELECT p.id, p.user_id, p.book_id, p.book_title, p.book_author, p.book_thumbnail, p.content,
			p.rating, p.created_at, (SELECT COUNT(*) FROM posting_likes l WHERE l.posting_id = p.id)
		FROM postings p`
	var args []any
	if bookID > 0 {
		query += " WHERE p.book_id = ?"
		args = append(args, bookID)
	}
	query += " ORDER BY p.created_at DESC"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	postings := []models.Posting{}
	for rows.Next() {
		var p models.Posting
		var created string
		if err := rows.Scan(&p.ID, &p.UserID, &p.BookID, &p.BookTitle, &p.BookAuthor, &p.BookThumbnail,
			&p.Content, &p.Rating, &created, &p.Likes); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// LikePosting records a like from userID and returns the new like count.
// Liking twice counts once.
func (d *Database) LikePosting(postingID, userID string) (int, error) {
	var exists int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM postings WHERE id = ?", postingID).Scan(&exists); err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, ErrNotFound
	}

	if _, err := d.db.Exec(
		"INSERT OR IGNORE INTO posting_likes (posting_id, user_id) VALUES (?, ?)", postingID, userID); err != nil {
		return 0, err
	}

	var likes int
	err := d.db.QueryRow("SELECT COUNT(*) FROM posting_likes WHERE posting_id = ?", postingID).Scan(&likes)
	return likes, err
}

// CreateUser creates a new user
func (d *Database) CreateUser(user *models.User) error {
	_, err := d.db.Exec(`
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	)
	return err
}

// GetUserByID retrieves a user by ID
func (d *Database) GetUserByID(id string) (*models.User, error) {
	return d.getUser("id", id)
}

// GetUserByUsername retrieves a user by username
func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	return d.getUser("username", username)
}

// GetUserByEmail retrieves a user by email
func (d *Database) GetUserByEmail(email string) (*models.User, error) {
	return d.getUser("email", email)
}

func (d *Database) getUser(column, value string) (*models.User, error) {
	user := &models.User{}
	err := d.db.QueryRow(`
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE `+column+` = ?`, value,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UserExists checks if a username or email is already taken
func (d *Database) UserExists(username, email string) (bool, error) {
	var count int
	err := d.db.QueryRow(`
		SELECT COUNT(*) FROM users WHERE username = ? OR email = ?`,
		username, email,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ping checks the database connection
func (d *Database) Ping() error {
	return d.db.Ping()
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}
