package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/justyntemme/booklens/internal/models"
)

// Keys of the local fallback store. They match the browser localStorage keys
// of the web client so exported data stays compatible.
const (
	KeyReadingSession = "readingSession"
	KeyLibraryBooks   = "myLibraryBooks"
	KeyReadingHistory = "readingHistory"
	KeyBookPostings   = "bookPostings"
	keyPersonaPrefix  = "readingPersona:"
)

var (
	// ErrNotFound is returned when a key or record does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnreadable is returned when a stored value cannot be decoded
	ErrUnreadable = errors.New("unreadable value")
)

// PersonaKey returns the cache key for a user's persona
func PersonaKey(userID string) string {
	if userID == "" {
		userID = "anonymous"
	}
	return keyPersonaPrefix + userID
}

// FileStore is a JSON key/value file standing in for browser localStorage
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens the store at path, creating the directory if needed
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) readAll() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}
	entries := map[string]json.RawMessage{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corrupt local store %s: %w", s.path, err)
	}
	return entries, nil
}

func (s *FileStore) writeAll(entries map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".localstorage-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Get decodes the value stored under key into v. Returns ErrNotFound if absent.
func (s *FileStore) Get(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return err
	}
	raw, ok := entries[key]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, v)
}

// Set stores v under key
func (s *FileStore) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return err
	}
	entries[key] = raw
	return s.writeAll(entries)
}

// Remove deletes key. Removing a missing key is not an error.
func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.writeAll(entries)
}

// update runs fn on the decoded value of key under one lock
func (s *FileStore) update(key string, v any, fn func(found bool) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return err
	}
	raw, found := entries[key]
	if found {
		if err := json.Unmarshal(raw, v); err != nil {
			return err
		}
	}
	if err := fn(found); err != nil {
		return err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return err
	}
	entries[key] = out
	return s.writeAll(entries)
}

// LoadSession returns the persisted active session or ErrNotFound. A blob
// that does not decode yields ErrUnreadable.
func (s *FileStore) LoadSession() (*models.ReadingSession, error) {
	var raw json.RawMessage
	if err := s.Get(KeyReadingSession, &raw); err != nil {
		return nil, err
	}
	var sess models.ReadingSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, KeyReadingSession, err)
	}
	return &sess, nil
}

// SaveSession persists the active session
func (s *FileStore) SaveSession(sess *models.ReadingSession) error {
	return s.Set(KeyReadingSession, sess)
}

// ClearSession removes the active session
func (s *FileStore) ClearSession() error {
	return s.Remove(KeyReadingSession)
}

// Books returns the local library mirror
func (s *FileStore) Books() ([]models.Book, error) {
	var books []models.Book
	if err := s.Get(KeyLibraryBooks, &books); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []models.Book{}, nil
		}
		return nil, err
	}
	return books, nil
}

// SetBooks replaces the local library mirror
func (s *FileStore) SetBooks(books []models.Book) error {
	if books == nil {
		books = []models.Book{}
	}
	return s.Set(KeyLibraryBooks, books)
}

// History returns the local reading history
func (s *FileStore) History() (models.History, error) {
	history := models.History{}
	if err := s.Get(KeyReadingHistory, &history); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.History{}, nil
		}
		return nil, err
	}
	return history, nil
}

// AppendSession adds a record to the date-keyed history
func (s *FileStore) AppendSession(rec models.SessionRecord) error {
	history := models.History{}
	return s.update(KeyReadingHistory, &history, func(bool) error {
		if history == nil {
			history = models.History{}
		}
		history.Add(rec)
		return nil
	})
}

// RemoveBookHistory drops every local history record of a book
func (s *FileStore) RemoveBookHistory(bookID int64) error {
	history := models.History{}
	return s.update(KeyReadingHistory, &history, func(bool) error {
		history.RemoveBook(bookID)
		return nil
	})
}

// Postings returns locally stored community posts
func (s *FileStore) Postings() ([]models.Posting, error) {
	var postings []models.Posting
	if err := s.Get(KeyBookPostings, &postings); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []models.Posting{}, nil
		}
		return nil, err
	}
	return postings, nil
}

// AppendPosting adds a community post to the local list
func (s *FileStore) AppendPosting(p models.Posting) error {
	var postings []models.Posting
	return s.update(KeyBookPostings, &postings, func(bool) error {
		postings = append(postings, p)
		return nil
	})
}
