// Package client talks to the BookLens REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/models"
)

// ErrNotConfigured is returned when no API base URL is set. It is never retried.
var ErrNotConfigured = errors.New("API base URL is not configured")

// Messages that mark a server error as a transient database problem
var retryableMessages = []string{
	"database",
	"connection",
	"timeout",
	"econnrefused",
	"etimedout",
	"prismaclientinitializationerror",
	"can't reach database server",
}

// APIError is a non-2xx response from the API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Retryable reports whether the request may succeed if repeated
func (e *APIError) Retryable() bool {
	if e.Status >= 500 {
		return true
	}
	msg := strings.ToLower(e.Message)
	for _, kw := range retryableMessages {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// Options configures a Client
type Options struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration
	MaxRetries      int
	InitialInterval time.Duration // first retry delay, doubled on each retry
	HTTPClient      *http.Client
	Logger          *zap.Logger
}

// Client is a REST API client with retries on transient failures
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	initial    time.Duration
	logger     *zap.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	initial := opts.InitialInterval
	if initial <= 0 {
		initial = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		maxRetries: opts.MaxRetries,
		initial:    initial,
		logger:     logger,
		token:      opts.Token,
	}
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)
}

// do sends a JSON request and decodes a JSON response into out (if non-nil)
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}
	endpoint := c.baseURL + path

	op := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if token := c.bearer(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := parseError(resp.StatusCode, data)
			if apiErr.Retryable() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response from %s: %w", path, err))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("API request failed, retrying",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("retry_in", wait),
			zap.Error(err))
	}

	return backoff.RetryNotify(op, c.newBackOff(ctx), notify)
}

// parseError extracts {error} or {message} from an error body. error may be a
// string or an object with a message.
func parseError(status int, data []byte) *APIError {
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	msg := ""
	if json.Unmarshal(data, &body) == nil {
		var s string
		var obj struct {
			Message string `json:"message"`
		}
		switch {
		case len(body.Error) > 0 && json.Unmarshal(body.Error, &s) == nil && s != "":
			msg = s
		case len(body.Error) > 0 && json.Unmarshal(body.Error, &obj) == nil && obj.Message != "":
			msg = obj.Message
		default:
			msg = body.Message
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP error! status: %d", status)
	}
	return &APIError{Status: status, Message: msg}
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// ListBooks returns the user's books
func (c *Client) ListBooks(ctx context.Context) ([]models.Book, error) {
	var wire []IncomingBook
	if err := c.do(ctx, http.MethodGet, "/books", nil, &wire); err != nil {
		return nil, err
	}
	books := make([]models.Book, 0, len(wire))
	for _, w := range wire {
		books = append(books, w.Book())
	}
	return books, nil
}

// GetBook returns one book
func (c *Client) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	var wire IncomingBook
	if err := c.do(ctx, http.MethodGet, "/books/"+strconv.FormatInt(id, 10), nil, &wire); err != nil {
		return nil, err
	}
	book := wire.Book()
	return &book, nil
}

// AddBook creates a book and returns it with its server-assigned ID
func (c *Client) AddBook(ctx context.Context, book models.Book) (*models.Book, error) {
	var wire IncomingBook
	if err := c.do(ctx, http.MethodPost, "/books", BookToWire(book), &wire); err != nil {
		return nil, err
	}
	created := wire.Book()
	return &created, nil
}

// UpdateBook replaces a book
func (c *Client) UpdateBook(ctx context.Context, book models.Book) (*models.Book, error) {
	var wire IncomingBook
	path := "/books/" + strconv.FormatInt(book.ID, 10)
	if err := c.do(ctx, http.MethodPut, path, BookToWire(book), &wire); err != nil {
		return nil, err
	}
	updated := wire.Book()
	if updated.ID == 0 {
		return &book, nil
	}
	return &updated, nil
}

// DeleteBook deletes a book and its reading sessions
func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/books/"+strconv.FormatInt(id, 10), nil, nil)
}

// SaveSession records a finished reading session and returns the server's message
func (c *Client) SaveSession(ctx context.Context, rec models.SessionRecord) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/reading-sessions/save", rec, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// CalendarHistory returns the date-keyed history for one month
func (c *Client) CalendarHistory(ctx context.Context, year, month int) (models.History, error) {
	var resp struct {
		Data models.History `json:"data"`
	}
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(month))
	if err := c.do(ctx, http.MethodGet, "/reading-sessions/calendar?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return models.History{}, nil
	}
	return resp.Data, nil
}

// DateHistory returns one day's history, or nil if nothing was read that day
func (c *Client) DateHistory(ctx context.Context, date string) (*models.DayHistory, error) {
	var resp struct {
		Data *models.DayHistory `json:"data"`
	}
	q := url.Values{}
	q.Set("date", date)
	if err := c.do(ctx, http.MethodGet, "/reading-sessions/date?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListPostings returns community posts. bookID 0 lists all.
func (c *Client) ListPostings(ctx context.Context, bookID int64) ([]models.Posting, error) {
	path := "/postings"
	if bookID > 0 {
		path += "?bookId=" + strconv.FormatInt(bookID, 10)
	}
	var postings []models.Posting
	if err := c.do(ctx, http.MethodGet, path, nil, &postings); err != nil {
		return nil, err
	}
	return postings, nil
}

// CreatePosting publishes a community post
func (c *Client) CreatePosting(ctx context.Context, p models.Posting) (*models.Posting, error) {
	var created models.Posting
	if err := c.do(ctx, http.MethodPost, "/postings", p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// LikePosting likes a post and returns its like count
func (c *Client) LikePosting(ctx context.Context, id string) (int, error) {
	var resp struct {
		Likes int `json:"likes"`
	}
	if err := c.do(ctx, http.MethodPost, "/postings/"+url.PathEscape(id)+"/like", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Likes, nil
}

// LoginResponse is returned by Login
type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login exchanges credentials for a bearer token and starts using it
func (c *Client) Login(ctx context.Context, login, password string) (*LoginResponse, error) {
	body := map[string]string{"login": login, "password": password}
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Health checks that the API is reachable
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
