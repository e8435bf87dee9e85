package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/api"
	"github.com/justyntemme/booklens/internal/auth"
	"github.com/justyntemme/booklens/internal/client"
	"github.com/justyntemme/booklens/internal/library"
	"github.com/justyntemme/booklens/internal/metadata"
	"github.com/justyntemme/booklens/internal/models"
	"github.com/justyntemme/booklens/internal/session"
	"github.com/justyntemme/booklens/internal/storage"
	"github.com/justyntemme/booklens/internal/tracker"
)

type testServer struct {
	router *gin.Engine
	db     *storage.Database
	tokens *auth.Manager
}

func setupServer(t *testing.T, meta *metadata.Service) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "booklens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens := auth.NewManager([]byte("test-secret"), time.Hour)
	h := api.NewHandler(db, meta, zap.NewNop())
	ah := api.NewAuthHandler(db, tokens, zap.NewNop())
	return &testServer{router: api.NewRouter(h, ah, tokens), db: db, tokens: tokens}
}

func (s *testServer) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	s := setupServer(t, nil)
	for _, path := range []string{"/health", "/api/health"} {
		w := s.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
	}
	assert.NotEmpty(t, s.request(t, http.MethodGet, "/health", "", nil).Header().Get("X-Request-ID"))
}

func TestAPIInfo(t *testing.T) {
	s := setupServer(t, nil)
	w := s.request(t, http.MethodGet, "/api", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/reading-sessions/calendar")
}

func TestRegisterAndLogin(t *testing.T) {
	s := setupServer(t, nil)

	w := s.request(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "reader", "email": "Reader@Example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.request(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "reader", "email": "other@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.request(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "short", "email": "short@example.com", "password": "12345"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.request(t, http.MethodPost, "/api/auth/login", "", gin.H{"login": "reader@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[client.LoginResponse](t, w)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "reader", login.User.Username)

	w = s.request(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "reader", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.request(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, login.User.ID, decode[models.User](t, w).ID)

	w = s.request(t, http.MethodPost, "/api/auth/refresh", "", gin.H{"token": login.Token})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookCRUD(t *testing.T) {
	s := setupServer(t, nil)

	w := s.request(t, http.MethodPost, "/api/books", "", `{"title":"Dune","author":"Frank Herbert","totalPage":412,"read_page":12}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total_page":412`)
	created := decode[client.IncomingBook](t, w).Book()
	assert.Equal(t, 12, created.ReadPage)
	assert.Equal(t, models.StatusReading, created.Status)
	assert.NotEmpty(t, created.StartDate)

	w = s.request(t, http.MethodGet, "/api/books", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]client.WireBook](t, w), 1)

	created.ReadPage = 412
	created.Status = models.StatusCompleted
	w = s.request(t, http.MethodPut, "/api/books/"+itoa(created.ID), "", client.BookToWire(created))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.request(t, http.MethodGet, "/api/books/"+itoa(created.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[client.IncomingBook](t, w).Book()
	assert.Equal(t, 412, got.ReadPage)
	assert.Equal(t, models.StatusCompleted, got.Status)

	w = s.request(t, http.MethodDelete, "/api/books/"+itoa(created.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.request(t, http.MethodGet, "/api/books/"+itoa(created.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Book not found")
}

func TestBookValidation(t *testing.T) {
	s := setupServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"total_page":10}`},
		{"read over total", `{"title":"x","total_page":10,"read_page":11}`},
		{"negative pages", `{"title":"x","read_page":-1}`},
		{"bad status", `{"title":"x","status":"paused"}`},
		{"bad json", `{"title":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.request(t, http.MethodPost, "/api/books", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	for _, id := range []string{"0", "abc", "2147483648"} {
		w := s.request(t, http.MethodGet, "/api/books/"+id, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
}

func TestBooksAreScopedToUser(t *testing.T) {
	s := setupServer(t, nil)
	token, err := s.tokens.GenerateToken("u1", "reader")
	require.NoError(t, err)

	w := s.request(t, http.MethodPost, "/api/books", token, gin.H{"title": "Private"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[client.WireBook](t, w).ID

	w = s.request(t, http.MethodGet, "/api/books", "", nil)
	assert.Empty(t, decode[[]client.WireBook](t, w))
	w = s.request(t, http.MethodGet, "/api/books/"+itoa(id), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.request(t, http.MethodGet, "/api/books/"+itoa(id), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadingSessionsByDate(t *testing.T) {
	s := setupServer(t, nil)
	w := s.request(t, http.MethodPost, "/api/books", "", gin.H{"title": "Dune", "total_page": 400})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[client.WireBook](t, w).ID

	kst := time.FixedZone("KST", 9*3600)
	records := []models.SessionRecord{
		{BookID: id, PagesRead: 10, Duration: 600, StartTime: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		{BookID: id, PagesRead: 5, Duration: 300, StartTime: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)},
		// 2024-05-02 07:00 KST is 2024-05-01 22:00 UTC
		{BookID: id, PagesRead: 1, Duration: 60, StartTime: time.Date(2024, 5, 2, 7, 0, 0, 0, kst)},
	}
	for _, rec := range records {
		w = s.request(t, http.MethodPost, "/api/reading-sessions/save", "", rec)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), api.MsgSessionSaved)
	}

	w = s.request(t, http.MethodGet, "/api/reading-sessions/calendar?year=2024&month=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	calendar := decode[struct {
		Data models.History `json:"data"`
	}](t, w)
	require.Len(t, calendar.Data, 1)
	assert.Equal(t, int64(960), calendar.Data["2024-05-01"].TotalTime)
	assert.Len(t, calendar.Data["2024-05-01"].Sessions, 3)

	w = s.request(t, http.MethodGet, "/api/reading-sessions/date?date=2024-05-02", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":null}`, w.Body.String())

	w = s.request(t, http.MethodDelete, "/api/books/"+itoa(id), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.request(t, http.MethodGet, "/api/reading-sessions/date?date=2024-05-01", "", nil)
	assert.JSONEq(t, `{"data":null}`, w.Body.String())
}

func TestSaveSessionValidation(t *testing.T) {
	s := setupServer(t, nil)
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	w := s.request(t, http.MethodPost, "/api/reading-sessions/save", "", models.SessionRecord{BookID: 99, StartTime: start})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.request(t, http.MethodPost, "/api/reading-sessions/save", "", models.SessionRecord{BookID: 0, StartTime: start})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.request(t, http.MethodPost, "/api/reading-sessions/save", "", models.SessionRecord{BookID: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.request(t, http.MethodGet, "/api/reading-sessions/calendar?year=2024&month=13", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.request(t, http.MethodGet, "/api/reading-sessions/date?date=May-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostings(t *testing.T) {
	s := setupServer(t, nil)
	token, err := s.tokens.GenerateToken("u1", "reader")
	require.NoError(t, err)

	w := s.request(t, http.MethodPost, "/api/books", token, gin.H{"title": "채식주의자", "author": "한강"})
	require.Equal(t, http.StatusCreated, w.Code)
	bookID := decode[client.WireBook](t, w).ID

	w = s.request(t, http.MethodPost, "/api/postings", token, gin.H{"bookId": bookID, "content": "  잊을 수 없는 책  ", "rating": 5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[models.Posting](t, w)
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "채식주의자", post.BookTitle)
	assert.Equal(t, "잊을 수 없는 책", post.Content)

	w = s.request(t, http.MethodPost, "/api/postings", token, gin.H{"bookId": bookID, "content": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.request(t, http.MethodPost, "/api/postings/"+post.ID+"/like", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	for range 2 {
		w = s.request(t, http.MethodPost, "/api/postings/"+post.ID+"/like", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.JSONEq(t, `{"likes":1}`, w.Body.String())

	w = s.request(t, http.MethodPost, "/api/postings/missing/like", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.request(t, http.MethodGet, "/api/postings?bookId="+itoa(bookID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	postings := decode[[]models.Posting](t, w)
	require.Len(t, postings, 1)
	assert.Equal(t, 1, postings[0].Likes)

	w = s.request(t, http.MethodGet, "/api/postings?bookId=999", "", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

type stubProvider struct {
	meta *metadata.BookMetadata
}

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) LookupByISBN(ctx context.Context, isbn string) (*metadata.BookMetadata, error) {
	if p.meta == nil {
		return nil, metadata.ErrNoMatch
	}
	m := *p.meta
	return &m, nil
}

func (p stubProvider) Search(ctx context.Context, title, author string) ([]metadata.BookMetadata, error) {
	if p.meta == nil {
		return nil, metadata.ErrNoMatch
	}
	return []metadata.BookMetadata{*p.meta}, nil
}

func (p stubProvider) GetCoverURL(isbn string, size metadata.CoverSize) string { return "" }

func TestLookupBook(t *testing.T) {
	w := setupServer(t, nil).request(t, http.MethodGet, "/api/books/lookup?isbn=9788936433598", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	meta := metadata.NewService(stubProvider{meta: &metadata.BookMetadata{
		Title: "채식주의자", Authors: []string{"한강"}, ISBN13: "9788936433598", PageCount: 247,
	}}, nil, nil)
	s := setupServer(t, meta)

	w = s.request(t, http.MethodGet, "/api/books/lookup?isbn=978-89-364-3359-8", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Book client.WireBook `json:"book"`
	}](t, w)
	assert.Equal(t, "채식주의자", resp.Book.Title)
	assert.Equal(t, 247, resp.Book.TotalPage)
	assert.Equal(t, "9788936433598", resp.Book.ISBN)

	w = s.request(t, http.MethodGet, "/api/books/lookup?isbn=123", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.request(t, http.MethodGet, "/api/books/lookup", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	none := setupServer(t, metadata.NewService(stubProvider{}, nil, nil))
	w = none.request(t, http.MethodGet, "/api/metadata/search?title=nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestTrackerAgainstServer runs a full reading session through the REST
// client against a live router.
func TestTrackerAgainstServer(t *testing.T) {
	s := setupServer(t, nil)
	server := httptest.NewServer(s.router)
	defer server.Close()

	c := client.New(client.Options{BaseURL: server.URL + "/api", MaxRetries: 1, InitialInterval: time.Millisecond})
	require.NoError(t, c.Health(context.Background()))

	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "localstorage.json"))
	require.NoError(t, err)
	repo := library.NewRepository(c, store, zap.NewNop())

	ctx := context.Background()
	added, degraded, err := repo.AddBook(ctx, models.Book{Title: "Dune", Author: "Frank Herbert", TotalPage: 300, ReadPage: 270})
	require.NoError(t, err)
	require.False(t, degraded)

	clock := &session.FixedClock{T: time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC)}
	svc := tracker.New(tracker.Config{Library: repo, Sessions: store, Clock: clock, Logger: zap.NewNop()})

	_, err = svc.StartReading(ctx, added.ID)
	require.NoError(t, err)
	clock.Advance(125 * time.Second)

	res, err := svc.StopReading(ctx, added.ID, "30")
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.True(t, res.JustCompleted)
	assert.Equal(t, api.MsgSessionSaved, res.Message)

	stored, err := c.GetBook(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, stored.ReadPage)
	assert.Equal(t, int64(125), stored.TotalReadingTime)
	assert.Equal(t, models.StatusCompleted, stored.Status)

	day, err := c.DateHistory(ctx, "2024-05-03")
	require.NoError(t, err)
	require.NotNil(t, day)
	assert.Equal(t, int64(125), day.TotalTime)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
