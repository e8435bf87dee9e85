package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vegetarianVolume = `{
	"volumeInfo": {
		"title": "채식주의자",
		"authors": ["한강"],
		"publisher": "창비",
		"publishedDate": "2007-10-30",
		"pageCount": 247,
		"categories": ["Fiction"],
		"language": "ko",
		"industryIdentifiers": [
			{"type": "ISBN_10", "identifier": "8936433598"},
			{"type": "ISBN_13", "identifier": "9788936433598"}
		],
		"imageLinks": {"smallThumbnail": "http://books.example/s.jpg", "thumbnail": "http://books.example/t.jpg"}
	},
	"saleInfo": {"printType": "BOOK"}
}`

const journalVolume = `{
	"volumeInfo": {"title": "한국문학 연구", "categories": ["Literary journal"], "language": "ko"}
}`

func TestGoogleBooksRequiresKey(t *testing.T) {
	provider := NewGoogleBooksProvider("", "http://127.0.0.1:1")
	_, err := provider.LookupByISBN(context.Background(), "9788936433598")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = provider.Search(context.Background(), "채식주의자", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGoogleBooksLookupByISBN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/volumes", r.URL.Path)
		assert.Equal(t, "isbn:9788936433598", q.Get("q"))
		assert.Equal(t, "ko", q.Get("langRestrict"))
		assert.Equal(t, "books", q.Get("printType"))
		assert.Equal(t, "secret", q.Get("key"))
		w.Write([]byte(`{"totalItems":2,"items":[` + journalVolume + `,` + vegetarianVolume + `]}`))
	}))
	defer server.Close()

	meta, err := NewGoogleBooksProvider("secret", server.URL).LookupByISBN(context.Background(), "978-89-364-3359-8")
	require.NoError(t, err)
	assert.Equal(t, "채식주의자", meta.Title)
	assert.Equal(t, "9788936433598", meta.ISBN13)
	assert.Equal(t, "8936433598", meta.ISBN10)
	assert.Equal(t, 247, meta.PageCount)
	assert.Equal(t, "http://books.example/t.jpg", meta.CoverURL)
	assert.Equal(t, "googlebooks", meta.Source)
	assert.Equal(t, 1.0, meta.Confidence)
}

func TestGoogleBooksLookupUsesFirstWhenNothingPassesFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalItems":1,"items":[` + journalVolume + `]}`))
	}))
	defer server.Close()

	meta, err := NewGoogleBooksProvider("secret", server.URL).LookupByISBN(context.Background(), "9788936433598")
	require.NoError(t, err)
	assert.Equal(t, "한국문학 연구", meta.Title)
}

func TestGoogleBooksSearchFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("maxResults"))
		w.Write([]byte(`{"totalItems":2,"items":[` + journalVolume + `,` + vegetarianVolume + `]}`))
	}))
	defer server.Close()

	results, err := NewGoogleBooksProvider("secret", server.URL).Search(context.Background(), "채식주의자", "한강")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "채식주의자", results[0].Title)
}

func TestGoogleBooksNoItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalItems":0}`))
	}))
	defer server.Close()

	_, err := NewGoogleBooksProvider("secret", server.URL).LookupByISBN(context.Background(), "9788936433598")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestIsKoreanBook(t *testing.T) {
	tests := []struct {
		name string
		item gbItem
		want bool
	}{
		{"korean", gbItem{VolumeInfo: gbVolumeInfo{Title: "채식주의자", Language: "ko"}}, true},
		{"no language with hangul", gbItem{VolumeInfo: gbVolumeInfo{Title: "데미안"}}, true},
		{"translation with korean author", gbItem{VolumeInfo: gbVolumeInfo{Title: "The Vegetarian", Authors: []string{"한강"}, Language: "en"}}, true},
		{"english", gbItem{VolumeInfo: gbVolumeInfo{Title: "Dune", Language: "en"}}, false},
		{"magazine", gbItem{VolumeInfo: gbVolumeInfo{Title: "월간 잡지", PrintType: "MAGAZINE"}}, false},
		{"academic category", gbItem{VolumeInfo: gbVolumeInfo{Title: "연구 보고서", Categories: []string{"Research Report"}}}, false},
		{"no title", gbItem{VolumeInfo: gbVolumeInfo{Language: "ko"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isKoreanBook(tt.item))
		})
	}
}
