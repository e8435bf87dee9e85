package persona

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/models"
	"github.com/justyntemme/booklens/internal/storage"
)

func reading(title string) models.Book {
	return models.Book{Title: title, Status: models.StatusReading}
}

func completed(title string, seconds int64) models.Book {
	return models.Book{Title: title, Status: models.StatusCompleted, TotalReadingTime: seconds}
}

func TestInferGenre(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"돈의 심리학", GenreNonfiction},
		{"A Brief History of Time", GenreNonfiction},
		{"살인자의 기억법", GenreMystery},
		// Contains both mystery and thriller keywords; mystery is checked first
		{"스릴러 걸작선", GenreMystery},
		{"공포의 집", GenreThriller},
		{"Spy School", GenreThriller},
		{"해리포터와 판타지 소설", GenreFiction},
		{"The Great Gatsby", GenreUnknown},
		{"Transaction Costs", GenreUnknown},
		{"The Crimean War", GenreUnknown},
		{"Crime and Punishment", GenreMystery},
		{"Collected Essays", GenreNonfiction},
		{"Self-Help for Beginners", GenreNonfiction},
		{"", GenreUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, InferGenre(tt.title))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		books []models.Book
		want  string
	}{
		{"empty library", nil, BalancedReader},
		{"no tracked books", []models.Book{{Title: "경제학", Status: "wishlist"}}, BalancedReader},
		{
			"nonfiction majority",
			[]models.Book{
				reading("경제학 콘서트"), reading("역사의 연구"), reading("철학 입문"),
				reading("과학 혁명"), reading("The Great Gatsby"), reading("Moby Dick"),
			},
			KnowledgeCollector,
		},
		{
			"fiction majority",
			[]models.Book{reading("판타지 소설"), reading("로맨스 소설"), reading("Moby Dick")},
			EmotionalReader,
		},
		{
			"suspense leads",
			[]models.Book{reading("추리 클럽"), reading("경제학"), reading("Moby Dick")},
			MysteryDetective,
		},
		{
			"explicit genre wins",
			[]models.Book{
				{Title: "경제학", Genre: "fiction", Status: models.StatusReading},
				{Title: "Untitled", Genre: "Fiction", Status: models.StatusReading},
			},
			EmotionalReader,
		},
		{
			"completion master",
			[]models.Book{
				completed("A", 100), completed("B", 100), completed("C", 100),
				completed("D", 100), reading("E"),
			},
			CompletionMaster,
		},
		{
			"immersive runner",
			[]models.Book{completed("A", 7200), reading("B"), reading("C")},
			ImmersiveRunner,
		},
		{
			"completed books without time are excluded from the mean",
			[]models.Book{completed("A", 4000), completed("B", 0), reading("C"), reading("D")},
			ImmersiveRunner,
		},
		{
			"page counts decide completion",
			[]models.Book{
				{Title: "A", Status: models.StatusReading, TotalPage: 10, ReadPage: 10},
				{Title: "B", Status: models.StatusReading, TotalPage: 10, ReadPage: 10},
				{Title: "C", Status: models.StatusReading, TotalPage: 10, ReadPage: 10},
				{Title: "D", Status: models.StatusCompleted, TotalPage: 10, ReadPage: 2},
			},
			CompletionMaster,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.books)
			assert.Equal(t, tt.want, got.ID)
			assert.Equal(t, Personas[tt.want], got)
		})
	}
}

func TestClassifyIdempotent(t *testing.T) {
	books := []models.Book{reading("추리 클럽"), completed("경제학", 5000), reading("Moby Dick")}
	assert.Equal(t, Classify(books), Classify(books))
}

func newCache(t *testing.T) (*Cache, *storage.FileStore) {
	t.Helper()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "localstorage.json"))
	require.NoError(t, err)
	return NewCache(store, zap.NewNop()), store
}

func TestCacheGetOrCalculate(t *testing.T) {
	cache, store := newCache(t)
	fiction := []models.Book{reading("판타지 소설")}

	p := cache.GetOrCalculate("u1", fiction)
	assert.Equal(t, EmotionalReader, p.ID)

	var stored models.Persona
	require.NoError(t, store.Get("readingPersona:u1", &stored))
	assert.Equal(t, EmotionalReader, stored.ID)

	// Cached value is returned even though the library changed
	p = cache.GetOrCalculate("u1", []models.Book{reading("경제학")})
	assert.Equal(t, EmotionalReader, p.ID)

	p = cache.Recalculate("u1", []models.Book{reading("경제학")})
	assert.Equal(t, KnowledgeCollector, p.ID)
	assert.Equal(t, KnowledgeCollector, cache.GetOrCalculate("u1", nil).ID)
}

func TestCacheIgnoresUnknownLabel(t *testing.T) {
	cache, store := newCache(t)
	require.NoError(t, store.Set(storage.PersonaKey(""), models.Persona{ID: "speed_reader"}))

	p := cache.GetOrCalculate("", []models.Book{reading("경제학")})
	assert.Equal(t, KnowledgeCollector, p.ID)
}
