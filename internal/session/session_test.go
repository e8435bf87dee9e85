package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/models"
	"github.com/justyntemme/booklens/internal/storage"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func TestStart(t *testing.T) {
	s, err := Start(nil, 3, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.BookID)
	assert.Equal(t, t0, s.StartTime)

	again, err := Start(s, 3, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Same(t, s, again)

	_, err = Start(s, 4, t0)
	assert.ErrorIs(t, err, ErrSessionActive)

	_, err = Start(nil, 0, t0)
	assert.ErrorIs(t, err, ErrInvalidBookID)
}

func TestElapsedSeconds(t *testing.T) {
	s := &models.ReadingSession{BookID: 1, StartTime: t0}

	tests := []struct {
		name string
		now  time.Time
		want int64
	}{
		{"at start", t0, 0},
		{"floors partial seconds", t0.Add(1999 * time.Millisecond), 1},
		{"125 seconds", t0.Add(125 * time.Second), 125},
		{"clock skew clamps to zero", t0.Add(-time.Minute), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ElapsedSeconds(s, tt.now))
		})
	}

	assert.Equal(t, int64(0), ElapsedSeconds(nil, t0))
}

func TestElapsedSecondsMonotonic(t *testing.T) {
	clock := &FixedClock{T: t0}
	s := &models.ReadingSession{BookID: 1, StartTime: clock.Now()}

	prev := ElapsedSeconds(s, clock.Now())
	for i := 0; i < 100; i++ {
		clock.Advance(time.Duration(i*37) * time.Millisecond)
		cur := ElapsedSeconds(s, clock.Now())
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestIsStale(t *testing.T) {
	s := &models.ReadingSession{BookID: 1, StartTime: t0}
	assert.False(t, IsStale(s, t0.Add(StaleAfter)))
	assert.True(t, IsStale(s, t0.Add(StaleAfter+time.Second)))
}

func newStore(t *testing.T) *storage.FileStore {
	t.Helper()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "localstorage.json"))
	require.NoError(t, err)
	return store
}

func TestLoad(t *testing.T) {
	logger := zap.NewNop()

	t.Run("none", func(t *testing.T) {
		s, err := Load(newStore(t), t0, logger)
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("resumes fresh session", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.SaveSession(&models.ReadingSession{BookID: 2, StartTime: t0}))

		s, err := Load(store, t0.Add(time.Hour), logger)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, int64(2), s.BookID)
	})

	t.Run("drops stale session", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.SaveSession(&models.ReadingSession{BookID: 2, StartTime: t0}))

		s, err := Load(store, t0.Add(25*time.Hour), logger)
		require.NoError(t, err)
		assert.Nil(t, s)

		_, err = store.LoadSession()
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("drops unreadable session", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, os.WriteFile(store.Path(),
			[]byte(`{"readingSession": {"bookId": "seven", "startTime": "2024-05-01T09:00:00Z"}}`), 0644))

		s, err := Load(store, t0, logger)
		require.NoError(t, err)
		assert.Nil(t, s)

		_, err = store.LoadSession()
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("drops session with invalid start time", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, os.WriteFile(store.Path(),
			[]byte(`{"readingSession": {"bookId": 7, "startTime": "Invalid Date"}}`), 0644))

		s, err := Load(store, t0, logger)
		require.NoError(t, err)
		assert.Nil(t, s)

		_, err = store.LoadSession()
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("drops session without start time", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Set(storage.KeyReadingSession, map[string]any{"bookId": 4}))

		s, err := Load(store, t0, logger)
		require.NoError(t, err)
		assert.Nil(t, s)
	})
}
