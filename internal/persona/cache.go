package persona

import (
	"errors"

	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/models"
	"github.com/justyntemme/booklens/internal/storage"
)

// Store is the key/value store holding cached personas
type Store interface {
	Get(key string, v any) error
	Set(key string, v any) error
}

// Cache keeps one computed persona per user. Entries are replaced by
// recalculation and never expire on their own.
type Cache struct {
	store  Store
	logger *zap.Logger
}

// NewCache creates a persona cache over store
func NewCache(store Store, logger *zap.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// GetOrCalculate returns the cached persona for userID, computing and storing
// it from books when the cache is empty or holds an unknown label.
func (c *Cache) GetOrCalculate(userID string, books []models.Book) models.Persona {
	var cached models.Persona
	err := c.store.Get(storage.PersonaKey(userID), &cached)
	switch {
	case err == nil:
		if p, ok := Personas[cached.ID]; ok {
			return p
		}
	case !errors.Is(err, storage.ErrNotFound):
		c.logger.Warn("Failed to load cached persona", zap.String("user_id", userID), zap.Error(err))
	}
	return c.Recalculate(userID, books)
}

// Recalculate classifies books and overwrites the cached persona
func (c *Cache) Recalculate(userID string, books []models.Book) models.Persona {
	p := Classify(books)
	if err := c.store.Set(storage.PersonaKey(userID), p); err != nil {
		c.logger.Warn("Failed to save persona", zap.String("user_id", userID), zap.Error(err))
	}
	return p
}
