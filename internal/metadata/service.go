package metadata

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"
)

// DefaultRateInterval is the minimum gap between provider requests
const DefaultRateInterval = 500 * time.Millisecond

// Service orchestrates metadata lookups across providers
type Service struct {
	providers []Provider
	rateLimit *RateLimiter
	logger    *zap.Logger
}

// NewService creates a metadata service. Either provider may be nil;
// the primary is asked first.
func NewService(primary, fallback Provider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		rateLimit: NewRateLimiter(DefaultRateInterval),
		logger:    logger,
	}
	for _, p := range []Provider{primary, fallback} {
		if p != nil {
			s.providers = append(s.providers, p)
		}
	}
	return s
}

// NewDefaultService asks Google Books first when a key is set, then Open Library
func NewDefaultService(googleAPIKey string, logger *zap.Logger) *Service {
	var primary Provider
	if googleAPIKey != "" {
		primary = NewGoogleBooksProvider(googleAPIKey, "")
	}
	return NewService(primary, NewOpenLibraryProvider(""), logger)
}

// SetRateInterval changes the minimum gap between requests
func (s *Service) SetRateInterval(d time.Duration) {
	s.rateLimit = NewRateLimiter(d)
}

// LookupBook attempts to find metadata using ISBN first, then title/author
func (s *Service) LookupBook(ctx context.Context, isbn, title, author string) (*BookMetadata, error) {
	if len(s.providers) == 0 {
		return nil, ErrNotConfigured
	}

	if isbn != "" {
		clean, err := ValidateISBN(isbn)
		if err != nil {
			return nil, err
		}
		if result, err := s.lookupISBN(ctx, clean); err == nil {
			return result, nil
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if title != "" {
		results, err := s.search(ctx, title, author)
		if err == nil {
			return s.selectBestMatch(results, title, author), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, ErrNoMatch
}

// SearchBooks returns all matches ranked by confidence. An ISBN hit is a single exact result.
func (s *Service) SearchBooks(ctx context.Context, isbn, title, author string) ([]BookMetadata, error) {
	if len(s.providers) == 0 {
		return nil, ErrNotConfigured
	}

	if isbn != "" {
		clean, err := ValidateISBN(isbn)
		if err != nil {
			return nil, err
		}
		if result, err := s.lookupISBN(ctx, clean); err == nil {
			return []BookMetadata{*result}, nil
		}
	}

	if title != "" {
		results, err := s.search(ctx, title, author)
		if err == nil {
			return s.rankResults(results, title, author), nil
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, ErrNoMatch
}

func (s *Service) lookupISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	lastErr := ErrNoMatch
	for _, p := range s.providers {
		if err := s.rateLimit.Wait(ctx); err != nil {
			return nil, err
		}
		result, err := p.LookupByISBN(ctx, isbn)
		if err == nil && result != nil {
			result.Confidence = 1.0 // Exact ISBN match
			return result, nil
		}
		s.logFailure(p, "isbn", err)
		if err != nil {
			lastErr = err
		}
	}
	return nil, lastErr
}

func (s *Service) search(ctx context.Context, title, author string) ([]BookMetadata, error) {
	lastErr := ErrNoMatch
	for _, p := range s.providers {
		if err := s.rateLimit.Wait(ctx); err != nil {
			return nil, err
		}
		results, err := p.Search(ctx, title, author)
		if err == nil && len(results) > 0 {
			return results, nil
		}
		s.logFailure(p, "search", err)
		if err != nil {
			lastErr = err
		}
	}
	return nil, lastErr
}

func (s *Service) logFailure(p Provider, kind string, err error) {
	if err == nil || errors.Is(err, ErrNoMatch) {
		s.logger.Debug("No metadata match", zap.String("provider", p.Name()), zap.String("kind", kind))
		return
	}
	s.logger.Warn("Metadata provider failed",
		zap.String("provider", p.Name()),
		zap.String("kind", kind),
		zap.Error(err))
}

// rankResults scores every result and sorts by confidence, best first
func (s *Service) rankResults(results []BookMetadata, title, author string) []BookMetadata {
	for i := range results {
		results[i].Confidence = s.calculateConfidence(&results[i], title, author)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}

// selectBestMatch scores every result and returns the best one
func (s *Service) selectBestMatch(results []BookMetadata, title, author string) *BookMetadata {
	best := &results[0]
	bestScore := -1.0
	for i := range results {
		score := s.calculateConfidence(&results[i], title, author)
		results[i].Confidence = score
		if score > bestScore {
			bestScore = score
			best = &results[i]
		}
	}
	return best
}

// calculateConfidence computes match confidence based on title/author similarity
func (s *Service) calculateConfidence(meta *BookMetadata, title, author string) float64 {
	titleScore := stringSimilarity(normalize(meta.Title), normalize(title))

	authorScore := 0.0
	if author == "" {
		// Nothing to compare against
		authorScore = 1.0
	} else {
		normalizedAuthor := normalize(author)
		for _, a := range meta.Authors {
			authorScore = max(authorScore, stringSimilarity(normalize(a), normalizedAuthor))
		}
	}

	// Weight: 60% title, 40% author
	return titleScore*0.6 + authorScore*0.4
}

// normalize lowercases, drops leading English articles and punctuation,
// and collapses whitespace
func normalize(s string) string {
	s = strings.ToLower(s)
	for _, article := range []string{"the ", "a ", "an "} {
		s = strings.TrimPrefix(s, article)
	}
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}

// stringSimilarity is the Jaccard overlap of whitespace tokens (0.0 - 1.0)
func stringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	matches := 0
	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if ta == tb {
				matches++
				break
			}
		}
	}

	total := len(tokensA) + len(tokensB) - matches
	if total <= 0 {
		return 0.0
	}
	return float64(matches) / float64(total)
}

// RateLimiter spaces calls at least interval apart
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewRateLimiter creates a rate limiter with the given minimum interval
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Wait blocks until the caller's slot comes up or ctx is done
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	slot := r.next
	if slot.Before(now) {
		slot = now
	}
	r.next = slot.Add(r.interval)
	r.mu.Unlock()

	delay := time.Until(slot)
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
