package vectordb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

// DefaultCollection is used when a node leaves its collection empty.
const DefaultCollection = "default"

// ErrDimension is returned when a vector's length does not match the
// collection's.
var ErrDimension = errors.New("vector dimension mismatch")

// Point is a stored vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload string
}

// Match is a search hit. Score is the cosine similarity.
type Match struct {
	ID      string
	Score   float64
	Payload string
}

// Store persists vectors and answers nearest-neighbour queries.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Upsert inserts p into collection, replacing any point with the same id.
	Upsert(ctx context.Context, collection string, p Point) error
	// Search returns up to limit points of collection ordered by descending
	// cosine similarity to vec. Ties are ordered by id.
	Search(ctx context.Context, collection string, vec []float32, limit int) ([]Match, error)
	// Close releases resources held by the store.
	Close() error
}

// MemoryStore is an in-process Store doing exact cosine search.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dim    int
	points map[string]Point
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*collection)}
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(ctx context.Context, name string, p Point) error {
	if len(p.Vector) == 0 {
		return errors.New("empty vector")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &collection{dim: len(p.Vector), points: make(map[string]Point)}
		s.collections[name] = c
	}
	if len(p.Vector) != c.dim {
		return fmt.Errorf("collection %q expects %d dimensions, got %d: %w", name, c.dim, len(p.Vector), ErrDimension)
	}
	p.Vector = append([]float32(nil), p.Vector...)
	c.points[p.ID] = p
	return nil
}

// Search implements Store.
func (s *MemoryStore) Search(ctx context.Context, name string, vec []float32, limit int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok || limit <= 0 {
		return nil, nil
	}
	if len(vec) != c.dim {
		return nil, fmt.Errorf("collection %q expects %d dimensions, got %d: %w", name, c.dim, len(vec), ErrDimension)
	}

	matches := make([]Match, 0, len(c.points))
	for _, p := range c.points {
		matches = append(matches, Match{ID: p.ID, Score: Cosine(vec, p.Vector), Payload: p.Payload})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Len returns the number of points in a collection.
func (s *MemoryStore) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// Cosine returns the cosine similarity of a and b, or 0 when either has
// zero magnitude.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
