package catalog

import (
	"context"
	"sync"
)

// MemoryStore keeps the catalog in process memory. Reads return copies, so a
// caller holding a result is unaffected by later writes.
type MemoryStore struct {
	mu       sync.RWMutex
	colleges []College
	reviews  []Review
}

// NewMemoryStore creates a store seeded with the given records.
func NewMemoryStore(colleges []College, reviews []Review) *MemoryStore {
	return &MemoryStore{
		colleges: append([]College(nil), colleges...),
		reviews:  append([]Review(nil), reviews...),
	}
}

func (m *MemoryStore) AllColleges(ctx context.Context) ([]College, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]College(nil), m.colleges...), nil
}

func (m *MemoryStore) ReviewsFor(ctx context.Context, collegeName string) ([]Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Review
	for _, r := range m.reviews {
		if r.CollegeName == collegeName {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) AllReviews(ctx context.Context) ([]Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Review(nil), m.reviews...), nil
}

func (m *MemoryStore) CollegeExists(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.colleges {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) AddReview(ctx context.Context, review Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append(m.reviews, review)
	return nil
}
