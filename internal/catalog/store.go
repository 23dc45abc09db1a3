package catalog

import (
	"context"
	"fmt"
)

// Store is the read view of the catalog consumed by the search core.
type Store interface {
	AllColleges(ctx context.Context) ([]College, error)
	ReviewsFor(ctx context.Context, collegeName string) ([]Review, error)
}

// ReviewLister is implemented by stores that can return every review in one
// call, which lets snapshots avoid a query per college.
type ReviewLister interface {
	AllReviews(ctx context.Context) ([]Review, error)
}

// ReviewWriter is the append-only review write path.
type ReviewWriter interface {
	CollegeExists(ctx context.Context, name string) (bool, error)
	AddReview(ctx context.Context, review Review) error
}

// Snapshot is an immutable copy of the catalog taken for one request. It
// implements Store, so the search core never touches the backing store after
// the snapshot is taken.
type Snapshot struct {
	colleges []College
	reviews  map[string][]Review
}

// NewSnapshot builds a snapshot from already loaded records. Reviews are
// grouped by college name in their original order.
func NewSnapshot(colleges []College, reviews []Review) *Snapshot {
	s := &Snapshot{
		colleges: append([]College(nil), colleges...),
		reviews:  make(map[string][]Review),
	}
	for _, r := range reviews {
		s.reviews[r.CollegeName] = append(s.reviews[r.CollegeName], r)
	}
	return s
}

// TakeSnapshot reads the full catalog from store.
func TakeSnapshot(ctx context.Context, store Store) (*Snapshot, error) {
	if snap, ok := store.(*Snapshot); ok {
		return snap, nil
	}
	colleges, err := store.AllColleges(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading colleges: %w", err)
	}
	if lister, ok := store.(ReviewLister); ok {
		reviews, err := lister.AllReviews(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading reviews: %w", err)
		}
		return NewSnapshot(colleges, reviews), nil
	}
	snap := NewSnapshot(colleges, nil)
	seen := make(map[string]struct{}, len(colleges))
	for _, c := range colleges {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		reviews, err := store.ReviewsFor(ctx, c.Name)
		if err != nil {
			return nil, fmt.Errorf("loading reviews for %q: %w", c.Name, err)
		}
		if len(reviews) > 0 {
			snap.reviews[c.Name] = append([]Review(nil), reviews...)
		}
	}
	return snap, nil
}

func (s *Snapshot) AllColleges(ctx context.Context) ([]College, error) {
	return s.colleges, nil
}

func (s *Snapshot) ReviewsFor(ctx context.Context, collegeName string) ([]Review, error) {
	return s.reviews[collegeName], nil
}

// Colleges returns the snapshot rows without a context.
func (s *Snapshot) Colleges() []College {
	return s.colleges
}

// Reviews returns the reviews attached to collegeName.
func (s *Snapshot) Reviews(collegeName string) []Review {
	return s.reviews[collegeName]
}
