// Package publisher stores accepted reviews, invalidates cached searches, and
// announces the change on the catalog-changes topic.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/kafka"
)

// Invalidator drops cached search responses.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Publisher coordinates the review write, cache invalidation, and change
// event. Cache and producer are optional.
type Publisher struct {
	store    catalog.ReviewWriter
	cache    Invalidator
	producer kafka.Publisher
	origin   string
	logger   *slog.Logger
}

func New(store catalog.ReviewWriter, cache Invalidator, producer kafka.Publisher, origin string) *Publisher {
	return &Publisher{
		store:    store,
		cache:    cache,
		producer: producer,
		origin:   origin,
		logger:   slog.Default().With("component", "review-publisher"),
	}
}

// Submit persists review. It fails with ErrCollegeNotFound when no catalog
// row carries the college name. Invalidation and publishing failures are
// logged; the review is already durable at that point.
func (p *Publisher) Submit(ctx context.Context, review catalog.Review) error {
	exists, err := p.store.CollegeExists(ctx, review.CollegeName)
	if err != nil {
		return fmt.Errorf("checking college %q: %w", review.CollegeName, err)
	}
	if !exists {
		return apperrors.Newf(apperrors.ErrCollegeNotFound, http.StatusNotFound, "college %q not found", review.CollegeName)
	}
	if err := p.store.AddReview(ctx, review); err != nil {
		return fmt.Errorf("storing review: %w", err)
	}

	if p.cache != nil {
		if err := p.cache.Invalidate(ctx); err != nil {
			p.logger.Error("cache invalidation after review failed", "college", review.CollegeName, "error", err)
		}
	}
	if p.producer != nil {
		event := kafka.Event{
			Key: review.CollegeName,
			Value: catalog.Change{
				Type:        catalog.ChangeReviewAdded,
				CollegeName: review.CollegeName,
				OccurredAt:  time.Now().UTC(),
				Origin:      p.origin,
			},
		}
		if err := p.producer.Publish(ctx, event); err != nil {
			p.logger.Error("failed to publish catalog change", "college", review.CollegeName, "error", err)
		}
	}
	return nil
}
