package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/kafka"
)

// Invalidator drops every cached search.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// HandleCatalogChange returns a consumer callback that invalidates cache when
// another searcher instance announces a catalog write. Changes published by
// origin itself were already invalidated locally and are skipped.
func HandleCatalogChange(cache Invalidator, origin string) kafka.MessageHandler {
	logger := slog.Default().With("component", "cache-invalidation")
	return func(ctx context.Context, key []byte, value []byte) error {
		change, err := kafka.DecodeJSON[catalog.Change](value)
		if err != nil {
			return kafka.Permanent(err)
		}
		if change.Type != catalog.ChangeReviewAdded {
			logger.Debug("ignoring catalog change", "type", change.Type)
			return nil
		}
		if change.Origin == origin {
			return nil
		}
		if err := cache.Invalidate(ctx); err != nil {
			return fmt.Errorf("invalidating after change from %s: %w", change.Origin, err)
		}
		logger.Info("cache invalidated by remote change",
			"college", change.CollegeName,
			"origin", change.Origin,
		)
		return nil
	}
}
