package ingest

import (
	"context"
	"fmt"

	"github.com/lysyi3m/rss25sb/app/feed"
)

// ExistsFunc reports whether an item with the given guid is already stored.
type ExistsFunc func(ctx context.Context, guid string) (bool, error)

// FilterNew keeps the items whose guid is not stored yet. When a guid repeats
// within the batch only its first occurrence is kept.
func FilterNew(ctx context.Context, items []feed.Item, exists ExistsFunc) ([]feed.Item, error) {
	fresh := make([]feed.Item, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		if seen[item.GUID] {
			continue
		}
		seen[item.GUID] = true

		found, err := exists(ctx, item.GUID)
		if err != nil {
			return nil, fmt.Errorf("failed to check duplicate for %s: %w", item.GUID, err)
		}
		if found {
			continue
		}
		fresh = append(fresh, item)
	}

	return fresh, nil
}
