package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/rss25sb/app/database"
	"github.com/lysyi3m/rss25sb/app/feed"
)

// SeedDemo stores one demonstration item when the store is empty.
// It reports whether an item was written.
func SeedDemo(ctx context.Context, repo database.ItemRepository, baseURL string) (bool, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count items: %w", err)
	}
	if count > 0 {
		slog.Debug("Store already has items, skipping demo seed", "count", count)
		return false, nil
	}

	record, err := feed.ToRecord(demoItem(baseURL, time.Now()))
	if err != nil {
		return false, fmt.Errorf("failed to map demo item: %w", err)
	}

	ids, err := repo.SaveAll(ctx, []database.Item{record})
	if err != nil {
		return false, fmt.Errorf("failed to save demo item: %w", err)
	}

	slog.Info("Demo item seeded", "id", ids[0], "guid", record.GUID)
	return true, nil
}

func demoItem(baseURL string, now time.Time) feed.Item {
	published := now.Truncate(time.Second)

	return feed.Item{
		GUID:  strings.TrimRight(baseURL, "/") + "/" + uuid.NewString(),
		Title: "Bienvenue sur rss25SB",
		Categories: []feed.Category{
			{Term: "Démonstration"},
			{Term: "rss25"},
		},
		Published: &published,
		Content: feed.Content{
			Type: "text",
			Src:  "Cet article de démonstration montre le format rss25. Publiez vos propres flux sur /rss25SB/insert.",
		},
		People: []feed.Person{
			{Role: feed.RoleAuthor, Name: "Equipe Demo", Email: "contact@example.com"},
			{Role: feed.RoleContributor, Name: "Jane Doe", URI: "https://example.com/jane"},
		},
	}
}
