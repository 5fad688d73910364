package ingest

import (
	"context"
	"testing"

	"github.com/lysyi3m/rss25sb/app/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDemo(t *testing.T) {
	_, repo := newTestIngester(t)
	ctx := context.Background()

	seeded, err := SeedDemo(ctx, repo, "http://localhost:8080/")
	require.NoError(t, err)
	assert.True(t, seeded)

	items, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, feed.IsValidGuid(items[0].GUID), "guid %q", items[0].GUID)
	assert.Len(t, items[0].Authors, 1)
	assert.Len(t, items[0].Contributors, 1)

	seeded, err = SeedDemo(ctx, repo, "http://localhost:8080")
	require.NoError(t, err)
	assert.False(t, seeded, "non-empty store is left alone")
	assert.Equal(t, 1, countItems(t, repo))
}
