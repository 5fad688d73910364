package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*DB, *SQLItemRepository) {
	t.Helper()

	db, err := NewConnection(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, dirty, err := RunMigrations(db)
	require.NoError(t, err)
	require.False(t, dirty)

	return db, NewItemRepository(db)
}

func sampleItem(guid string, published time.Time) Item {
	length := int64(1024)
	return Item{
		GUID:        guid,
		Title:       "Sample " + guid,
		Published:   published,
		ContentType: "text",
		ContentSrc:  "Body",
		Image: &Image{
			Type:   "image/png",
			Href:   "https://example.com/a.png",
			Alt:    "A picture",
			Length: &length,
		},
		Categories:   []string{"news", "tech"},
		Authors:      []Person{{Name: "Jane Doe", Email: "jane@example.com"}},
		Contributors: []Person{{Name: "John Roe", URI: "https://example.com/john"}},
	}
}

func TestSaveAllAndFindByID(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRepo(t)

	published := time.Date(2025, 5, 18, 10, 0, 0, 0, time.FixedZone("", 2*3600))
	updated := published.Add(time.Hour)
	item := sampleItem("https://example.com/550e8400-e29b-41d4-a716-446655440000", published)
	item.Updated = &updated

	ids, err := repo.SaveAll(ctx, []Item{item})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	got, err := repo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, item.GUID, got.GUID)
	assert.Equal(t, item.Title, got.Title)
	assert.True(t, item.Published.Equal(got.Published))
	assert.Equal(t, "2025-05-18T10:00:00+02:00", got.Published.Format(time.RFC3339))
	require.NotNil(t, got.Updated)
	assert.True(t, updated.Equal(*got.Updated))
	assert.Equal(t, item.Categories, got.Categories)
	assert.Equal(t, item.Authors, got.Authors)
	assert.Equal(t, item.Contributors, got.Contributors)
	require.NotNil(t, got.Image)
	assert.Equal(t, *item.Image.Length, *got.Image.Length)
	assert.Equal(t, "text", got.ContentType)
}

func TestFindByIDMissing(t *testing.T) {
	_, repo := newTestRepo(t)

	got, err := repo.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExistsByGUID(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRepo(t)

	guid := "https://example.com/550e8400-e29b-41d4-a716-446655440000"
	exists, err := repo.ExistsByGUID(ctx, guid)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.SaveAll(ctx, []Item{sampleItem(guid, time.Now())})
	require.NoError(t, err)

	exists, err = repo.ExistsByGUID(ctx, guid)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSaveAllIsAtomic(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRepo(t)

	guid := "https://example.com/550e8400-e29b-41d4-a716-446655440000"
	batch := []Item{
		sampleItem("https://example.com/6fa459ea-ee8a-3ca4-894e-db77e160355e", time.Now()),
		sampleItem(guid, time.Now()),
		sampleItem(guid, time.Now()),
	}

	_, err := repo.SaveAll(ctx, batch)
	require.Error(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRepo(t)

	errAbort := errors.New("abort")
	err := repo.InTx(ctx, func(tx ItemRepository) error {
		if _, err := tx.SaveAll(ctx, []Item{sampleItem("https://example.com/550e8400-e29b-41d4-a716-446655440000", time.Now())}); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDeleteByIDCascades(t *testing.T) {
	ctx := context.Background()
	db, repo := newTestRepo(t)

	ids, err := repo.SaveAll(ctx, []Item{sampleItem("https://example.com/550e8400-e29b-41d4-a716-446655440000", time.Now())})
	require.NoError(t, err)

	deleted, err := repo.DeleteByID(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, deleted)

	var children int
	require.NoError(t, db.QueryRow(`SELECT (SELECT COUNT(*) FROM item_categories) + (SELECT COUNT(*) FROM item_people)`).Scan(&children))
	assert.Equal(t, 0, children)

	deleted, err = repo.DeleteByID(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFindAllOrdersByPublishedDesc(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRepo(t)

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.SaveAll(ctx, []Item{
		sampleItem("https://example.com/550e8400-e29b-41d4-a716-446655440000", older),
		sampleItem("https://example.com/6fa459ea-ee8a-3ca4-894e-db77e160355e", newer),
	})
	require.NoError(t, err)

	items, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].Published.Equal(newer))
	assert.Equal(t, []string{"news", "tech"}, items[1].Categories)
	assert.Len(t, items[1].Authors, 1)
}
