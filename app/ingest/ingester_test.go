package ingest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/rss25sb/app/convert"
	"github.com/lysyi3m/rss25sb/app/database"
	"github.com/lysyi3m/rss25sb/app/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const canonicalFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://univ.fr/rss25" lang="fr" version="25">
  <title>Test Feed</title>
  <pubDate>2025-05-18T10:00:00Z</pubDate>
  <copyright>Université de Rouen</copyright>
  <link rel="self" type="application/xml" href="https://example.com/feed.xml"/>
  <item>
    <guid>https://example.com/550e8400-e29b-41d4-a716-446655440000</guid>
    <title>First article</title>
    <category term="news"/>
    <published>2025-05-18T10:00:00+02:00</published>
    <content type="text" src="Body"/>
    <author name="Jane Doe"/>
  </item>
  <item>
    <guid>https://example.com/6fa459ea-ee8a-3ca4-894e-db77e160355e</guid>
    <title>Second article</title>
    <category term="sport"/>
    <updated>2025-05-19T08:30:00Z</updated>
    <content type="html"/>
    <contributor name="John Roe"/>
  </item>
  <item>
    <guid>https://example.com/16fd2706-8baf-433b-82eb-8c7fada847da</guid>
    <title>Third article</title>
    <category term="tech"/>
    <published>2025-05-20T08:30:00Z</published>
    <content type="text"/>
    <author name="Ann Smith"/>
  </item>
</feed>`

const leMondeFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Le Monde.fr</title>
    <link>https://www.lemonde.fr/rss/une.xml</link>
    <item>
      <title>Premier article</title>
      <pubDate>Tue, 01 Jan 2025 10:00:00 GMT</pubDate>
      <description>Résumé</description>
      <guid>https://www.lemonde.fr/international/article/2025/01/01/premier_1.html</guid>
      <link>https://www.lemonde.fr/international/article/2025/01/01/premier_1.html</link>
    </item>
    <item>
      <title>Second article</title>
      <pubDate>Tue, 01 Jan 2025 11:00:00 GMT</pubDate>
      <description>Résumé</description>
      <guid>https://www.lemonde.fr/international/article/2025/01/01/second_2.html</guid>
      <link>https://www.lemonde.fr/international/article/2025/01/01/second_2.html</link>
    </item>
    %s
  </channel>
</rss>`

const undatedLeMondeItem = `<item>
      <title>Sans date</title>
      <link>https://www.lemonde.fr/international/article/2025/01/01/sans-date_3.html</link>
      <description>Résumé</description>
      <guid>https://www.lemonde.fr/international/article/2025/01/01/sans-date_3.html</guid>
    </item>`

func newTestIngester(t *testing.T, extra ...convert.Route) (*Ingester, *database.SQLItemRepository) {
	t.Helper()

	db, err := database.NewConnection(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	schema, err := feed.LoadSchema("")
	require.NoError(t, err)

	repo := database.NewItemRepository(db)
	routes := append([]convert.Route{{
		Name:      "lemonde",
		Match:     convert.IsLeMonde,
		Converter: convert.NewLeMonde(),
	}}, extra...)

	return NewIngester(feed.NewParser(schema), convert.NewSelector(routes...), repo), repo
}

func countItems(t *testing.T, repo database.ItemRepository) int {
	t.Helper()
	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestRunInsertsCanonicalFeed(t *testing.T) {
	ingester, repo := newTestIngester(t)

	outcome := ingester.Run(context.Background(), []byte(canonicalFeed))

	require.Equal(t, StatusCreated, outcome.Status, outcome.Message)
	assert.Equal(t, http.StatusCreated, outcome.HTTPStatus())
	require.Len(t, outcome.IDs, 3)
	assert.Less(t, outcome.IDs[0], outcome.IDs[1])
	assert.Less(t, outcome.IDs[1], outcome.IDs[2])

	second, err := repo.FindByID(context.Background(), outcome.IDs[1])
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "Second article", second.Title)
	assert.True(t, second.Published.Equal(*second.Updated), "updated-only item takes updated as published")
	require.Len(t, second.Contributors, 1)
	assert.Equal(t, "John Roe", second.Contributors[0].Name)
}

func TestRunIsIdempotent(t *testing.T) {
	ingester, repo := newTestIngester(t)
	ctx := context.Background()

	first := ingester.Run(ctx, []byte(canonicalFeed))
	require.Equal(t, StatusCreated, first.Status, first.Message)

	second := ingester.Run(ctx, []byte(canonicalFeed))
	assert.Equal(t, StatusNoNewContent, second.Status)
	assert.Equal(t, http.StatusNoContent, second.HTTPStatus())
	assert.Empty(t, second.IDs)
	assert.Equal(t, 3, countItems(t, repo))
}

func TestRunStoresOnlyNewItems(t *testing.T) {
	ingester, repo := newTestIngester(t)
	ctx := context.Background()

	partial := strings.Replace(canonicalFeed,
		"https://example.com/16fd2706-8baf-433b-82eb-8c7fada847da",
		"https://example.com/550e8400-e29b-41d4-a716-446655440000", 1)

	outcome := ingester.Run(ctx, []byte(partial))
	require.Equal(t, StatusCreated, outcome.Status, outcome.Message)
	assert.Len(t, outcome.IDs, 2, "repeated guid inside one document is stored once")

	outcome = ingester.Run(ctx, []byte(canonicalFeed))
	require.Equal(t, StatusCreated, outcome.Status, outcome.Message)
	assert.Len(t, outcome.IDs, 1)
	assert.Equal(t, 3, countItems(t, repo))
}

func TestRunRejectsInvalidCanonicalItem(t *testing.T) {
	ingester, repo := newTestIngester(t)

	broken := strings.Replace(canonicalFeed, "<title>Third article</title>", "", 1)
	outcome := ingester.Run(context.Background(), []byte(broken))

	assert.Equal(t, StatusInvalid, outcome.Status)
	assert.Equal(t, http.StatusBadRequest, outcome.HTTPStatus())
	assert.Contains(t, outcome.Message, "feed is not valid rss25")
	assert.Contains(t, outcome.Message, "attempting automatic conversion")
	assert.Contains(t, outcome.Message, "unrecognized source")
	assert.Equal(t, 0, countItems(t, repo))
}

func TestRunRejectsMalformedXML(t *testing.T) {
	ingester, repo := newTestIngester(t)

	outcome := ingester.Run(context.Background(), []byte("<feed><item>"))

	assert.Equal(t, StatusInvalid, outcome.Status)
	assert.True(t, strings.HasPrefix(outcome.Message, "Error while submitting an XML feed:"))
	assert.Equal(t, 0, countItems(t, repo))
}

func TestRunConvertsLeMondeFeed(t *testing.T) {
	ingester, repo := newTestIngester(t)

	outcome := ingester.Run(context.Background(), []byte(strings.Replace(leMondeFeed, "%s", "", 1)))

	require.Equal(t, StatusCreated, outcome.Status, outcome.Message)
	require.Len(t, outcome.IDs, 2)

	item, err := repo.FindByID(context.Background(), outcome.IDs[0])
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.True(t, feed.IsValidGuid(item.GUID))
	assert.Equal(t, []string{"Actualités"}, item.Categories)
	require.Len(t, item.Authors, 1)
	assert.Equal(t, "Rédaction Le Monde", item.Authors[0].Name)
}

func TestRunRejectsWholeBatchOnUnmappableItem(t *testing.T) {
	ingester, repo := newTestIngester(t)

	outcome := ingester.Run(context.Background(), []byte(strings.Replace(leMondeFeed, "%s", undatedLeMondeItem, 1)))

	assert.Equal(t, StatusInvalid, outcome.Status)
	assert.Contains(t, outcome.Message, "item guid=https://www.lemonde.fr/")
	assert.Contains(t, outcome.Message, feed.ErrMissingDate.Error())
	assert.Equal(t, 0, countItems(t, repo))
}

func TestRunReportsConversionFailure(t *testing.T) {
	ingester, _ := newTestIngester(t)

	empty := `<rss version="2.0"><channel><link>https://www.lemonde.fr/</link></channel></rss>`
	outcome := ingester.Run(context.Background(), []byte(empty))

	assert.Equal(t, StatusInvalid, outcome.Status)
	assert.Contains(t, outcome.Message, "conversion failed:")
}

type failingRepo struct {
	database.ItemRepository
}

func (failingRepo) InTx(ctx context.Context, fn func(database.ItemRepository) error) error {
	return errors.New("database is locked")
}

func TestRunReportsStorageFailure(t *testing.T) {
	schema, err := feed.LoadSchema("")
	require.NoError(t, err)

	ingester := NewIngester(feed.NewParser(schema), convert.NewSelector(), failingRepo{})
	outcome := ingester.Run(context.Background(), []byte(canonicalFeed))

	assert.Equal(t, StatusInternalFailure, outcome.Status)
	assert.Equal(t, http.StatusInternalServerError, outcome.HTTPStatus())
	assert.Contains(t, outcome.Message, "database is locked")
}

func TestRootMessage(t *testing.T) {
	root := errors.New("bad month")
	err := &feed.BindError{Err: root}
	wrapped := errors.Join(root) // joined errors do not unwrap to a single cause

	assert.Equal(t, "bad month", RootMessage(err))
	assert.Equal(t, "bad month", RootMessage(wrapped))
}

const foreignFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Hacker News: Front Page</title>
    <link>https://news.example.com/</link>
    <item>
      <title>Show HN: a thing</title>
      <link>https://news.example.com/item?id=1</link>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <enclosure url="https://news.example.com/a.webp" length="99" type="image/webp"/>
    </item>
    <item>
      <title>Second</title>
      <link>https://news.example.com/item?id=2</link>
      <author>o'brien2@example.com (Pat O'Brien 2nd)</author>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestRunStoresForeignFeedAsValidRSS25(t *testing.T) {
	ingester, repo := newTestIngester(t, convert.Route{
		Name:      "generic",
		Match:     convert.IsForeignFeed,
		Converter: convert.NewGeneric("http://localhost:8080"),
	})
	ctx := context.Background()

	outcome := ingester.Run(ctx, []byte(foreignFeed))
	require.Equal(t, StatusCreated, outcome.Status, outcome.Message)
	require.Len(t, outcome.IDs, 2)

	records, err := repo.FindAll(ctx)
	require.NoError(t, err)

	items := make([]feed.Item, 0, len(records))
	for _, record := range records {
		items = append(items, feed.ToItem(record))
	}
	doc, err := feed.NewGenerator().Run(feed.Metadata{
		Title:     "rss25SB",
		Lang:      "fr",
		Copyright: "rss25SB",
		PubDate:   records[0].Published,
	}, items)
	require.NoError(t, err)

	schema, err := feed.LoadSchema("")
	require.NoError(t, err)
	assert.NoError(t, schema.Validate([]byte(doc)))
}

type fixedConverter struct {
	doc *feed.Feed
}

func (c fixedConverter) Convert([]byte) (*feed.Feed, error) {
	return c.doc, nil
}

func TestRunRejectsConvertedItemOutsideSchema(t *testing.T) {
	published := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	guid := "https://example.com/550e8400-e29b-41d4-a716-446655440000"
	converted := &feed.Feed{Items: []feed.Item{{
		GUID:       guid,
		Title:      "Converted",
		Categories: []feed.Category{{Term: "news"}},
		Published:  &published,
		Content:    feed.Content{Type: "text"},
		People:     []feed.Person{{Role: feed.RoleAuthor, Name: "Agent 007"}},
	}}}

	ingester, repo := newTestIngester(t, convert.Route{
		Name:      "fixed",
		Match:     func([]byte) bool { return true },
		Converter: fixedConverter{doc: converted},
	})

	outcome := ingester.Run(context.Background(), []byte("<anything/>"))

	assert.Equal(t, StatusInvalid, outcome.Status)
	assert.Contains(t, outcome.Message, "item guid="+guid)
	assert.Contains(t, outcome.Message, "/item/author[1]/@name")
	assert.Equal(t, 0, countItems(t, repo))
}
