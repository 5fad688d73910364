package convert

import (
	"bytes"
	"cmp"
	"fmt"
	"mime"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/rss25sb/app/feed"
	"github.com/mmcdole/gofeed"
	"golang.org/x/text/language"
)

const (
	defaultCategory   = "General"
	defaultImageType  = "image/jpeg"
	defaultAuthorName = "Anonymous"
	defaultImageAlt   = "Image"
)

// IsForeignFeed reports whether raw is an RSS or Atom document that is not
// itself an rss25 document.
func IsForeignFeed(raw []byte) bool {
	switch gofeed.DetectFeedType(bytes.NewReader(raw)) {
	case gofeed.FeedTypeRSS, gofeed.FeedTypeAtom:
	default:
		return false
	}

	root, err := feed.ParseTree(raw)
	if err != nil {
		return false
	}
	return root.Name.Space != feed.Namespace
}

// Generic converts any RSS or Atom feed understood by gofeed.
type Generic struct {
	gofeedParser *gofeed.Parser
	baseURL      string
	now          func() time.Time
}

func NewGeneric(baseURL string) *Generic {
	return &Generic{
		gofeedParser: gofeed.NewParser(),
		baseURL:      baseURL,
		now:          time.Now,
	}
}

var _ Converter = (*Generic)(nil)

func (g *Generic) Convert(raw []byte) (*feed.Feed, error) {
	parsed, err := g.gofeedParser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	if len(parsed.Items) == 0 {
		return nil, errNoItems
	}

	title := normalizeTitle(cmp.Or(parsed.Title, "Untitled feed"))

	result := &feed.Feed{
		Lang:      normalizeLanguage(parsed.Language),
		Version:   feed.Version,
		Title:     title,
		PubDate:   g.feedDate(parsed),
		Copyright: cmp.Or(parsed.Copyright, title),
		Links:     []feed.Link{},
		Items:     make([]feed.Item, 0, len(parsed.Items)),
	}

	if parsed.Link != "" {
		result.Links = append(result.Links, feed.Link{Rel: "alternate", Type: "text/html", Href: parsed.Link})
	}
	if parsed.FeedLink != "" {
		result.Links = append(result.Links, feed.Link{Rel: "self", Type: "application/xml", Href: parsed.FeedLink})
	}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		result.Items = append(result.Items, g.normalizeItem(item, title))
	}

	return result, nil
}

func (g *Generic) normalizeItem(item *gofeed.Item, feedTitle string) feed.Item {
	normalized := feed.Item{
		GUID:       canonicalGUID(g.baseURL, cmp.Or(item.GUID, item.Link, item.Title)),
		Title:      normalizeTitle(cmp.Or(item.Title, item.Link)),
		Categories: []feed.Category{},
		People:     []feed.Person{},
	}

	if item.PublishedParsed != nil {
		published := *item.PublishedParsed
		normalized.Published = &published
	}
	if item.UpdatedParsed != nil {
		updated := *item.UpdatedParsed
		normalized.Updated = &updated
	}

	if item.Content != "" {
		normalized.Content = feed.Content{Type: "html", Src: item.Content}
	} else {
		normalized.Content = feed.Content{Type: "text", Src: item.Description}
	}

	for _, category := range item.Categories {
		if term := strings.TrimSpace(category); term != "" {
			normalized.Categories = append(normalized.Categories, feed.Category{Term: term})
		}
	}
	if len(normalized.Categories) == 0 {
		normalized.Categories = append(normalized.Categories, feed.Category{Term: defaultCategory})
	}

	normalized.People = g.extractAuthors(item)
	if len(normalized.People) == 0 {
		normalized.People = append(normalized.People, feed.Person{
			Role: feed.RoleAuthor,
			Name: personName(feedTitle, defaultAuthorName),
		})
	}

	normalized.Image = g.extractImage(item)

	return normalized
}

func (g *Generic) extractAuthors(item *gofeed.Item) []feed.Person {
	people := []feed.Person{}

	authors := item.Authors
	if len(authors) == 0 && item.Author != nil {
		authors = []*gofeed.Person{item.Author}
	}

	for _, author := range authors {
		if author == nil {
			continue
		}
		email := strings.TrimSpace(author.Email)
		localPart, _, _ := strings.Cut(email, "@")
		name := personName(cmp.Or(strings.TrimSpace(author.Name), localPart), "")
		if name == "" {
			continue
		}
		if !feed.IsValidEmail(email) {
			email = ""
		}
		people = append(people, feed.Person{
			Role:  feed.RoleAuthor,
			Name:  name,
			Email: email,
		})
	}

	return people
}

// extractImage prefers the first enclosure of an allowed image type, which
// carries a length, then the image gofeed found for the item. Other image
// formats are dropped.
func (g *Generic) extractImage(item *gofeed.Item) *feed.Image {
	alt := cmp.Or(strings.TrimSpace(item.Title), defaultImageAlt)

	for _, enclosure := range item.Enclosures {
		if enclosure == nil || !feed.IsValidURI(enclosure.URL) || !feed.IsValidImageType(enclosure.Type) {
			continue
		}
		image := &feed.Image{
			Type: strings.ToLower(enclosure.Type),
			Href: enclosure.URL,
			Alt:  alt,
		}
		if length, err := strconv.ParseInt(enclosure.Length, 10, 64); err == nil && length >= 0 {
			image.Length = &length
		}
		return image
	}

	if item.Image != nil && feed.IsValidURI(item.Image.URL) {
		if imageType := imageTypeFromURL(item.Image.URL); feed.IsValidImageType(imageType) {
			return &feed.Image{
				Type: imageType,
				Href: item.Image.URL,
				Alt:  cmp.Or(strings.TrimSpace(item.Image.Title), alt),
			}
		}
	}

	return nil
}

func (g *Generic) feedDate(parsed *gofeed.Feed) time.Time {
	if parsed.PublishedParsed != nil {
		return *parsed.PublishedParsed
	}
	if parsed.UpdatedParsed != nil {
		return *parsed.UpdatedParsed
	}
	return g.now().Truncate(time.Second)
}

func imageTypeFromURL(u string) string {
	ext := path.Ext(strings.SplitN(u, "?", 2)[0])
	if t := mime.TypeByExtension(strings.ToLower(ext)); strings.HasPrefix(t, "image/") {
		return strings.SplitN(t, ";", 2)[0]
	}
	return defaultImageType
}

// normalizeLanguage turns tags such as "en-us" into the canonical "en-US".
func normalizeLanguage(lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil || tag == language.Und {
		return "und"
	}
	base, _ := tag.Base()
	if region, conf := tag.Region(); conf == language.Exact {
		return base.String() + "-" + region.String()
	}
	return base.String()
}
