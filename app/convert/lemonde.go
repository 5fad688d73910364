package convert

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/lysyi3m/rss25sb/app/feed"
)

const (
	leMondeMarker       = "lemonde.fr"
	leMondeBaseURL      = "https://www.lemonde.fr"
	leMondeCategory     = "Actualités"
	leMondeAuthorName   = "Rédaction Le Monde"
	leMondeAuthorEmail  = "contact@lemonde.fr"
	leMondeImageAlt     = "Image Le Monde"
	leMondeImageType    = "image/jpeg"
	leMondeContentType  = "text"
	defaultImageLength  = 50000
	bytesPerPixelApprox = 3
)

var errNoItems = errors.New("document contains no item")

// IsLeMonde reports whether raw looks like a Le Monde RSS feed.
func IsLeMonde(raw []byte) bool {
	return bytes.Contains(raw, []byte(leMondeMarker))
}

// LeMonde converts the Le Monde RSS 2.0 feed into rss25.
type LeMonde struct {
	now func() time.Time
}

func NewLeMonde() *LeMonde {
	return &LeMonde{now: time.Now}
}

var _ Converter = (*LeMonde)(nil)

// Convert maps every item element of the document. Items without a title or
// guid are skipped; items without a parsable date are kept and left for the
// mapper to reject.
func (c *LeMonde) Convert(raw []byte) (*feed.Feed, error) {
	root, err := feed.ParseTree(raw)
	if err != nil {
		return nil, err
	}

	nodes := root.FindAll("item")
	if len(nodes) == 0 {
		return nil, errNoItems
	}

	channel := root.Find("channel")
	if channel == nil {
		channel = root
	}

	result := &feed.Feed{
		Lang:      "fr",
		Version:   feed.Version,
		Title:     normalizeTitle(cmp.Or(channel.ChildText("title"), "Le Monde")),
		PubDate:   c.channelDate(channel),
		Copyright: cmp.Or(channel.ChildText("copyright"), "Le Monde"),
		Links:     []feed.Link{},
		Items:     make([]feed.Item, 0, len(nodes)),
	}

	if link := channel.ChildText("link"); link != "" {
		result.Links = append(result.Links, feed.Link{Rel: "alternate", Type: "text/html", Href: link})
	}

	for _, node := range nodes {
		item, ok := c.convertItem(node)
		if !ok {
			continue
		}
		result.Items = append(result.Items, item)
	}

	slog.Debug("Le Monde feed converted", "items", len(result.Items), "skipped", len(nodes)-len(result.Items))

	return result, nil
}

func (c *LeMonde) convertItem(node *feed.Node) (feed.Item, bool) {
	title := node.FindText("title")
	sourceID := cmp.Or(node.FindText("guid"), node.FindText("link"))
	if title == "" || sourceID == "" {
		slog.Warn("Skipping Le Monde item without title or guid", "title", title, "guid", sourceID)
		return feed.Item{}, false
	}

	item := feed.Item{
		GUID:       canonicalGUID(leMondeBaseURL, sourceID),
		Title:      normalizeTitle(title),
		Categories: []feed.Category{{Term: leMondeCategory}},
		Content:    feed.Content{Type: leMondeContentType, Src: node.FindText("description")},
		People: []feed.Person{{
			Role:  feed.RoleAuthor,
			Name:  leMondeAuthorName,
			Email: leMondeAuthorEmail,
			URI:   leMondeBaseURL,
		}},
	}

	// pubDate is read first, then updated; each sets only its own field.
	if s := node.FindText("pubDate"); s != "" {
		if t, err := parseSourceDate(s); err == nil {
			item.Published = &t
		} else {
			slog.Warn("Invalid pubDate in Le Monde item", "guid", sourceID, "value", s, "error", err)
		}
	}
	if s := node.FindText("updated"); s != "" {
		if t, err := parseSourceDate(s); err == nil {
			item.Updated = &t
		} else {
			slog.Warn("Invalid updated date in Le Monde item", "guid", sourceID, "value", s, "error", err)
		}
	}
	if item.Published == nil && item.Updated == nil {
		slog.Warn("Le Monde item has no usable date", "guid", sourceID)
	}

	if media := node.Find("media:content"); media != nil {
		if href, _ := media.Attr("url"); feed.IsValidURI(href) {
			length := estimateImageLength(media)
			item.Image = &feed.Image{
				Type:   leMondeImageType,
				Href:   href,
				Alt:    cmp.Or(media.FindText("media:description"), leMondeImageAlt),
				Length: &length,
			}
		}
	}

	return item, true
}

func (c *LeMonde) channelDate(channel *feed.Node) time.Time {
	for _, tag := range []string{"lastBuildDate", "pubDate"} {
		if s := channel.ChildText(tag); s != "" {
			if t, err := parseSourceDate(s); err == nil {
				return t
			}
		}
	}
	return c.now().Truncate(time.Second)
}

// estimateImageLength approximates an uncompressed size from the declared
// dimensions.
func estimateImageLength(media *feed.Node) int64 {
	width, errW := attrInt(media, "width")
	height, errH := attrInt(media, "height")
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return defaultImageLength
	}
	return width * height * bytesPerPixelApprox
}

func attrInt(n *feed.Node, name string) (int64, error) {
	v, ok := n.Attr(name)
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
}

// parseSourceDate accepts RFC 1123 dates with a zone name or a numeric
// offset, and RFC 3339 timestamps as found in <updated>. It then falls back to
// a lenient parser for near misses such as a one-digit day.
func parseSourceDate(s string) (time.Time, error) {
	if feed.IsValidDate(s) {
		return time.Parse(time.RFC3339, s)
	}
	for _, layout := range []string{time.RFC1123, time.RFC1123Z} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	t, err := dateparse.ParseStrict(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("not an RFC 1123 date: %w", err)
	}
	return t, nil
}
