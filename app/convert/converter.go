package convert

import (
	"cmp"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lysyi3m/rss25sb/app/feed"
	"golang.org/x/text/unicode/norm"
)

// ErrUnsupportedSource is returned when no converter recognizes a document.
var ErrUnsupportedSource = errors.New("unsupported or unrecognized feed source")

// Converter turns a foreign feed document into a canonical rss25 Feed.
type Converter interface {
	Convert(raw []byte) (*feed.Feed, error)
}

const (
	maxTitleLength      = 128
	maxPersonNameLength = 64
)

// normalizeTitle composes the title to NFC, collapses whitespace and cuts it
// to maxTitleLength characters, ending with "..." when cut.
func normalizeTitle(s string) string {
	s = strings.Join(strings.Fields(norm.NFC.String(s)), " ")
	if utf8.RuneCountInString(s) <= maxTitleLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxTitleLength-3]) + "..."
}

// canonicalGUID keeps guids that are already rss25 guids and otherwise
// derives a stable name-based UUID from the source identifier.
func canonicalGUID(baseURL, sourceID string) string {
	if feed.IsValidGuid(sourceID) {
		return sourceID
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceID))
	return strings.TrimRight(baseURL, "/") + "/" + id.String()
}

// personName reduces s to words of letters joined by single spaces, cut at a
// word boundary to maxPersonNameLength characters. It returns fallback when no
// word is left.
func personName(s, fallback string) string {
	words := strings.FieldsFunc(norm.NFC.String(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	name := ""
	for _, word := range words {
		next := word
		if name != "" {
			next = name + " " + word
		}
		if utf8.RuneCountInString(next) > maxPersonNameLength {
			break
		}
		name = next
	}

	return cmp.Or(name, fallback)
}
