package feed

import (
	"errors"
	"strings"
	"time"

	"github.com/lysyi3m/rss25sb/app/database"
)

var ErrMissingDate = errors.New("item must have at least a published or updated date")

// ToRecord maps an item to its persisted form.
func ToRecord(item Item) (database.Item, error) {
	record := database.Item{
		GUID:         item.GUID,
		Title:        item.Title,
		ContentType:  item.Content.Type,
		ContentSrc:   item.Content.Src,
		Categories:   make([]string, 0, len(item.Categories)),
		Authors:      []database.Person{},
		Contributors: []database.Person{},
	}

	switch {
	case item.Published != nil:
		record.Published = *item.Published
		record.Updated = copyTime(item.Updated)
	case item.Updated != nil:
		record.Published = *item.Updated
		record.Updated = copyTime(item.Updated)
	default:
		return database.Item{}, ErrMissingDate
	}

	if isUsableImage(item.Image) {
		record.Image = &database.Image{
			Type: item.Image.Type,
			Href: item.Image.Href,
			Alt:  item.Image.Alt,
		}
		if item.Image.Length != nil {
			length := *item.Image.Length
			record.Image.Length = &length
		}
	}

	for _, c := range item.Categories {
		record.Categories = append(record.Categories, c.Term)
	}

	for _, p := range item.Authors() {
		record.Authors = append(record.Authors, database.Person{Name: p.Name, Email: p.Email, URI: p.URI})
	}
	for _, p := range item.Contributors() {
		record.Contributors = append(record.Contributors, database.Person{Name: p.Name, Email: p.Email, URI: p.URI})
	}

	return record, nil
}

// ToItem maps a persisted record back to an item. Authors come before
// contributors.
func ToItem(record database.Item) Item {
	published := record.Published
	item := Item{
		GUID:       record.GUID,
		Title:      record.Title,
		Categories: make([]Category, 0, len(record.Categories)),
		Published:  &published,
		Updated:    copyTime(record.Updated),
		Content:    Content{Type: record.ContentType, Src: record.ContentSrc},
		People:     make([]Person, 0, len(record.Authors)+len(record.Contributors)),
	}

	if record.Image != nil {
		item.Image = &Image{
			Type: record.Image.Type,
			Href: record.Image.Href,
			Alt:  record.Image.Alt,
		}
		if record.Image.Length != nil {
			length := *record.Image.Length
			item.Image.Length = &length
		}
	}

	for _, term := range record.Categories {
		item.Categories = append(item.Categories, Category{Term: term})
	}

	for _, p := range record.Authors {
		item.People = append(item.People, Person{Role: RoleAuthor, Name: p.Name, Email: p.Email, URI: p.URI})
	}
	for _, p := range record.Contributors {
		item.People = append(item.People, Person{Role: RoleContributor, Name: p.Name, Email: p.Email, URI: p.URI})
	}

	return item
}

func isUsableImage(img *Image) bool {
	return img != nil &&
		strings.TrimSpace(img.Type) != "" &&
		strings.TrimSpace(img.Href) != "" &&
		strings.TrimSpace(img.Alt) != ""
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
