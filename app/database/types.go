package database

import (
	"time"
)

// Item is the persisted form of an rss25 article.
type Item struct {
	ID        int64
	GUID      string
	Title     string
	Published time.Time
	Updated   *time.Time

	ContentType string
	ContentSrc  string

	Image *Image // nil when the item carries no usable image

	Categories   []string
	Authors      []Person
	Contributors []Person

	CreatedAt time.Time
}

type Image struct {
	Type   string
	Href   string
	Alt    string
	Length *int64
}

type Person struct {
	Name  string
	Email string
	URI   string
}
