package api

import (
	"context"
	"encoding/xml"

	"github.com/lysyi3m/rss25sb/app/cfg"
	"github.com/lysyi3m/rss25sb/app/database"
	"github.com/lysyi3m/rss25sb/app/feed"
	"github.com/lysyi3m/rss25sb/app/ingest"
)

type GeneratorInterface interface {
	Run(meta feed.Metadata, items []feed.Item) (string, error)
	RunItem(item feed.Item) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type IngesterInterface interface {
	Run(ctx context.Context, data []byte) ingest.Outcome
}

var _ IngesterInterface = (*ingest.Ingester)(nil)

type Handler struct {
	itemRepo  database.ItemRepository
	ingester  IngesterInterface
	generator GeneratorInterface
	cfg       *cfg.Cfg
}

const (
	statusInserted = "INSERTED"
	statusDeleted  = "DELETED"
	statusError    = "ERROR"
)

// XML response documents

type InsertedResponse struct {
	XMLName     xml.Name `xml:"inserted"`
	IDs         []int64  `xml:"ids>id"`
	Status      string   `xml:"status"`
	Description string   `xml:"description"`
}

type DeletedResponse struct {
	XMLName     xml.Name `xml:"deleted"`
	ID          int64    `xml:"id"`
	Status      string   `xml:"status"`
	Description string   `xml:"description"`
}

type ErrorResponse struct {
	XMLName     xml.Name `xml:"error"`
	ID          *int64   `xml:"id,omitempty"`
	Status      string   `xml:"status"`
	Description string   `xml:"description"`
}

type ItemsResponse struct {
	XMLName xml.Name      `xml:"items"`
	Items   []ItemSummary `xml:"item"`
}

type ItemSummary struct {
	ID    int64  `xml:"id"`
	Title string `xml:"title"`
	GUID  string `xml:"guid"`
	Date  string `xml:"date"`
}

// itemURI binds the :id path segment.
type itemURI struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// Operation describes one route on the help page.
type Operation struct {
	Method      string
	Path        string
	Description string
}
