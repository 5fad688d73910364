package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss25sb/app/convert"
	"github.com/lysyi3m/rss25sb/app/database"
	"github.com/lysyi3m/rss25sb/app/feed"
)

type Ingester struct {
	parser    *feed.Parser
	converter convert.Converter
	itemRepo  database.ItemRepository
}

func NewIngester(parser *feed.Parser, converter convert.Converter, itemRepo database.ItemRepository) *Ingester {
	return &Ingester{
		parser:    parser,
		converter: converter,
		itemRepo:  itemRepo,
	}
}

// Run ingests one submitted document. Either every new item of the document
// is stored, or none is.
func (ing *Ingester) Run(ctx context.Context, data []byte) Outcome {
	var reasons []string

	doc, err := ing.parser.Run(data)
	if err != nil {
		slog.Debug("Document is not canonical rss25, trying converters", "error", err)
		reasons = append(reasons, fmt.Sprintf("feed is not valid rss25 (%v); attempting automatic conversion", err))

		doc, err = ing.converter.Convert(data)
		if err != nil {
			if errors.Is(err, convert.ErrUnsupportedSource) {
				reasons = append(reasons, "unrecognized source: "+convert.ErrUnsupportedSource.Error())
			} else {
				reasons = append(reasons, "conversion failed: "+RootMessage(err))
			}
			slog.Info("Feed rejected", "reason", reasons[len(reasons)-1])
			return failure(StatusInvalid, reasons)
		}
	}

	var ids []int64
	var rejected *Outcome

	err = ing.itemRepo.InTx(ctx, func(repo database.ItemRepository) error {
		fresh, err := FilterNew(ctx, doc.Items, repo.ExistsByGUID)
		if err != nil {
			return err
		}

		if len(fresh) == 0 {
			rejected = &Outcome{Status: StatusNoNewContent, Message: "no item inserted: all items already exist"}
			return nil
		}

		records := make([]database.Item, 0, len(fresh))
		for _, item := range fresh {
			record, err := ing.mapItem(item)
			if err != nil {
				outcome := failure(StatusInvalid, append(reasons, fmt.Sprintf("item guid=%s: %v", item.GUID, err)))
				rejected = &outcome
				return nil
			}
			records = append(records, record)
		}

		ids, err = repo.SaveAll(ctx, records)
		return err
	})
	if err != nil {
		slog.Error("Failed to store items", "error", err)
		return failure(StatusInternalFailure, []string{"storage error: " + RootMessage(err)})
	}

	if rejected != nil {
		slog.Info("Feed not inserted", "status", rejected.Status.String(), "items", len(doc.Items))
		return *rejected
	}

	slog.Info("Feed ingested", "created", len(ids), "submitted", len(doc.Items))

	return Outcome{
		Status:  StatusCreated,
		IDs:     ids,
		Message: fmt.Sprintf("%d item(s) inserted", len(ids)),
	}
}

// mapItem maps an item to a record and checks that the record still renders
// as a schema-valid item, whatever source it was converted from.
func (ing *Ingester) mapItem(item feed.Item) (database.Item, error) {
	if !feed.IsValidGuid(item.GUID) {
		return database.Item{}, fmt.Errorf("guid must be an http(s) URI ending with an RFC 4122 UUID")
	}

	record, err := feed.ToRecord(item)
	if err != nil {
		return database.Item{}, err
	}

	if err := ing.parser.Schema().ValidateItem(feed.ToItem(record)); err != nil {
		return database.Item{}, err
	}

	return record, nil
}
