package database

import (
	"context"
)

type ItemRepository interface {
	ExistsByGUID(ctx context.Context, guid string) (bool, error)
	FindByID(ctx context.Context, id int64) (*Item, error)
	FindAll(ctx context.Context) ([]Item, error)
	Count(ctx context.Context) (int, error)

	SaveAll(ctx context.Context, items []Item) ([]int64, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)

	// InTx runs fn against a repository bound to a single transaction.
	// The transaction commits only when fn returns nil.
	InTx(ctx context.Context, fn func(repo ItemRepository) error) error
}
