package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ ItemRepository = (*SQLItemRepository)(nil)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLItemRepository handles database operations for rss25 items
type SQLItemRepository struct {
	db *DB
	q  queryer
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) *SQLItemRepository {
	return &SQLItemRepository{db: db, q: db.DB}
}

func (r *SQLItemRepository) InTx(ctx context.Context, fn func(repo ItemRepository) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&SQLItemRepository{db: r.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *SQLItemRepository) ExistsByGUID(ctx context.Context, guid string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE guid = ?)`, guid).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check item existence: %w", err)
	}
	return exists, nil
}

// SaveAll inserts all items atomically and returns their ids in input order.
func (r *SQLItemRepository) SaveAll(ctx context.Context, items []Item) ([]int64, error) {
	ids := make([]int64, 0, len(items))

	err := r.InTx(ctx, func(repo ItemRepository) error {
		tx := repo.(*SQLItemRepository)
		for _, item := range items {
			id, err := tx.insertItem(ctx, item)
			if err != nil {
				return fmt.Errorf("failed to save item %s: %w", item.GUID, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *SQLItemRepository) insertItem(ctx context.Context, item Item) (int64, error) {
	var imageType, imageHref, imageAlt sql.NullString
	var imageLength sql.NullInt64
	if item.Image != nil {
		imageType = sql.NullString{String: item.Image.Type, Valid: true}
		imageHref = sql.NullString{String: item.Image.Href, Valid: true}
		imageAlt = sql.NullString{String: item.Image.Alt, Valid: true}
		if item.Image.Length != nil {
			imageLength = sql.NullInt64{Int64: *item.Image.Length, Valid: true}
		}
	}

	res, err := r.q.ExecContext(ctx, `
		INSERT INTO items (
			guid, title, published, published_at, updated,
			content_type, content_src,
			image_type, image_href, image_alt, image_length
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.GUID, item.Title, formatTime(item.Published), item.Published.Unix(), nullTime(item.Updated),
		item.ContentType, nullString(item.ContentSrc),
		imageType, imageHref, imageAlt, imageLength)
	if err != nil {
		return 0, fmt.Errorf("failed to insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted id: %w", err)
	}

	for i, term := range item.Categories {
		if _, err := r.q.ExecContext(ctx,
			`INSERT INTO item_categories (item_id, position, term) VALUES (?, ?, ?)`,
			id, i, term); err != nil {
			return 0, fmt.Errorf("failed to insert category: %w", err)
		}
	}

	if err := r.insertPeople(ctx, id, roleAuthor, item.Authors); err != nil {
		return 0, err
	}
	if err := r.insertPeople(ctx, id, roleContributor, item.Contributors); err != nil {
		return 0, err
	}

	return id, nil
}

const (
	roleAuthor      = "author"
	roleContributor = "contributor"
)

func (r *SQLItemRepository) insertPeople(ctx context.Context, itemID int64, role string, people []Person) error {
	for i, p := range people {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO item_people (item_id, role, position, name, email, uri)
			VALUES (?, ?, ?, ?, ?, ?)
		`, itemID, role, i, p.Name, nullString(p.Email), nullString(p.URI))
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", role, err)
		}
	}
	return nil
}

const selectItemColumns = `
	SELECT id, guid, title, published, updated,
	       content_type, COALESCE(content_src, ''),
	       image_type, image_href, image_alt, image_length,
	       created_at
	FROM items`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var published, createdAt string
	var updated, imageType, imageHref, imageAlt sql.NullString
	var imageLength sql.NullInt64

	err := row.Scan(
		&item.ID, &item.GUID, &item.Title, &published, &updated,
		&item.ContentType, &item.ContentSrc,
		&imageType, &imageHref, &imageAlt, &imageLength,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if item.Published, err = parseTime(published); err != nil {
		return nil, fmt.Errorf("invalid published date for item %d: %w", item.ID, err)
	}
	if updated.Valid {
		t, err := parseTime(updated.String)
		if err != nil {
			return nil, fmt.Errorf("invalid updated date for item %d: %w", item.ID, err)
		}
		item.Updated = &t
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at for item %d: %w", item.ID, err)
	}

	if imageType.Valid {
		item.Image = &Image{
			Type: imageType.String,
			Href: imageHref.String,
			Alt:  imageAlt.String,
		}
		if imageLength.Valid {
			length := imageLength.Int64
			item.Image.Length = &length
		}
	}

	item.Categories = []string{}
	item.Authors = []Person{}
	item.Contributors = []Person{}

	return &item, nil
}

// FindByID returns the item with the given id, or nil when it does not exist
func (r *SQLItemRepository) FindByID(ctx context.Context, id int64) (*Item, error) {
	item, err := scanItem(r.q.QueryRowContext(ctx, selectItemColumns+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	if err := r.loadChildren(ctx, map[int64]*Item{item.ID: item}); err != nil {
		return nil, err
	}

	return item, nil
}

// FindAll returns every item, newest first
func (r *SQLItemRepository) FindAll(ctx context.Context) ([]Item, error) {
	rows, err := r.q.QueryContext(ctx, selectItemColumns+` ORDER BY published_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var ptrs []*Item
	byID := make(map[int64]*Item)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		ptrs = append(ptrs, item)
		byID[item.ID] = item
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}
	rows.Close()

	if err := r.loadChildren(ctx, byID); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(ptrs))
	for _, item := range ptrs {
		items = append(items, *item)
	}

	return items, nil
}

func (r *SQLItemRepository) loadChildren(ctx context.Context, byID map[int64]*Item) error {
	if len(byID) == 0 {
		return nil
	}

	var where string
	var args []any
	if len(byID) == 1 {
		for id := range byID {
			where, args = ` WHERE item_id = ?`, []any{id}
		}
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT item_id, term FROM item_categories`+where+` ORDER BY item_id, position`, args...)
	if err != nil {
		return fmt.Errorf("failed to get categories: %w", err)
	}
	for rows.Next() {
		var itemID int64
		var term string
		if err := rows.Scan(&itemID, &term); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan category row: %w", err)
		}
		if item, ok := byID[itemID]; ok {
			item.Categories = append(item.Categories, term)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating category rows: %w", err)
	}
	rows.Close()

	rows, err = r.q.QueryContext(ctx, `
		SELECT item_id, role, name, COALESCE(email, ''), COALESCE(uri, '')
		FROM item_people`+where+`
		ORDER BY item_id, role, position
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to get people: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID int64
		var role string
		var p Person
		if err := rows.Scan(&itemID, &role, &p.Name, &p.Email, &p.URI); err != nil {
			return fmt.Errorf("failed to scan person row: %w", err)
		}
		item, ok := byID[itemID]
		if !ok {
			continue
		}
		switch role {
		case roleAuthor:
			item.Authors = append(item.Authors, p)
		case roleContributor:
			item.Contributors = append(item.Contributors, p)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating person rows: %w", err)
	}

	return nil
}

// DeleteByID removes an item and, through the foreign keys, its children.
// It reports whether a row was deleted.
func (r *SQLItemRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return n > 0, nil
}

func (r *SQLItemRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
