package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AddItem inserts an item and returns its ID.
func (d *DB) AddItem(ctx context.Context, n NewItem) (int64, error) {
	if n.ItemType == "" {
		n.ItemType = "journalArticle"
	}
	var parent any
	if n.ParentID != nil {
		parent = *n.ParentID
	}
	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO items (item_type, title, authors, year, doi, abstract, parent_id, content_type, date_added)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, strftime('%Y-%m-%d %H:%M:%f', 'now')))`,
		n.ItemType, n.Title, nullStr(n.Authors), nullStr(n.Year), nullStr(n.DOI),
		nullStr(n.Abstract), parent, nullStr(n.ContentType), nullStr(n.DateAdded),
	)
	if err != nil {
		return 0, fmt.Errorf("adding item: %w", err)
	}
	return res.LastInsertId()
}

// GetItem returns one item or ErrNotFound.
func (d *DB) GetItem(ctx context.Context, id int64) (Item, error) {
	row := d.conn.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Item{}, fmt.Errorf("getting item %d: %w", id, err)
	}
	return it, nil
}

// GetItems returns the items that exist among ids, in the order given.
func (d *DB) GetItems(ctx context.Context, ids []int64) ([]Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	found, err := d.scanItems(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Item, len(found))
	for _, it := range found {
		byID[it.ID] = it
	}
	items := make([]Item, 0, len(found))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			items = append(items, it)
			delete(byID, id)
		}
	}
	return items, nil
}

// RecentItems returns up to n regular items, newest first.
func (d *DB) RecentItems(ctx context.Context, n int) ([]Item, error) {
	if n <= 0 {
		n = 10
	}
	return d.scanItems(ctx,
		"SELECT "+itemColumns+` FROM items
		 WHERE item_type NOT IN ('attachment', 'note')
		 ORDER BY date_added DESC, id DESC LIMIT ?`, n)
}

// Attachments returns the attachment children of an item.
func (d *DB) Attachments(ctx context.Context, parentID int64) ([]Item, error) {
	return d.scanItems(ctx,
		"SELECT "+itemColumns+" FROM items WHERE parent_id = ? AND item_type = 'attachment' ORDER BY id",
		parentID)
}

// UpdateItem changes metadata fields (title, authors, year, doi, abstract).
func (d *DB) UpdateItem(ctx context.Context, id int64, fields map[string]any) error {
	return d.updateRow(ctx, "items", id, fields)
}
