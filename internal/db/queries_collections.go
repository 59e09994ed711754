package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateCollection returns the ID of the named collection, creating it if
// needed.
func (d *DB) CreateCollection(ctx context.Context, name string) (int64, error) {
	_, err := d.conn.ExecContext(ctx, "INSERT INTO collections (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name)
	if err != nil {
		return 0, fmt.Errorf("creating collection: %w", err)
	}
	var id int64
	if err := d.conn.QueryRowContext(ctx, "SELECT id FROM collections WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("looking up collection: %w", err)
	}
	return id, nil
}

func (d *DB) AddToCollection(ctx context.Context, collectionID, itemID int64) error {
	_, err := d.conn.ExecContext(ctx,
		"INSERT INTO collection_items (collection_id, item_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		collectionID, itemID)
	if err != nil {
		return fmt.Errorf("adding item %d to collection %d: %w", itemID, collectionID, err)
	}
	return nil
}

// FindCollection returns the first collection (by ID) whose name contains
// name, ignoring case. It returns nil when nothing matches.
func (d *DB) FindCollection(ctx context.Context, name string) (*Collection, error) {
	var c Collection
	err := d.conn.QueryRowContext(ctx,
		"SELECT id, name FROM collections WHERE instr(lower(name), lower(?)) > 0 ORDER BY id LIMIT 1",
		name).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding collection: %w", err)
	}
	return &c, nil
}

// CollectionItems returns the regular items in a collection.
func (d *DB) CollectionItems(ctx context.Context, collectionID int64) ([]Item, error) {
	return d.scanItems(ctx,
		"SELECT "+itemColumns+` FROM items
		 WHERE id IN (SELECT item_id FROM collection_items WHERE collection_id = ?)
		   AND item_type NOT IN ('attachment', 'note')
		 ORDER BY id`, collectionID)
}
