package db

import (
	"context"
	"fmt"
)

// SetSelection replaces the current selection.
func (d *DB) SetSelection(ctx context.Context, ids []int64) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM selection"); err != nil {
		return fmt.Errorf("clearing selection: %w", err)
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO selection (item_id, position) VALUES (?, ?)", id, i); err != nil {
			return fmt.Errorf("selecting item %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// SelectedItems returns the selected items in selection order.
func (d *DB) SelectedItems(ctx context.Context) ([]Item, error) {
	return d.scanItems(ctx,
		"SELECT "+itemColumns+` FROM items JOIN selection ON items.id = selection.item_id
		 ORDER BY selection.position`)
}
