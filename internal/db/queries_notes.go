package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetNote returns the body of the item's note carrying tag, or "" if there
// is none.
func (d *DB) GetNote(ctx context.Context, parentID int64, tag string) (string, error) {
	var body string
	err := d.conn.QueryRowContext(ctx,
		"SELECT body FROM notes WHERE parent_id = ? AND tag = ?", parentID, tag).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting note: %w", err)
	}
	return body, nil
}

// SetNote creates or replaces the item's note carrying tag.
func (d *DB) SetNote(ctx context.Context, parentID int64, tag, body string) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO notes (parent_id, tag, body) VALUES (?, ?, ?)
		 ON CONFLICT(parent_id, tag) DO UPDATE SET body = excluded.body, updated_at = datetime('now')`,
		parentID, tag, body,
	)
	if err != nil {
		return fmt.Errorf("setting note: %w", err)
	}
	return nil
}
