package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	ItemTypeAttachment = "attachment"
	ItemTypeNote       = "note"
)

type Item struct {
	ID          int64  `json:"id" yaml:"id"`
	ItemType    string `json:"item_type" yaml:"item_type"`
	Title       string `json:"title" yaml:"title"`
	Authors     string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year        string `json:"year,omitempty" yaml:"year,omitempty"`
	DOI         string `json:"doi,omitempty" yaml:"doi,omitempty"`
	Abstract    string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	ParentID    *int64 `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	DateAdded   string `json:"date_added" yaml:"date_added"`
}

// IsRegular reports whether the item is a bibliographic record rather than
// an attachment or note.
func (i Item) IsRegular() bool {
	return i.ItemType != ItemTypeAttachment && i.ItemType != ItemTypeNote
}

// NewItem describes an item to insert. Empty ItemType means journalArticle;
// empty DateAdded means now.
type NewItem struct {
	ItemType    string
	Title       string
	Authors     string
	Year        string
	DOI         string
	Abstract    string
	ParentID    *int64
	ContentType string
	DateAdded   string
}

type Collection struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// OARecord is a cached open-access answer keyed by DOI.
type OARecord struct {
	DOI       string
	IsOA      bool
	Location  string
	Version   string
	CheckedAt time.Time
}

const itemColumns = `id, item_type, title, COALESCE(authors,''), COALESCE(year,''),
	COALESCE(doi,''), COALESCE(abstract,''), parent_id, COALESCE(content_type,''), date_added`

func scanItem(row interface{ Scan(...any) error }) (Item, error) {
	var it Item
	var parent sql.NullInt64
	err := row.Scan(&it.ID, &it.ItemType, &it.Title, &it.Authors, &it.Year,
		&it.DOI, &it.Abstract, &parent, &it.ContentType, &it.DateAdded)
	if err != nil {
		return Item{}, err
	}
	if parent.Valid {
		p := parent.Int64
		it.ParentID = &p
	}
	return it, nil
}

func (d *DB) scanItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
