package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func mustAdd(t *testing.T, d *DB, n NewItem) int64 {
	t.Helper()
	id, err := d.AddItem(context.Background(), n)
	if err != nil {
		t.Fatalf("AddItem(%q): %v", n.Title, err)
	}
	return id
}

// --- Items ---

func TestAddAndGetItem(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	id := mustAdd(t, d, NewItem{Title: "Attention Is All You Need", Authors: "Vaswani", Year: "2017", DOI: "10.5555/3295222"})

	it, err := d.GetItem(ctx, id)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if it.Title != "Attention Is All You Need" || it.Authors != "Vaswani" || it.Year != "2017" {
		t.Errorf("unexpected item: %+v", it)
	}
	if it.ItemType != "journalArticle" {
		t.Errorf("expected default type journalArticle, got %q", it.ItemType)
	}
	if !it.IsRegular() {
		t.Error("journal article should be regular")
	}
	if it.DateAdded == "" {
		t.Error("expected date_added to default to now")
	}
}

func TestGetItemNotFound(t *testing.T) {
	d := openTestDB(t)
	_, err := d.GetItem(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetItemsKeepsRequestOrder(t *testing.T) {
	d := openTestDB(t)
	a := mustAdd(t, d, NewItem{Title: "A"})
	b := mustAdd(t, d, NewItem{Title: "B"})

	items, err := d.GetItems(context.Background(), []int64{b, 404, a})
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(items) != 2 || items[0].Title != "B" || items[1].Title != "A" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestRecentItemsSkipsAttachmentsAndNotes(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	old := mustAdd(t, d, NewItem{Title: "old", DateAdded: "2024-01-01 00:00:00.000"})
	mustAdd(t, d, NewItem{Title: "new", DateAdded: "2024-03-01 00:00:00.000"})
	mustAdd(t, d, NewItem{Title: "mid", DateAdded: "2024-02-01 00:00:00.000"})
	mustAdd(t, d, NewItem{Title: "pdf", ItemType: ItemTypeAttachment, ParentID: &old, ContentType: "application/pdf", DateAdded: "2024-04-01 00:00:00.000"})

	items, err := d.RecentItems(ctx, 10)
	if err != nil {
		t.Fatalf("RecentItems: %v", err)
	}
	var titles []string
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	want := []string{"new", "mid", "old"}
	if len(titles) != len(want) {
		t.Fatalf("got %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, titles[i], want[i])
		}
	}

	limited, _ := d.RecentItems(ctx, 1)
	if len(limited) != 1 || limited[0].Title != "new" {
		t.Errorf("limit 1: got %+v", limited)
	}
}

func TestAttachments(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	parent := mustAdd(t, d, NewItem{Title: "paper"})
	mustAdd(t, d, NewItem{Title: "Full Text PDF", ItemType: ItemTypeAttachment, ParentID: &parent, ContentType: "application/pdf"})

	atts, err := d.Attachments(ctx, parent)
	if err != nil {
		t.Fatalf("Attachments: %v", err)
	}
	if len(atts) != 1 || atts[0].ContentType != "application/pdf" {
		t.Fatalf("unexpected attachments: %+v", atts)
	}
	if atts[0].ParentID == nil || *atts[0].ParentID != parent {
		t.Errorf("parent id not scanned: %+v", atts[0].ParentID)
	}
}

func TestUpdateItem(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	id := mustAdd(t, d, NewItem{Title: "attention is all you need"})

	if err := d.UpdateItem(ctx, id, map[string]any{"title": "Attention Is All You Need", "year": "2017"}); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	it, _ := d.GetItem(ctx, id)
	if it.Title != "Attention Is All You Need" || it.Year != "2017" {
		t.Errorf("update not applied: %+v", it)
	}

	if err := d.UpdateItem(ctx, id, map[string]any{"item_type": "note"}); err == nil {
		t.Error("expected error for disallowed column")
	}
	if err := d.UpdateItem(ctx, 999, map[string]any{"title": "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- Collections ---

func TestFindCollectionCaseInsensitiveSubstring(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	ml, _ := d.CreateCollection(ctx, "Machine Learning")
	d.CreateCollection(ctx, "Machine Translation")

	c, err := d.FindCollection(ctx, "machine")
	if err != nil {
		t.Fatalf("FindCollection: %v", err)
	}
	if c == nil || c.ID != ml {
		t.Errorf("expected first match by id, got %+v", c)
	}

	none, err := d.FindCollection(ctx, "biology")
	if err != nil || none != nil {
		t.Errorf("expected nil, nil; got %+v, %v", none, err)
	}
}

func TestCreateCollectionIsIdempotent(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	a, _ := d.CreateCollection(ctx, "NLP")
	b, _ := d.CreateCollection(ctx, "NLP")
	if a != b {
		t.Errorf("expected same id, got %d and %d", a, b)
	}
}

func TestCollectionItems(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	cid, _ := d.CreateCollection(ctx, "NLP")
	p := mustAdd(t, d, NewItem{Title: "BERT"})
	att := mustAdd(t, d, NewItem{Title: "PDF", ItemType: ItemTypeAttachment, ParentID: &p})
	mustAdd(t, d, NewItem{Title: "unrelated"})
	d.AddToCollection(ctx, cid, p)
	d.AddToCollection(ctx, cid, att)

	items, err := d.CollectionItems(ctx, cid)
	if err != nil {
		t.Fatalf("CollectionItems: %v", err)
	}
	if len(items) != 1 || items[0].Title != "BERT" {
		t.Errorf("unexpected items: %+v", items)
	}
}

// --- Selection ---

func TestSelection(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	a := mustAdd(t, d, NewItem{Title: "A"})
	b := mustAdd(t, d, NewItem{Title: "B"})

	if err := d.SetSelection(ctx, []int64{b, a}); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	items, err := d.SelectedItems(ctx)
	if err != nil {
		t.Fatalf("SelectedItems: %v", err)
	}
	if len(items) != 2 || items[0].ID != b || items[1].ID != a {
		t.Errorf("unexpected selection: %+v", items)
	}

	if err := d.SetSelection(ctx, nil); err != nil {
		t.Fatalf("clearing: %v", err)
	}
	items, _ = d.SelectedItems(ctx)
	if len(items) != 0 {
		t.Errorf("expected empty selection, got %d", len(items))
	}
}

// --- Notes ---

func TestNotesUpsert(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	id := mustAdd(t, d, NewItem{Title: "paper"})

	body, err := d.GetNote(ctx, id, "summary")
	if err != nil || body != "" {
		t.Fatalf("expected empty note, got %q, %v", body, err)
	}

	d.SetNote(ctx, id, "summary", "first")
	d.SetNote(ctx, id, "summary", "second")

	body, _ = d.GetNote(ctx, id, "summary")
	if body != "second" {
		t.Errorf("expected overwrite, got %q", body)
	}

	var n int
	d.conn.QueryRow("SELECT COUNT(*) FROM notes WHERE parent_id = ?", id).Scan(&n)
	if n != 1 {
		t.Errorf("expected 1 note row, got %d", n)
	}
}

// --- OA status ---

func TestOAStatusRoundTripAndPrune(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	_, ok, err := d.GetOAStatus(ctx, "10.1/x")
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	old := time.Now().Add(-48 * time.Hour).Truncate(time.Millisecond)
	d.PutOAStatus(ctx, OARecord{DOI: "10.1/x", IsOA: true, Location: "https://x/pdf", Version: "publishedVersion", CheckedAt: old})
	d.PutOAStatus(ctx, OARecord{DOI: "10.1/y", CheckedAt: time.Now()})

	rec, ok, err := d.GetOAStatus(ctx, "10.1/x")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !rec.IsOA || rec.Location != "https://x/pdf" || rec.Version != "publishedVersion" || !rec.CheckedAt.Equal(old) {
		t.Errorf("unexpected record: %+v", rec)
	}

	n, err := d.PruneOAStatus(ctx, time.Now().Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Errorf("PruneOAStatus = %d, %v; want 1, nil", n, err)
	}
	if _, ok, _ := d.GetOAStatus(ctx, "10.1/y"); !ok {
		t.Error("fresh record should survive pruning")
	}

	d.DeleteOAStatus(ctx, "10.1/y")
	if _, ok, _ := d.GetOAStatus(ctx, "10.1/y"); ok {
		t.Error("expected record to be deleted")
	}
}
