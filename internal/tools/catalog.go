package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chris/researchhub/internal/bridge"
	"github.com/chris/researchhub/internal/db"
	"github.com/chris/researchhub/internal/llm"
	"github.com/chris/researchhub/internal/oa"
)

const (
	defaultLimit  = 5
	defaultRecent = 10

	separator = "\n---\n"
)

// ItemStore is the library query surface the tools need. *db.DB satisfies it.
type ItemStore interface {
	GetItem(ctx context.Context, id int64) (db.Item, error)
	GetItems(ctx context.Context, ids []int64) ([]db.Item, error)
	FindCollection(ctx context.Context, name string) (*db.Collection, error)
	CollectionItems(ctx context.Context, collectionID int64) ([]db.Item, error)
	SelectedItems(ctx context.Context) ([]db.Item, error)
	RecentItems(ctx context.Context, n int) ([]db.Item, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]bridge.SearchResult, error)
	FindSimilar(ctx context.Context, itemID int64, limit int) ([]bridge.SearchResult, error)
}

// CitationFixer never fails outright; problems come back in FixResult.Errors.
type CitationFixer interface {
	FixCitations(ctx context.Context, items []db.Item) bridge.FixResult
}

type OAChecker interface {
	CheckItems(ctx context.Context, items []db.Item) (map[int64]oa.Status, error)
}

type Summarizer interface {
	SummarizeAndStore(ctx context.Context, item db.Item) (string, error)
}

// Deps are the collaborators behind the catalog.
type Deps struct {
	Library    ItemStore
	Search     Searcher
	Citations  CitationFixer
	OpenAccess OAChecker
	Summaries  Summarizer
}

// NewDefaultRegistry builds the registry holding the full catalog.
func NewDefaultRegistry(d Deps) (*Registry, error) {
	return NewRegistry(Catalog(d)...)
}

// Catalog returns the research tools in the order they are offered to the
// model.
func Catalog(d Deps) []Tool {
	return []Tool{
		{
			Definition: llm.ToolDefinition{
				Name:        "search_library",
				Description: "Search the library for papers matching a query string.",
				Parameters: objReq(map[string]any{
					"query": prop("string", "Search query"),
					"limit": prop("integer", "Max results (default 5)"),
				}, "query"),
			},
			Run: typed(bindSearch, func(ctx context.Context, a searchArgs) (string, error) {
				results, err := d.Search.Search(ctx, a.Query, a.Limit)
				if err != nil {
					return "", err
				}
				if len(results) == 0 {
					return "No results found.", nil
				}
				return formatResults(results), nil
			}),
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "find_similar",
				Description: "Find papers similar to a given item in the library.",
				Parameters: objReq(map[string]any{
					"itemId": prop("integer", "Library item ID"),
					"limit":  prop("integer", "Max results (default 5)"),
				}, "itemId"),
			},
			Run: typed(bindSimilar, func(ctx context.Context, a similarArgs) (string, error) {
				results, err := d.Search.FindSimilar(ctx, a.ItemID, a.Limit)
				if err != nil {
					return "", err
				}
				if len(results) == 0 {
					return "No similar papers found.", nil
				}
				return formatResults(results), nil
			}),
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "summarize_paper",
				Description: "Generate an AI summary of a specific paper.",
				Parameters: objReq(map[string]any{
					"itemId": prop("integer", "Library item ID to summarize"),
				}, "itemId"),
			},
			Run: typed(bindItem, func(ctx context.Context, a itemArgs) (string, error) {
				item, err := d.Library.GetItem(ctx, a.ItemID)
				if err != nil {
					return "", err
				}
				return d.Summaries.SummarizeAndStore(ctx, item)
			}),
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "fix_citations",
				Description: "Lint and fix citation metadata for items.",
				Parameters: objReq(map[string]any{
					"itemIds": arrayOf("integer", "Array of item IDs"),
				}, "itemIds"),
			},
			Run: typed(bindItems, func(ctx context.Context, a itemsArgs) (string, error) {
				items, err := d.Library.GetItems(ctx, a.ItemIDs)
				if err != nil {
					return "", err
				}
				res := d.Citations.FixCitations(ctx, items)
				return fmt.Sprintf("Fixed %d items. %d errors.", res.Fixed, len(res.Errors)), nil
			}),
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "check_open_access",
				Description: "Check open access availability for items.",
				Parameters: objReq(map[string]any{
					"itemIds": arrayOf("integer", "Array of item IDs"),
				}, "itemIds"),
			},
			Run: typed(bindItems, func(ctx context.Context, a itemsArgs) (string, error) {
				items, err := d.Library.GetItems(ctx, a.ItemIDs)
				if err != nil {
					return "", err
				}
				statuses, err := d.OpenAccess.CheckItems(ctx, items)
				if err != nil {
					return "", err
				}
				var parts []string
				for _, it := range items {
					st, ok := statuses[it.ID]
					if !ok {
						continue
					}
					parts = append(parts, formatOA(it.Title, st))
				}
				if len(parts) == 0 {
					return "No items checked.", nil
				}
				return strings.Join(parts, separator), nil
			}),
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "get_collection_items",
				Description: "Get all items in a named collection.",
				Parameters: objReq(map[string]any{
					"collectionName": prop("string", "Name of the collection"),
				}, "collectionName"),
			},
			Run: typed(bindCollection, func(ctx context.Context, a collectionArgs) (string, error) {
				col, err := d.Library.FindCollection(ctx, a.Name)
				if err != nil {
					return "", err
				}
				if col == nil {
					return "No collection matching " + a.Name + ".", nil
				}
				items, err := d.Library.CollectionItems(ctx, col.ID)
				if err != nil {
					return "", err
				}
				if len(items) == 0 {
					return "Collection " + col.Name + " is empty.", nil
				}
				return formatItems(items), nil
			}),
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "get_selected_items",
				Description: "Get the currently selected items in the library.",
				Parameters:  objReq(map[string]any{}),
			},
			Run: func(ctx context.Context, _ map[string]any) (string, error) {
				items, err := d.Library.SelectedItems(ctx)
				if err != nil {
					return "", err
				}
				if len(items) == 0 {
					return "No items selected.", nil
				}
				return formatItems(items), nil
			},
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "get_recent_items",
				Description: "Get the most recently added items in the library.",
				Parameters: objReq(map[string]any{
					"count": prop("integer", "Number of items (default 10)"),
				}),
			},
			Run: typed(bindRecent, func(ctx context.Context, a recentArgs) (string, error) {
				items, err := d.Library.RecentItems(ctx, a.Count)
				if err != nil {
					return "", err
				}
				if len(items) == 0 {
					return "No items found.", nil
				}
				return formatItems(items), nil
			}),
		},
	}
}

func formatResults(results []bridge.SearchResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		authors := r.Authors
		if authors == "" {
			authors = "Unknown"
		}
		year := r.Year
		if year == "" {
			year = "N/A"
		}
		parts[i] = "Title: " + r.Title + "\nAuthors: " + authors + "\nYear: " + year + "\nID: " + strconv.FormatInt(r.ItemID, 10)
	}
	return strings.Join(parts, separator)
}

func formatItems(items []db.Item) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = "Title: " + it.Title + "\nID: " + strconv.FormatInt(it.ID, 10)
	}
	return strings.Join(parts, separator)
}

func formatOA(title string, st oa.Status) string {
	s := "Title: " + title + "\nOA: "
	if st.IsOpenAccess {
		s += "Open Access"
	} else {
		s += "Closed"
	}
	if st.Location != "" {
		s += "\nURL: " + st.Location
	}
	return s
}
