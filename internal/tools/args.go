package tools

import (
	"context"
	"fmt"
)

// Argument extraction. JSON decoding hands numbers over as float64.

func getInt(params map[string]any, key string) (int64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	return toInt(v)
}

func getString(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func getIDs(params map[string]any, key string) ([]int64, error) {
	raw, ok := params[key].([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of item IDs", key)
	}
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		id, ok := toInt(v)
		if !ok {
			return nil, fmt.Errorf("%s contains a non-integer ID: %v", key, v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// limitOr returns the positive integer at key, or def. Zero counts as
// unset, the way the model often sends it.
func limitOr(params map[string]any, key string, def int) int {
	if n, ok := getInt(params, key); ok && n > 0 {
		return int(n)
	}
	return def
}

type searchArgs struct {
	Query string
	Limit int
}

type similarArgs struct {
	ItemID int64
	Limit  int
}

type itemArgs struct {
	ItemID int64
}

type itemsArgs struct {
	ItemIDs []int64
}

type collectionArgs struct {
	Name string
}

type recentArgs struct {
	Count int
}

func bindSearch(p map[string]any) (searchArgs, error) {
	q, _ := getString(p, "query")
	return searchArgs{Query: q, Limit: limitOr(p, "limit", defaultLimit)}, nil
}

func bindSimilar(p map[string]any) (similarArgs, error) {
	id, _ := getInt(p, "itemId")
	return similarArgs{ItemID: id, Limit: limitOr(p, "limit", defaultLimit)}, nil
}

func bindItem(p map[string]any) (itemArgs, error) {
	id, _ := getInt(p, "itemId")
	return itemArgs{ItemID: id}, nil
}

func bindItems(p map[string]any) (itemsArgs, error) {
	ids, err := getIDs(p, "itemIds")
	return itemsArgs{ItemIDs: ids}, err
}

func bindCollection(p map[string]any) (collectionArgs, error) {
	name, _ := getString(p, "collectionName")
	return collectionArgs{Name: name}, nil
}

func bindRecent(p map[string]any) (recentArgs, error) {
	return recentArgs{Count: limitOr(p, "count", defaultRecent)}, nil
}

// typed adapts a per-tool argument struct to the generic Executor shape.
func typed[A any](bind func(map[string]any) (A, error), run func(context.Context, A) (string, error)) Executor {
	return func(ctx context.Context, p map[string]any) (string, error) {
		a, err := bind(p)
		if err != nil {
			return "", err
		}
		return run(ctx, a)
	}
}
