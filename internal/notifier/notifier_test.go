package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chris/researchhub/internal/bridge"
	"github.com/chris/researchhub/internal/db"
	"github.com/chris/researchhub/internal/oa"
)

type caps struct{ lint, search bool }

func (c caps) CanFixCitations() bool   { return c.lint }
func (c caps) CanSemanticSearch() bool { return c.search }

type recorder struct {
	mu         sync.Mutex
	linted     []int64
	oaChecked  []int64
	summarized []int64
	indexed    []int64
	failOn     int64
}

func ids(items []db.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func (r *recorder) FixCitations(_ context.Context, items []db.Item) bridge.FixResult {
	r.linted = ids(items)
	return bridge.FixResult{Fixed: len(items)}
}

func (r *recorder) CheckItems(_ context.Context, items []db.Item) (map[int64]oa.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oaChecked = ids(items)
	return nil, nil
}

func (r *recorder) SummarizeAndStore(_ context.Context, item db.Item) (string, error) {
	if item.ID == r.failOn {
		return "", errors.New("model offline")
	}
	r.summarized = append(r.summarized, item.ID)
	return "summary", nil
}

func (r *recorder) Index(_ context.Context, items []db.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = ids(items)
	return nil
}

func batch() []db.Item {
	parent := int64(1)
	return []db.Item{
		{ID: 1, Title: "Paper", ItemType: "journalArticle"},
		{ID: 2, ItemType: db.ItemTypeAttachment, ParentID: &parent},
		{ID: 3, ItemType: db.ItemTypeNote, ParentID: &parent},
		{ID: 4, Title: "Another", ItemType: "book"},
	}
}

func newNotifier(r *recorder, c caps, f Flags) *Notifier {
	return New(Deps{Caps: c, Citations: r, OpenAccess: r, Summaries: r, Index: r}, func() Flags { return f }, nil)
}

func TestItemsAdded_AllEnabled(t *testing.T) {
	r := &recorder{failOn: 4}
	n := newNotifier(r, caps{lint: true, search: true}, Flags{AutoLint: true, OpenAccess: true, AutoSummarize: true})

	rep := n.ItemsAdded(context.Background(), batch())
	n.Wait()

	want := []int64{1, 4}
	if diff := cmp.Diff(want, r.linted); diff != "" {
		t.Errorf("linted (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, r.oaChecked); diff != "" {
		t.Errorf("oa checked (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, r.indexed); diff != "" {
		t.Errorf("indexed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{1}, r.summarized); diff != "" {
		t.Errorf("summarized (-want +got):\n%s", diff)
	}
	if rep.Regular != 2 || rep.Summarized != 1 || rep.Background != 2 || rep.Lint == nil || rep.Lint.Fixed != 2 {
		t.Errorf("report = %+v", rep)
	}
}

func TestItemsAdded_RespectsFlagsAndCapabilities(t *testing.T) {
	r := &recorder{}
	n := newNotifier(r, caps{}, Flags{AutoLint: true})

	rep := n.ItemsAdded(context.Background(), batch())
	n.Wait()

	if r.linted != nil || r.oaChecked != nil || r.summarized != nil || r.indexed != nil {
		t.Errorf("nothing should run: %+v", r)
	}
	if rep.Lint != nil || rep.Background != 0 {
		t.Errorf("report = %+v", rep)
	}
}

func TestItemsAdded_OnlyNonRegular(t *testing.T) {
	r := &recorder{}
	n := newNotifier(r, caps{lint: true, search: true}, Flags{AutoLint: true, OpenAccess: true, AutoSummarize: true})
	rep := n.ItemsAdded(context.Background(), batch()[1:3])
	n.Wait()
	if rep.Regular != 0 || r.linted != nil || r.indexed != nil {
		t.Errorf("attachments and notes must be ignored: %+v %+v", rep, r)
	}
}

func TestBackgroundSurvivesCallerCancel(t *testing.T) {
	r := &recorder{}
	n := newNotifier(r, caps{search: true}, Flags{})
	ctx, cancel := context.WithCancel(context.Background())
	n.ItemsAdded(ctx, batch())
	cancel()
	n.Wait()
	if diff := cmp.Diff([]int64{1, 4}, r.indexed); diff != "" {
		t.Errorf("indexed (-want +got):\n%s", diff)
	}
}
