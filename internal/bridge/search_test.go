package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/qdrant/go-client/qdrant"

	"github.com/chris/researchhub/internal/db"
)

type fakeBackend struct {
	readyAfter int
	readyCalls int
	results    []SearchResult
	indexed    []db.Item
}

func (f *fakeBackend) Search(context.Context, string, int) ([]SearchResult, error) {
	return f.results, nil
}

func (f *fakeBackend) FindSimilar(context.Context, int64, int) ([]SearchResult, error) {
	return f.results, nil
}

func (f *fakeBackend) Index(_ context.Context, items []db.Item) error {
	f.indexed = append(f.indexed, items...)
	return nil
}

func (f *fakeBackend) Ready(context.Context) (bool, error) {
	f.readyCalls++
	if f.readyCalls > f.readyAfter {
		return true, nil
	}
	return false, errors.New("indexing")
}

func TestSemanticSearch_RefreshesOnceWhenUnavailable(t *testing.T) {
	det := &fakeDetector{}
	s := NewSemanticSearch(&fakeBackend{}, det, WithReadyRetry(3, 0))

	_, err := s.Search(context.Background(), "q", 5)
	if !errors.Is(err, ErrSearchUnavailable) {
		t.Fatalf("err = %v, want ErrSearchUnavailable", err)
	}
	if det.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", det.refreshes)
	}
	if err.Error() != "semantic search service is not available" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestSemanticSearch_LateDetection(t *testing.T) {
	backend := &fakeBackend{results: []SearchResult{{ItemID: 1, Title: "A"}}}
	det := &fakeDetector{afterRefresh: searchUp()}
	s := NewSemanticSearch(backend, det, WithReadyRetry(3, 0))

	got, err := s.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if diff := cmp.Diff(backend.results, got); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}
}

func TestSemanticSearch_ReadinessRetries(t *testing.T) {
	backend := &fakeBackend{readyAfter: 2}
	s := NewSemanticSearch(backend, &fakeDetector{status: searchUp()}, WithReadyRetry(3, time.Millisecond))
	if _, err := s.FindSimilar(context.Background(), 1, 5); err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if backend.readyCalls != 3 {
		t.Errorf("ready calls = %d", backend.readyCalls)
	}

	backend = &fakeBackend{readyAfter: 10}
	s = NewSemanticSearch(backend, &fakeDetector{status: searchUp()}, WithReadyRetry(3, time.Millisecond))
	_, err := s.Search(context.Background(), "q", 5)
	if !errors.Is(err, ErrIndexNotReady) {
		t.Errorf("err = %v, want ErrIndexNotReady", err)
	}
	if backend.readyCalls != 3 {
		t.Errorf("ready calls = %d, want 3", backend.readyCalls)
	}
}

func TestSemanticSearch_NilBackend(t *testing.T) {
	s := NewSemanticSearch(nil, &fakeDetector{status: searchUp()})
	if _, err := s.Search(context.Background(), "q", 5); !errors.Is(err, ErrSearchUnavailable) {
		t.Errorf("err = %v", err)
	}
	if err := s.Index(context.Background(), []db.Item{{ID: 1}}); err != nil {
		t.Errorf("Index on a missing backend should be a no-op, got %v", err)
	}
}

func TestSemanticSearch_IndexSkippedWhenUnavailable(t *testing.T) {
	backend := &fakeBackend{}
	s := NewSemanticSearch(backend, &fakeDetector{})
	s.Index(context.Background(), []db.Item{{ID: 1}})
	if len(backend.indexed) != 0 {
		t.Error("items indexed while search is unavailable")
	}
}

func TestToResults_SkipsSelfAndLimits(t *testing.T) {
	point := func(id uint64, title string, score float32) *qdrant.ScoredPoint {
		return &qdrant.ScoredPoint{
			Id:      qdrant.NewIDNum(id),
			Payload: qdrant.NewValueMap(map[string]any{"title": title, "year": "2020"}),
			Score:   score,
		}
	}
	points := []*qdrant.ScoredPoint{point(7, "self", 1), point(3, "B", 0.9), point(4, "C", 0.8)}

	got := toResults(points, 7, 1)
	want := []SearchResult{{ItemID: 3, Title: "B", Year: "2020", Score: 0.9}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}
}

func TestIndexText(t *testing.T) {
	got := indexText(db.Item{Title: "T", Abstract: "A"})
	if got != "T\n\nA" {
		t.Errorf("got %q", got)
	}
}
