package bridge

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/chris/researchhub/internal/db"
	"github.com/chris/researchhub/internal/orchestrator"
)

var (
	ErrSearchUnavailable = errors.New("semantic search service is not available")
	ErrIndexNotReady     = errors.New("semantic search index is not ready. Please wait for indexing to complete.")
)

// Detector is the part of the orchestrator the bridges consult.
type Detector interface {
	Status() orchestrator.Status
	Refresh(ctx context.Context) orchestrator.Status
}

// SearchBackend is a vector index over library items.
type SearchBackend interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	FindSimilar(ctx context.Context, itemID int64, limit int) ([]SearchResult, error)
	Index(ctx context.Context, items []db.Item) error
	Ready(ctx context.Context) (bool, error)
}

// SemanticSearch checks availability and readiness before every query.
type SemanticSearch struct {
	backend    SearchBackend
	detector   Detector
	logger     *zap.Logger
	attempts   int
	retryDelay time.Duration
}

type SearchOption func(*SemanticSearch)

func WithSearchLogger(l *zap.Logger) SearchOption {
	return func(s *SemanticSearch) { s.logger = l }
}

// WithReadyRetry sets how often readiness is polled before giving up.
func WithReadyRetry(attempts int, delay time.Duration) SearchOption {
	return func(s *SemanticSearch) { s.attempts, s.retryDelay = attempts, delay }
}

// NewSemanticSearch wraps backend, which may be nil when no index is
// configured.
func NewSemanticSearch(backend SearchBackend, detector Detector, opts ...SearchOption) *SemanticSearch {
	s := &SemanticSearch{
		backend:    backend,
		detector:   detector,
		logger:     zap.NewNop(),
		attempts:   3,
		retryDelay: 2 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SemanticSearch) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	return s.backend.Search(ctx, query, limit)
}

func (s *SemanticSearch) FindSimilar(ctx context.Context, itemID int64, limit int) ([]SearchResult, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	return s.backend.FindSimilar(ctx, itemID, limit)
}

// Index adds items to the index. It is a no-op when search is unavailable.
func (s *SemanticSearch) Index(ctx context.Context, items []db.Item) error {
	if s.backend == nil || !s.detector.Status().Search.Available {
		return nil
	}
	return s.backend.Index(ctx, items)
}

func (s *SemanticSearch) ensure(ctx context.Context) error {
	if err := s.ensureAvailable(ctx); err != nil {
		return err
	}
	return s.ensureReady(ctx)
}

func (s *SemanticSearch) ensureAvailable(ctx context.Context) error {
	if s.backend == nil {
		return ErrSearchUnavailable
	}
	if s.detector.Status().Search.Available {
		return nil
	}
	if s.detector.Refresh(ctx).Search.Available {
		return nil
	}
	return ErrSearchUnavailable
}

func (s *SemanticSearch) ensureReady(ctx context.Context) error {
	for i := 0; i < s.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}
		ready, err := s.backend.Ready(ctx)
		if err == nil && ready {
			return nil
		}
		s.logger.Debug("search index not ready", zap.Int("attempt", i+1), zap.Error(err))
	}
	return ErrIndexNotReady
}
