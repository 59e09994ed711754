package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/chris/researchhub/internal/db"
	"github.com/chris/researchhub/internal/orchestrator"
)

type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantIndex stores one vector per regular item, keyed by item ID, with
// title, authors and year as payload.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	embedder   Embedder
	logger     *zap.Logger
}

func NewQdrantIndex(cfg QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QdrantIndex{client: client, collection: cfg.Collection, embedder: embedder, logger: logger}, nil
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func (q *QdrantIndex) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	vecs, err := q.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	n := uint64(limit)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vecs[0]...),
		Limit:          &n,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	return toResults(points, -1, limit), nil
}

// FindSimilar queries by the stored vector of itemID and leaves the item
// itself out of the results.
func (q *QdrantIndex) FindSimilar(ctx context.Context, itemID int64, limit int) ([]SearchResult, error) {
	n := uint64(limit + 1)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryID(qdrant.NewIDNum(uint64(itemID))),
		Limit:          &n,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant similar to %d: %w", itemID, err)
	}
	return toResults(points, itemID, limit), nil
}

// Index embeds and upserts the regular items among items, creating the
// collection on first use.
func (q *QdrantIndex) Index(ctx context.Context, items []db.Item) error {
	var regular []db.Item
	var texts []string
	for _, it := range items {
		if !it.IsRegular() {
			continue
		}
		regular = append(regular, it)
		texts = append(texts, indexText(it))
	}
	if len(regular) == 0 {
		return nil
	}

	vecs, err := q.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if err := q.ensureCollection(ctx, len(vecs[0])); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(regular))
	for i, it := range regular {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(it.ID)),
			Vectors: qdrant.NewVectors(vecs[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"title":   it.Title,
				"authors": it.Authors,
				"year":    it.Year,
			}),
		}
	}
	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	q.logger.Info("indexed items", zap.Int("count", len(points)), zap.String("collection", q.collection))
	return nil
}

// Ready reports whether the collection exists yet.
func (q *QdrantIndex) Ready(ctx context.Context) (bool, error) {
	return q.client.CollectionExists(ctx, q.collection)
}

func (q *QdrantIndex) Probe(ctx context.Context) orchestrator.Availability {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		q.logger.Debug("qdrant health check failed", zap.Error(err))
		return orchestrator.Availability{}
	}
	ready, err := q.Ready(ctx)
	return orchestrator.Availability{Available: true, Ready: err == nil && ready}
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, dim int) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", q.collection, err)
	}
	if exists {
		return nil
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", q.collection, err)
	}
	return nil
}

func indexText(it db.Item) string {
	parts := []string{it.Title}
	if it.Authors != "" {
		parts = append(parts, it.Authors)
	}
	if it.Abstract != "" {
		parts = append(parts, it.Abstract)
	}
	return strings.Join(parts, "\n\n")
}

// toResults converts scored points, skipping the point whose ID is skip,
// and keeps at most limit results.
func toResults(points []*qdrant.ScoredPoint, skip int64, limit int) []SearchResult {
	out := make([]SearchResult, 0, len(points))
	for _, p := range points {
		id := int64(p.GetId().GetNum())
		if id == skip {
			continue
		}
		if len(out) == limit {
			break
		}
		payload := p.GetPayload()
		out = append(out, SearchResult{
			ItemID:  id,
			Title:   payload["title"].GetStringValue(),
			Authors: payload["authors"].GetStringValue(),
			Year:    payload["year"].GetStringValue(),
			Score:   p.GetScore(),
		})
	}
	return out
}
