package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/mcp-docs-assistant/internal/index"
)

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client     *qdrant.Client
	host       string
	port       int
	collection string
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(host string, port int) (*QdrantStorage, error) {
	// Create Qdrant client using gRPC
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:     client,
		host:       host,
		port:       port,
		collection: CollectionName,
	}

	err = storage.healthCheckWithRetry(context.Background())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

func newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error { return s.Health(ctx) }, newBackOff(ctx))
}

// Health performs a single health check against Qdrant.
// Returns nil if Qdrant is healthy, error otherwise.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Index binds the collection to one build of the local index.
func (s *QdrantStorage) Index(buildID string, dim int, logger *slog.Logger) *QdrantIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &QdrantIndex{storage: s, buildID: buildID, dim: dim, logger: logger}
}

// recreateCollection drops the collection and creates it again for vectors
// of size dim compared by dot product.
func (s *QdrantStorage) recreateCollection(ctx context.Context, dim int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Dot,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Searches always filter on the build id.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      FieldBuildID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field %s: %w", FieldBuildID, err)
	}

	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	wait := true
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Wait:           &wait,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, newBackOff(ctx))
}

// QdrantIndex searches the vectors of one build stored in Qdrant. It
// satisfies the query engine's searcher and health checker contracts.
type QdrantIndex struct {
	storage *QdrantStorage
	buildID string
	dim     int
	logger  *slog.Logger
}

// BuildID returns the build this index is bound to.
func (q *QdrantIndex) BuildID() string { return q.buildID }

// Health reports whether Qdrant is reachable.
func (q *QdrantIndex) Health(ctx context.Context) error {
	return q.storage.Health(ctx)
}

// Count returns the number of points stored for the bound build.
func (q *QdrantIndex) Count(ctx context.Context) (uint64, error) {
	exists, err := q.storage.client.CollectionExists(ctx, q.storage.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return 0, nil
	}

	n, err := q.storage.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.storage.collection,
		Filter:         buildFilter(q.buildID),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}

// Publish replaces the collection's contents with the artifact's vectors.
// The artifact must belong to the bound build.
func (q *QdrantIndex) Publish(ctx context.Context, a *index.Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.BuildID != q.buildID {
		return fmt.Errorf("artifact build %s does not match index build %s", a.BuildID, q.buildID)
	}
	if a.Index.Dim() != q.dim {
		return fmt.Errorf("%w: artifact has %d dimensions, index expects %d",
			ErrDimensionMismatch, a.Index.Dim(), q.dim)
	}

	if err := q.storage.recreateCollection(ctx, q.dim); err != nil {
		return err
	}

	vectors := a.Index.Vectors()
	for i := 0; i < len(vectors); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(vectors))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for pos := i; pos < end; pos++ {
			points = append(points, newPoint(q.buildID, pos, vectors[pos], a.Records[pos]))
		}

		if err := q.storage.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	q.logger.Info("Published index to Qdrant",
		"collection", q.storage.collection,
		"points", len(vectors),
		"build", q.buildID,
	)
	return nil
}

// Sync publishes the artifact unless the collection already holds exactly
// its points.
func (q *QdrantIndex) Sync(ctx context.Context, a *index.Artifact) error {
	n, err := q.Count(ctx)
	if err != nil {
		return err
	}
	if n == uint64(len(a.Records)) {
		q.logger.Debug("Qdrant collection up to date", "points", n, "build", q.buildID)
		return nil
	}
	return q.Publish(ctx, a)
}

// Search returns the k nearest points of the bound build by inner product.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]index.Neighbor, error) {
	if len(query) != q.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(query), q.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := q.storage.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.storage.collection,
		Query:          qdrant.NewQuery(query...),
		Filter:         buildFilter(q.buildID),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(false),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	return toNeighbors(results), nil
}
