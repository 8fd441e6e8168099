package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	vectorName     = "content"
	payloadChunkID = "chunk_id"
	payloadText    = "text"
	scrollPageSize = uint32(256)
)

// pointNamespace derives Qdrant point UUIDs from chunk IDs, since Qdrant only
// accepts integers or UUIDs as point IDs.
var pointNamespace = uuid.MustParse("6f1c2d0e-4b1a-4e8e-9a57-0c3f52a1d7b4")

// QdrantConfig holds connection settings for a Qdrant server.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimension  int
}

// QdrantStore wraps the Qdrant client with connection management and health checks.
type QdrantStore struct {
	client *qdrant.Client
	cfg    QdrantConfig
}

// NewQdrantStore creates a Qdrant client, waits for the server to become healthy
// and ensures the collection exists. It fails fast with ErrUnreachable.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", cfg.Dimension)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &QdrantStore{client: client, cfg: cfg}

	if err := s.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if err := s.EnsureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error { return s.Health(ctx) }, backoff.WithContext(b, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the collection with cosine distance if it is missing.
// Idempotent - safe to call multiple times.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.cfg.Dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Keyword index on the chunk ID so lookups by ID stay cheap.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.cfg.Collection,
		FieldName:      payloadChunkID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field %s: %w", payloadChunkID, err)
	}
	return nil
}

// PointID maps a chunk ID to its stable Qdrant point UUID.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// ListIDs scrolls through the collection collecting chunk IDs from payloads.
func (s *QdrantStore) ListIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	var offset *qdrant.PointId

	for {
		points, next, err := s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: s.cfg.Collection,
			Limit:          qdrant.PtrOf(scrollPageSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude(payloadChunkID),
			WithVectors:    qdrant.NewWithVectors(false),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll points: %w", err)
		}

		for _, p := range points {
			if id := p.Payload[payloadChunkID].GetStringValue(); id != "" {
				ids[id] = struct{}{}
			}
		}

		if next == nil || len(points) == 0 {
			return ids, nil
		}
		offset = next
	}
}

// UpsertBatch stores entries as points and waits for the write to be applied.
func (s *QdrantStore) UpsertBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		if len(e.Vector) != s.cfg.Dimension {
			return fmt.Errorf("%w: entry %s has %d dimensions, expected %d",
				ErrDimensionMismatch, e.ID, len(e.Vector), s.cfg.Dimension)
		}

		payload := map[string]any{
			payloadChunkID: e.ID,
			payloadText:    e.Text,
		}
		for k, v := range e.Metadata {
			payload[k] = v
		}

		points[i] = &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(PointID(e.ID)),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				vectorName: qdrant.NewVector(e.Vector...),
			}),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	return s.upsertWithRetry(ctx, points)
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.cfg.Collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// QueryNearest returns the k closest chunks, ordered by similarity score.
func (s *QdrantStore) QueryNearest(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) != s.cfg.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.cfg.Dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	using := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Using:          &using,
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		meta := make(map[string]string)
		for key, v := range r.Payload {
			if key == payloadChunkID || key == payloadText {
				continue
			}
			meta[key] = payloadString(v)
		}
		hits = append(hits, Hit{
			ID:       r.Payload[payloadChunkID].GetStringValue(),
			Text:     r.Payload[payloadText].GetStringValue(),
			Metadata: meta,
			Score:    float64(r.Score),
		})
	}
	return hits, nil
}

func payloadString(v *qdrant.Value) string {
	switch v.GetKind().(type) {
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(v.GetIntegerValue(), 10)
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(v.GetDoubleValue(), 'f', -1, 64)
	case *qdrant.Value_BoolValue:
		return strconv.FormatBool(v.GetBoolValue())
	default:
		return v.GetStringValue()
	}
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count points: %v", ErrUnreachable, err)
	}
	return int(n), nil
}

// Reset deletes the collection and recreates it empty.
func (s *QdrantStore) Reset(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.cfg.Collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

func (s *QdrantStore) Location() string {
	return fmt.Sprintf("qdrant://%s:%d/%s", s.cfg.Host, s.cfg.Port, s.cfg.Collection)
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
