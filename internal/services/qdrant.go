package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// QdrantService stores question-bank chunks. Searches always go through
// the alias, which points at one complete snapshot collection at a time.
type QdrantService interface {
	CreateSnapshotCollection(ctx context.Context) (string, error)
	UpsertChunks(ctx context.Context, collection string, chunks []KnowledgeChunk) error
	PromoteSnapshot(ctx context.Context, collection string) (previous string, err error)
	DropCollection(ctx context.Context, collection string) error
	CurrentSnapshot(ctx context.Context) (string, bool, error)
	SearchSimilar(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error)
}

// KnowledgeChunk is one embedded piece of a question-bank document.
type KnowledgeChunk struct {
	DocumentID string
	Source     string
	Index      int
	Text       string
	Embedding  []float32
}

type SearchResult struct {
	ID    string
	Score float32
	Text  string
}

type qdrantService struct {
	client     *qdrant.Client
	alias      string
	vectorSize uint64
}

func NewQdrantService(urlStr, apiKey, alias string, vectorSize uint64) (QdrantService, error) {
	// Parse URL to extract host, port, and TLS usage
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// For gRPC client, use port 6334 by default (gRPC port)
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:     client,
		alias:      alias,
		vectorSize: vectorSize,
	}, nil
}

// CreateSnapshotCollection implements QdrantService.
func (q *qdrantService) CreateSnapshotCollection(ctx context.Context) (string, error) {
	name := snapshotName(q.alias, time.Now())

	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return "", fmt.Errorf("snapshot collection %s already exists", name)
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("✅ Qdrant snapshot collection '%s' created", name)
	return name, nil
}

// UpsertChunks implements QdrantService.
func (q *qdrantService) UpsertChunks(ctx context.Context, collection string, chunks []KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, chunk := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"doc_id":      chunk.DocumentID,
				"source":      chunk.Source,
				"chunk_index": chunk.Index,
				"text":        chunk.Text,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}

	return nil
}

// PromoteSnapshot implements QdrantService. The alias is repointed in a
// single request so readers never observe a missing alias.
func (q *qdrantService) PromoteSnapshot(ctx context.Context, collection string) (string, error) {
	previous, found, err := q.CurrentSnapshot(ctx)
	if err != nil {
		return "", err
	}

	var ops []*qdrant.AliasOperations
	if found {
		ops = append(ops, qdrant.NewAliasDelete(q.alias))
	}
	ops = append(ops, qdrant.NewAliasCreate(q.alias, collection))

	if err := q.client.UpdateAliases(ctx, ops); err != nil {
		return "", fmt.Errorf("failed to point alias %s at %s: %w", q.alias, collection, err)
	}

	log.Printf("✅ Alias '%s' now serves '%s'", q.alias, collection)
	return previous, nil
}

// DropCollection implements QdrantService.
func (q *qdrantService) DropCollection(ctx context.Context, collection string) error {
	if err := q.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collection, err)
	}
	return nil
}

// CurrentSnapshot implements QdrantService.
func (q *qdrantService) CurrentSnapshot(ctx context.Context) (string, bool, error) {
	aliases, err := q.client.ListAliases(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to list aliases: %w", err)
	}

	for _, a := range aliases {
		if a.GetAliasName() == q.alias {
			return a.GetCollectionName(), true, nil
		}
	}
	return "", false, nil
}

// SearchSimilar implements QdrantService. A missing alias means nothing
// has been indexed yet and yields no results.
func (q *qdrantService) SearchSimilar(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	searchResult, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.alias,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			log.Printf("⚠️  Knowledge index '%s' not initialised yet", q.alias)
			return []SearchResult{}, nil
		}
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(searchResult))
	for _, point := range searchResult {
		payload := point.GetPayload()

		results = append(results, SearchResult{
			ID:    stringPayload(payload, "doc_id"),
			Score: point.GetScore(),
			Text:  stringPayload(payload, "text"),
		})
	}

	return results, nil
}

// snapshotName suffixes the alias with a nanosecond timestamp so builds
// started within the same second get distinct collections.
func snapshotName(alias string, at time.Time) string {
	return fmt.Sprintf("%s_%d", alias, at.UnixNano())
}

func stringPayload(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if val, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
			return val.StringValue
		}
	}
	return ""
}
