package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
)

const upsertBatchSize = 64

var ErrNothingToIndex = errors.New("no indexable text in any knowledge document")

// SnapshotStore is the part of QdrantService the indexer writes through.
type SnapshotStore interface {
	CreateSnapshotCollection(ctx context.Context) (string, error)
	UpsertChunks(ctx context.Context, collection string, chunks []KnowledgeChunk) error
	PromoteSnapshot(ctx context.Context, collection string) (previous string, err error)
	DropCollection(ctx context.Context, collection string) error
}

type IndexSource struct {
	ID   string
	Name string
	Path string
}

type RebuildReport struct {
	Collection string
	Documents  int
	Chunks     int
	Skipped    []string
}

type KnowledgeIndexer interface {
	Rebuild(ctx context.Context, sources []IndexSource) (*RebuildReport, error)
}

type knowledgeIndexer struct {
	parser      PDFParserService
	chunker     TextChunker
	embedder    Embedder
	store       SnapshotStore
	concurrency int

	// publishMu serialises create → upsert → promote → drop so concurrent
	// rebuilds never promote over the same previous collection.
	publishMu sync.Mutex
}

func NewKnowledgeIndexer(parser PDFParserService, chunker TextChunker, embedder Embedder, store SnapshotStore, concurrency int) KnowledgeIndexer {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &knowledgeIndexer{
		parser:      parser,
		chunker:     chunker,
		embedder:    embedder,
		store:       store,
		concurrency: concurrency,
	}
}

// Rebuild indexes every source into a fresh collection and only then points
// the alias at it. A failed rebuild leaves the live index untouched.
func (k *knowledgeIndexer) Rebuild(ctx context.Context, sources []IndexSource) (*RebuildReport, error) {
	report := &RebuildReport{}

	var chunks []KnowledgeChunk
	for _, src := range sources {
		content, err := k.parser.Extract(src.Path)
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", src.Name, err)
			report.Skipped = append(report.Skipped, src.Name)
			continue
		}

		pieces := k.chunker.ChunkText(content.Text, DefaultChunkSize, DefaultChunkOverlap)
		log.Printf("✂️  %s: %d pages, %d chunks", src.Name, content.PageCount, len(pieces))

		for i, text := range pieces {
			chunks = append(chunks, KnowledgeChunk{
				DocumentID: src.ID,
				Source:     src.Name,
				Index:      i,
				Text:       text,
			})
		}
		report.Documents++
	}

	if len(chunks) == 0 {
		return nil, ErrNothingToIndex
	}

	if err := k.embedAll(ctx, chunks); err != nil {
		return nil, err
	}

	collection, err := k.publish(ctx, chunks)
	if err != nil {
		return nil, err
	}

	report.Collection = collection
	report.Chunks = len(chunks)
	log.Printf("✅ Knowledge index rebuilt: %d documents, %d chunks in %s", report.Documents, report.Chunks, collection)

	return report, nil
}

// publish loads the embedded chunks into a new snapshot collection and
// makes it live.
func (k *knowledgeIndexer) publish(ctx context.Context, chunks []KnowledgeChunk) (string, error) {
	k.publishMu.Lock()
	defer k.publishMu.Unlock()

	collection, err := k.store.CreateSnapshotCollection(ctx)
	if err != nil {
		return "", err
	}

	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(chunks))
		if err := k.store.UpsertChunks(ctx, collection, chunks[start:end]); err != nil {
			k.discard(collection)
			return "", err
		}
	}

	previous, err := k.store.PromoteSnapshot(ctx, collection)
	if err != nil {
		k.discard(collection)
		return "", err
	}

	if previous != "" && previous != collection {
		if err := k.store.DropCollection(ctx, previous); err != nil {
			log.Printf("⚠️  Old snapshot %s left behind: %v", previous, err)
		}
	}

	return collection, nil
}

func (k *knowledgeIndexer) embedAll(ctx context.Context, chunks []KnowledgeChunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(k.concurrency)

	for i := range chunks {
		g.Go(func() error {
			embedding, err := k.embedder.GenerateEmbedding(gctx, chunks[i].Text)
			if err != nil {
				return fmt.Errorf("embed chunk %d of %s: %w", chunks[i].Index, chunks[i].Source, err)
			}
			chunks[i].Embedding = embedding
			return nil
		})
	}

	return g.Wait()
}

// discard drops a snapshot that never went live.
func (k *knowledgeIndexer) discard(collection string) {
	if err := k.store.DropCollection(context.Background(), collection); err != nil {
		log.Printf("⚠️  Failed to drop unfinished snapshot %s: %v", collection, err)
	}
}
