package services

import (
	"context"
	"strings"

	"alfredoptarigan/interview-panel/internal/interview"
)

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type VectorSearcher interface {
	SearchSimilar(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error)
}

type knowledgeRetriever struct {
	embedder Embedder
	searcher VectorSearcher
}

// NewKnowledgeRetriever embeds the query and searches the question bank.
func NewKnowledgeRetriever(embedder Embedder, searcher VectorSearcher) interview.KnowledgeRetriever {
	return &knowledgeRetriever{
		embedder: embedder,
		searcher: searcher,
	}
}

// TopK implements interview.KnowledgeRetriever.
func (r *knowledgeRetriever) TopK(ctx context.Context, query string, k int) ([]interview.RetrievedItem, error) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return []interview.RetrievedItem{}, nil
	}

	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, &interview.RetrievalError{Query: query, Err: err}
	}

	results, err := r.searcher.SearchSimilar(ctx, embedding, k)
	if err != nil {
		return nil, &interview.RetrievalError{Query: query, Err: err}
	}

	items := make([]interview.RetrievedItem, 0, len(results))
	for _, res := range results {
		if strings.TrimSpace(res.Text) == "" {
			continue
		}
		items = append(items, interview.RetrievedItem{
			Score:   float64(res.Score),
			ID:      res.ID,
			Payload: res.Text,
		})
	}

	return items, nil
}
