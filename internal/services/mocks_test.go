package services

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/google/uuid"

	"alfredoptarigan/interview-panel/internal/interview"
	"alfredoptarigan/interview-panel/internal/models"
	"alfredoptarigan/interview-panel/internal/repositories"
)

// MockEmbedder implements Embedder for testing
type MockEmbedder struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

// MockSearcher implements VectorSearcher for testing
type MockSearcher struct {
	SearchFunc func(ctx context.Context, embedding []float32, limit int) ([]SearchResult, error)
}

func (m *MockSearcher) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]SearchResult, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, embedding, limit)
	}
	return []SearchResult{}, nil
}

// MockStore implements SnapshotStore, recording what it was asked to do.
type MockStore struct {
	CreateFunc  func(ctx context.Context) (string, error)
	UpsertFunc  func(ctx context.Context, collection string, chunks []KnowledgeChunk) error
	PromoteFunc func(ctx context.Context, collection string) (string, error)

	mu       sync.Mutex
	upserted []KnowledgeChunk
	promoted []string
	dropped  []string
}

func (m *MockStore) CreateSnapshotCollection(ctx context.Context) (string, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx)
	}
	return "knowledge_2", nil
}

func (m *MockStore) UpsertChunks(ctx context.Context, collection string, chunks []KnowledgeChunk) error {
	if m.UpsertFunc != nil {
		if err := m.UpsertFunc(ctx, collection, chunks); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, chunks...)
	return nil
}

func (m *MockStore) PromoteSnapshot(ctx context.Context, collection string) (string, error) {
	m.mu.Lock()
	m.promoted = append(m.promoted, collection)
	m.mu.Unlock()
	if m.PromoteFunc != nil {
		return m.PromoteFunc(ctx, collection)
	}
	return "knowledge_1", nil
}

func (m *MockStore) DropCollection(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, collection)
	return nil
}

// MockParser implements PDFParserService over in-memory text keyed by path.
type MockParser struct {
	Texts map[string]string
}

func (m *MockParser) Extract(filePath string) (*PDFContent, error) {
	text, ok := m.Texts[filePath]
	if !ok {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}
	if text == "" {
		return nil, ErrEmptyDocument
	}
	return &PDFContent{Text: text, PageCount: 1, FilePath: filePath}, nil
}

// MockGateway implements interview.GenerationGateway for testing
type MockGateway struct {
	CompleteFunc func(ctx context.Context, req interview.GenerationRequest) (string, error)
}

func (m *MockGateway) Complete(ctx context.Context, req interview.GenerationRequest) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	if req.JSONOutput {
		return `{"score": 6.0, "strengths": ["clear"], "improvements": [], "summary": "Solid."}`, nil
	}
	return "Question from " + req.Model, nil
}

func (m *MockGateway) Stream(ctx context.Context, req interview.GenerationRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, part := range []string{"Streamed ", "from ", req.Model} {
			if !yield(part, nil) {
				return
			}
		}
	}
}

// MockSessionRepo implements repositories.SessionRepository in memory.
type MockSessionRepo struct {
	SaveErr error

	mu        sync.Mutex
	created   []*models.InterviewSession
	snapshots []*models.InterviewSession
	ended     []string
}

func (m *MockSessionRepo) Create(session *models.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, session)
	return nil
}

func (m *MockSessionRepo) SaveSnapshot(session *models.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, session)
	return m.SaveErr
}

func (m *MockSessionRepo) MarkEnded(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, id.String())
	return nil
}

func (m *MockSessionRepo) FindByID(id uuid.UUID) (*models.InterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].ID == id {
			return m.snapshots[i], nil
		}
	}
	for _, session := range m.created {
		if session.ID == id {
			return session, nil
		}
	}
	return nil, repositories.ErrSessionNotFound
}

func (m *MockSessionRepo) lastSnapshot() *models.InterviewSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snapshots) == 0 {
		return nil
	}
	return m.snapshots[len(m.snapshots)-1]
}
