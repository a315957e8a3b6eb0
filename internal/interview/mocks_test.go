package interview

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// MockGateway implements GenerationGateway for testing
type MockGateway struct {
	CompleteFunc func(ctx context.Context, req GenerationRequest) (string, error)
	StreamFunc   func(ctx context.Context, req GenerationRequest) iter.Seq2[string, error]

	mu       sync.Mutex
	requests []GenerationRequest
}

func (m *MockGateway) Complete(ctx context.Context, req GenerationRequest) (string, error) {
	m.record(req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	if req.JSONOutput {
		return `{"score": 6.0, "strengths": ["clear"], "improvements": ["more depth"], "summary": "Solid answer."}`, nil
	}
	return "Question from " + req.Model, nil
}

func (m *MockGateway) Stream(ctx context.Context, req GenerationRequest) iter.Seq2[string, error] {
	m.record(req)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	return func(yield func(string, error) bool) {
		for _, word := range []string{"Streamed ", "question ", "from ", req.Model} {
			if !yield(word, nil) {
				return
			}
		}
	}
}

func (m *MockGateway) record(req GenerationRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

func (m *MockGateway) Requests() []GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerationRequest(nil), m.requests...)
}

// MockRetriever implements KnowledgeRetriever for testing
type MockRetriever struct {
	TopKFunc func(ctx context.Context, query string, k int) ([]RetrievedItem, error)
}

func (m *MockRetriever) TopK(ctx context.Context, query string, k int) ([]RetrievedItem, error) {
	if m.TopKFunc != nil {
		return m.TopKFunc(ctx, query, k)
	}
	return []RetrievedItem{}, nil
}

func modelFor(role Role) string {
	return "model-" + string(role)
}

func analysisJSON(score float64) string {
	return fmt.Sprintf(`{"score": %.1f, "strengths": ["good"], "improvements": [], "summary": "ok"}`, score)
}

// scoreByRole answers every analysis request with score and every question
// request with the asking model's name.
func scoreByRole(score float64) func(context.Context, GenerationRequest) (string, error) {
	return func(_ context.Context, req GenerationRequest) (string, error) {
		if req.JSONOutput {
			return analysisJSON(score), nil
		}
		return "Question from " + req.Model, nil
	}
}

func newPanel(t *testing.T, gateway GenerationGateway, retriever KnowledgeRetriever, roles ...Role) []Agent {
	t.Helper()
	if len(roles) == 0 {
		roles = []Role{RoleTechnical, RoleHR, RoleBusiness}
	}

	agents := make([]Agent, 0, len(roles))
	for _, role := range roles {
		agent, err := NewInterviewer(role, modelFor(role), gateway, retriever)
		require.NoError(t, err)
		agents = append(agents, agent)
	}
	return agents
}

func roleOfModel(model string) Role {
	return Role(strings.TrimPrefix(model, "model-"))
}
