package interview

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *InterviewContext {
	ic := NewInterviewContext("Go engineer, 6 years, built payment APIs", "Backend engineer: Go, PostgreSQL, Kafka")
	return ic
}

func TestGenerateQuestion_ZeroRetrievedItems(t *testing.T) {
	gateway := &MockGateway{}
	agent, err := NewTechnicalInterviewer("model-technical", gateway, &MockRetriever{})
	require.NoError(t, err)

	question, err := agent.GenerateQuestion(context.Background(), testContext(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Question from model-technical", question)

	reqs := gateway.Requests()
	require.Len(t, reqs, 1)
	prompt := reqs[0].Conversation[len(reqs[0].Conversation)-1].Text
	assert.Contains(t, prompt, "Go engineer, 6 years")
	assert.Contains(t, prompt, "Backend engineer: Go, PostgreSQL, Kafka")
	assert.NotContains(t, prompt, "REFERENCE QUESTION BANK")
	assert.Equal(t, "model-technical", reqs[0].Model)
	assert.False(t, reqs[0].JSONOutput)
}

func TestGenerateQuestion_RetrievalFailureIsNotFatal(t *testing.T) {
	retriever := &MockRetriever{
		TopKFunc: func(context.Context, string, int) ([]RetrievedItem, error) {
			return nil, &RetrievalError{Query: "q", Err: errors.New("index offline")}
		},
	}
	agent, err := NewHRInterviewer("model-hr", &MockGateway{}, retriever)
	require.NoError(t, err)

	question, err := agent.GenerateQuestion(context.Background(), testContext(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, question)
}

func TestGenerateQuestion_UsesRetrievedItemsAndHistory(t *testing.T) {
	var gotQuery string
	var gotK int
	retriever := &MockRetriever{
		TopKFunc: func(_ context.Context, query string, k int) ([]RetrievedItem, error) {
			gotQuery, gotK = query, k
			return []RetrievedItem{
				{Score: 0.91, ID: "q1", Payload: "Explain Kafka consumer groups"},
				{Score: 0.88, ID: "q2", Payload: "How do you tune PostgreSQL indexes?"},
				{Score: 0.80, ID: "q3", Payload: "Design an idempotent payment API"},
				{Score: 0.70, ID: "q4", Payload: "should be dropped"},
			}, nil
		},
	}
	gateway := &MockGateway{}
	agent, err := NewBusinessInterviewer("model-business", gateway, retriever)
	require.NoError(t, err)

	ic := testContext()
	answer := "I led the migration."
	ic.History = append(ic.History, ConversationTurn{Role: RoleHR, Question: "Tell me about yourself", Answer: &answer})

	_, err = agent.GenerateQuestion(context.Background(), ic, nil)
	require.NoError(t, err)

	assert.Equal(t, ic.JobDescription, gotQuery)
	assert.Equal(t, RetrievalLimit, gotK)

	req := gateway.Requests()[0]
	require.Len(t, req.Conversation, 3)
	assert.Equal(t, SpeakerInterviewer, req.Conversation[0].Speaker)
	assert.Equal(t, SpeakerCandidate, req.Conversation[1].Speaker)
	assert.Equal(t, SpeakerDirector, req.Conversation[2].Speaker)

	prompt := req.Conversation[2].Text
	assert.Contains(t, prompt, "Explain Kafka consumer groups")
	assert.Contains(t, prompt, "Design an idempotent payment API")
	assert.NotContains(t, prompt, "should be dropped")
}

func TestGenerateQuestion_Streaming(t *testing.T) {
	gateway := &MockGateway{}
	agent, err := NewTechnicalInterviewer("model-technical", gateway, nil)
	require.NoError(t, err)

	var fragments []string
	question, err := agent.GenerateQuestion(context.Background(), testContext(), func(fragment string) error {
		fragments = append(fragments, fragment)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "Streamed question from model-technical", question)
	assert.Equal(t, question, strings.Join(fragments, ""))
}

func TestGenerateQuestion_StreamErrorPropagates(t *testing.T) {
	streamErr := &GenerationError{Op: "stream", Model: "model-hr", Err: errors.New("connection reset")}
	gateway := &MockGateway{
		StreamFunc: func(context.Context, GenerationRequest) iter.Seq2[string, error] {
			return func(yield func(string, error) bool) {
				if !yield("Tell me", nil) {
					return
				}
				yield("", streamErr)
			}
		},
	}
	agent, err := NewHRInterviewer("model-hr", gateway, nil)
	require.NoError(t, err)

	_, err = agent.GenerateQuestion(context.Background(), testContext(), func(string) error { return nil })
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "stream", genErr.Op)
}

func TestAnalyzeAnswer_Parsed(t *testing.T) {
	gateway := &MockGateway{CompleteFunc: scoreByRole(8.5)}
	agent, err := NewTechnicalInterviewer("model-technical", gateway, nil)
	require.NoError(t, err)

	result, err := agent.AnalyzeAnswer(context.Background(), "What is MVCC?", "Multi-version concurrency control...", testContext())
	require.NoError(t, err)

	assert.InDelta(t, 8.5, result.Score, 1e-6)
	assert.False(t, result.Degraded)

	req := gateway.Requests()[0]
	assert.True(t, req.JSONOutput)
	assert.Contains(t, req.Conversation[0].Text, "What is MVCC?")
}

func TestAnalyzeAnswer_DegradesOnMalformedOutput(t *testing.T) {
	gateway := &MockGateway{
		CompleteFunc: func(context.Context, GenerationRequest) (string, error) {
			return "Pretty good answer, maybe a 7.", nil
		},
	}
	agent, err := NewHRInterviewer("model-hr", gateway, nil)
	require.NoError(t, err)

	result, err := agent.AnalyzeAnswer(context.Background(), "q", "a", testContext())
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, 5.0, result.Score)
	assert.Empty(t, result.Strengths)
	assert.Empty(t, result.Improvements)
	assert.Equal(t, "Pretty good answer, maybe a 7.", result.Summary)
}

func TestAnalyzeAnswer_GenerationErrorPropagates(t *testing.T) {
	gateway := &MockGateway{
		CompleteFunc: func(context.Context, GenerationRequest) (string, error) {
			return "", &GenerationError{Op: "complete", Model: "model-hr", Err: errors.New("401 invalid key")}
		},
	}
	agent, err := NewHRInterviewer("model-hr", gateway, nil)
	require.NoError(t, err)

	result, err := agent.AnalyzeAnswer(context.Background(), "q", "a", testContext())
	assert.Nil(t, result)
	var genErr *GenerationError
	assert.True(t, errors.As(err, &genErr))
}

func TestShouldFollowUp(t *testing.T) {
	long := strings.Repeat("x", 200)

	tests := []struct {
		name     string
		role     Role
		answer   string
		score    float64
		expected bool
	}{
		{name: "technical strong", role: RoleTechnical, answer: long, score: 7.0, expected: false},
		{name: "technical low score", role: RoleTechnical, answer: long, score: 6.9, expected: true},
		{name: "technical short answer", role: RoleTechnical, answer: strings.Repeat("x", 99), score: 9, expected: true},
		{name: "hr strong", role: RoleHR, answer: long, score: 7.5, expected: false},
		{name: "hr low score", role: RoleHR, answer: long, score: 7.4, expected: true},
		{name: "hr short answer", role: RoleHR, answer: strings.Repeat("x", 149), score: 9, expected: true},
		{name: "business strong", role: RoleBusiness, answer: strings.Repeat("x", 120), score: 8, expected: false},
		{name: "business short answer", role: RoleBusiness, answer: strings.Repeat("x", 119), score: 8, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent, err := NewInterviewer(tt.role, modelFor(tt.role), &MockGateway{}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, agent.ShouldFollowUp(tt.answer, &AnalysisResult{Score: tt.score}))
		})
	}
}

func TestNewInterviewer_Validation(t *testing.T) {
	_, err := NewInterviewer("recruiter", "m", &MockGateway{}, nil)
	assert.Error(t, err)

	_, err = NewInterviewer(RoleHR, "", &MockGateway{}, nil)
	assert.Error(t, err)

	_, err = NewInterviewer(RoleHR, "m", nil, nil)
	assert.Error(t, err)
}

func TestPersonasHaveDistinctIdentity(t *testing.T) {
	names := map[string]bool{}
	for _, role := range []Role{RoleTechnical, RoleHR, RoleBusiness} {
		agent, err := NewInterviewer(role, modelFor(role), &MockGateway{}, nil)
		require.NoError(t, err)
		assert.Equal(t, role, agent.Role())
		names[agent.DisplayName()] = true
	}
	assert.Len(t, names, 3)
}
