package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/interview-panel/internal/interview"
	"alfredoptarigan/interview-panel/internal/models"
	"alfredoptarigan/interview-panel/internal/repositories"
	"alfredoptarigan/interview-panel/internal/services"
)

// MockInterviewService implements services.InterviewService for testing
type MockInterviewService struct {
	StartFunc      func(ctx context.Context, resume, jd string, policy interview.RotationPolicy) (uuid.UUID, error)
	NextFunc       func(ctx context.Context, id uuid.UUID) (*models.QuestionResponse, error)
	StreamFunc     func(ctx context.Context, id uuid.UUID, onFragment interview.FragmentFunc) (*models.QuestionResponse, error)
	SubmitFunc     func(ctx context.Context, id uuid.UUID, answer string) (*models.AnswerResponse, error)
	ProgressFunc   func(ctx context.Context, id uuid.UUID) (*interview.Progress, error)
	TranscriptFunc func(ctx context.Context, id uuid.UUID) ([]interview.ConversationTurn, error)
	EndFunc        func(id uuid.UUID) error
}

func (m *MockInterviewService) StartSession(ctx context.Context, resume, jd string) (uuid.UUID, error) {
	return m.StartSessionWithRotation(ctx, resume, jd, interview.RotationPhaseBased)
}

func (m *MockInterviewService) StartSessionWithRotation(ctx context.Context, resume, jd string, policy interview.RotationPolicy) (uuid.UUID, error) {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, resume, jd, policy)
	}
	return uuid.New(), nil
}

func (m *MockInterviewService) NextQuestion(ctx context.Context, id uuid.UUID) (*models.QuestionResponse, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, id)
	}
	return &models.QuestionResponse{Role: interview.RoleHR, QuestionText: "Tell me about yourself.", Phase: interview.PhaseWarmUp}, nil
}

func (m *MockInterviewService) NextQuestionStream(ctx context.Context, id uuid.UUID, onFragment interview.FragmentFunc) (*models.QuestionResponse, error) {
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, id, onFragment)
	}
	return nil, errors.New("not implemented")
}

func (m *MockInterviewService) SubmitAnswer(ctx context.Context, id uuid.UUID, answer string) (*models.AnswerResponse, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, id, answer)
	}
	return &models.AnswerResponse{Analysis: &interview.AnalysisResult{Score: 7}}, nil
}

func (m *MockInterviewService) Progress(ctx context.Context, id uuid.UUID) (*interview.Progress, error) {
	if m.ProgressFunc != nil {
		return m.ProgressFunc(ctx, id)
	}
	return &interview.Progress{Phase: interview.PhaseWarmUp}, nil
}

func (m *MockInterviewService) Transcript(ctx context.Context, id uuid.UUID) ([]interview.ConversationTurn, error) {
	if m.TranscriptFunc != nil {
		return m.TranscriptFunc(ctx, id)
	}
	return []interview.ConversationTurn{}, nil
}

func (m *MockInterviewService) CompareAnswer(ctx context.Context, question, candidate, reference string) (*interview.ComparisonResult, error) {
	return &interview.ComparisonResult{OverallMatch: 0.5}, nil
}

func (m *MockInterviewService) EndSession(id uuid.UUID) error {
	if m.EndFunc != nil {
		return m.EndFunc(id)
	}
	return nil
}

func newTestApp(svc services.InterviewService) *fiber.App {
	h := NewSessionHandler(svc, interview.RotationPhaseBased, time.Second)

	app := fiber.New()
	sessions := app.Group("/sessions")
	sessions.Post("/", h.HandleStart)
	sessions.Delete("/:id", h.HandleEnd)
	sessions.Post("/:id/questions", h.HandleNextQuestion)
	sessions.Get("/:id/questions/stream", h.HandleQuestionStream)
	sessions.Post("/:id/answers", h.HandleSubmitAnswer)
	sessions.Get("/:id/progress", h.HandleProgress)
	return app
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleStart(t *testing.T) {
	var gotPolicy interview.RotationPolicy
	svc := &MockInterviewService{StartFunc: func(_ context.Context, _, _ string, policy interview.RotationPolicy) (uuid.UUID, error) {
		gotPolicy = policy
		return uuid.New(), nil
	}}
	app := newTestApp(svc)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/sessions/", fiber.Map{
		"resume":          "Go engineer with six years of payments experience",
		"job_description": "Senior backend engineer: Go, Postgres, Kafka",
		"rotation":        "random",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, interview.RotationRandom, gotPolicy)

	var body models.StartSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "random", body.Rotation)
	_, err = uuid.Parse(body.SessionID)
	assert.NoError(t, err)
}

func TestHandleStart_ValidationUsesJSONNames(t *testing.T) {
	app := newTestApp(&MockInterviewService{})

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/sessions/", fiber.Map{
		"resume":   "short",
		"rotation": "alphabetical",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body struct {
		Details []string `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	joined := strings.Join(body.Details, "\n")
	assert.Contains(t, joined, "resume failed on 'min'")
	assert.Contains(t, joined, "job_description failed on 'required'")
	assert.Contains(t, joined, "rotation failed on 'oneof'")
}

func TestHandleNextQuestion(t *testing.T) {
	app := newTestApp(&MockInterviewService{})

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/sessions/"+uuid.NewString()+"/questions", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body models.QuestionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, interview.RoleHR, body.Role)
	assert.Equal(t, "Tell me about yourself.", body.QuestionText)
}

func TestHandleNextQuestion_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown session", services.ErrSessionNotFound, fiber.StatusNotFound},
		{"pending turn", interview.ErrTurnAlreadyPending, fiber.StatusConflict},
		{"busy", interview.ErrSessionBusy, fiber.StatusConflict},
		{"model failure", &interview.GenerationError{Op: "complete", Err: errors.New("quota")}, fiber.StatusBadGateway},
		{"unexpected", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&MockInterviewService{NextFunc: func(context.Context, uuid.UUID) (*models.QuestionResponse, error) {
				return nil, tt.err
			}})

			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/sessions/"+uuid.NewString()+"/questions", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHandleSubmitAnswer(t *testing.T) {
	var gotAnswer string
	app := newTestApp(&MockInterviewService{SubmitFunc: func(_ context.Context, _ uuid.UUID, answer string) (*models.AnswerResponse, error) {
		gotAnswer = answer
		return &models.AnswerResponse{Analysis: &interview.AnalysisResult{Score: 8.5}}, nil
	}})
	path := "/sessions/" + uuid.NewString() + "/answers"

	resp, err := app.Test(jsonRequest(t, http.MethodPost, path, fiber.Map{"answer": "I led the migration."}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "I led the migration.", gotAnswer)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, path, fiber.Map{}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandlers_RejectMalformedSessionID(t *testing.T) {
	app := newTestApp(&MockInterviewService{})

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/sessions/not-a-uuid/progress", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleEnd(t *testing.T) {
	ended := uuid.New()
	app := newTestApp(&MockInterviewService{EndFunc: func(id uuid.UUID) error {
		if id != ended {
			return services.ErrSessionNotFound
		}
		return nil
	}})

	resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/sessions/"+ended.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodDelete, "/sessions/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleQuestionStream(t *testing.T) {
	app := newTestApp(&MockInterviewService{StreamFunc: func(_ context.Context, _ uuid.UUID, onFragment interview.FragmentFunc) (*models.QuestionResponse, error) {
		for _, part := range []string{"Walk me ", "through it."} {
			if err := onFragment(part); err != nil {
				return nil, err
			}
		}
		return &models.QuestionResponse{Role: interview.RoleTechnical, QuestionText: "Walk me through it."}, nil
	}})

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/sessions/"+uuid.NewString()+"/questions/stream", nil))
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)

	assert.Equal(t, 2, strings.Count(body, "event: fragment\n"))
	assert.Contains(t, body, `data: {"text":"Walk me "}`)
	assert.Contains(t, body, "event: question\n")
	assert.Less(t, strings.LastIndex(body, "event: fragment"), strings.Index(body, "event: question"))
}

func TestHandleQuestionStream_RejectedBeforeStreaming(t *testing.T) {
	answered := "I would use a token bucket."
	tests := []struct {
		name string
		svc  *MockInterviewService
		want int
	}{
		{
			name: "unknown session",
			svc: &MockInterviewService{ProgressFunc: func(context.Context, uuid.UUID) (*interview.Progress, error) {
				return nil, services.ErrSessionNotFound
			}},
			want: fiber.StatusNotFound,
		},
		{
			name: "interview completed",
			svc: &MockInterviewService{ProgressFunc: func(context.Context, uuid.UUID) (*interview.Progress, error) {
				return &interview.Progress{Phase: interview.PhaseCompleted, IsCompleted: true}, nil
			}},
			want: fiber.StatusConflict,
		},
		{
			name: "turn pending",
			svc: &MockInterviewService{TranscriptFunc: func(context.Context, uuid.UUID) ([]interview.ConversationTurn, error) {
				return []interview.ConversationTurn{
					{Role: interview.RoleHR, Question: "Why us?", Answer: &answered},
					{Role: interview.RoleTechnical, Question: "Design a rate limiter."},
				}, nil
			}},
			want: fiber.StatusConflict,
		},
		{
			name: "session busy",
			svc: &MockInterviewService{TranscriptFunc: func(context.Context, uuid.UUID) ([]interview.ConversationTurn, error) {
				return nil, interview.ErrSessionBusy
			}},
			want: fiber.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			streamed := false
			tt.svc.StreamFunc = func(context.Context, uuid.UUID, interview.FragmentFunc) (*models.QuestionResponse, error) {
				streamed = true
				return nil, errors.New("should not be called")
			}
			app := newTestApp(tt.svc)

			resp, err := app.Test(jsonRequest(t, http.MethodGet, "/sessions/"+uuid.NewString()+"/questions/stream", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEqual(t, "text/event-stream", resp.Header.Get("Content-Type"))
			assert.False(t, streamed)
		})
	}
}

// MockDocumentRepo implements repositories.DocumentRepository for testing
type MockDocumentRepo struct {
	Docs map[uuid.UUID]*models.Document
}

func (m *MockDocumentRepo) Create(doc *models.Document) error {
	m.Docs[doc.ID] = doc
	return nil
}

func (m *MockDocumentRepo) FindByID(id uuid.UUID) (*models.Document, error) {
	doc, ok := m.Docs[id]
	if !ok {
		return nil, repositories.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *MockDocumentRepo) FindByType(string) ([]models.Document, error) {
	return nil, nil
}

func TestHandleGetDocument(t *testing.T) {
	doc := &models.Document{
		ID:               uuid.New(),
		Filename:         "stored.pdf",
		OriginalFileName: "backend-questions.pdf",
		FileType:         models.DocumentTypeQuestionBank,
	}
	h := NewUploadHandler(&MockDocumentRepo{Docs: map[uuid.UUID]*models.Document{doc.ID: doc}}, nil, 1<<20)
	app := fiber.New()
	app.Get("/knowledge/documents/:id", h.HandleGetDocument)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/knowledge/documents/"+doc.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body models.UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "backend-questions.pdf", body.OriginalName)

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/knowledge/documents/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/knowledge/documents/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrSessionNotFound, fiber.StatusNotFound},
		{fmt.Errorf("lookup: %w", repositories.ErrBuildNotFound), fiber.StatusNotFound},
		{repositories.ErrDocumentNotFound, fiber.StatusNotFound},
		{interview.ErrInterviewCompleted, fiber.StatusConflict},
		{services.ErrEmptyInput, fiber.StatusBadRequest},
		{&interview.ParseError{Raw: "not json", Err: errors.New("bad")}, fiber.StatusBadGateway},
		{errors.New("anything else"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
