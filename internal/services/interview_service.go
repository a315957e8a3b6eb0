package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"alfredoptarigan/interview-panel/internal/interview"
	"alfredoptarigan/interview-panel/internal/models"
	"alfredoptarigan/interview-panel/internal/repositories"
)

var (
	ErrSessionNotFound = errors.New("interview session not found")
	ErrEmptyInput      = errors.New("resume and job description are required")
)

// PanelSettings describes how every new session's panel is assembled.
type PanelSettings struct {
	Roles           []interview.Role
	Models          map[interview.Role]string
	ComparisonModel string
	Rotation        interview.RotationPolicy
	Phases          []interview.PhaseConfig
	DegradedRetries int
}

type InterviewService interface {
	StartSession(ctx context.Context, resume, jobDescription string) (uuid.UUID, error)
	StartSessionWithRotation(ctx context.Context, resume, jobDescription string, policy interview.RotationPolicy) (uuid.UUID, error)
	NextQuestion(ctx context.Context, id uuid.UUID) (*models.QuestionResponse, error)
	NextQuestionStream(ctx context.Context, id uuid.UUID, onFragment interview.FragmentFunc) (*models.QuestionResponse, error)
	SubmitAnswer(ctx context.Context, id uuid.UUID, answer string) (*models.AnswerResponse, error)
	Progress(ctx context.Context, id uuid.UUID) (*interview.Progress, error)
	Transcript(ctx context.Context, id uuid.UUID) ([]interview.ConversationTurn, error)
	CompareAnswer(ctx context.Context, question, candidateAnswer, referenceAnswer string) (*interview.ComparisonResult, error)
	EndSession(id uuid.UUID) error
}

// liveSession is one interview. mu serialises the session's operations;
// a caller that finds it held gets ErrSessionBusy.
type liveSession struct {
	mu        sync.Mutex
	id        uuid.UUID
	ic        *interview.InterviewContext
	scheduler *interview.Scheduler
}

type interviewService struct {
	gateway     interview.GenerationGateway
	retriever   interview.KnowledgeRetriever
	comparison  *interview.ComparisonEngine
	sessionRepo repositories.SessionRepository
	settings    PanelSettings

	mu       sync.RWMutex
	sessions map[uuid.UUID]*liveSession
}

// NewInterviewService validates settings by assembling a throwaway panel.
// sessionRepo may be nil, in which case sessions live in memory only.
func NewInterviewService(
	gateway interview.GenerationGateway,
	retriever interview.KnowledgeRetriever,
	sessionRepo repositories.SessionRepository,
	settings PanelSettings,
) (InterviewService, error) {
	if len(settings.Roles) == 0 {
		settings.Roles = []interview.Role{interview.RoleTechnical, interview.RoleHR, interview.RoleBusiness}
	}
	if settings.Phases == nil {
		settings.Phases = interview.DefaultPhaseConfigs()
	}

	comparison, err := interview.NewComparisonEngine(gateway, settings.ComparisonModel)
	if err != nil {
		return nil, err
	}

	s := &interviewService{
		gateway:     gateway,
		retriever:   retriever,
		comparison:  comparison,
		sessionRepo: sessionRepo,
		settings:    settings,
		sessions:    make(map[uuid.UUID]*liveSession),
	}

	if _, err := s.newScheduler(settings.Rotation); err != nil {
		return nil, fmt.Errorf("invalid panel settings: %w", err)
	}

	return s, nil
}

func (s *interviewService) StartSession(ctx context.Context, resume, jobDescription string) (uuid.UUID, error) {
	return s.StartSessionWithRotation(ctx, resume, jobDescription, s.settings.Rotation)
}

func (s *interviewService) StartSessionWithRotation(ctx context.Context, resume, jobDescription string, policy interview.RotationPolicy) (uuid.UUID, error) {
	if resume == "" || jobDescription == "" {
		return uuid.Nil, ErrEmptyInput
	}

	scheduler, err := s.newScheduler(policy)
	if err != nil {
		return uuid.Nil, err
	}

	sess := &liveSession{
		id:        uuid.New(),
		ic:        interview.NewInterviewContext(resume, jobDescription),
		scheduler: scheduler,
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	if s.sessionRepo != nil {
		progress := scheduler.Progress()
		record := &models.InterviewSession{
			ID:             sess.id,
			Resume:         resume,
			JobDescription: jobDescription,
			Rotation:       scheduler.Policy().String(),
			Phase:          progress.Phase.String(),
		}
		if err := s.sessionRepo.Create(record); err != nil {
			log.Printf("⚠️  Session %s not persisted: %v", sess.id, err)
		}
	}

	log.Printf("✅ Interview session %s started (rotation %s)", sess.id, scheduler.Policy())
	return sess.id, nil
}

func (s *interviewService) NextQuestion(ctx context.Context, id uuid.UUID) (*models.QuestionResponse, error) {
	return s.nextQuestion(ctx, id, nil)
}

func (s *interviewService) NextQuestionStream(ctx context.Context, id uuid.UUID, onFragment interview.FragmentFunc) (*models.QuestionResponse, error) {
	if onFragment == nil {
		return nil, errors.New("stream consumer is required")
	}
	return s.nextQuestion(ctx, id, onFragment)
}

func (s *interviewService) nextQuestion(ctx context.Context, id uuid.UUID, onFragment interview.FragmentFunc) (*models.QuestionResponse, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	turn, err := sess.scheduler.ExecuteTurn(ctx, sess.ic, onFragment)
	if err != nil {
		return nil, err
	}
	s.persist(sess)

	return &models.QuestionResponse{
		Role:         turn.Role,
		DisplayName:  turn.DisplayName,
		QuestionText: turn.Question,
		Phase:        sess.ic.Phase,
	}, nil
}

func (s *interviewService) SubmitAnswer(ctx context.Context, id uuid.UUID, answer string) (*models.AnswerResponse, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	outcome, err := sess.scheduler.ProcessAnswer(ctx, sess.ic, answer)
	if err != nil {
		return nil, err
	}
	s.persist(sess)

	return &models.AnswerResponse{
		Analysis:            outcome.Analysis,
		PhaseTransition:     outcome.Transition,
		FollowUpRecommended: outcome.FollowUp,
		Progress:            sess.scheduler.Progress(),
	}, nil
}

func (s *interviewService) Progress(_ context.Context, id uuid.UUID) (*interview.Progress, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	progress := sess.scheduler.Progress()
	return &progress, nil
}

// Transcript returns the session history. Sessions that are no longer live
// are read back from the repository.
func (s *interviewService) Transcript(_ context.Context, id uuid.UUID) ([]interview.ConversationTurn, error) {
	sess, err := s.acquire(id)
	if errors.Is(err, ErrSessionNotFound) && s.sessionRepo != nil {
		return s.storedTranscript(id)
	}
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	return append([]interview.ConversationTurn(nil), sess.ic.History...), nil
}

func (s *interviewService) storedTranscript(id uuid.UUID) ([]interview.ConversationTurn, error) {
	record, err := s.sessionRepo.FindByID(id)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	turns := make([]interview.ConversationTurn, 0, len(record.Turns))
	for _, t := range record.Turns {
		turns = append(turns, interview.ConversationTurn{
			Role:        interview.Role(t.Role),
			DisplayName: t.DisplayName,
			Question:    t.Question,
			Answer:      t.Answer,
			Analysis:    t.Analysis,
			Degraded:    t.Degraded,
			AskedAt:     t.AskedAt,
		})
	}
	return turns, nil
}

func (s *interviewService) CompareAnswer(ctx context.Context, question, candidateAnswer, referenceAnswer string) (*interview.ComparisonResult, error) {
	return s.comparison.Compare(ctx, question, candidateAnswer, referenceAnswer)
}

// EndSession drops the session at once. A call still running for it
// finishes with ErrSchedulerClosed and changes nothing.
func (s *interviewService) EndSession(id uuid.UUID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	sess.scheduler.Close()

	if s.sessionRepo != nil {
		if err := s.sessionRepo.MarkEnded(id); err != nil {
			log.Printf("⚠️  Failed to mark session %s ended: %v", id, err)
		}
	}

	log.Printf("🛑 Interview session %s ended", id)
	return nil
}

func (s *interviewService) lookup(id uuid.UUID) (*liveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *interviewService) acquire(id uuid.UUID) (*liveSession, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if !sess.mu.TryLock() {
		return nil, interview.ErrSessionBusy
	}
	return sess, nil
}

func (s *interviewService) newScheduler(policy interview.RotationPolicy) (*interview.Scheduler, error) {
	agents := make([]interview.Agent, 0, len(s.settings.Roles))
	for _, role := range s.settings.Roles {
		agent, err := interview.NewInterviewer(role, s.settings.Models[role], s.gateway, s.retriever)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}

	return interview.NewScheduler(agents,
		interview.WithRotation(policy),
		interview.WithPhaseConfigs(s.settings.Phases),
		interview.WithDegradedRetries(s.settings.DegradedRetries),
	)
}

// persist writes the committed state. Failures are logged only; the
// in-memory session stays authoritative.
func (s *interviewService) persist(sess *liveSession) {
	if s.sessionRepo == nil {
		return
	}

	progress := sess.scheduler.Progress()
	snapshot := &models.InterviewSession{
		ID:           sess.id,
		Phase:        progress.Phase.String(),
		InPhaseCount: progress.InPhaseCount,
		TotalCount:   progress.TotalCount,
		Completed:    progress.IsCompleted,
		Turns:        make([]models.InterviewTurn, 0, len(sess.ic.History)),
	}

	for i, turn := range sess.ic.History {
		record := models.InterviewTurn{
			SessionID:   sess.id,
			Position:    i,
			Role:        string(turn.Role),
			DisplayName: turn.DisplayName,
			Question:    turn.Question,
			Answer:      turn.Answer,
			Analysis:    turn.Analysis,
			Degraded:    turn.Degraded,
			AskedAt:     turn.AskedAt,
		}
		if turn.Analysis != nil {
			score := turn.Analysis.Score
			record.Score = &score
		}
		snapshot.Turns = append(snapshot.Turns, record)
	}

	if err := s.sessionRepo.SaveSnapshot(snapshot); err != nil {
		log.Printf("⚠️  Snapshot of session %s not saved: %v", sess.id, err)
	}
}
