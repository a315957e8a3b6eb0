package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// RetrievalLimit is how many knowledge items ground one question.
const RetrievalLimit = 3

const (
	questionTemperature float32 = 0.7
	analysisTemperature float32 = 0.3
)

// Agent is an interviewer persona.
type Agent interface {
	Role() Role
	DisplayName() string
	// GenerateQuestion streams fragments to onFragment when it is non-nil.
	GenerateQuestion(ctx context.Context, ic *InterviewContext, onFragment FragmentFunc) (string, error)
	AnalyzeAnswer(ctx context.Context, question, answer string, ic *InterviewContext) (*AnalysisResult, error)
	ShouldFollowUp(answer string, analysis *AnalysisResult) bool
}

type interviewer struct {
	role      Role
	persona   persona
	model     string
	gateway   GenerationGateway
	retriever KnowledgeRetriever
}

// NewInterviewer builds the persona for role. retriever may be nil, in which
// case questions are grounded on the resume and job description only.
func NewInterviewer(role Role, model string, gateway GenerationGateway, retriever KnowledgeRetriever) (Agent, error) {
	p, ok := personas[role]
	if !ok {
		return nil, fmt.Errorf("unknown interviewer role %q", role)
	}
	if gateway == nil {
		return nil, errors.New("interviewer needs a generation gateway")
	}
	if model == "" {
		return nil, fmt.Errorf("no model configured for %s interviewer", role)
	}

	return &interviewer{
		role:      role,
		persona:   p,
		model:     model,
		gateway:   gateway,
		retriever: retriever,
	}, nil
}

func NewTechnicalInterviewer(model string, gateway GenerationGateway, retriever KnowledgeRetriever) (Agent, error) {
	return NewInterviewer(RoleTechnical, model, gateway, retriever)
}

func NewHRInterviewer(model string, gateway GenerationGateway, retriever KnowledgeRetriever) (Agent, error) {
	return NewInterviewer(RoleHR, model, gateway, retriever)
}

func NewBusinessInterviewer(model string, gateway GenerationGateway, retriever KnowledgeRetriever) (Agent, error) {
	return NewInterviewer(RoleBusiness, model, gateway, retriever)
}

func (a *interviewer) Role() Role {
	return a.role
}

func (a *interviewer) DisplayName() string {
	return a.persona.displayName
}

func (a *interviewer) GenerateQuestion(ctx context.Context, ic *InterviewContext, onFragment FragmentFunc) (string, error) {
	items := a.retrieve(ctx, ic.JobDescription)

	conversation := historyMessages(ic.History)
	conversation = append(conversation, Message{
		Speaker: SpeakerDirector,
		Text:    buildQuestionPrompt(ic, items, a.role),
	})

	req := GenerationRequest{
		Model:             a.model,
		SystemInstruction: a.persona.questionInstruction,
		Conversation:      conversation,
		Temperature:       questionTemperature,
	}

	var (
		question string
		err      error
	)
	if onFragment != nil {
		question, err = collectStream(a.gateway.Stream(ctx, req), onFragment)
	} else {
		question, err = a.gateway.Complete(ctx, req)
	}
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(question), nil
}

func (a *interviewer) AnalyzeAnswer(ctx context.Context, question, answer string, _ *InterviewContext) (*AnalysisResult, error) {
	raw, err := a.gateway.Complete(ctx, GenerationRequest{
		Model:             a.model,
		SystemInstruction: a.persona.analysisInstruction,
		Conversation: []Message{
			{Speaker: SpeakerDirector, Text: buildAnalysisPrompt(question, answer)},
		},
		Temperature: analysisTemperature,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, err
	}

	result, err := ParseAnalysis(raw)
	if err != nil {
		log.Printf("⚠️  %s: %v, using degraded analysis", a.persona.displayName, err)
		return DegradedAnalysis(raw), nil
	}

	return result, nil
}

func (a *interviewer) ShouldFollowUp(answer string, analysis *AnalysisResult) bool {
	if analysis == nil {
		return true
	}
	return len(answer) < a.persona.minAnswerLength || analysis.Score < a.persona.followUpScore
}

// retrieve is best effort: any failure means no reference material.
func (a *interviewer) retrieve(ctx context.Context, query string) []RetrievedItem {
	if a.retriever == nil {
		return nil
	}

	items, err := a.retriever.TopK(ctx, query, RetrievalLimit)
	if err != nil {
		log.Printf("⚠️  %s: retrieval unavailable: %v", a.persona.displayName, err)
		return nil
	}

	if len(items) > RetrievalLimit {
		items = items[:RetrievalLimit]
	}
	return items
}
