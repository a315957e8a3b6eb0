package interview

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"
)

type RotationPolicy int

const (
	// RotationFixedOrder cycles through the agents in order.
	RotationFixedOrder RotationPolicy = iota
	// RotationPhaseBased picks the agent configured as the active phase's primary role.
	RotationPhaseBased
	// RotationRandom picks uniformly.
	RotationRandom
)

func (p RotationPolicy) String() string {
	switch p {
	case RotationFixedOrder:
		return "fixed_order"
	case RotationPhaseBased:
		return "phase_based"
	case RotationRandom:
		return "random"
	}
	return fmt.Sprintf("rotation(%d)", int(p))
}

func ParseRotationPolicy(name string) (RotationPolicy, error) {
	switch name {
	case "fixed_order", "fixed":
		return RotationFixedOrder, nil
	case "phase_based", "phase":
		return RotationPhaseBased, nil
	case "random":
		return RotationRandom, nil
	}
	return 0, fmt.Errorf("unknown rotation policy %q", name)
}

type SchedulerState int

const (
	StateIdle SchedulerState = iota
	StateAwaitingAnswer
)

func (s SchedulerState) String() string {
	if s == StateAwaitingAnswer {
		return "awaiting_answer"
	}
	return "idle"
}

// turnState is either idleState or awaitingAnswerState. Only the latter
// carries an open turn, so a second open turn cannot be expressed.
type turnState interface {
	kind() SchedulerState
}

type idleState struct{}

func (idleState) kind() SchedulerState { return StateIdle }

type awaitingAnswerState struct {
	agent     Agent
	turnIndex int
}

func (awaitingAnswerState) kind() SchedulerState { return StateAwaitingAnswer }

type AnswerOutcome struct {
	Analysis *AnalysisResult `json:"analysis"`
	// Transition is the phase entered because of this answer, if any.
	Transition *Phase `json:"phase_transition,omitempty"`
	// FollowUp is the grading persona's recommendation to probe deeper.
	FollowUp bool `json:"follow_up_recommended"`
}

type SchedulerOption func(*Scheduler)

func WithRotation(policy RotationPolicy) SchedulerOption {
	return func(s *Scheduler) { s.policy = policy }
}

func WithPhaseConfigs(configs []PhaseConfig) SchedulerOption {
	return func(s *Scheduler) { s.configs = configs }
}

func WithRand(r *rand.Rand) SchedulerOption {
	return func(s *Scheduler) { s.rng = r }
}

// WithDegradedRetries sets how many times a degraded analysis is
// regenerated before the fallback is accepted.
func WithDegradedRetries(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n >= 0 {
			s.degradedRetries = n
		}
	}
}

// WithLenientPhaseRouting lets a phase-based scheduler start even when a
// phase's primary role has no agent; such phases fall back to the first agent.
func WithLenientPhaseRouting() SchedulerOption {
	return func(s *Scheduler) { s.lenient = true }
}

// Scheduler decides whose turn it is and drives one session's
// question/answer protocol. Calls must not overlap; an overlapping call is
// rejected with ErrSessionBusy.
type Scheduler struct {
	agents          []Agent
	configs         []PhaseConfig
	machine         *PhaseMachine
	policy          RotationPolicy
	rng             *rand.Rand
	lenient         bool
	degradedRetries int

	mu       sync.Mutex
	state    turnState
	cursor   int
	inFlight bool
	closed   bool
}

func NewScheduler(agents []Agent, opts ...SchedulerOption) (*Scheduler, error) {
	if len(agents) == 0 {
		return nil, ErrNoAgents
	}

	s := &Scheduler{
		agents:          append([]Agent(nil), agents...),
		configs:         DefaultPhaseConfigs(),
		policy:          RotationFixedOrder,
		degradedRetries: 1,
		state:           idleState{},
		cursor:          -1,
	}
	for _, opt := range opts {
		opt(s)
	}

	machine, err := NewPhaseMachine(s.configs)
	if err != nil {
		return nil, err
	}
	s.machine = machine

	if s.policy == RotationPhaseBased && !s.lenient {
		for _, cfg := range s.configs {
			if s.indexOf(cfg.PrimaryRole) < 0 {
				return nil, fmt.Errorf("%w: %s phase needs a %s interviewer", ErrMissingPersona, cfg.Phase, cfg.PrimaryRole)
			}
		}
	}

	return s, nil
}

func (s *Scheduler) Policy() RotationPolicy {
	return s.policy
}

func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.kind()
}

func (s *Scheduler) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Progress()
}

// Close detaches the scheduler from its session. Results of calls still in
// flight are discarded when they arrive.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// ExecuteTurn asks the next question and opens a turn for it.
func (s *Scheduler) ExecuteTurn(ctx context.Context, ic *InterviewContext, onFragment FragmentFunc) (ConversationTurn, error) {
	s.mu.Lock()
	if err := s.beginLocked(); err != nil {
		s.mu.Unlock()
		return ConversationTurn{}, err
	}
	if s.state.kind() != StateIdle || ic.PendingTurn() >= 0 {
		s.inFlight = false
		s.mu.Unlock()
		return ConversationTurn{}, ErrTurnAlreadyPending
	}
	if s.machine.Current() == PhaseCompleted {
		s.inFlight = false
		s.mu.Unlock()
		return ConversationTurn{}, ErrInterviewCompleted
	}
	idx := s.selectLocked()
	s.mu.Unlock()

	agent := s.agents[idx]
	log.Printf("🤖 %s is asking (phase %s, rotation %s)", agent.DisplayName(), ic.Phase, s.policy)

	question, err := agent.GenerateQuestion(ctx, ic, onFragment)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		return ConversationTurn{}, err
	}
	if err := s.commitAllowedLocked(ctx); err != nil {
		return ConversationTurn{}, err
	}

	turn := ConversationTurn{
		Role:        agent.Role(),
		DisplayName: agent.DisplayName(),
		Question:    question,
		AskedAt:     time.Now(),
	}
	ic.History = append(ic.History, turn)
	s.cursor = idx
	s.state = awaitingAnswerState{agent: agent, turnIndex: len(ic.History) - 1}

	return turn, nil
}

// ProcessAnswer closes the open turn. The persona that asked the question
// grades the answer.
func (s *Scheduler) ProcessAnswer(ctx context.Context, ic *InterviewContext, answer string) (*AnswerOutcome, error) {
	s.mu.Lock()
	if err := s.beginLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	open, ok := s.state.(awaitingAnswerState)
	if !ok || open.turnIndex >= len(ic.History) {
		s.inFlight = false
		s.mu.Unlock()
		return nil, ErrNoPendingTurn
	}
	s.mu.Unlock()

	question := ic.History[open.turnIndex].Question
	analysis, err := s.analyze(ctx, open.agent, question, answer, ic)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		return nil, err
	}
	if err := s.commitAllowedLocked(ctx); err != nil {
		return nil, err
	}

	turn := &ic.History[open.turnIndex]
	recorded := answer
	turn.Answer = &recorded
	turn.Analysis = analysis
	turn.Degraded = analysis.Degraded
	s.state = idleState{}

	outcome := &AnswerOutcome{
		Analysis: analysis,
		FollowUp: open.agent.ShouldFollowUp(answer, analysis),
	}

	next, moved := s.machine.RecordQuestion()
	if !moved {
		next, moved = s.machine.MaybeAdvance(analysis.Score)
	}
	if moved {
		log.Printf("✅ Interview phase advanced to %s", next)
		outcome.Transition = &next
	}
	ic.Phase = s.machine.Current()

	return outcome, nil
}

func (s *Scheduler) analyze(ctx context.Context, agent Agent, question, answer string, ic *InterviewContext) (*AnalysisResult, error) {
	analysis, err := agent.AnalyzeAnswer(ctx, question, answer, ic)
	if err != nil {
		return nil, err
	}

	for attempt := 1; analysis.Degraded && attempt <= s.degradedRetries; attempt++ {
		log.Printf("⚠️  Degraded analysis from %s, regenerating (attempt %d)", agent.DisplayName(), attempt)
		retried, err := agent.AnalyzeAnswer(ctx, question, answer, ic)
		if err != nil {
			log.Printf("⚠️  Analysis retry failed, keeping degraded result: %v", err)
			break
		}
		analysis = retried
	}

	return analysis, nil
}

func (s *Scheduler) beginLocked() error {
	if s.closed {
		return ErrSchedulerClosed
	}
	if s.inFlight {
		return ErrSessionBusy
	}
	s.inFlight = true
	return nil
}

// commitAllowedLocked reports whether a finished call may still mutate the
// session.
func (s *Scheduler) commitAllowedLocked(ctx context.Context) error {
	if s.closed {
		return ErrSchedulerClosed
	}
	return ctx.Err()
}

func (s *Scheduler) selectLocked() int {
	switch s.policy {
	case RotationPhaseBased:
		cfg, ok := s.machine.Config()
		if !ok {
			return 0
		}
		if idx := s.indexOf(cfg.PrimaryRole); idx >= 0 {
			return idx
		}
		log.Printf("⚠️  No %s interviewer for phase %s, falling back to %s", cfg.PrimaryRole, cfg.Phase, s.agents[0].DisplayName())
		return 0
	case RotationRandom:
		if s.rng != nil {
			return s.rng.IntN(len(s.agents))
		}
		return rand.IntN(len(s.agents))
	default:
		return (s.cursor + 1) % len(s.agents)
	}
}

func (s *Scheduler) indexOf(role Role) int {
	for i, a := range s.agents {
		if a.Role() == role {
			return i
		}
	}
	return -1
}
