package interview

import "fmt"

// AdvanceScoreThreshold is the minimum score that lets a phase end before
// its maximum question count.
const AdvanceScoreThreshold = 8.0

func DefaultPhaseConfigs() []PhaseConfig {
	return []PhaseConfig{
		{Phase: PhaseWarmUp, MinQuestions: 1, MaxQuestions: 2, PrimaryRole: RoleHR},
		{Phase: PhaseTechnical, MinQuestions: 3, MaxQuestions: 5, PrimaryRole: RoleTechnical},
		{Phase: PhaseBehavioral, MinQuestions: 2, MaxQuestions: 3, PrimaryRole: RoleHR},
		{Phase: PhaseBusiness, MinQuestions: 2, MaxQuestions: 3, PrimaryRole: RoleBusiness},
		{Phase: PhaseQuestions, MinQuestions: 1, MaxQuestions: 2, PrimaryRole: RoleHR},
	}
}

// ValidatePhaseConfigs checks that configs cover every non-terminal phase
// exactly once, in order, with sane question counts.
func ValidatePhaseConfigs(configs []PhaseConfig) error {
	if len(configs) != int(PhaseCompleted) {
		return fmt.Errorf("%w: expected %d phases, got %d", ErrInvalidPhaseConfig, int(PhaseCompleted), len(configs))
	}

	for i, c := range configs {
		if c.Phase != Phase(i) {
			return fmt.Errorf("%w: entry %d is %s, expected %s", ErrInvalidPhaseConfig, i, c.Phase, Phase(i))
		}
		if c.MinQuestions < 1 || c.MaxQuestions < c.MinQuestions {
			return fmt.Errorf("%w: %s needs 1 <= min (%d) <= max (%d)", ErrInvalidPhaseConfig, c.Phase, c.MinQuestions, c.MaxQuestions)
		}
		if !c.PrimaryRole.Valid() {
			return fmt.Errorf("%w: %s has unknown primary role %q", ErrInvalidPhaseConfig, c.Phase, c.PrimaryRole)
		}
	}

	return nil
}

// PhaseMachine tracks which interview phase is active. It knows nothing
// about personas and never blocks.
type PhaseMachine struct {
	configs      []PhaseConfig
	current      Phase
	inPhaseCount int
	totalCount   int
}

func NewPhaseMachine(configs []PhaseConfig) (*PhaseMachine, error) {
	if err := ValidatePhaseConfigs(configs); err != nil {
		return nil, err
	}

	return &PhaseMachine{
		configs: append([]PhaseConfig(nil), configs...),
		current: PhaseWarmUp,
	}, nil
}

func (m *PhaseMachine) Current() Phase {
	return m.current
}

// Config returns the configuration of the active phase. It reports false
// once the interview is completed.
func (m *PhaseMachine) Config() (PhaseConfig, bool) {
	if m.current >= PhaseCompleted {
		return PhaseConfig{}, false
	}
	return m.configs[m.current], true
}

// RecordQuestion counts an answered question and forces a transition when
// the phase's maximum is reached.
func (m *PhaseMachine) RecordQuestion() (Phase, bool) {
	m.inPhaseCount++
	m.totalCount++

	cfg, ok := m.Config()
	if !ok {
		return m.current, false
	}

	if m.inPhaseCount >= cfg.MaxQuestions {
		return m.advance()
	}
	return m.current, false
}

// MaybeAdvance ends the phase early on a strong answer once the minimum
// question count has been reached.
func (m *PhaseMachine) MaybeAdvance(score float64) (Phase, bool) {
	cfg, ok := m.Config()
	if !ok {
		return m.current, false
	}

	if m.inPhaseCount >= cfg.MinQuestions && score >= AdvanceScoreThreshold {
		return m.advance()
	}
	return m.current, false
}

func (m *PhaseMachine) Progress() Progress {
	return Progress{
		Phase:        m.current,
		InPhaseCount: m.inPhaseCount,
		TotalCount:   m.totalCount,
		IsCompleted:  m.current == PhaseCompleted,
	}
}

func (m *PhaseMachine) advance() (Phase, bool) {
	next, ok := m.current.Next()
	if !ok {
		return m.current, false
	}

	m.inPhaseCount = 0
	m.current = next
	return next, true
}
