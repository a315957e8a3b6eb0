package interview

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleTechnical Role = "technical"
	RoleHR        Role = "hr"
	RoleBusiness  Role = "business"
)

func (r Role) Valid() bool {
	switch r {
	case RoleTechnical, RoleHR, RoleBusiness:
		return true
	}
	return false
}

// Phase is ordered: a larger value is a later stage of the interview.
type Phase int

const (
	PhaseWarmUp Phase = iota
	PhaseTechnical
	PhaseBehavioral
	PhaseBusiness
	PhaseQuestions
	PhaseCompleted
)

var phaseNames = [...]string{
	PhaseWarmUp:     "warm_up",
	PhaseTechnical:  "technical",
	PhaseBehavioral: "behavioral",
	PhaseBusiness:   "business",
	PhaseQuestions:  "questions",
	PhaseCompleted:  "completed",
}

func (p Phase) String() string {
	if p < PhaseWarmUp || p > PhaseCompleted {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Next returns the phase that follows p. Completed has no successor.
func (p Phase) Next() (Phase, bool) {
	if p >= PhaseCompleted || p < PhaseWarmUp {
		return p, false
	}
	return p + 1, true
}

func (p Phase) MarshalText() ([]byte, error) {
	if p < PhaseWarmUp || p > PhaseCompleted {
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func ParsePhase(name string) (Phase, error) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", name)
}

// InterviewContext is the single source of truth for one session's
// conversation. Only the Scheduler mutates it.
type InterviewContext struct {
	Resume         string
	JobDescription string
	History        []ConversationTurn
	Phase          Phase
}

func NewInterviewContext(resume, jobDescription string) *InterviewContext {
	return &InterviewContext{
		Resume:         resume,
		JobDescription: jobDescription,
		Phase:          PhaseWarmUp,
	}
}

// PendingTurn returns the index of the open turn, or -1.
func (ic *InterviewContext) PendingTurn() int {
	if n := len(ic.History); n > 0 && ic.History[n-1].Answer == nil {
		return n - 1
	}
	return -1
}

type ConversationTurn struct {
	Role        Role            `json:"role"`
	DisplayName string          `json:"display_name"`
	Question    string          `json:"question"`
	Answer      *string         `json:"answer,omitempty"`
	Analysis    *AnalysisResult `json:"analysis,omitempty"`
	Degraded    bool            `json:"degraded"`
	AskedAt     time.Time       `json:"asked_at"`
}

type AnalysisResult struct {
	Score        float64  `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Summary      string   `json:"summary"`
	Degraded     bool     `json:"degraded,omitempty"`
}

type PhaseConfig struct {
	Phase        Phase `yaml:"phase"`
	MinQuestions int   `yaml:"min_questions"`
	MaxQuestions int   `yaml:"max_questions"`
	PrimaryRole  Role  `yaml:"primary_role"`
}

type Progress struct {
	Phase        Phase `json:"phase"`
	InPhaseCount int   `json:"in_phase_count"`
	TotalCount   int   `json:"total_count"`
	IsCompleted  bool  `json:"is_completed"`
}

type MatchStatus string

const (
	MatchMatched MatchStatus = "matched"
	MatchPartial MatchStatus = "partial"
	MatchMissing MatchStatus = "missing"
)

type PointComparison struct {
	Aspect         string      `json:"aspect"`
	ReferencePoint string      `json:"best_answer_point"`
	CandidatePoint string      `json:"user_answer_point"`
	Status         MatchStatus `json:"match_status"`
	Suggestion     string      `json:"suggestion"`
}

type ComparisonResult struct {
	OverallMatch  float64           `json:"overall_match"`
	Comparisons   []PointComparison `json:"comparisons"`
	MissingPoints []string          `json:"missing_points"`
	ExtraPoints   []string          `json:"extra_points"`
}

type RetrievedItem struct {
	Score   float64 `json:"score"`
	ID      string  `json:"id"`
	Payload string  `json:"payload"`
}
