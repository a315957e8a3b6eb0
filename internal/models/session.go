package models

import (
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/interview-panel/internal/interview"
)

// InterviewSession is the persisted snapshot of a live interview.
type InterviewSession struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Resume         string     `gorm:"type:text;not null" json:"resume"`
	JobDescription string     `gorm:"type:text;not null" json:"job_description"`
	Rotation       string     `gorm:"type:text;not null" json:"rotation"`
	Phase          string     `gorm:"type:text;not null" json:"phase"`
	InPhaseCount   int        `gorm:"not null;default:0" json:"in_phase_count"`
	TotalCount     int        `gorm:"not null;default:0" json:"total_count"`
	Completed      bool       `gorm:"not null;default:false" json:"completed"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	CreatedAt      time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Turns []InterviewTurn `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"turns,omitempty"`
}

func (InterviewSession) TableName() string {
	return "interview_sessions"
}

type InterviewTurn struct {
	SessionID   uuid.UUID                 `gorm:"type:uuid;primaryKey" json:"-"`
	Position    int                       `gorm:"primaryKey;autoIncrement:false" json:"position"`
	Role        string                    `gorm:"type:text;not null" json:"role"`
	DisplayName string                    `gorm:"type:text" json:"display_name"`
	Question    string                    `gorm:"type:text;not null" json:"question"`
	Answer      *string                   `gorm:"type:text" json:"answer,omitempty"`
	Score       *float64                  `gorm:"type:decimal(4,2)" json:"score,omitempty"`
	Analysis    *interview.AnalysisResult `gorm:"type:jsonb;serializer:json" json:"analysis,omitempty"`
	Degraded    bool                      `gorm:"not null;default:false" json:"degraded"`
	AskedAt     time.Time                 `json:"asked_at"`
}

func (InterviewTurn) TableName() string {
	return "interview_turns"
}
