package models

import (
	"time"

	"github.com/google/uuid"
)

type BuildStatus string

const (
	StatusQueued     BuildStatus = "queued"
	StatusProcessing BuildStatus = "processing"
	StatusCompleted  BuildStatus = "completed"
	StatusFailed     BuildStatus = "failed"
)

// KnowledgeBuild tracks one rebuild of the question-bank index.
type KnowledgeBuild struct {
	ID            uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Status        BuildStatus `gorm:"not null;default:'queued';index" json:"status"`
	Collection    *string     `gorm:"type:text" json:"collection,omitempty"`
	DocumentCount int         `gorm:"not null;default:0" json:"document_count"`
	ChunkCount    int         `gorm:"not null;default:0" json:"chunk_count"`
	ErrorMessage  *string     `gorm:"type:text" json:"error_message,omitempty"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
	CreatedAt     time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (KnowledgeBuild) TableName() string {
	return "knowledge_builds"
}
